package utils

import (
	"context"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/tuannn09/event-connect-backend/config"
)

var RedisClient *redis.Client

// InitRedis connects the shared Redis client. Redis is optional: when
// REDIS_ADDR is unset the client stays nil and callers degrade
// gracefully (memory rate-limit store, no response caching).
func InitRedis(cfg *config.Config) error {
	if cfg.RedisAddr == "" {
		log.Println("Redis not configured, caching disabled")
		return nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return err
	}

	RedisClient = client
	log.Println("Redis connected:", cfg.RedisAddr)
	return nil
}
