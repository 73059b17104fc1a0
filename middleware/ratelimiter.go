package middleware

import (
	"log"
	"time"

	"github.com/gin-gonic/gin"
	libredis "github.com/redis/go-redis/v9"
	"github.com/ulule/limiter/v3"
	ginlimiter "github.com/ulule/limiter/v3/drivers/middleware/gin"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	sredis "github.com/ulule/limiter/v3/drivers/store/redis"
)

// RateLimiter limits requests per client IP across the whole API.
// Counters live in Redis when a client is available so limits hold
// across instances; otherwise an in-memory store is used.
func RateLimiter(rdb *libredis.Client) gin.HandlerFunc {
	rate := limiter.Rate{
		Period: 1 * time.Minute,
		Limit:  100,
	}

	var store limiter.Store
	if rdb != nil {
		s, err := sredis.NewStoreWithOptions(rdb, limiter.StoreOptions{
			Prefix: "ratelimit",
		})
		if err != nil {
			log.Printf("rate limiter: redis store unavailable, falling back to memory: %v", err)
		} else {
			store = s
		}
	}
	if store == nil {
		store = memory.NewStore()
	}

	return ginlimiter.NewMiddleware(limiter.New(store, rate))
}
