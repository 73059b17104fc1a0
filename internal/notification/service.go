package notification

import (
	"context"
	"encoding/json"
	"log"

	"github.com/segmentio/kafka-go"
)

// Service is the fire-and-forget notification sink. Notify never
// returns an error to its caller: delivery failures are logged and must
// not roll back the operation that emitted the notification.
type Service interface {
	Notify(ctx context.Context, msg Message)

	ListByUser(ctx context.Context, userID uint, unreadOnly bool, limit int) ([]Notification, error)
	UnreadCount(ctx context.Context, userID uint) (int64, error)
	MarkRead(ctx context.Context, id uint, userID uint) error
	MarkAllRead(ctx context.Context, userID uint) error

	RegisterDeviceToken(ctx context.Context, userID uint, token, platform string) error
	RemoveDeviceToken(ctx context.Context, userID uint, token string) error
}

type service struct {
	repo   Repository
	writer *kafka.Writer // nil when Kafka is disabled
	push   *FCMChannel   // nil client inside when FCM is disabled
}

func NewService(repo Repository, writer *kafka.Writer, push *FCMChannel) Service {
	return &service{repo: repo, writer: writer, push: push}
}

func (s *service) Notify(ctx context.Context, msg Message) {
	if s.writer == nil {
		s.deliver(ctx, msg)
		return
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		log.Printf("notification marshal failed: %v", err)
		return
	}

	if err := s.writer.WriteMessages(ctx, kafka.Message{Value: payload}); err != nil {
		log.Printf("notification publish failed, writing directly: %v", err)
		s.deliver(ctx, msg)
	}
}

func (s *service) deliver(ctx context.Context, msg Message) {
	deliverMessage(ctx, s.repo, s.push, msg)
}

// deliverMessage persists the in-app row and pushes to the user's
// devices. Shared between the synchronous path and the Kafka consumer.
func deliverMessage(ctx context.Context, repo Repository, push *FCMChannel, msg Message) {
	n := &Notification{
		UserID:  msg.UserID,
		Type:    msg.Type,
		Title:   msg.Title,
		Message: msg.Message,
		EventID: msg.EventID,
		ClubID:  msg.ClubID,
	}
	if err := repo.Create(ctx, n); err != nil {
		log.Printf("notification write failed (user=%d type=%s): %v", msg.UserID, msg.Type, err)
		return
	}

	if push != nil {
		tokens, err := repo.GetActiveTokens(ctx, msg.UserID)
		if err != nil || len(tokens) == 0 {
			return
		}
		if err := push.Send(tokens, msg.Title, msg.Message); err != nil {
			log.Printf("push delivery failed (user=%d): %v", msg.UserID, err)
		}
	}
}

func (s *service) ListByUser(ctx context.Context, userID uint, unreadOnly bool, limit int) ([]Notification, error) {
	return s.repo.ListByUser(ctx, userID, unreadOnly, limit)
}

func (s *service) UnreadCount(ctx context.Context, userID uint) (int64, error) {
	return s.repo.UnreadCount(ctx, userID)
}

func (s *service) MarkRead(ctx context.Context, id uint, userID uint) error {
	return s.repo.MarkRead(ctx, id, userID)
}

func (s *service) MarkAllRead(ctx context.Context, userID uint) error {
	return s.repo.MarkAllRead(ctx, userID)
}

func (s *service) RegisterDeviceToken(ctx context.Context, userID uint, token, platform string) error {
	return s.repo.SaveDeviceToken(ctx, &DeviceToken{
		UserID:   userID,
		Token:    token,
		Platform: platform,
		IsActive: true,
	})
}

func (s *service) RemoveDeviceToken(ctx context.Context, userID uint, token string) error {
	return s.repo.RemoveDeviceToken(ctx, userID, token)
}
