package notification

import (
	"context"
	"fmt"
	"log"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"

	"github.com/tuannn09/event-connect-backend/config"
)

// FCMChannel pushes notifications to registered device tokens.
type FCMChannel struct {
	client *messaging.Client
}

// NewFCMChannel initializes FCM with service account credentials.
// Returns a disabled channel (nil client) when FCM is not configured.
func NewFCMChannel(cfg *config.Config) *FCMChannel {
	if cfg.FCMCredentialsPath == "" {
		log.Println("FCM not configured, push notifications disabled")
		return &FCMChannel{}
	}

	ctx := context.Background()
	opt := option.WithCredentialsFile(cfg.FCMCredentialsPath)
	app, err := firebase.NewApp(ctx, nil, opt)
	if err != nil {
		log.Printf("FCM init failed: %v", err)
		return &FCMChannel{}
	}

	client, err := app.Messaging(ctx)
	if err != nil {
		log.Printf("FCM messaging client failed: %v", err)
		return &FCMChannel{}
	}

	log.Println("FCM initialized for project:", cfg.FCMProjectID)
	return &FCMChannel{client: client}
}

// Send pushes title/body to the given device tokens.
func (f *FCMChannel) Send(tokens []string, title, body string) error {
	if f.client == nil {
		return fmt.Errorf("FCM client not initialized")
	}
	if len(tokens) == 0 {
		return fmt.Errorf("no device tokens provided")
	}

	msg := &messaging.MulticastMessage{
		Tokens: tokens,
		Notification: &messaging.Notification{
			Title: title,
			Body:  body,
		},
	}

	resp, err := f.client.SendEachForMulticast(context.Background(), msg)
	if err != nil {
		return err
	}
	if resp.FailureCount > 0 {
		log.Printf("FCM: %d of %d sends failed", resp.FailureCount, len(tokens))
	}
	return nil
}
