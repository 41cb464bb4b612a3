package notification

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

const (
	// TypeTransferReceived indicates funds arrived from another wallet.
	TypeTransferReceived = "transfer_received"
	// TypeWithdrawalFailed indicates a withdrawal failed and was refunded.
	TypeWithdrawalFailed = "withdrawal_failed"
	// TypeWithdrawalSuccessful indicates a withdrawal completed.
	TypeWithdrawalSuccessful = "withdrawal_successful"
)

// Payload describes what the user sees plus structured data for the client.
type Payload struct {
	Title string         `json:"title"`
	Body  string         `json:"body"`
	Data  map[string]any `json:"data,omitempty"`
}

// Notifier delivers notifications to downstream systems. Delivery is
// fire-and-forget from the ledger core's point of view: callers log failures
// and never roll back committed state because of them.
type Notifier interface {
	Send(ctx context.Context, userIDs []string, payload Payload) error
}

// LoggerNotifier is a stub implementation that writes notifications to the logger.
type LoggerNotifier struct {
	logger *slog.Logger
}

// NewLoggerNotifier constructs a logging notifier stub.
func NewLoggerNotifier(logger *slog.Logger) *LoggerNotifier {
	return &LoggerNotifier{logger: logger}
}

// Send writes the message to the structured logger.
func (n *LoggerNotifier) Send(_ context.Context, userIDs []string, payload Payload) error {
	if n == nil || n.logger == nil {
		return nil
	}
	n.logger.Info("notification",
		"users", userIDs, "title", payload.Title, "body", payload.Body, "data", payload.Data)
	return nil
}

type envelope struct {
	UserIDs []string `json:"userIds"`
	Payload Payload  `json:"payload"`
}

// RedisNotifier publishes notifications on a Redis channel for the
// notification service to deliver.
type RedisNotifier struct {
	client  *redis.Client
	channel string
}

// NewRedisNotifier constructs a notifier that publishes to the given channel.
func NewRedisNotifier(client *redis.Client, channel string) *RedisNotifier {
	if channel == "" {
		channel = "notifications"
	}
	return &RedisNotifier{client: client, channel: channel}
}

// Send publishes the notification envelope as JSON.
func (n *RedisNotifier) Send(ctx context.Context, userIDs []string, payload Payload) error {
	raw, err := json.Marshal(envelope{UserIDs: userIDs, Payload: payload})
	if err != nil {
		return err
	}
	return n.client.Publish(ctx, n.channel, raw).Err()
}
