// Package notifications delivers payment-due messages to drivers.
package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
	"github.com/upb/car-park/config"
	"github.com/upb/car-park/models"
	"github.com/upb/car-park/utils"
	"go.uber.org/zap"
)

// ErrNotSubscribed is returned when publishing to an address that never subscribed
var ErrNotSubscribed = errors.New("recipient is not subscribed")

// Notifier subscribes drivers and delivers notifications to them
type Notifier interface {
	Subscribe(ctx context.Context, email string) error
	Publish(ctx context.Context, n *models.Notification) error
}

// redisCommands is the subset of the redis client used by RedisNotifier
type redisCommands interface {
	SAdd(ctx context.Context, key string, members ...interface{}) *redis.IntCmd
	SIsMember(ctx context.Context, key string, member interface{}) *redis.BoolCmd
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// RedisNotifier keeps subscribers in a Redis set and publishes notifications
// as JSON on a Redis channel for the mail worker
type RedisNotifier struct {
	rdb            redisCommands
	channel        string
	subscribersKey string
	logger         *zap.Logger
}

// NewRedisNotifier creates a notifier on top of a redis client
func NewRedisNotifier(rdb redisCommands, cfg config.NotificationsConfig, logger *zap.Logger) *RedisNotifier {
	return &RedisNotifier{
		rdb:            rdb,
		channel:        cfg.Channel,
		subscribersKey: cfg.SubscribersKey,
		logger:         logger,
	}
}

// Subscribe adds the address to the subscribers set. Subscribing twice is a no-op.
func (n *RedisNotifier) Subscribe(ctx context.Context, email string) error {
	email = normalizeEmail(email)
	if email == "" {
		return errors.New("email is required")
	}
	if err := utils.ValidateEmail(email); err != nil {
		return err
	}

	added, err := n.rdb.SAdd(ctx, n.subscribersKey, email).Result()
	if err != nil {
		return fmt.Errorf("failed to subscribe %s: %w", email, err)
	}

	if added > 0 {
		n.logger.Info("subscriber added", zap.String("email", email))
	}
	return nil
}

// Publish sends the notification to its recipient
func (n *RedisNotifier) Publish(ctx context.Context, msg *models.Notification) error {
	recipient := normalizeEmail(msg.Recipient)

	subscribed, err := n.rdb.SIsMember(ctx, n.subscribersKey, recipient).Result()
	if err != nil {
		return fmt.Errorf("failed to check subscription: %w", err)
	}
	if !subscribed {
		return fmt.Errorf("%s: %w", recipient, ErrNotSubscribed)
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to encode notification: %w", err)
	}

	receivers, err := n.rdb.Publish(ctx, n.channel, payload).Result()
	if err != nil {
		return fmt.Errorf("failed to publish notification: %w", err)
	}

	n.logger.Info("notification published",
		zap.String("recipient", recipient),
		zap.String("subject", msg.Subject),
		zap.Int64("receivers", receivers))
	return nil
}

// NewRedisClient builds a client from REDIS_URL when set, otherwise from the address fields
func NewRedisClient(cfg config.RedisConfig) (*redis.Client, error) {
	if cfg.URL != "" {
		opts, err := redis.ParseURL(cfg.URL)
		if err != nil {
			return nil, fmt.Errorf("invalid redis url: %w", err)
		}
		return redis.NewClient(opts), nil
	}

	return redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	}), nil
}

// LogNotifier only logs. Used when Redis is unreachable at start-up.
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier creates a notifier that logs instead of delivering
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// Subscribe logs the subscription
func (n *LogNotifier) Subscribe(ctx context.Context, email string) error {
	n.logger.Info("subscription not delivered, notifier disabled", zap.String("email", email))
	return nil
}

// Publish logs the notification
func (n *LogNotifier) Publish(ctx context.Context, msg *models.Notification) error {
	n.logger.Info("notification not delivered, notifier disabled",
		zap.String("recipient", msg.Recipient),
		zap.String("message", msg.Message))
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
