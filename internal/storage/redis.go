// internal/storage/redis.go
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/primedigitaltech/azon-seeker/internal/utils"
)

// RedisOptions configures a RedisStore
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	// Prefix is prepended to every key
	Prefix string
	// Channel carries change notifications between processes
	Channel string
}

// RedisStore keeps values in Redis. Changes are published on a channel so
// every process sharing the database observes them, its own writes
// included.
type RedisStore struct {
	client   *redis.Client
	pubsub   *redis.PubSub
	opts     RedisOptions
	notifier *notifier
	logger   utils.Logger
	wg       sync.WaitGroup
}

// NewRedisStore connects to Redis and subscribes to the change channel
func NewRedisStore(ctx context.Context, opts RedisOptions, logger utils.Logger) (*RedisStore, error) {
	if opts.Addr == "" {
		return nil, fmt.Errorf("redis address is required")
	}
	if opts.Prefix == "" {
		opts.Prefix = "azon:"
	}
	if opts.Channel == "" {
		opts.Channel = opts.Prefix + "changes"
	}
	if logger == nil {
		logger = utils.NewNopLogger()
	}

	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	pubsub := client.Subscribe(ctx, opts.Channel)
	// wait for the subscription so no change published after this returns
	// is missed
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		client.Close()
		return nil, fmt.Errorf("failed to subscribe to %s: %w", opts.Channel, err)
	}

	s := &RedisStore{
		client:   client,
		pubsub:   pubsub,
		opts:     opts,
		notifier: newNotifier(),
		logger:   logger.WithFields(map[string]interface{}{"component": "storage", "backend": "redis"}),
	}
	s.wg.Add(1)
	go s.listen()
	return s, nil
}

func (s *RedisStore) listen() {
	defer s.wg.Done()
	for msg := range s.pubsub.Channel() {
		var c Change
		if err := json.Unmarshal([]byte(msg.Payload), &c); err != nil {
			s.logger.Warnf("dropping malformed change notification: %v", err)
			continue
		}
		s.notifier.notify(c)
	}
}

func (s *RedisStore) key(key string) string {
	return s.opts.Prefix + key
}

// Get implements Store
func (s *RedisStore) Get(ctx context.Context, key string, out interface{}) (bool, error) {
	data, err := s.client.Get(ctx, s.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, storeError(err, "get", key)
	}
	return true, decode(key, data, out)
}

// Set implements Store
func (s *RedisStore) Set(ctx context.Context, key string, value interface{}, origin string) error {
	data, err := encode(key, value)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, s.key(key), data, 0).Err(); err != nil {
		return storeError(err, "set", key)
	}
	s.publish(ctx, Change{Key: key, Value: data, Origin: origin})
	return nil
}

// Remove implements Store
func (s *RedisStore) Remove(ctx context.Context, key string, origin string) error {
	n, err := s.client.Del(ctx, s.key(key)).Result()
	if err != nil {
		return storeError(err, "remove", key)
	}
	if n > 0 {
		s.publish(ctx, Change{Key: key, Origin: origin, Removed: true})
	}
	return nil
}

func (s *RedisStore) publish(ctx context.Context, c Change) {
	payload, err := json.Marshal(c)
	if err != nil {
		s.logger.Warnf("failed to encode change notification: %v", err)
		return
	}
	if err := s.client.Publish(ctx, s.opts.Channel, payload).Err(); err != nil {
		s.logger.WithField("key", c.Key).Warnf("failed to publish change: %v", err)
	}
}

// OnChange implements Store
func (s *RedisStore) OnChange(key string, fn ChangeFunc, opts ...WatchOption) func() {
	return s.notifier.add(key, fn, opts...)
}

// Close implements Store
func (s *RedisStore) Close() error {
	err := s.pubsub.Close()
	s.wg.Wait()
	if cerr := s.client.Close(); err == nil {
		err = cerr
	}
	return err
}
