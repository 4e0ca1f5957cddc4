// Marathon - Real-Time Reading Marathon Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marathon

package eventprocessor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/redis/go-redis/v9"
)

// RedisBackend dials sessions on Redis streams. The stream key is the
// queue name and the aggregator reads through a consumer group.
type RedisBackend struct {
	url    string
	queue  string
	config RedisConfig
	logger watermill.LoggerAdapter
}

// NewRedisBackend creates a backend for the Redis server at url
// (redis://[:password@]host:port/db).
func NewRedisBackend(url, queue string, cfg RedisConfig, logger watermill.LoggerAdapter) *RedisBackend {
	if logger == nil {
		logger = NewWatermillLogger("redis")
	}
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = 2 * time.Second
	}
	return &RedisBackend{url: url, queue: queue, config: cfg, logger: logger}
}

// Name implements Backend.
func (b *RedisBackend) Name() string {
	return BackendRedis
}

// Dial implements Backend.
func (b *RedisBackend) Dial(ctx context.Context, role Role) (Session, error) {
	opts, err := redis.ParseURL(b.url)
	if err != nil {
		return nil, Permanent(fmt.Errorf("%w: redis url: %w", ErrInvalidConfig, err))
	}
	// The supervisor owns reconnection; fail fast instead of retrying inside
	// the client.
	opts.MaxRetries = -1

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect to Redis: %w", err)
	}

	s := &redisSession{
		backend: b,
		role:    role,
		client:  client,
		done:    make(chan struct{}),
		stop:    make(chan struct{}),
	}

	if role.Has(RolePublisher) {
		pub, err := redisstream.NewPublisher(redisstream.PublisherConfig{Client: client}, b.logger)
		if err != nil {
			_ = s.Close()
			return nil, fmt.Errorf("create redis publisher: %w", err)
		}
		s.publisher = pub
	}

	if role.Has(RoleSubscriber) {
		sub, err := redisstream.NewSubscriber(redisstream.SubscriberConfig{
			Client:        client,
			ConsumerGroup: b.config.ConsumerGroup,
			Consumer:      b.config.Consumer,
		}, b.logger)
		if err != nil {
			_ = s.Close()
			return nil, fmt.Errorf("create redis subscriber: %w", err)
		}
		s.subscriber = sub
	}

	s.wg.Add(1)
	go s.watch(b.config.PingInterval)
	return s, nil
}

type redisSession struct {
	backend *RedisBackend
	role    Role
	client  *redis.Client

	publisher  message.Publisher
	subscriber message.Subscriber

	done      chan struct{}
	doneOnce  sync.Once
	stop      chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
	closeErr  error
}

func (s *redisSession) Publisher() message.Publisher   { return s.publisher }
func (s *redisSession) Subscriber() message.Subscriber { return s.subscriber }
func (s *redisSession) Done() <-chan struct{}          { return s.done }

func (s *redisSession) markDone() {
	s.doneOnce.Do(func() { close(s.done) })
}

// watch pings the server and reports the session lost on the first failure.
func (s *redisSession) watch(interval time.Duration) {
	defer s.wg.Done()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), interval)
			err := s.client.Ping(ctx).Err()
			cancel()
			if err != nil {
				s.backend.logger.Error("Redis ping failed", err, nil)
				s.markDone()
				return
			}
		}
	}
}

// DeclareQueue creates the stream and consumer group. An existing group is
// accepted as is.
func (s *redisSession) DeclareQueue(ctx context.Context) error {
	group := s.backend.config.ConsumerGroup
	err := s.client.XGroupCreateMkStream(ctx, s.backend.queue, group, "0").Err()
	if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("declare stream %s group %s: %w", s.backend.queue, group, err)
	}
	return nil
}

func (s *redisSession) Close() error {
	s.closeOnce.Do(func() {
		close(s.stop)
		s.wg.Wait()

		var errs []error
		if s.subscriber != nil {
			errs = append(errs, s.subscriber.Close())
		}
		if s.publisher != nil {
			errs = append(errs, s.publisher.Close())
		}
		if err := s.client.Close(); err != nil && !errors.Is(err, redis.ErrClosed) {
			errs = append(errs, err)
		}
		s.markDone()
		s.closeErr = errors.Join(errs...)
	})
	return s.closeErr
}
