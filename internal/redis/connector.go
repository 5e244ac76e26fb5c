package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/MrSnakeDoc/toomanytabs/internal/logger"
	"github.com/redis/go-redis/v9"
)

// ConnectOptions defines the Redis client and how long to wait for it.
type ConnectOptions struct {
	Addr         string
	User         string
	Password     string
	DB           int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	PoolSize     int

	ConnectTimeout time.Duration // total budget for the initial ping loop
	RetryInterval  time.Duration // first backoff, doubled after each failure
	MaxWait        time.Duration // backoff cap
	PingTimeout    time.Duration // per-attempt ping timeout
	WarnThreshold  int           // attempts logged at warn before escalating to error
}

func (o ConnectOptions) validate() error {
	switch {
	case o.Addr == "":
		return fmt.Errorf("redis address is required")
	case o.ConnectTimeout <= 0:
		return fmt.Errorf("ConnectTimeout must be > 0, got %v", o.ConnectTimeout)
	case o.RetryInterval <= 0:
		return fmt.Errorf("RetryInterval must be > 0, got %v", o.RetryInterval)
	case o.MaxWait <= 0:
		return fmt.Errorf("MaxWait must be > 0, got %v", o.MaxWait)
	case o.PingTimeout <= 0:
		return fmt.Errorf("PingTimeout must be > 0, got %v", o.PingTimeout)
	case o.WarnThreshold < 0:
		return fmt.Errorf("WarnThreshold must be >= 0, got %d", o.WarnThreshold)
	}
	return nil
}

// Connect builds a client and pings it with exponential backoff until it
// answers, ConnectTimeout elapses or ctx is cancelled. The client is closed
// on failure.
func Connect(ctx context.Context, opts ConnectOptions, log logger.Logger) (*redis.Client, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	log = log.With(logger.String("addr", opts.Addr))

	client := redis.NewClient(&redis.Options{
		Addr:         opts.Addr,
		Username:     opts.User,
		Password:     opts.Password,
		DB:           opts.DB,
		DialTimeout:  opts.DialTimeout,
		ReadTimeout:  opts.ReadTimeout,
		WriteTimeout: opts.WriteTimeout,
		PoolSize:     opts.PoolSize,
	})

	if err := waitForPing(ctx, client, opts, log); err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}

func waitForPing(ctx context.Context, client *redis.Client, opts ConnectOptions, log logger.Logger) error {
	ctx, cancel := context.WithTimeout(ctx, opts.ConnectTimeout)
	defer cancel()

	log.Info("connecting to redis", logger.Duration("timeout", opts.ConnectTimeout))
	start := time.Now()
	wait := opts.RetryInterval

	for attempt := 1; ; attempt++ {
		pingCtx, pingCancel := context.WithTimeout(ctx, opts.PingTimeout)
		err := client.Ping(pingCtx).Err()
		pingCancel()

		if err == nil {
			if attempt > 1 {
				log.Warn("connected to redis after retry",
					logger.Int("attempts", attempt),
					logger.Duration("elapsed", time.Since(start)))
			} else {
				log.Info("connected to redis")
			}
			return nil
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			log.Error("redis unavailable",
				logger.Int("attempts", attempt),
				logger.Duration("timeout", opts.ConnectTimeout),
				logger.Error(err))
			return fmt.Errorf("redis unavailable at %s after %d attempts: %w", opts.Addr, attempt, err)
		case <-timer.C:
		}

		fields := []logger.Field{
			logger.Int("attempt", attempt),
			logger.Duration("next_retry_in", wait),
			logger.Error(err),
		}
		if attempt <= opts.WarnThreshold {
			log.Warn("redis connection failed, retrying", fields...)
		} else {
			log.Error("redis still unavailable, retrying", fields...)
		}

		wait *= 2
		if wait > opts.MaxWait {
			wait = opts.MaxWait
		}
	}
}
