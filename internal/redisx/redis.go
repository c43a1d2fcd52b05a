// Package redisx opens Redis connections shared by the API and the mailer.
package redisx

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const pingTimeout = 5 * time.Second

type Options struct {
	Addr     string
	Password string
	DB       int
}

// Pinger is the part of *redis.Client checked on startup.
type Pinger interface {
	Ping(ctx context.Context) *redis.StatusCmd
}

// NewClient connects and pings; the client is closed if the ping fails.
func NewClient(ctx context.Context, opts Options) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	if err := Ping(ctx, client); err != nil {
		_ = client.Close()
		return nil, err
	}

	return client, nil
}

func Ping(ctx context.Context, p Pinger) error {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := p.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}
