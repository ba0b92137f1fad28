// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package cache connects to the shared Redis instance that holds revoked
// token ids, two-factor codes and OAuth CSRF state.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Open parses the Redis URL, connects and verifies the connection with a
// ping. The returned client is safe for concurrent use across requests.
func Open(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return client, nil
}
