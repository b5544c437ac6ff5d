package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const pingTimeout = 5 * time.Second

type Client struct {
	*redis.Client
}

// NewClient connects to redisURL and verifies the connection with a ping.
func NewClient(ctx context.Context, redisURL string) (*Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return &Client{client}, nil
}

func (c *Client) Close() error {
	return c.Client.Close()
}

// PairingChannel is the pub/sub channel carrying row changes for a session.
func PairingChannel(sessionCode string) string {
	return fmt.Sprintf("pairing:%s", sessionCode)
}

// DeviceKey namespaces device-scoped values stored on behalf of a client.
func DeviceKey(namespace, key string) string {
	return fmt.Sprintf("device:%s:%s", namespace, key)
}
