// Package cache holds short-lived shared state, currently the alert cooldown
// markers.
package cache

import (
	"context"
	"time"
)

// Provider defines the minimal cache operations needed by the worker.
type Provider interface {
	// SetNX stores value under key only if the key is absent, expiring after ttl.
	SetNX(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error)
	// Delete removes key. A missing key is not an error.
	Delete(ctx context.Context, key string) error
	Ping(ctx context.Context) error
	Close() error
}

// NoopProvider never stores data; every SetNX succeeds.
type NoopProvider struct{}

func (NoopProvider) SetNX(context.Context, string, []byte, time.Duration) (bool, error) {
	return true, nil
}

func (NoopProvider) Delete(context.Context, string) error { return nil }

func (NoopProvider) Ping(context.Context) error { return nil }

func (NoopProvider) Close() error { return nil }
