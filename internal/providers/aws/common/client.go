package common

import (
	"fmt"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
)

// ClientCache lazily constructs SDK clients keyed by lowercase service name.
// A cache belongs to exactly one server instance; clients are built on first
// use from the cache's aws.Config and reused afterwards.
//
// ClientCache is safe for concurrent use.
type ClientCache struct {
	cfg      aws.Config
	builders map[string]ClientBuilder

	mu      sync.Mutex
	clients map[string]any
}

// NewClientCache returns a cache backed by the production SDK builders.
func NewClientCache(cfg aws.Config) *ClientCache {
	return NewClientCacheWithBuilders(cfg, DefaultBuilders())
}

// NewClientCacheWithBuilders returns a cache that uses builders to create
// clients. Pass fake builders in tests.
func NewClientCacheWithBuilders(cfg aws.Config, builders map[string]ClientBuilder) *ClientCache {
	normalized := make(map[string]ClientBuilder, len(builders))
	for name, b := range builders {
		normalized[strings.ToLower(name)] = b
	}
	return &ClientCache{
		cfg:      cfg,
		builders: normalized,
		clients:  make(map[string]any),
	}
}

// Get returns the client for service, building it on first use.
// Unknown service names return an error and are not cached.
func (c *ClientCache) Get(service string) (any, error) {
	key := strings.ToLower(service)

	c.mu.Lock()
	defer c.mu.Unlock()

	if client, ok := c.clients[key]; ok {
		return client, nil
	}
	build, ok := c.builders[key]
	if !ok {
		return nil, fmt.Errorf("unknown service %q", key)
	}
	client := build(c.cfg)
	c.clients[key] = client
	return client, nil
}

// Len returns the number of clients built so far.
func (c *ClientCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.clients)
}

// Client returns the cached client for service asserted to T.
func Client[T any](c *ClientCache, service string) (T, error) {
	var zero T
	raw, err := c.Get(service)
	if err != nil {
		return zero, err
	}
	typed, ok := raw.(T)
	if !ok {
		return zero, fmt.Errorf("client for service %q has type %T", strings.ToLower(service), raw)
	}
	return typed, nil
}
