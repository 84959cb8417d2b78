// Package sessions keeps the per-browser state of the console: one backend
// client and one session store per console session ID.
package sessions

import (
	"context"
	"fmt"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/darziflow/console/internal/api/metrics"
	"github.com/darziflow/console/internal/core/ports"
	"github.com/darziflow/console/internal/core/service"
	"github.com/darziflow/console/internal/infrastructure/apiclient"
)

const (
	defaultSize = 1024
	defaultTTL  = 12 * time.Hour
)

// Bundle is everything one console session owns.
type Bundle struct {
	ID      string
	Client  *apiclient.Client
	Session *service.Session
}

// Config configures a Registry.
type Config struct {
	BaseURL string
	Size    int
	TTL     time.Duration
	Stores  ports.TokenStoreFactory
	Sink    ports.EventSink
	Options []apiclient.Option
}

// Registry caches bundles in an expiring LRU. Evicting a bundle only drops
// it from memory: the token stays in its store, so the next request for the
// same ID rebuilds the bundle and bootstraps from that token.
type Registry struct {
	cfg   Config
	cache *expirable.LRU[string, *Bundle]
	log   zerolog.Logger

	// building coalesces concurrent first requests of one ID; different IDs
	// build in parallel.
	building singleflight.Group
}

// NewRegistry returns an empty Registry.
func NewRegistry(cfg Config, log zerolog.Logger) (*Registry, error) {
	if cfg.Stores == nil {
		return nil, fmt.Errorf("sessions: token store factory is required")
	}
	if cfg.Size <= 0 {
		cfg.Size = defaultSize
	}
	if cfg.TTL <= 0 {
		cfg.TTL = defaultTTL
	}
	if cfg.Sink == nil {
		cfg.Sink = ports.NopSink{}
	}

	r := &Registry{cfg: cfg, log: log}
	r.cache = expirable.NewLRU[string, *Bundle](cfg.Size, func(id string, _ *Bundle) {
		metrics.ActiveSessions.Dec()
		r.log.Debug().Str("session_id", id).Msg("console session evicted")
	}, cfg.TTL)
	return r, nil
}

// Get returns the bundle of id, building it on first use. Every hit slides
// the bundle's expiry.
func (r *Registry) Get(ctx context.Context, id string) (*Bundle, error) {
	if b, ok := r.cache.Get(id); ok {
		r.cache.Add(id, b)
		return b, nil
	}

	v, err, _ := r.building.Do(id, func() (any, error) {
		if b, ok := r.cache.Peek(id); ok {
			return b, nil
		}
		b, err := r.build(ctx, id)
		if err != nil {
			return nil, err
		}
		r.cache.Add(id, b)
		metrics.ActiveSessions.Inc()
		return b, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Bundle), nil
}

// Peek returns the bundle of id without creating or refreshing it.
func (r *Registry) Peek(id string) (*Bundle, bool) {
	return r.cache.Peek(id)
}

// Remove drops the bundle of id from memory.
func (r *Registry) Remove(id string) {
	r.cache.Remove(id)
}

// Len reports how many bundles are held.
func (r *Registry) Len() int { return r.cache.Len() }

func (r *Registry) build(ctx context.Context, id string) (*Bundle, error) {
	log := r.log.With().Str("session_id", id).Logger()
	opts := append([]apiclient.Option{apiclient.WithLogger(log)}, r.cfg.Options...)

	client, err := apiclient.New(ctx, r.cfg.BaseURL, r.cfg.Stores.ForSession(id), opts...)
	if err != nil {
		return nil, fmt.Errorf("sessions: build client: %w", err)
	}
	sess := service.NewSession(client,
		service.WithSessionID(id),
		service.WithEventSink(r.cfg.Sink),
		service.WithSessionLogger(log),
	)
	client.OnSessionExpired(sess.Expire)
	client.OnTokenRotated(sess.TokenRotated)

	return &Bundle{ID: id, Client: client, Session: sess}, nil
}
