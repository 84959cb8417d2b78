// Package cliconfig carries darzictl's resolved settings through the cobra
// command context.
package cliconfig

import (
	"context"
	"os"

	"github.com/rs/zerolog"

	"github.com/darziflow/console/cmd/darzictl/internal/profile"
	"github.com/darziflow/console/internal/infrastructure/apiclient"
	"github.com/darziflow/console/internal/infrastructure/tokenstore"
)

type contextKey string

const configKey contextKey = "darzictl-config"

// GlobalConfig is built once by the root command and shared by every
// subcommand.
type GlobalConfig struct {
	ServerURL      string
	ProfilePath    string
	Profile        *profile.Profile
	Store          *tokenstore.FileStore
	Verbose        bool
	NonInteractive bool
}

// InjectConfig adds cfg to ctx.
func InjectConfig(ctx context.Context, cfg *GlobalConfig) context.Context {
	return context.WithValue(ctx, configKey, cfg)
}

// FromContext returns the config stored in ctx, if any.
func FromContext(ctx context.Context) (*GlobalConfig, bool) {
	cfg, ok := ctx.Value(configKey).(*GlobalConfig)
	return cfg, ok
}

// MustFromContext is FromContext for RunE functions, where the root command
// has always injected the config.
func MustFromContext(ctx context.Context) *GlobalConfig {
	cfg, ok := FromContext(ctx)
	if !ok {
		panic("darzictl: config not found in context")
	}
	return cfg
}

// Logger writes debug output to stderr with --verbose and nothing otherwise.
func (c *GlobalConfig) Logger() zerolog.Logger {
	if !c.Verbose {
		return zerolog.Nop()
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(zerolog.DebugLevel).With().Timestamp().Logger()
}

// Client returns a backend client bound to the CLI's token file.
func (c *GlobalConfig) Client(ctx context.Context) (*apiclient.Client, error) {
	log := c.Logger()
	client, err := apiclient.New(ctx, c.ServerURL, c.Store,
		apiclient.WithPlatform("cli"),
		apiclient.WithUserAgent("darzictl"),
		apiclient.WithLogger(log),
	)
	if err != nil {
		return nil, err
	}
	client.OnTokenRotated(func() {
		log.Debug().Str("token_file", c.Store.Path()).Msg("token rotated")
	})
	return client, nil
}
