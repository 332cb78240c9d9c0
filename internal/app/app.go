package app

import (
	"context"
	"fmt"
	"net/http"

	"github.com/joho/godotenv"

	"campusboard/pkg/config"
	"campusboard/pkg/store"
	"campusboard/pkg/validation"
)

// App encapsulates the server components and lifecycle.
type App struct {
	eff       config.EffectiveConfigResult
	version   string
	commit    string
	buildDate string

	srv *http.Server
}

// New initializes resources that do not need a running context: config
// validation, runtime keys, validation rules and the store. Call Run to
// start the HTTP server and block until shutdown.
func New(eff config.EffectiveConfigResult, version, commit, buildDate string) (*App, error) {
	_ = godotenv.Load(".env")

	// validate effective config early and fail fast
	if err := validateConfig(eff); err != nil {
		return nil, err
	}

	config.SetCurrent(eff.Config)

	// runtime signing keys
	runtimeCfg := &config.RuntimeConfig{SigningKeys: map[string]struct{}{}}
	for _, k := range eff.Config.Security.SigningKeys {
		runtimeCfg.SigningKeys[k] = struct{}{}
	}
	config.SetRuntime(runtimeCfg)

	// validation rules and store-side reaction vocabulary
	validation.SetRules(validation.Rules{
		MaxBodyLen:    eff.Config.MaxBodyLen(),
		Topics:        eff.Config.Topics(),
		ReactionTypes: eff.Config.ReactionTypes(),
	})
	store.SetReactionTypes(eff.Config.ReactionTypes())

	if err := store.Open(eff.DBPath); err != nil {
		return nil, fmt.Errorf("failed to open pebble at %s: %w", eff.DBPath, err)
	}

	return &App{eff: eff, version: version, commit: commit, buildDate: buildDate}, nil
}

// Run starts the HTTP server and blocks until ctx is canceled or a fatal
// server error occurs.
func (a *App) Run(ctx context.Context) error {
	a.printBanner()

	errCh := a.startHTTP(ctx)

	select {
	case <-ctx.Done():
		return nil
	case err := <-errCh:
		return err
	}
}

// Close shuts down the HTTP server (if running) and the store.
func (a *App) Close(ctx context.Context) error {
	if a.srv != nil {
		if err := a.srv.Shutdown(ctx); err != nil {
			_ = a.srv.Close()
		}
	}
	return store.Close()
}

// validateConfig rejects configurations that cannot serve traffic.
func validateConfig(eff config.EffectiveConfigResult) error {
	if eff.DBPath == "" {
		return fmt.Errorf("db path required")
	}
	if eff.Addr == "" {
		return fmt.Errorf("listen address required")
	}
	if len(eff.Config.Security.SigningKeys) == 0 {
		return fmt.Errorf("at least one signing key required to verify bearer tokens")
	}
	cert := eff.Config.Server.TLS.CertFile
	key := eff.Config.Server.TLS.KeyFile
	if (cert == "") != (key == "") {
		return fmt.Errorf("tls requires both cert_file and key_file")
	}
	if t := eff.Config.ReportThreshold(); t < 1 {
		return fmt.Errorf("report threshold must be positive, got %d", t)
	}
	return nil
}
