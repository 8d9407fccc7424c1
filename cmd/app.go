package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/iksnae/synapse-chat/internal"
	"github.com/iksnae/synapse-chat/internal/account"
	"github.com/iksnae/synapse-chat/internal/session"
	"github.com/iksnae/synapse-chat/internal/transport"
)

// app holds everything a command needs, built from config and flags
type app struct {
	cfg      *internal.Config
	store    internal.Store
	persist  *internal.Persistence
	account  *account.Session
	client   *transport.Client
	quota    *internal.GuestQuota
	deviceID string
	manager  *session.Manager
}

// loadConfig reads the config file and applies the root flags on top
func loadConfig() (*internal.Config, error) {
	cfg, err := internal.LoadConfig(configPath)
	if err != nil {
		return nil, err
	}
	if storagePath != "" {
		cfg.Storage.Path = storagePath
	}
	if backendName != "" {
		cfg.Storage.Backend = backendName
	}
	if apiURL != "" {
		cfg.APIURL = apiURL
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// newApp opens storage and wires the session layer. The caller must Close it.
func newApp() (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	if cfg.Storage.Backend != internal.BackendMemory {
		if err := os.MkdirAll(filepath.Dir(cfg.Storage.Path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create storage directory: %w", err)
		}
	}
	store, err := internal.NewStore(cfg.Storage.Backend, cfg.Storage.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open storage: %w", err)
	}
	internal.LogDebug("Opened %s storage at %s", cfg.Storage.Backend, cfg.Storage.Path)

	a := &app{cfg: cfg, store: store, persist: internal.NewPersistence(store)}
	a.client = transport.New(cfg.APIURL,
		transport.WithTimeout(cfg.HTTPTimeout),
		transport.WithTokenSource(func() string { return a.account.Token() }),
	)
	a.account = account.New(internal.NewCredentialStore(a.persist), a.client)
	a.deviceID = internal.DeviceID(a.persist)
	a.quota = internal.NewGuestQuota(a.persist, a.deviceID)

	a.manager, err = session.NewManager(session.Config{
		Persistence: a.persist,
		Quota:       a.quota,
		Identity:    a.account,
		Transport:   a.client,
		Remote:      a.client,
		DeviceID:    a.deviceID,
		Stride:      cfg.Reveal.Stride,
		Interval:    cfg.Reveal.Interval,
		Labels:      internal.NewProviderLabels(cfg.Providers),
		SearchWeb:   searchWeb,
	})
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	return a, nil
}

// hydrate loads the conversation collection for the current identity.
// A failed remote fetch is not fatal: the local copy is used.
func (a *app) hydrate(ctx context.Context) {
	if err := a.manager.Hydrate(ctx); err != nil && !errors.Is(err, internal.ErrUnauthorized) {
		internal.LogWarn("Using local conversations: %v", err)
	}
}

// Close releases the store
func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		internal.LogWarn("Failed to close storage: %v", err)
	}
}
