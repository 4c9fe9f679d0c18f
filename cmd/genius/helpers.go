package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/at-ishikawa/genius/internal/assets"
	"github.com/at-ishikawa/genius/internal/config"
	"github.com/at-ishikawa/genius/internal/content"
	"github.com/at-ishikawa/genius/internal/credit"
	"github.com/at-ishikawa/genius/internal/database"
	"github.com/at-ishikawa/genius/internal/inference"
	"github.com/at-ishikawa/genius/internal/inference/gemini"
	"github.com/at-ishikawa/genius/internal/inference/openai"
	"github.com/at-ishikawa/genius/internal/localcache"
	"github.com/at-ishikawa/genius/internal/profile"
	"github.com/at-ishikawa/genius/internal/session"
)

const ownerEnv = "GENIUS_OWNER_ID"

func loadConfig() (*config.Config, error) {
	loader, err := config.NewConfigLoader(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to create config loader: %w", err)
	}
	return loader.Load()
}

// dependencies wires the storage, credit and generation stack from the configuration
type dependencies struct {
	db         *sqlx.DB
	ledger     *credit.DBLedger
	profiles   *profile.DBRepository
	remote     content.Store
	cache      localcache.Store
	contents   *content.Persister
	services   *session.Services
	closeCache func() error
}

func newDependencies(cfg *config.Config) (*dependencies, error) {
	provider, err := newProvider(cfg.Inference)
	if err != nil {
		return nil, err
	}
	db, err := database.Open(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("database.Open > %w", err)
	}
	cache, closeCache, err := localcache.New(cfg.LocalCache)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("localcache.New > %w", err)
	}

	ledger := credit.NewDBLedger(db)
	remote := content.NewDBStore(db)
	contents := content.NewPersister(remote, cache)
	timeout := time.Duration(cfg.Inference.TimeoutSeconds) * time.Second
	return &dependencies{
		db:       db,
		ledger:   ledger,
		profiles: profile.NewDBRepository(db),
		remote:   remote,
		cache:    cache,
		contents: contents,
		services: &session.Services{
			Generator:     inference.NewGenerator(provider, inference.NewDBKeyResolver(db, cfg.Inference.APIKey), cfg.Inference.MaxRetryAttempts),
			Gate:          credit.NewGate(ledger),
			Content:       contents,
			Prompts:       assets.NewPrompts(cfg.Templates.PromptsDirectory),
			References:    profile.NewReferenceImages(cache, timeout),
			ChargeGrading: cfg.Credits.ChargeGrading,
		},
		closeCache: closeCache,
	}, nil
}

func (d *dependencies) Close() error {
	return errors.Join(d.closeCache(), d.db.Close())
}

func newProvider(cfg config.InferenceConfig) (inference.Provider, error) {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	switch cfg.Provider {
	case "gemini", "":
		return gemini.NewClient(cfg.BaseURL, cfg.TextModel, cfg.ImageModel, timeout), nil
	case "openai":
		return openai.NewClient(cfg.BaseURL, cfg.TextModel, cfg.ImageModel, timeout), nil
	}
	return nil, fmt.Errorf("unknown inference provider %q", cfg.Provider)
}

func resolveOwner(flagValue string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	if owner := os.Getenv(ownerEnv); owner != "" {
		return owner, nil
	}
	return "", fmt.Errorf("--owner or the %s environment variable is required", ownerEnv)
}

// appContext selects the child profile; without profileID the owner's only profile is used
func (d *dependencies) appContext(ctx context.Context, ownerID, profileID string) (*session.Context, error) {
	if profileID == "" {
		profiles, err := d.profiles.ListByOwner(ctx, ownerID)
		if err != nil {
			return nil, err
		}
		if len(profiles) != 1 {
			return nil, fmt.Errorf("%w: found %d child profiles, choose one with --profile", session.ErrNoActiveProfile, len(profiles))
		}
		return session.New(ownerID, &profiles[0], d.services)
	}

	child, err := d.profiles.FindByID(ctx, ownerID, profileID)
	if err != nil {
		return nil, err
	}
	return session.New(ownerID, child, d.services)
}

// withDependencies loads the configuration and releases the stack once fn returns
func withDependencies(fn func(cfg *config.Config, deps *dependencies) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	deps, err := newDependencies(cfg)
	if err != nil {
		return err
	}
	return errors.Join(fn(cfg, deps), deps.Close())
}
