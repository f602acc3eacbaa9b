package configstore

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"github.com/rs/zerolog"
	"google.golang.org/api/option"
)

// Config selects and configures the backends that make up the configuration store.
// Backends are consulted in a fixed order, most dynamic first:
// Redis, Firestore, YAML file, environment, then static Defaults.
type Config struct {
	Redis     *RedisConfig     `yaml:"redis"`
	Firestore *FirestoreConfig `yaml:"firestore"`
	// File is a YAML key/value file that is watched for changes.
	File string `yaml:"file"`
	// UseEnv enables the process environment as a source.
	UseEnv bool `yaml:"use_env"`
	// EnvFiles are .env files consulted after the environment when UseEnv is set.
	EnvFiles []string `yaml:"env_files"`
	// Defaults are static values used when no other backend has a key.
	Defaults map[string]any `yaml:"defaults"`
	// CredentialsFile is an optional service account file for the Firestore client.
	CredentialsFile string `yaml:"credentials_file"`
}

// NewStoreFromConfig builds the configured backends and chains them.
// The returned ChainStore must be closed to release watchers and connections.
func NewStoreFromConfig(ctx context.Context, cfg *Config, logger zerolog.Logger) (*ChainStore, error) {
	var stores []Store
	fail := func(err error) (*ChainStore, error) {
		_ = NewChainStore(stores...).Close()
		return nil, err
	}

	if cfg.Redis != nil && cfg.Redis.Addr != "" {
		rs, err := NewRedisStore(ctx, cfg.Redis, logger)
		if err != nil {
			return fail(err)
		}
		stores = append(stores, rs)
	}

	if cfg.Firestore != nil && cfg.Firestore.CollectionName != "" {
		var opts []option.ClientOption
		if cfg.CredentialsFile != "" {
			opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
		}
		client, err := firestore.NewClient(ctx, cfg.Firestore.ProjectID, opts...)
		if err != nil {
			return fail(fmt.Errorf("firestore.NewClient: %w", err))
		}
		fs, err := NewFirestoreStore(cfg.Firestore, client, logger)
		if err != nil {
			_ = client.Close()
			return fail(err)
		}
		stores = append(stores, &ownedFirestoreStore{FirestoreStore: fs, client: client})
	}

	if cfg.File != "" {
		fs, err := NewFileStore(cfg.File, logger)
		if err != nil {
			return fail(err)
		}
		stores = append(stores, fs)
	}

	if cfg.UseEnv {
		es, err := NewEnvStore(logger, cfg.EnvFiles...)
		if err != nil {
			return fail(err)
		}
		stores = append(stores, es)
	}

	if len(cfg.Defaults) > 0 {
		stores = append(stores, NewInMemoryStore(cfg.Defaults))
	}

	if len(stores) == 0 {
		logger.Warn().Msg("No configuration backends configured; every lookup will return no value.")
	}
	return NewChainStore(stores...), nil
}

// ownedFirestoreStore closes a Firestore client that NewStoreFromConfig created.
type ownedFirestoreStore struct {
	*FirestoreStore
	client *firestore.Client
}

func (s *ownedFirestoreStore) Close() error {
	return s.client.Close()
}
