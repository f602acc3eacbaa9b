package configstore

import (
	"context"
	"fmt"
	"os"

	"github.com/illmade-knight/go-flowtransforms/pkg/flowvalue"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

// EnvStore reads values from the process environment. Values from optional .env files
// fill in keys the environment does not set; the process environment is never modified.
type EnvStore struct {
	fileValues map[string]string
	logger     zerolog.Logger
}

// NewEnvStore creates an EnvStore, reading the given .env files in order. A key set
// by an earlier file is not replaced by a later one.
func NewEnvStore(logger zerolog.Logger, envFiles ...string) (*EnvStore, error) {
	s := &EnvStore{
		fileValues: make(map[string]string),
		logger:     logger.With().Str("component", "EnvStore").Logger(),
	}
	for _, f := range envFiles {
		values, err := godotenv.Read(f)
		if err != nil {
			return nil, fmt.Errorf("failed to read env file %s: %w", f, err)
		}
		for k, v := range values {
			if _, exists := s.fileValues[k]; !exists {
				s.fileValues[k] = v
			}
		}
		s.logger.Info().Str("env_file", f).Int("keys", len(values)).Msg("Loaded env file.")
	}
	return s, nil
}

// Get returns the environment value for key, falling back to the .env files.
// Values are always strings.
func (s *EnvStore) Get(_ context.Context, key string) flowvalue.Value {
	if v, ok := os.LookupEnv(key); ok {
		return flowvalue.Of(v)
	}
	if v, ok := s.fileValues[key]; ok {
		return flowvalue.Of(v)
	}
	return flowvalue.Absent()
}
