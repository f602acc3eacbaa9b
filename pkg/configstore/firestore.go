package configstore

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"github.com/illmade-knight/go-flowtransforms/pkg/flowvalue"
	"github.com/rs/zerolog"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// firestoreValueField is the document field holding a setting's value.
const firestoreValueField = "value"

// FirestoreConfig holds configuration for the Firestore-backed store.
type FirestoreConfig struct {
	ProjectID      string `yaml:"project_id"`
	CollectionName string `yaml:"collection_name"`
}

// FirestoreStore serves values from a Firestore collection holding one document per
// key, with the setting in the document's "value" field.
// Each lookup is a document read; it suits low-volume flows.
type FirestoreStore struct {
	client         *firestore.Client
	collectionName string
	logger         zerolog.Logger
}

// NewFirestoreStore creates a new FirestoreStore. The client's lifecycle is managed
// by the caller.
func NewFirestoreStore(cfg *FirestoreConfig, client *firestore.Client, logger zerolog.Logger) (*FirestoreStore, error) {
	if client == nil {
		return nil, fmt.Errorf("firestore client cannot be nil")
	}
	if cfg.CollectionName == "" {
		return nil, fmt.Errorf("firestore collection name cannot be empty")
	}

	logger.Info().Str("project_id", cfg.ProjectID).Str("collection", cfg.CollectionName).Msg("FirestoreStore initialized.")

	return &FirestoreStore{
		client:         client,
		collectionName: cfg.CollectionName,
		logger:         logger.With().Str("component", "FirestoreStore").Logger(),
	}, nil
}

// Get reads the document named key. A missing document or field, and any read
// failure, return absent.
func (s *FirestoreStore) Get(ctx context.Context, key string) flowvalue.Value {
	docSnap, err := s.client.Collection(s.collectionName).Doc(key).Get(ctx)
	if err != nil {
		if status.Code(err) != codes.NotFound {
			s.logger.Error().Err(err).Str("key", key).Msg("Failed to get document from Firestore.")
		}
		return flowvalue.Absent()
	}

	value, err := docSnap.DataAt(firestoreValueField)
	if err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("Firestore document has no value field.")
		return flowvalue.Absent()
	}
	return flowvalue.Of(value)
}

// Set writes value to the document named key.
func (s *FirestoreStore) Set(ctx context.Context, key string, value any) error {
	_, err := s.client.Collection(s.collectionName).Doc(key).Set(ctx, map[string]any{firestoreValueField: value})
	if err != nil {
		s.logger.Error().Err(err).Str("key", key).Msg("Failed to write document to Firestore.")
		return fmt.Errorf("firestore set for %s: %w", key, err)
	}
	return nil
}
