package models

import (
	"context"
	"fmt"

	"github.com/dyluth/cantas/pkg/board"
)

// Service bundles the repository and the Cantas serializer.
// It is safe for concurrent use once constructed.
type Service struct {
	repo       *board.Repository
	serializer *board.Serializer
}

// NewService wraps repo with the Cantas catalog and serialization rules.
func NewService(repo *board.Repository) *Service {
	s := board.NewSerializer(repo)
	registerInliners(s)
	return &Service{repo: repo, serializer: s}
}

// Repository returns the underlying document repository.
func (s *Service) Repository() *board.Repository {
	return s.repo
}

// Serializer returns the serializer with the Cantas inliners registered.
func (s *Service) Serializer() *board.Serializer {
	return s.serializer
}

// Serialize returns the transport form of doc.
func (s *Service) Serialize(ctx context.Context, doc *board.Document) (map[string]any, error) {
	return s.serializer.Serialize(ctx, doc)
}

// Values serializes every document of rs in order.
func (s *Service) Values(ctx context.Context, rs board.ResultSet) ([]map[string]any, error) {
	return s.serializer.Values(ctx, rs)
}

// Get loads one document of the named type.
func (s *Service) Get(ctx context.Context, typeName, id string) (*board.Document, error) {
	return s.repo.Get(ctx, Type(typeName), id)
}

// Filter returns the documents of the named type matching fields exactly.
func (s *Service) Filter(ctx context.Context, typeName string, fields map[string]any) (board.ResultSet, error) {
	return s.repo.Filter(ctx, Type(typeName), board.Where(fields))
}

// Create persists a new document of the named type.
func (s *Service) Create(ctx context.Context, typeName string, raw map[string]any) (*board.Document, error) {
	doc, err := s.repo.Create(ctx, Type(typeName), raw)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", typeName, err)
	}
	return doc, nil
}

// EnsureUser returns the user with the given username, creating it on first use.
func (s *Service) EnsureUser(ctx context.Context, username string) (*board.Document, bool, error) {
	if username == "" {
		return nil, false, &board.ValidationError{Type: User, Field: "username", Reason: "field is required"}
	}
	existing, err := s.Filter(ctx, User, map[string]any{"username": username})
	if err != nil {
		return nil, false, err
	}
	if u := existing.First(); u != nil {
		return u, false, nil
	}
	u, err := s.Create(ctx, User, map[string]any{"username": username})
	if err != nil {
		return nil, false, err
	}
	return u, true, nil
}
