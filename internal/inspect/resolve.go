package inspect

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dyluth/cantas/pkg/board"
)

// MinShortIDLength is the minimum required length for short ID prefixes.
const MinShortIDLength = 6

// maxListedMatches bounds the identifiers printed for an ambiguous prefix.
const maxListedMatches = 10

// NotFoundError indicates no document matched the short ID.
type NotFoundError struct {
	Type    string
	ShortID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no %s found matching '%s'", e.Type, e.ShortID)
}

// Is makes NotFoundError match board.ErrNotFound.
func (e *NotFoundError) Is(target error) bool {
	return target == board.ErrNotFound
}

// AmbiguousError indicates several documents matched the short ID.
type AmbiguousError struct {
	Type    string
	ShortID string
	Matches []string
}

func (e *AmbiguousError) Error() string {
	return fmt.Sprintf("ambiguous short ID '%s' matches %d %s documents", e.ShortID, len(e.Matches), e.Type)
}

// Explain lists the matching identifiers, up to ten, for the CLI.
func (e *AmbiguousError) Explain() string {
	var b strings.Builder
	fmt.Fprintf(&b, "The prefix '%s' matches %d documents:\n", e.ShortID, len(e.Matches))
	for i, id := range e.Matches {
		if i == maxListedMatches {
			fmt.Fprintf(&b, "  ...and %d more\n", len(e.Matches)-maxListedMatches)
			break
		}
		fmt.Fprintf(&b, "  %s\n", id)
	}
	return b.String()
}

// IsAmbiguous reports whether err is an AmbiguousError.
func IsAmbiguous(err error) bool {
	var amb *AmbiguousError
	return errors.As(err, &amb)
}

// ResolveID resolves a full identifier or a unique prefix of one to the
// identifier of a stored document of type t.
func ResolveID(ctx context.Context, repo *board.Repository, t *board.EntityType, shortID string) (string, error) {
	if _, err := repo.Get(ctx, t, shortID); err == nil {
		return shortID, nil
	} else if !board.IsNotFound(err) {
		return "", fmt.Errorf("failed to fetch %s: %w", t.Name, err)
	}

	if len(shortID) < MinShortIDLength {
		return "", fmt.Errorf("short ID must be at least %d characters (got %d)", MinShortIDLength, len(shortID))
	}

	all, err := repo.All(ctx, t)
	if err != nil {
		return "", fmt.Errorf("failed to search for %s: %w", t.Name, err)
	}

	var matches []string
	for _, id := range all.IDs() {
		if strings.HasPrefix(id, shortID) {
			matches = append(matches, id)
		}
	}

	switch len(matches) {
	case 0:
		return "", &NotFoundError{Type: t.Name, ShortID: shortID}
	case 1:
		return matches[0], nil
	default:
		return "", &AmbiguousError{Type: t.Name, ShortID: shortID, Matches: matches}
	}
}
