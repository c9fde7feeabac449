package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/dyluth/cantas/internal/auth"
	"github.com/dyluth/cantas/internal/models"
	"github.com/dyluth/cantas/pkg/board"
)

// pages implements the JSON listing endpoints. Every handler runs behind the
// authentication middleware.
type pages struct {
	svc    *models.Service
	logger *slog.Logger
}

type boardLister func(ctx context.Context, user *board.Document) (board.ResultSet, error)

// boards serves a list of serialized boards produced by list.
func (p *pages) boards(list boardLister) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, _ := auth.UserFromContext(r.Context())
		rs, err := list(r.Context(), user)
		if err != nil {
			p.fail(w, r, err)
			return
		}
		p.values(w, r, rs)
	}
}

func (p *pages) mine(ctx context.Context, user *board.Document) (board.ResultSet, error) {
	return p.svc.MyBoards(ctx, user.ID)
}

func (p *pages) public(ctx context.Context, _ *board.Document) (board.ResultSet, error) {
	return p.svc.PublicBoards(ctx)
}

func (p *pages) closed(ctx context.Context, user *board.Document) (board.ResultSet, error) {
	return p.svc.ClosedBoards(ctx, user.ID)
}

func (p *pages) invited(ctx context.Context, user *board.Document) (board.ResultSet, error) {
	return p.svc.InvitedBoards(ctx, user.ID)
}

// newBoard creates the default board of the user and returns its identifier.
func (p *pages) newBoard(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserFromContext(r.Context())
	b, err := p.svc.NewBoard(r.Context(), user)
	if err != nil {
		p.fail(w, r, err)
		return
	}
	p.logger.Info("created default board", "board", b.ID, "user", user.ID)
	writeJSON(w, http.StatusOK, map[string]any{"boardId": b.ID})
}

// myCards returns the user's open cards with their board and list inlined.
func (p *pages) myCards(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user, _ := auth.UserFromContext(ctx)
	cards, err := p.svc.MyCards(ctx, user.ID)
	if err != nil {
		p.fail(w, r, err)
		return
	}

	s := p.svc.Serializer()
	out := make([]map[string]any, 0, cards.Len())
	for _, card := range cards.Docs {
		m, err := s.Serialize(ctx, card)
		if err != nil {
			p.fail(w, r, err)
			return
		}
		for _, field := range []string{"boardId", "listId"} {
			parent, err := s.Dereference(ctx, card, field)
			if err != nil {
				p.fail(w, r, err)
				return
			}
			if parent == nil {
				m[field] = nil
				continue
			}
			if m[field], err = s.Base(parent); err != nil {
				p.fail(w, r, err)
				return
			}
		}
		out = append(out, m)
	}
	writeJSON(w, http.StatusOK, out)
}

func (p *pages) archivedCards(w http.ResponseWriter, r *http.Request) {
	rs, err := p.svc.ArchivedCards(r.Context(), r.PathValue("boardId"))
	if err != nil {
		p.fail(w, r, err)
		return
	}
	p.values(w, r, rs)
}

func (p *pages) archivedLists(w http.ResponseWriter, r *http.Request) {
	rs, err := p.svc.ArchivedLists(r.Context(), r.PathValue("boardId"))
	if err != nil {
		p.fail(w, r, err)
		return
	}
	p.values(w, r, rs)
}

// listOrders returns the open cards of a list.
func (p *pages) listOrders(w http.ResponseWriter, r *http.Request) {
	rs, err := p.svc.ListCards(r.Context(), r.PathValue("listId"))
	if err != nil {
		p.fail(w, r, err)
		return
	}
	p.values(w, r, rs)
}

// single serves one serialized document of typeName, or 404.
func (p *pages) single(typeName, param string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doc, err := p.svc.Get(r.Context(), typeName, r.PathValue(param))
		if err != nil {
			p.fail(w, r, err)
			return
		}
		m, err := p.svc.Serialize(r.Context(), doc)
		if err != nil {
			p.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, m)
	}
}

func (p *pages) values(w http.ResponseWriter, r *http.Request, rs board.ResultSet) {
	values, err := p.svc.Values(r.Context(), rs)
	if err != nil {
		p.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, values)
}

func (p *pages) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		p.logger.Error("request failed", "path", r.URL.Path, "error", err)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func statusFor(err error) int {
	switch {
	case board.IsNotFound(err):
		return http.StatusNotFound
	case board.IsValidation(err):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=UTF-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
