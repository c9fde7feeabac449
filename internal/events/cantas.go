package events

import (
	"context"

	"github.com/dyluth/cantas/internal/models"
	"github.com/dyluth/cantas/pkg/board"
)

// VoteRejected is the acknowledgement of every created vote.
const VoteRejected = "Can not vote"

// NewCantasTable builds the event table for the Cantas catalog with the
// board-specific overrides applied.
func NewCantasTable(svc *models.Service) (*Table, error) {
	return NewTable(models.Catalog(), NewCRUD(svc.Repository(), svc.Serializer()), CantasOverrides(svc)...)
}

// CantasOverrides returns the per-type handler replacements of Cantas.
func CantasOverrides(svc *models.Service) []Override {
	o := &overrides{svc: svc}
	return []Override{
		{Type: models.Board, Verb: VerbRead, Handler: o.readBoard},
		{Type: models.List, Verb: VerbRead, Handler: o.readLists},
		{Type: models.Card, Verb: VerbRead, Handler: o.readCards},
		{Type: models.Card, Verb: VerbCreate, Handler: o.createCard},
		{Type: models.BoardMemberRelation, Verb: VerbRead, Handler: o.readMembers},
		{Type: models.Vote, Verb: VerbCreate, Handler: o.createVote},
	}
}

type overrides struct {
	svc *models.Service
}

// readBoard returns the single board named by "_id". Unlike the generic read,
// a missing board is reported as an error.
func (o *overrides) readBoard(ctx context.Context, _ *Conn, _ []any, kwargs map[string]any) (Result, error) {
	id, _, err := splitID(models.Type(models.Board), kwargs, board.IDKey)
	if err != nil {
		return Result{}, err
	}
	doc, err := o.svc.Get(ctx, models.Board, id)
	if err != nil {
		return Result{}, err
	}
	payload, err := o.svc.Serialize(ctx, doc)
	if err != nil {
		return Result{}, err
	}
	return Result{Ack: payload}, nil
}

// readLists returns every list of the board named by "boardId", archived
// lists included. Other keys are ignored.
func (o *overrides) readLists(ctx context.Context, _ *Conn, _ []any, kwargs map[string]any) (Result, error) {
	boardID, ok := kwargs["boardId"]
	if !ok {
		return Result{}, &board.ValidationError{Type: models.List, Field: "boardId", Reason: "missing boardId"}
	}
	rs, err := o.svc.Filter(ctx, models.List, map[string]any{"boardId": boardID})
	if err != nil {
		return Result{}, err
	}
	values, err := o.svc.Values(ctx, rs)
	if err != nil {
		return Result{}, err
	}
	return Result{Ack: values}, nil
}

// readCards filters cards by kwargs, or by the mapping under "$query" when present.
func (o *overrides) readCards(ctx context.Context, _ *Conn, _ []any, kwargs map[string]any) (Result, error) {
	if wrapped, ok := kwargs["$query"].(map[string]any); ok {
		kwargs = wrapped
	}
	q, err := board.ParseQuery(kwargs)
	if err != nil {
		return Result{}, err
	}
	rs, err := o.svc.Repository().Filter(ctx, models.Type(models.Card), q)
	if err != nil {
		return Result{}, err
	}
	values, err := o.svc.Values(ctx, rs)
	if err != nil {
		return Result{}, err
	}
	return Result{Ack: values}, nil
}

// createCard stamps the connection's user as creator, broadcasts the new card
// and acknowledges an empty list.
func (o *overrides) createCard(ctx context.Context, conn *Conn, _ []any, kwargs map[string]any) (Result, error) {
	if conn == nil || conn.User == nil {
		return Result{}, board.ErrUnauthorized
	}
	raw := make(map[string]any, len(kwargs)+1)
	for k, v := range kwargs {
		raw[k] = v
	}
	raw["creatorId"] = conn.User.ID

	card, err := o.svc.Repository().Create(ctx, models.Type(models.Card), raw)
	if err != nil {
		return Result{}, err
	}
	payload, err := o.svc.Serialize(ctx, card)
	if err != nil {
		return Result{}, err
	}
	return Result{
		Ack:       []any{},
		Broadcast: &board.Broadcast{Channel: board.CreateChannel(card.Type), Payload: payload},
	}, nil
}

// readMembers filters memberships (supporting "$or") and inlines each
// relation's user.
func (o *overrides) readMembers(ctx context.Context, _ *Conn, _ []any, kwargs map[string]any) (Result, error) {
	q, err := board.ParseQuery(kwargs)
	if err != nil {
		return Result{}, err
	}
	rs, err := o.svc.Repository().Filter(ctx, models.Type(models.BoardMemberRelation), q)
	if err != nil {
		return Result{}, err
	}

	values := make([]map[string]any, 0, rs.Len())
	for _, rel := range rs.Docs {
		m, err := o.svc.Serialize(ctx, rel)
		if err != nil {
			return Result{}, err
		}
		if err := o.svc.Serializer().InlineReference(ctx, rel, "userId", m); err != nil {
			return Result{}, err
		}
		values = append(values, m)
	}
	return Result{Ack: values}, nil
}

// createVote persists and broadcasts the vote but acknowledges it with the
// VoteRejected notice.
func (o *overrides) createVote(ctx context.Context, _ *Conn, _ []any, kwargs map[string]any) (Result, error) {
	vote, err := o.svc.Repository().Create(ctx, models.Type(models.Vote), kwargs)
	if err != nil {
		return Result{}, err
	}
	payload, err := o.svc.Serialize(ctx, vote)
	if err != nil {
		return Result{}, err
	}
	return Result{
		Ack:       VoteRejected,
		Broadcast: &board.Broadcast{Channel: board.CreateChannel(vote.Type), Payload: payload},
	}, nil
}
