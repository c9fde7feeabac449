package events

import (
	"context"
	"fmt"

	"github.com/dyluth/cantas/pkg/board"
)

// Store is the document store the generic handlers operate on.
// *board.Repository implements it.
type Store interface {
	Create(ctx context.Context, t *board.EntityType, raw map[string]any) (*board.Document, error)
	Get(ctx context.Context, t *board.EntityType, id string) (*board.Document, error)
	Filter(ctx context.Context, t *board.EntityType, q board.Query) (board.ResultSet, error)
	Update(ctx context.Context, doc *board.Document, patch map[string]any) (*board.Document, error)
	Delete(ctx context.Context, doc *board.Document) error
}

// Encoder maps documents to their transport form. *board.Serializer implements it.
type Encoder interface {
	Serialize(ctx context.Context, doc *board.Document) (map[string]any, error)
	Values(ctx context.Context, rs board.ResultSet) ([]map[string]any, error)
}

// CRUD provides the generic create/read/update/delete/patch handlers.
type CRUD struct {
	store Store
	enc   Encoder
}

// NewCRUD creates the generic handler provider.
func NewCRUD(store Store, enc Encoder) *CRUD {
	return &CRUD{store: store, enc: enc}
}

// Handlers returns the generic handler set of t.
func (c *CRUD) Handlers(t *board.EntityType) HandlerSet {
	return HandlerSet{
		Create: c.create(t),
		Read:   c.read(t),
		Update: c.modify(t, board.IDKey),
		Delete: c.remove(t),
		Patch:  c.modify(t, "id"),
	}
}

// create persists a new instance, acknowledges its serialized form and
// broadcasts the same payload on the collection channel.
func (c *CRUD) create(t *board.EntityType) Handler {
	return func(ctx context.Context, _ *Conn, _ []any, kwargs map[string]any) (Result, error) {
		doc, err := c.store.Create(ctx, t, kwargs)
		if err != nil {
			return Result{}, err
		}
		payload, err := c.enc.Serialize(ctx, doc)
		if err != nil {
			return Result{}, err
		}
		return Result{
			Ack:       payload,
			Broadcast: &board.Broadcast{Channel: board.CreateChannel(t), Payload: payload},
		}, nil
	}
}

// read returns one serialized instance when "_id" is given, otherwise the
// serialized instances matching kwargs. Any failure acknowledges null.
func (c *CRUD) read(t *board.EntityType) Handler {
	return func(ctx context.Context, _ *Conn, _ []any, kwargs map[string]any) (Result, error) {
		if raw, ok := kwargs[board.IDKey]; ok {
			id, _ := raw.(string)
			doc, err := c.store.Get(ctx, t, id)
			if err != nil {
				return Result{}, nil
			}
			payload, err := c.enc.Serialize(ctx, doc)
			if err != nil {
				return Result{}, nil
			}
			return Result{Ack: payload}, nil
		}

		values, err := c.filterValues(ctx, t, kwargs)
		if err != nil {
			return Result{}, nil
		}
		return Result{Ack: values}, nil
	}
}

func (c *CRUD) filterValues(ctx context.Context, t *board.EntityType, kwargs map[string]any) ([]map[string]any, error) {
	q, err := board.ParseQuery(kwargs)
	if err != nil {
		return nil, err
	}
	rs, err := c.store.Filter(ctx, t, q)
	if err != nil {
		return nil, err
	}
	return c.enc.Values(ctx, rs)
}

// modify applies the remaining kwargs to the instance named by idKey and
// broadcasts its post-update form on the instance update channel.
func (c *CRUD) modify(t *board.EntityType, idKey string) Handler {
	return func(ctx context.Context, _ *Conn, _ []any, kwargs map[string]any) (Result, error) {
		id, patch, err := splitID(t, kwargs, idKey)
		if err != nil {
			return Result{}, err
		}
		doc, err := c.store.Get(ctx, t, id)
		if err != nil {
			return Result{}, err
		}
		doc, err = c.store.Update(ctx, doc, patch)
		if err != nil {
			return Result{}, err
		}
		payload, err := c.enc.Serialize(ctx, doc)
		if err != nil {
			return Result{}, err
		}
		return Result{
			Broadcast: &board.Broadcast{Channel: board.InstanceChannel(t, id, VerbUpdate), Payload: payload},
		}, nil
	}
}

// remove serializes the instance, deletes it and broadcasts the pre-deletion
// form on the instance delete channel.
func (c *CRUD) remove(t *board.EntityType) Handler {
	return func(ctx context.Context, _ *Conn, _ []any, kwargs map[string]any) (Result, error) {
		id, _, err := splitID(t, kwargs, board.IDKey)
		if err != nil {
			return Result{}, err
		}
		doc, err := c.store.Get(ctx, t, id)
		if err != nil {
			return Result{}, err
		}
		payload, err := c.enc.Serialize(ctx, doc)
		if err != nil {
			return Result{}, err
		}
		if err := c.store.Delete(ctx, doc); err != nil {
			return Result{}, err
		}
		return Result{
			Broadcast: &board.Broadcast{Channel: board.InstanceChannel(t, id, VerbDelete), Payload: payload},
		}, nil
	}
}

// splitID extracts the identifier under idKey and returns the remaining keys.
func splitID(t *board.EntityType, kwargs map[string]any, idKey string) (string, map[string]any, error) {
	id, ok := kwargs[idKey].(string)
	if !ok || id == "" {
		return "", nil, &board.ValidationError{Type: t.Name, Field: idKey, Reason: fmt.Sprintf("missing %s", idKey)}
	}
	rest := make(map[string]any, len(kwargs))
	for k, v := range kwargs {
		if k != idKey {
			rest[k] = v
		}
	}
	return id, rest, nil
}
