package board

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeDocs(t *EntityType, prefix string, n int) []*Document {
	docs := make([]*Document, n)
	for i := range docs {
		docs[i] = &Document{Type: t, ID: fmt.Sprintf("%s%d", prefix, i), Values: map[string]any{}}
	}
	return docs
}

func TestUnion(t *testing.T) {
	tt := newTestCatalog(t)

	t.Run("disjoint sets", func(t *testing.T) {
		a := ResultSet{Type: tt.board, Docs: makeDocs(tt.board, "a", 3)}
		b := ResultSet{Type: tt.board, Docs: makeDocs(tt.board, "b", 2)}
		u, err := Union(a, b)
		require.NoError(t, err)
		assert.Equal(t, a.Len()+b.Len(), u.Len())
	})

	t.Run("identical sets", func(t *testing.T) {
		a := ResultSet{Type: tt.board, Docs: makeDocs(tt.board, "a", 3)}
		u, err := Union(a, a)
		require.NoError(t, err)
		assert.Equal(t, a.Len(), u.Len())
	})

	t.Run("overlapping sets drop duplicates", func(t *testing.T) {
		docs := makeDocs(tt.board, "a", 4)
		a := ResultSet{Type: tt.board, Docs: docs[:3]}
		b := ResultSet{Type: tt.board, Docs: docs[1:]}
		u, err := Union(a, b)
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"a0", "a1", "a2", "a3"}, u.IDs())
	})

	t.Run("empty operands", func(t *testing.T) {
		a := ResultSet{Type: tt.board, Docs: makeDocs(tt.board, "a", 2)}
		u, err := Union(ResultSet{}, a)
		require.NoError(t, err)
		assert.Equal(t, 2, u.Len())
		assert.Same(t, tt.board, u.Type)

		u, err = Union(ResultSet{Type: tt.board}, ResultSet{Type: tt.board})
		require.NoError(t, err)
		assert.False(t, u.Exists())
		assert.Nil(t, u.First())
	})

	t.Run("different types fail", func(t *testing.T) {
		a := ResultSet{Type: tt.board, Docs: makeDocs(tt.board, "a", 1)}
		b := ResultSet{Type: tt.item, Docs: makeDocs(tt.item, "b", 1)}
		_, err := Union(a, b)
		assert.ErrorIs(t, err, ErrTypeMismatch)
	})
}

func TestParseQuery(t *testing.T) {
	t.Run("splits reserved keys", func(t *testing.T) {
		q, err := ParseQuery(map[string]any{
			"boardId": "b1",
			"$or":     []any{map[string]any{"a": 1}, map[string]any{"b": 2}},
			"id__in":  []any{"x", "y"},
		})
		require.NoError(t, err)
		assert.Equal(t, map[string]any{"boardId": "b1"}, q.Where)
		assert.Len(t, q.Or, 2)
		assert.Equal(t, []string{"x", "y"}, q.IDs)
	})

	t.Run("empty id list matches nothing", func(t *testing.T) {
		q, err := ParseQuery(map[string]any{"id__in": []any{}})
		require.NoError(t, err)
		tt := newTestCatalog(t)
		ok, err := q.Match(&Document{Type: tt.user, ID: "u1", Values: map[string]any{}})
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("rejects malformed $or", func(t *testing.T) {
		_, err := ParseQuery(map[string]any{"$or": "nope"})
		assert.True(t, IsValidation(err))
		_, err = ParseQuery(map[string]any{"$or": []any{"nope"}})
		assert.True(t, IsValidation(err))
	})

	t.Run("rejects malformed id list", func(t *testing.T) {
		_, err := ParseQuery(map[string]any{"id__in": []any{1}})
		assert.True(t, IsValidation(err))
	})
}

func TestQueryMatch(t *testing.T) {
	tt := newTestCatalog(t)
	ts := time.Date(2024, 2, 2, 0, 0, 0, 0, time.UTC)
	doc := &Document{
		Type: tt.item,
		ID:   "i1",
		Values: map[string]any{
			"title":      "Task",
			"order":      65535.0,
			"count":      int64(3),
			"boardId":    Ref{Type: "Board", ID: "b1"},
			"isArchived": false,
			"tags":       []any{"x", "y"},
		},
	}
	bdoc := &Document{Type: tt.board, ID: "b1", Values: map[string]any{"created": ts}}

	tests := []struct {
		name  string
		doc   *Document
		where map[string]any
		want  bool
	}{
		{"string", doc, map[string]any{"title": "Task"}, true},
		{"int from JSON number", doc, map[string]any{"count": float64(3)}, true},
		{"float", doc, map[string]any{"order": 65535}, true},
		{"bool mismatch", doc, map[string]any{"isArchived": true}, false},
		{"reference id", doc, map[string]any{"boardId": "b1"}, true},
		{"reference ref", doc, map[string]any{"boardId": Ref{Type: "Board", ID: "b1"}}, true},
		{"reference mapping with id", doc, map[string]any{"boardId": map[string]any{"id": "b1"}}, true},
		{"null reference", doc, map[string]any{"boardId": nil}, false},
		{"list contains", doc, map[string]any{"tags": "y"}, true},
		{"list whole", doc, map[string]any{"tags": []any{"x", "y"}}, true},
		{"list whole order matters", doc, map[string]any{"tags": []any{"y", "x"}}, false},
		{"identifier", doc, map[string]any{"id": "i1"}, true},
		{"timestamp value", bdoc, map[string]any{"created": ts}, true},
		{"timestamp string", bdoc, map[string]any{"created": "2024-02-02T00:00:00Z"}, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Where(tc.where).Match(tc.doc)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestResultSetSortBy(t *testing.T) {
	tt := newTestCatalog(t)
	t1 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	docs := []*Document{
		{Type: tt.board, ID: "b", Values: map[string]any{"updated": t1.Add(time.Hour), "title": "B"}},
		{Type: tt.board, ID: "a", Values: map[string]any{"updated": t1, "title": "C"}},
		{Type: tt.board, ID: "c", Values: map[string]any{"updated": nil, "title": "A"}},
	}
	rs := ResultSet{Type: tt.board, Docs: docs}

	assert.Equal(t, []string{"c", "a", "b"}, rs.SortBy("updated", false).IDs())
	assert.Equal(t, []string{"b", "a", "c"}, rs.Order("-updated").IDs())
	assert.Equal(t, []string{"c", "b", "a"}, rs.Order("title").IDs())
	assert.Equal(t, []string{"a", "b", "c"}, rs.Order("_id").IDs())
	assert.Equal(t, []string{"b", "a", "c"}, rs.IDs(), "original order is untouched")
}
