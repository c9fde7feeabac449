package inspect

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dyluth/cantas/internal/models"
	"github.com/dyluth/cantas/pkg/board"
)

func setupService(t *testing.T) *models.Service {
	t.Helper()

	mr := miniredis.NewMiniRedis()
	require.NoError(t, mr.Start())
	t.Cleanup(mr.Close)

	client, err := board.NewClient(&redis.Options{Addr: mr.Addr()}, "inspect-test")
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	return models.NewService(board.NewRepository(client))
}

func createUser(t *testing.T, svc *models.Service, username string) *board.Document {
	t.Helper()
	doc, err := svc.Create(context.Background(), models.User, map[string]any{"username": username})
	require.NoError(t, err)
	return doc
}

func TestLookupType(t *testing.T) {
	for _, name := range []string{"Card", "card", "CARD"} {
		typ, err := LookupType(name)
		require.NoError(t, err, name)
		assert.Equal(t, models.Card, typ.Name)
	}

	_, err := LookupType("Widget")
	assert.Error(t, err)
}

func TestCreatedField(t *testing.T) {
	card, err := LookupType(models.Card)
	require.NoError(t, err)
	assert.NotEmpty(t, CreatedField(card))

	for _, typ := range models.Catalog().Types() {
		name := CreatedField(typ)
		if name == "" {
			continue
		}
		f, ok := typ.Field(name)
		require.True(t, ok)
		assert.True(t, f.AutoNow, typ.Name)
		assert.False(t, f.AutoNowUpdate, typ.Name)
	}
}

func TestParseWhere(t *testing.T) {
	where, err := ParseWhere([]string{"isArchived=true", "order=3", "title=Ship it", `name="123"`})
	require.NoError(t, err)
	assert.Equal(t, true, where["isArchived"])
	assert.Equal(t, 3, where["order"])
	assert.Equal(t, "Ship it", where["title"])
	assert.Equal(t, "123", where["name"])

	none, err := ParseWhere(nil)
	require.NoError(t, err)
	assert.Nil(t, none)

	for _, bad := range []string{"noequals", "=value"} {
		_, err := ParseWhere([]string{bad})
		assert.Error(t, err, bad)
	}
}

func TestResolveID(t *testing.T) {
	svc := setupService(t)
	ctx := context.Background()
	ann := createUser(t, svc, "ann")
	createUser(t, svc, "bob")

	typ, err := LookupType(models.User)
	require.NoError(t, err)
	repo := svc.Repository()

	t.Run("full id", func(t *testing.T) {
		id, err := ResolveID(ctx, repo, typ, ann.ID)
		require.NoError(t, err)
		assert.Equal(t, ann.ID, id)
	})

	t.Run("unique prefix", func(t *testing.T) {
		id, err := ResolveID(ctx, repo, typ, ann.ID[:12])
		require.NoError(t, err)
		assert.Equal(t, ann.ID, id)
	})

	t.Run("too short", func(t *testing.T) {
		_, err := ResolveID(ctx, repo, typ, "abc")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "at least 6")
	})

	t.Run("no match", func(t *testing.T) {
		_, err := ResolveID(ctx, repo, typ, "zzzzzzzz")
		var nf *NotFoundError
		require.ErrorAs(t, err, &nf)
		assert.True(t, board.IsNotFound(err))
	})
}

func TestAmbiguousError(t *testing.T) {
	matches := make([]string, 12)
	for i := range matches {
		matches[i] = "abcdef" + strings.Repeat("0", i)
	}
	err := &AmbiguousError{Type: "Card", ShortID: "abcdef", Matches: matches}

	assert.True(t, IsAmbiguous(err))
	assert.Contains(t, err.Error(), "matches 12 Card documents")
	assert.Contains(t, err.Explain(), "...and 2 more")
	assert.False(t, IsAmbiguous(&NotFoundError{}))
}

func TestList(t *testing.T) {
	svc := setupService(t)
	ctx := context.Background()
	ann := createUser(t, svc, "ann")

	b, err := svc.CreateDefaultBoard(ctx, ann)
	require.NoError(t, err)
	lists, err := svc.Filter(ctx, models.List, map[string]any{"boardId": b.ID})
	require.NoError(t, err)

	for _, title := range []string{"First", "Second"} {
		_, err := svc.Create(ctx, models.Card, map[string]any{
			"title": title, "creatorId": ann.ID, "boardId": b.ID, "listId": lists.First().ID,
		})
		require.NoError(t, err)
	}
	now := time.Now()

	t.Run("table", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, List(ctx, svc, "card", OutputFormatDefault, nil, &buf, now))
		out := buf.String()
		assert.Contains(t, out, "First")
		assert.Contains(t, out, "Second")
		assert.Less(t, strings.Index(out, "First"), strings.Index(out, "Second"))
		assert.Contains(t, out, "2 Card documents found")
	})

	t.Run("jsonl with filter", func(t *testing.T) {
		var buf bytes.Buffer
		filters := &FilterCriteria{Where: map[string]any{"title": "Second"}}
		require.NoError(t, List(ctx, svc, "Card", OutputFormatJSONL, filters, &buf, now))

		lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
		require.Len(t, lines, 1)
		var value map[string]any
		require.NoError(t, json.Unmarshal([]byte(lines[0]), &value))
		assert.Equal(t, "Second", value["title"])
	})

	t.Run("time window excludes everything", func(t *testing.T) {
		var buf bytes.Buffer
		filters := &FilterCriteria{Since: now.Add(time.Hour)}
		require.NoError(t, List(ctx, svc, "Card", OutputFormatDefault, filters, &buf, now))
		assert.Equal(t, "No Card documents found\n", buf.String())
	})

	t.Run("unknown field", func(t *testing.T) {
		filters := &FilterCriteria{Where: map[string]any{"colour": "red"}}
		assert.Error(t, List(ctx, svc, "Card", OutputFormatDefault, filters, &bytes.Buffer{}, now))
	})

	t.Run("unknown format", func(t *testing.T) {
		assert.Error(t, List(ctx, svc, "Card", OutputFormat("xml"), nil, &bytes.Buffer{}, now))
	})
}

func TestGet(t *testing.T) {
	svc := setupService(t)
	ctx := context.Background()
	ann := createUser(t, svc, "ann")

	var buf bytes.Buffer
	require.NoError(t, Get(ctx, svc, "user", ann.ID[:8], &buf))

	var value map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &value))
	assert.Equal(t, ann.ID, value["_id"])
	assert.Equal(t, "ann", value["username"])
	assert.NotContains(t, value, "password")

	assert.Error(t, Get(ctx, svc, "user", "missing-id", &bytes.Buffer{}))
}

func TestFormatHelpers(t *testing.T) {
	assert.Equal(t, "abcdefgh", formatID("abcdefghijkl"))
	assert.Equal(t, "abc", formatID("abc"))

	assert.Equal(t, "30s ago", formatAge(30*time.Second))
	assert.Equal(t, "5m ago", formatAge(5*time.Minute))
	assert.Equal(t, "3h ago", formatAge(3*time.Hour))
	assert.Equal(t, "2d ago", formatAge(49*time.Hour))
}
