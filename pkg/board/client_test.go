package board

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClient(t *testing.T) {
	t.Run("creates client successfully", func(t *testing.T) {
		client, _ := setupTestClient(t)
		assert.NotNil(t, client)
		assert.Equal(t, "test-instance", client.InstanceName())
	})

	t.Run("rejects empty instance name", func(t *testing.T) {
		_, err := NewClient(&redis.Options{Addr: "localhost:6379"}, "")
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "instance name cannot be empty")
	})
}

func TestPing(t *testing.T) {
	client, _ := setupTestClient(t)
	assert.NoError(t, client.Ping(context.Background()))
}

func TestClose(t *testing.T) {
	mr := miniredis.NewMiniRedis()
	require.NoError(t, mr.Start())
	defer mr.Close()

	client, err := NewClient(&redis.Options{Addr: mr.Addr()}, "test-instance")
	require.NoError(t, err)

	assert.NoError(t, client.Close())
	assert.Error(t, client.Ping(context.Background()))
}

func TestInsertAndFetch(t *testing.T) {
	tt := newTestCatalog(t)
	client, mr := setupTestClient(t)
	ctx := context.Background()

	doc := &Document{Type: tt.user, ID: "u1", Values: map[string]any{"username": "ann", "fullname": nil}}
	require.NoError(t, client.Insert(ctx, doc))

	t.Run("stores namespaced hash", func(t *testing.T) {
		assert.True(t, mr.Exists("cantas:test-instance:User:doc:u1"))
		assert.Equal(t, `"ann"`, mr.HGet("cantas:test-instance:User:doc:u1", "username"))
		assert.Equal(t, "User", mr.HGet("cantas:test-instance:User:doc:u1", TypeKey))
	})

	t.Run("fetches stored document", func(t *testing.T) {
		got, err := client.Fetch(ctx, tt.user, "u1")
		require.NoError(t, err)
		assert.Equal(t, "u1", got.ID)
		assert.Equal(t, "ann", got.String("username"))
	})

	t.Run("missing document is NotFound", func(t *testing.T) {
		_, err := client.Fetch(ctx, tt.user, "nope")
		require.Error(t, err)
		assert.True(t, IsNotFound(err))
		var nf *NotFoundError
		require.ErrorAs(t, err, &nf)
		assert.Equal(t, "User", nf.Type)
		assert.Equal(t, "nope", nf.ID)
	})

	t.Run("id named like the index key is NotFound", func(t *testing.T) {
		_, err := client.Fetch(ctx, tt.user, "ids")
		assert.True(t, IsNotFound(err))
	})
}

func TestPatch(t *testing.T) {
	tt := newTestCatalog(t)
	client, mr := setupTestClient(t)
	ctx := context.Background()

	require.NoError(t, client.Insert(ctx, &Document{Type: tt.user, ID: "u1", Values: map[string]any{"username": "ann", "fullname": nil}}))

	t.Run("writes only the named fields", func(t *testing.T) {
		stale := &Document{Type: tt.user, ID: "u1", Values: map[string]any{"username": "stale", "fullname": "Ann Smith"}}
		got, err := client.Patch(ctx, stale, []string{"fullname"})
		require.NoError(t, err)
		assert.Equal(t, "ann", got.String("username"))
		assert.Equal(t, "Ann Smith", got.String("fullname"))
		assert.Equal(t, `"ann"`, mr.HGet("cantas:test-instance:User:doc:u1", "username"))
	})

	t.Run("unknown field is rejected", func(t *testing.T) {
		doc := &Document{Type: tt.user, ID: "u1", Values: map[string]any{"username": "ann"}}
		_, err := client.Patch(ctx, doc, []string{"bogus"})
		assert.Error(t, err)
	})

	t.Run("missing document is NotFound and stays missing", func(t *testing.T) {
		doc := &Document{Type: tt.user, ID: "gone", Values: map[string]any{"username": "ghost"}}
		_, err := client.Patch(ctx, doc, []string{"username"})
		assert.True(t, IsNotFound(err))
		assert.False(t, mr.Exists("cantas:test-instance:User:doc:gone"))
		members, err := mr.ZMembers("cantas:test-instance:User:ids")
		require.NoError(t, err)
		assert.NotContains(t, members, "gone")
	})
}

func TestScanAndRemove(t *testing.T) {
	tt := newTestCatalog(t)
	client, mr := setupTestClient(t)
	ctx := context.Background()

	for _, id := range []string{"u1", "u2", "u3"} {
		require.NoError(t, client.Insert(ctx, &Document{Type: tt.user, ID: id, Values: map[string]any{"username": id}}))
		time.Sleep(time.Millisecond)
	}

	docs, err := client.Scan(ctx, tt.user)
	require.NoError(t, err)
	require.Len(t, docs, 3)
	assert.Equal(t, "u1", docs[0].ID)
	assert.Equal(t, "u3", docs[2].ID)

	t.Run("patch keeps creation order", func(t *testing.T) {
		_, err := client.Patch(ctx, docs[0], []string{"username"})
		require.NoError(t, err)
		again, err := client.Scan(ctx, tt.user)
		require.NoError(t, err)
		assert.Equal(t, []string{"u1", "u2", "u3"}, ResultSet{Docs: again}.IDs())
	})

	t.Run("skips stale index entries", func(t *testing.T) {
		mr.Del("cantas:test-instance:User:doc:u2")
		again, err := client.Scan(ctx, tt.user)
		require.NoError(t, err)
		assert.Equal(t, []string{"u1", "u3"}, ResultSet{Docs: again}.IDs())
	})

	t.Run("remove deletes hash and index entry", func(t *testing.T) {
		require.NoError(t, client.Remove(ctx, tt.user, "u1"))
		assert.False(t, mr.Exists("cantas:test-instance:User:doc:u1"))
		members, err := mr.ZMembers("cantas:test-instance:User:ids")
		require.NoError(t, err)
		assert.NotContains(t, members, "u1")

		_, err = client.Fetch(ctx, tt.user, "u1")
		assert.True(t, IsNotFound(err))
	})

	t.Run("empty type scans to nothing", func(t *testing.T) {
		docs, err := client.Scan(ctx, tt.item)
		require.NoError(t, err)
		assert.Empty(t, docs)
	})
}

func TestPublishAndSubscribe(t *testing.T) {
	client, _ := setupTestClient(t)
	ctx := context.Background()

	sub, err := client.SubscribeBroadcasts(ctx)
	require.NoError(t, err)
	defer sub.Close()

	payload := map[string]any{"_id": "b1", "title": "Roadmap"}
	require.NoError(t, client.Publish(ctx, Broadcast{Channel: "/board:create", Payload: payload, Room: "board:b1", Origin: "c1"}))

	select {
	case msg := <-sub.Messages():
		require.NotNil(t, msg)
		assert.Equal(t, "/board:create", msg.Channel)
		assert.Equal(t, "board:b1", msg.Room)
		assert.Equal(t, "c1", msg.Origin)
		var got map[string]any
		require.NoError(t, json.Unmarshal(msg.Payload, &got))
		assert.Equal(t, payload, got)
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for broadcast")
	}

	t.Run("close is idempotent", func(t *testing.T) {
		assert.NoError(t, sub.Close())
		assert.NoError(t, sub.Close())
	})
}
