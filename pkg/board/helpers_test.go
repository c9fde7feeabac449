package board

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

type testTypes struct {
	catalog *Catalog
	user    *EntityType
	perm    *EntityType
	board   *EntityType
	item    *EntityType
}

// newTestCatalog builds a small catalog exercising every field kind.
func newTestCatalog(t *testing.T) testTypes {
	t.Helper()

	tt := testTypes{
		catalog: NewCatalog(),
		user: &EntityType{
			Name: "User",
			Fields: []Field{
				String("username").Require(),
				String("fullname"),
			},
		},
		perm: &EntityType{
			Name:     "Perm",
			Embedded: true,
			Fields: []Field{
				List("users", Reference("", "User")),
				String("note"),
			},
		},
		board: &EntityType{
			Name: "Board",
			CRUD: true,
			Fields: []Field{
				String("title").Require(),
				Reference("creatorId", "User"),
				Bool("isClosed").WithDefault(false),
				Timestamp("created").AutoCreate(),
				Timestamp("updated").AutoUpdate(),
				List("members", Reference("", "User")),
				Embedded("perms", "Perm"),
			},
		},
		item: &EntityType{
			Name: "Item",
			CRUD: true,
			Fields: []Field{
				String("title").Require(),
				Float("order"),
				Int("count"),
				Reference("boardId", "Board"),
				Bool("isArchived").WithDefault(false),
				Map("meta"),
				List("tags", String("")),
			},
		},
	}

	for _, et := range []*EntityType{tt.user, tt.perm, tt.board, tt.item} {
		require.NoError(t, tt.catalog.Register(et))
	}
	require.NoError(t, tt.catalog.Validate())
	return tt
}

// setupTestClient creates a test client connected to a miniredis instance
func setupTestClient(t *testing.T) (*Client, *miniredis.Miniredis) {
	mr := miniredis.NewMiniRedis()
	err := mr.Start()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client, err := NewClient(&redis.Options{Addr: mr.Addr()}, "test-instance")
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	return client, mr
}

// fakeClock is a controllable time source for auto-now fields.
type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func setupTestRepo(t *testing.T) (*Repository, *Client, *fakeClock) {
	client, _ := setupTestClient(t)
	clock := &fakeClock{now: time.Date(2024, 3, 1, 12, 0, 0, 123456789, time.UTC)}
	return NewRepository(client, WithClock(clock.Now)), client, clock
}

// toStringMap converts a hash built by DocumentToHash to the form HGetAll returns.
func toStringMap(hash map[string]interface{}) map[string]string {
	out := make(map[string]string, len(hash))
	for k, v := range hash {
		out[k] = v.(string)
	}
	return out
}
