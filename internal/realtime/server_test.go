package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/websocket"

	"github.com/dyluth/cantas/internal/auth"
	"github.com/dyluth/cantas/internal/events"
	"github.com/dyluth/cantas/internal/models"
	"github.com/dyluth/cantas/pkg/board"
)

type testServer struct {
	srv           *httptest.Server
	svc           *models.Service
	authenticator *auth.Authenticator
	hub           *Hub
}

func setupTestServer(t *testing.T) *testServer {
	t.Helper()

	mr := miniredis.NewMiniRedis()
	require.NoError(t, mr.Start())
	t.Cleanup(mr.Close)

	client, err := board.NewClient(&redis.Options{Addr: mr.Addr()}, "test-instance")
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	svc := models.NewService(board.NewRepository(client))
	table, err := events.NewCantasTable(svc)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	hub := NewHub(nil)
	require.NoError(t, hub.Listen(ctx, client))

	authenticator := auth.NewAuthenticator([]byte("test-secret"), "", time.Hour, svc, models.User)
	server := NewServer(authenticator, NewDispatcher(table, client, hub, svc), hub, nil)

	srv := httptest.NewServer(server)
	t.Cleanup(srv.Close)

	return &testServer{srv: srv, svc: svc, authenticator: authenticator, hub: hub}
}

func (ts *testServer) newUser(t *testing.T, username string) *board.Document {
	t.Helper()
	u, err := ts.svc.Create(context.Background(), models.User, map[string]any{"username": username, "password": "hunter2"})
	require.NoError(t, err)
	return u
}

type testClient struct {
	conn *websocket.Conn
	dec  *json.Decoder
}

type testFrame struct {
	Type    string          `json:"type"`
	ID      json.RawMessage `json:"id"`
	Result  json.RawMessage `json:"result"`
	Error   *ErrorBody      `json:"error"`
	Channel string          `json:"channel"`
	Payload json.RawMessage `json:"payload"`
}

func dialWithServerURL(httpURL, cookie string) (*websocket.Conn, error) {
	wsURL := "ws" + strings.TrimPrefix(httpURL, "http") + "/socket"
	cfg, err := websocket.NewConfig(wsURL, httpURL)
	if err != nil {
		return nil, err
	}
	cfg.Header = make(http.Header)
	if cookie != "" {
		cfg.Header.Set("Cookie", cookie)
	}
	return websocket.DialConfig(cfg)
}

func (ts *testServer) dial(t *testing.T, user *board.Document) *testClient {
	t.Helper()
	token, err := ts.authenticator.Issue(user.ID)
	require.NoError(t, err)

	conn, err := dialWithServerURL(ts.srv.URL, auth.DefaultCookieName+"="+token)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	return &testClient{conn: conn, dec: json.NewDecoder(conn)}
}

func (c *testClient) send(t *testing.T, id int, name string, kwargs map[string]any) {
	t.Helper()
	frame := map[string]any{"id": id, "name": name, "args": []any{}, "kwargs": kwargs}
	require.NoError(t, json.NewEncoder(c.conn).Encode(frame))
}

func (c *testClient) read(t *testing.T) testFrame {
	t.Helper()
	require.NoError(t, c.conn.SetDeadline(time.Now().Add(2*time.Second)))
	var f testFrame
	require.NoError(t, c.dec.Decode(&f))
	return f
}

// collect reads frames until both the ack of id and an event on channel have
// arrived; their relative order is not fixed.
func (c *testClient) collect(t *testing.T, id int, channel string) (ack, event testFrame) {
	t.Helper()
	wantID := json.RawMessage(strings.TrimSpace(mustJSON(t, id)))
	var gotAck, gotEvent bool
	for !gotAck || !gotEvent {
		f := c.read(t)
		switch {
		case f.Type == "ack" && string(f.ID) == string(wantID):
			ack, gotAck = f, true
		case f.Type == "event" && f.Channel == channel:
			event, gotEvent = f, true
		}
	}
	return ack, event
}

func (c *testClient) ack(t *testing.T, id int) testFrame {
	t.Helper()
	want := mustJSON(t, id)
	for {
		f := c.read(t)
		if f.Type == "ack" && string(f.ID) == want {
			return f
		}
	}
}

func mustJSON(t *testing.T, v any) string {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return string(data)
}

func decodeObject(t *testing.T, raw json.RawMessage) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal(raw, &m))
	return m
}

func TestConnectionRequiresIdentity(t *testing.T) {
	ts := setupTestServer(t)

	t.Run("missing cookie", func(t *testing.T) {
		conn, err := dialWithServerURL(ts.srv.URL, "")
		if conn != nil {
			_ = conn.Close()
		}
		require.Error(t, err)
		assert.Contains(t, err.Error(), "bad status")
	})

	t.Run("invalid token", func(t *testing.T) {
		conn, err := dialWithServerURL(ts.srv.URL, "oid=garbage")
		if conn != nil {
			_ = conn.Close()
		}
		require.Error(t, err)
	})

	t.Run("plain http is rejected before upgrade", func(t *testing.T) {
		resp, err := http.Get(ts.srv.URL + "/socket")
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})
}

func TestCreateAcksAndBroadcastsToOrigin(t *testing.T) {
	ts := setupTestServer(t)
	user := ts.newUser(t, "ann")
	c := ts.dial(t, user)

	c.send(t, 1, "board:create", map[string]any{"title": "Roadmap", "creatorId": user.ID})
	ack, event := c.collect(t, 1, "/board:create")

	require.Nil(t, ack.Error)
	result := decodeObject(t, ack.Result)
	assert.Equal(t, "Roadmap", result["title"])
	assert.NotEmpty(t, result["_id"])

	creator, ok := result["creatorId"].(map[string]any)
	require.True(t, ok, "creator is inlined")
	assert.Equal(t, "ann", creator["username"])
	assert.NotContains(t, creator, "password")

	assert.JSONEq(t, string(ack.Result), string(event.Payload))
}

func TestRoomFanOut(t *testing.T) {
	ts := setupTestServer(t)
	ctx := context.Background()
	ann := ts.newUser(t, "ann")
	bob := ts.newUser(t, "bob")

	b, err := ts.svc.NewBoard(ctx, ann)
	require.NoError(t, err)
	lists, err := ts.svc.Filter(ctx, models.List, map[string]any{"boardId": b.ID})
	require.NoError(t, err)
	require.Equal(t, 3, lists.Len())

	annConn := ts.dial(t, ann)
	bobConn := ts.dial(t, bob)

	annConn.send(t, 1, EventJoinBoard, map[string]any{"boardId": b.ID})
	ack, joined := annConn.collect(t, 1, EventJoinedBoard)
	require.Nil(t, ack.Error)
	payload := decodeObject(t, joined.Payload)
	assert.Equal(t, "isMember", payload["message"])
	assert.EqualValues(t, 0, payload["ok"])
	require.Len(t, payload["visitors"], 1)

	bobConn.send(t, 1, EventJoinBoard, map[string]any{"boardId": b.ID})
	_, joined = bobConn.collect(t, 1, EventJoinedBoard)
	payload = decodeObject(t, joined.Payload)
	assert.Equal(t, "notMember", payload["message"])
	assert.Len(t, payload["visitors"], 2)

	card, err := ts.svc.Create(ctx, models.Card, map[string]any{
		"title": "Write docs", "creatorId": ann.ID, "boardId": b.ID, "listId": lists.First().ID,
	})
	require.NoError(t, err)

	channel := board.InstanceChannel(models.Type(models.Card), card.ID, events.VerbUpdate)
	annConn.send(t, 2, "card:patch", map[string]any{"id": card.ID, "title": "X"})
	ack, event := annConn.collect(t, 2, channel)
	require.Nil(t, ack.Error)
	assert.Equal(t, "null", string(ack.Result))
	assert.Equal(t, "X", decodeObject(t, event.Payload)["title"])

	f := bobConn.read(t)
	assert.Equal(t, "event", f.Type)
	assert.Equal(t, channel, f.Channel)
	assert.Equal(t, "X", decodeObject(t, f.Payload)["title"])
}

func TestJoinPrivateBoardRequiresMembership(t *testing.T) {
	ts := setupTestServer(t)
	ctx := context.Background()
	ann := ts.newUser(t, "ann")
	eve := ts.newUser(t, "eve")

	b, err := ts.svc.Create(ctx, models.Board, map[string]any{"title": "Secret", "creatorId": ann.ID, "isPublic": false})
	require.NoError(t, err)

	c := ts.dial(t, eve)
	c.send(t, 1, EventJoinBoard, map[string]any{"boardId": b.ID})
	ack := c.ack(t, 1)
	require.NotNil(t, ack.Error)
	assert.Equal(t, CodeUnauthorized, ack.Error.Code)
}

func TestSubscribeToChannel(t *testing.T) {
	ts := setupTestServer(t)
	ann := ts.newUser(t, "ann")
	bob := ts.newUser(t, "bob")

	watcher := ts.dial(t, bob)
	watcher.send(t, 1, EventSubscribe, map[string]any{"channel": "/board:create"})
	assert.Equal(t, "true", string(watcher.ack(t, 1).Result))

	creator := ts.dial(t, ann)
	creator.send(t, 1, "board:create", map[string]any{"title": "Shared", "creatorId": ann.ID})
	creator.collect(t, 1, "/board:create")

	f := watcher.read(t)
	assert.Equal(t, "/board:create", f.Channel)
	assert.Equal(t, "Shared", decodeObject(t, f.Payload)["title"])

	watcher.send(t, 2, EventUnsubscribe, map[string]any{"channel": "/board:create"})
	assert.Equal(t, "true", string(watcher.ack(t, 2).Result))

	watcher.send(t, 3, EventSubscribe, map[string]any{})
	f = watcher.ack(t, 3)
	require.NotNil(t, f.Error)
	assert.Equal(t, CodeValidation, f.Error.Code)
}

func TestAcknowledgements(t *testing.T) {
	ts := setupTestServer(t)
	c := ts.dial(t, ts.newUser(t, "ann"))

	t.Run("unknown event acks null", func(t *testing.T) {
		c.send(t, 1, "no-such-event", nil)
		f := c.ack(t, 1)
		assert.Nil(t, f.Error)
		assert.Equal(t, "null", string(f.Result))
	})

	t.Run("unsupported crud event acks null", func(t *testing.T) {
		c.send(t, 2, "label:create", map[string]any{"title": "x"})
		f := c.ack(t, 2)
		assert.Nil(t, f.Error)
		assert.Equal(t, "null", string(f.Result))
	})

	t.Run("missing board is not_found", func(t *testing.T) {
		c.send(t, 3, "board:read", map[string]any{"_id": "missing"})
		f := c.ack(t, 3)
		require.NotNil(t, f.Error)
		assert.Equal(t, CodeNotFound, f.Error.Code)
	})

	t.Run("generic read of missing instance acks null", func(t *testing.T) {
		c.send(t, 4, "list:read", map[string]any{"boardId": "missing"})
		f := c.ack(t, 4)
		assert.Nil(t, f.Error)
		assert.Equal(t, "[]", string(f.Result))

		c.send(t, 5, "comment:read", map[string]any{"_id": "missing"})
		f = c.ack(t, 5)
		assert.Nil(t, f.Error)
		assert.Equal(t, "null", string(f.Result))
	})

	t.Run("invalid update is validation", func(t *testing.T) {
		c.send(t, 6, "card:update", map[string]any{"title": "no id"})
		f := c.ack(t, 6)
		require.NotNil(t, f.Error)
		assert.Equal(t, CodeValidation, f.Error.Code)
	})

	t.Run("id named like the index key is not_found", func(t *testing.T) {
		c.send(t, 7, "card:update", map[string]any{"_id": "ids", "title": "x"})
		f := c.ack(t, 7)
		require.NotNil(t, f.Error)
		assert.Equal(t, CodeNotFound, f.Error.Code)
	})

	t.Run("frames are acknowledged in order", func(t *testing.T) {
		for i := 10; i < 15; i++ {
			c.send(t, i, "comment:read", map[string]any{})
		}
		for i := 10; i < 15; i++ {
			f := c.read(t)
			assert.Equal(t, "ack", f.Type)
			assert.Equal(t, mustJSON(t, i), string(f.ID))
		}
	})
}

func TestInvalidFrames(t *testing.T) {
	ts := setupTestServer(t)
	ann := ts.newUser(t, "ann")

	sendRaw := func(t *testing.T, c *testClient, data string) {
		t.Helper()
		_, err := c.conn.Write([]byte(data))
		require.NoError(t, err)
	}

	t.Run("one malformed frame costs one error ack", func(t *testing.T) {
		c := ts.dial(t, ann)
		sendRaw(t, c, `{"id": 1, "name": `)

		f := c.read(t)
		require.NotNil(t, f.Error)
		assert.Equal(t, CodeValidation, f.Error.Code)

		c.send(t, 2, "comment:read", map[string]any{})
		f = c.read(t)
		assert.Nil(t, f.Error)
		assert.Equal(t, "2", string(f.ID))
	})

	t.Run("valid frames reset the error budget", func(t *testing.T) {
		c := ts.dial(t, ann)
		for i := 0; i < 2*maxDecodeErrorsPerConn; i++ {
			sendRaw(t, c, "not json")
			require.NotNil(t, c.read(t).Error)
			if i%2 == 1 {
				c.send(t, i, "comment:read", map[string]any{})
				assert.Nil(t, c.ack(t, i).Error)
			}
		}
	})

	t.Run("repeated malformed frames close the connection", func(t *testing.T) {
		c := ts.dial(t, ann)
		for i := 0; i < maxDecodeErrorsPerConn; i++ {
			sendRaw(t, c, "not json")
			require.NotNil(t, c.read(t).Error)
		}

		require.NoError(t, c.conn.SetDeadline(time.Now().Add(2*time.Second)))
		var f testFrame
		assert.Error(t, c.dec.Decode(&f))
	})
}
