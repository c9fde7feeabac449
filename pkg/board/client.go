package board

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Client provides instance-scoped Redis operations for the document store.
// All keys and channels are automatically namespaced with the instance name.
// The client is thread-safe and can be used concurrently from multiple goroutines.
type Client struct {
	rdb          *redis.Client
	instanceName string

	mu        sync.Mutex
	lastScore int64
}

// NewClient creates a new document store client for the specified instance.
//
// Parameters:
//   - redisOpts: Redis connection options (address, password, DB, etc.)
//   - instanceName: Cantas instance identifier (must not be empty)
//
// Returns an error if instanceName is empty.
func NewClient(redisOpts *redis.Options, instanceName string) (*Client, error) {
	if instanceName == "" {
		return nil, fmt.Errorf("instance name cannot be empty")
	}

	return &Client{
		rdb:          redis.NewClient(redisOpts),
		instanceName: instanceName,
	}, nil
}

// InstanceName returns the namespace of every key the client touches.
func (c *Client) InstanceName() string {
	return c.instanceName
}

// Close closes the Redis connection. Implements io.Closer.
func (c *Client) Close() error {
	return c.rdb.Close()
}

// Ping verifies Redis connectivity. Useful for health checks.
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// maxPatchRetries bounds the optimistic retries of a patch whose document
// changed between WATCH and EXEC.
const maxPatchRetries = 5

// Insert writes a new document and records it in its type index.
// The write is a single MULTI/EXEC transaction.
func (c *Client) Insert(ctx context.Context, doc *Document) error {
	hash, err := DocumentToHash(doc)
	if err != nil {
		return fmt.Errorf("failed to serialize document: %w", err)
	}

	key := DocumentKey(c.instanceName, doc.Type.Name, doc.ID)
	index := IndexKey(c.instanceName, doc.Type.Name)
	score := c.nextScore()

	_, err = c.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key, hash)
		// NX keeps the first score, so the index stays in creation order.
		pipe.ZAddNX(ctx, index, redis.Z{Score: score, Member: doc.ID})
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to write %s to Redis: %w", doc.Type.Name, err)
	}

	return nil
}

// Patch writes the named fields of an existing document and returns the
// document as stored after the write. Fields not named keep their stored
// values.
//
// The write is guarded by WATCH on the document key: if the document is
// gone, Patch returns a *NotFoundError and writes nothing, so a patch never
// recreates a deleted document.
func (c *Client) Patch(ctx context.Context, doc *Document, fields []string) (*Document, error) {
	hash, err := DocumentToHash(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize document: %w", err)
	}

	values := make(map[string]interface{}, len(fields))
	for _, name := range fields {
		v, ok := hash[name]
		if !ok {
			return nil, fmt.Errorf("%s has no field %q", doc.Type.Name, name)
		}
		values[name] = v
	}

	key := DocumentKey(c.instanceName, doc.Type.Name, doc.ID)
	var stored map[string]string

	txf := func(tx *redis.Tx) error {
		n, err := tx.Exists(ctx, key).Result()
		if err != nil {
			return err
		}
		if n == 0 {
			return &NotFoundError{Type: doc.Type.Name, ID: doc.ID}
		}

		var get *redis.MapStringStringCmd
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			if len(values) > 0 {
				pipe.HSet(ctx, key, values)
			}
			get = pipe.HGetAll(ctx, key)
			return nil
		})
		if err != nil {
			return err
		}
		stored = get.Val()
		return nil
	}

	for i := 0; i < maxPatchRetries; i++ {
		err = c.rdb.Watch(ctx, txf, key)
		if !errors.Is(err, redis.TxFailedErr) {
			break
		}
	}
	switch {
	case IsNotFound(err):
		return nil, err
	case err != nil:
		return nil, fmt.Errorf("failed to write %s to Redis: %w", doc.Type.Name, err)
	}

	next, err := HashToDocument(doc.Type, stored)
	if err != nil {
		return nil, fmt.Errorf("failed to deserialize %s: %w", doc.Type.Name, err)
	}
	return next, nil
}

// nextScore returns a strictly increasing index score based on the wall clock
// in microseconds.
func (c *Client) nextScore() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := time.Now().UnixMicro()
	if now <= c.lastScore {
		now = c.lastScore + 1
	}
	c.lastScore = now
	return float64(now)
}

// Fetch reads one document. Returns a *NotFoundError if it does not exist.
func (c *Client) Fetch(ctx context.Context, t *EntityType, id string) (*Document, error) {
	key := DocumentKey(c.instanceName, t.Name, id)

	hashData, err := c.rdb.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read %s from Redis: %w", t.Name, err)
	}

	// HGetAll returns an empty map for non-existent keys
	if len(hashData) == 0 {
		return nil, &NotFoundError{Type: t.Name, ID: id}
	}

	doc, err := HashToDocument(t, hashData)
	if err != nil {
		return nil, fmt.Errorf("failed to deserialize %s: %w", t.Name, err)
	}

	return doc, nil
}

// Scan reads every document of a type in creation order.
// Index entries whose hash has disappeared are skipped.
func (c *Client) Scan(ctx context.Context, t *EntityType) ([]*Document, error) {
	ids, err := c.rdb.ZRange(ctx, IndexKey(c.instanceName, t.Name), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read %s index: %w", t.Name, err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	cmds := make([]*redis.MapStringStringCmd, len(ids))
	_, err = c.rdb.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, id := range ids {
			cmds[i] = pipe.HGetAll(ctx, DocumentKey(c.instanceName, t.Name, id))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read %s documents: %w", t.Name, err)
	}

	docs := make([]*Document, 0, len(ids))
	for _, cmd := range cmds {
		hashData := cmd.Val()
		if len(hashData) == 0 {
			continue
		}
		doc, err := HashToDocument(t, hashData)
		if err != nil {
			return nil, fmt.Errorf("failed to deserialize %s: %w", t.Name, err)
		}
		docs = append(docs, doc)
	}

	return docs, nil
}

// Remove deletes a document and its index entry. Removing a missing document is a no-op.
func (c *Client) Remove(ctx context.Context, t *EntityType, id string) error {
	_, err := c.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, DocumentKey(c.instanceName, t.Name, id))
		pipe.ZRem(ctx, IndexKey(c.instanceName, t.Name), id)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to remove %s from Redis: %w", t.Name, err)
	}
	return nil
}

// Message is a broadcast as carried over Redis Pub/Sub.
type Message struct {
	Channel string          `json:"channel"`
	Payload json.RawMessage `json:"payload"`
	Room    string          `json:"room,omitempty"`
	Origin  string          `json:"origin,omitempty"`
}

// Publish sends a broadcast to every subscriber of this instance.
func (c *Client) Publish(ctx context.Context, b Broadcast) error {
	data, err := json.Marshal(struct {
		Channel string `json:"channel"`
		Payload any    `json:"payload"`
		Room    string `json:"room,omitempty"`
		Origin  string `json:"origin,omitempty"`
	}{b.Channel, b.Payload, b.Room, b.Origin})
	if err != nil {
		return fmt.Errorf("failed to marshal broadcast: %w", err)
	}

	if err := c.rdb.Publish(ctx, BroadcastsChannel(c.instanceName), data).Err(); err != nil {
		return fmt.Errorf("failed to publish broadcast: %w", err)
	}
	return nil
}

// Subscription represents an active Pub/Sub subscription to broadcasts.
// Caller must call Close() when done to clean up resources.
type Subscription struct {
	messages <-chan *Message
	errors   <-chan error
	cancel   func()
	once     sync.Once
}

// Messages returns the channel of broadcasts.
// The channel will be closed when the subscription is closed or the context is cancelled.
func (s *Subscription) Messages() <-chan *Message {
	return s.messages
}

// Errors returns the channel of subscription errors.
// The subscription continues after errors - malformed messages are skipped.
func (s *Subscription) Errors() <-chan error {
	return s.errors
}

// Close stops the subscription and cleans up resources. Implements io.Closer.
// Safe to call multiple times - subsequent calls are no-ops.
func (s *Subscription) Close() error {
	s.once.Do(s.cancel)
	return nil
}

// SubscribeBroadcasts subscribes to the broadcasts of this instance.
// The subscription is confirmed by Redis before this method returns, so any
// broadcast published afterwards is delivered.
//
// Messages are delivered on a buffered channel (size 64). Redis Pub/Sub is
// at-most-once: a subscriber that falls too far behind loses messages.
func (c *Client) SubscribeBroadcasts(ctx context.Context) (*Subscription, error) {
	pubsub := c.rdb.Subscribe(ctx, BroadcastsChannel(c.instanceName))
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe to broadcasts: %w", err)
	}

	messagesChan := make(chan *Message, 64)
	errorsChan := make(chan error, 10)

	subCtx, cancelFunc := context.WithCancel(ctx)

	go func() {
		defer close(messagesChan)
		defer close(errorsChan)
		defer pubsub.Close()

		ch := pubsub.Channel()

		for {
			select {
			case <-subCtx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}

				var m Message
				if err := json.Unmarshal([]byte(msg.Payload), &m); err != nil {
					select {
					case errorsChan <- fmt.Errorf("failed to unmarshal broadcast: %w", err):
					case <-subCtx.Done():
						return
					}
					continue
				}

				select {
				case messagesChan <- &m:
				case <-subCtx.Done():
					return
				}
			}
		}
	}()

	return &Subscription{
		messages: messagesChan,
		errors:   errorsChan,
		cancel:   cancelFunc,
	}, nil
}
