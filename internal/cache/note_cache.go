// Package cache implements the per-user note mirror kept in Redis. Each
// user owns one hash keyed "notes:<user_id>" whose fields are note ids
// and whose values are JSON note snapshots. The mirror is advisory: it
// is populated by the write path only, consulted before the database on
// list reads, and every backend failure is downgraded to a miss so the
// cache can never fail a request.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/fundoo/notes-api/internal/model"
)

// ErrMissingField is returned by Save when the snapshot lacks a user id
// or note id. Entries without both cannot be addressed later.
var ErrMissingField = errors.New("cache: snapshot requires user id and note id")

// ErrEmptyPayload is returned by Save when the snapshot serializes to
// nothing.
var ErrEmptyPayload = errors.New("cache: empty payload")

// NoteCache mirrors committed note state per user. A nil Redis client is
// legal and turns every operation into a miss.
type NoteCache struct {
	rdb *redis.Client
}

// NewNoteCache wraps a Redis client. rdb may be nil when Redis was
// unreachable at startup.
func NewNoteCache(rdb *redis.Client) *NoteCache { return &NoteCache{rdb: rdb} }

func userKey(userID uint64) string {
	return "notes:" + strconv.FormatUint(userID, 10)
}

func field(noteID uint64) string {
	return strconv.FormatUint(noteID, 10)
}

// Save overwrites the snapshot for (user, note). Validation failures are
// returned; backend failures are logged and swallowed because the store
// remains the source of truth.
func (c *NoteCache) Save(ctx context.Context, n model.Note) error {
	if n.UserID == 0 || n.ID == 0 {
		return ErrMissingField
	}
	payload, err := json.Marshal(n)
	if err != nil {
		return err
	}
	if len(payload) == 0 {
		return ErrEmptyPayload
	}
	if c.rdb == nil {
		return nil
	}
	if err := c.rdb.HSet(ctx, userKey(n.UserID), field(n.ID), payload).Err(); err != nil {
		log.Printf("note cache: save %d/%d failed: %v", n.UserID, n.ID, err)
	}
	return nil
}

// Retrieve returns the snapshot for one note. The second result reports
// whether the entry was found; backend errors count as not found.
func (c *NoteCache) Retrieve(ctx context.Context, userID, noteID uint64) (model.Note, bool) {
	if c.rdb == nil {
		return model.Note{}, false
	}
	raw, err := c.rdb.HGet(ctx, userKey(userID), field(noteID)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			log.Printf("note cache: retrieve %d/%d failed: %v", userID, noteID, err)
		}
		return model.Note{}, false
	}
	var n model.Note
	if err := json.Unmarshal(raw, &n); err != nil {
		return model.Note{}, false
	}
	return n, true
}

// RetrieveAll returns every cached snapshot of the user keyed by note id.
// An empty hash and any backend error both report not found.
func (c *NoteCache) RetrieveAll(ctx context.Context, userID uint64) (map[uint64]model.Note, bool) {
	if c.rdb == nil {
		return nil, false
	}
	raw, err := c.rdb.HGetAll(ctx, userKey(userID)).Result()
	if err != nil {
		log.Printf("note cache: retrieve all %d failed: %v", userID, err)
		return nil, false
	}
	if len(raw) == 0 {
		return nil, false
	}
	notes := make(map[uint64]model.Note, len(raw))
	for f, v := range raw {
		id, err := strconv.ParseUint(f, 10, 64)
		if err != nil {
			continue
		}
		var n model.Note
		if err := json.Unmarshal([]byte(v), &n); err != nil {
			continue
		}
		notes[id] = n
	}
	if len(notes) == 0 {
		return nil, false
	}
	return notes, true
}

// Delete removes the entry for one note and reports whether it existed.
// Backend errors report not removed.
func (c *NoteCache) Delete(ctx context.Context, userID, noteID uint64) bool {
	if c.rdb == nil {
		return false
	}
	removed, err := c.rdb.HDel(ctx, userKey(userID), field(noteID)).Result()
	if err != nil {
		log.Printf("note cache: delete %d/%d failed: %v", userID, noteID, err)
		return false
	}
	return removed > 0
}
