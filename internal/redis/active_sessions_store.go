package redisstore

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// ActiveSession is the hot-path view of an open parking session, cached for
// gate lookups without touching Postgres.
type ActiveSession struct {
	SessionID int64     `json:"session_id"`
	UserID    int64     `json:"user_id"`
	VehicleID int64     `json:"vehicle_id"`
	LotID     int64     `json:"lot_id"`
	Plate     string    `json:"plate"`
	EntryTime time.Time `json:"entry_time"`
}

// Store manages the active-session cache.
type Store struct {
	client *redis.Client
	ttl    time.Duration
}

// NewStore returns a redis-backed store.
func NewStore(client *redis.Client, ttl time.Duration) *Store {
	return &Store{client: client, ttl: ttl}
}

func (s *Store) key(sessionID int64) string {
	return "parking:active:" + strconv.FormatInt(sessionID, 10)
}

// Save caches an open session.
func (s *Store) Save(ctx context.Context, session ActiveSession) error {
	data, err := json.Marshal(session)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.key(session.SessionID), data, s.ttl).Err()
}

// Get returns a cached session.
func (s *Store) Get(ctx context.Context, sessionID int64) (*ActiveSession, error) {
	result, err := s.client.Get(ctx, s.key(sessionID)).Result()
	if err != nil {
		return nil, err
	}
	var session ActiveSession
	if err := json.Unmarshal([]byte(result), &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// Delete drops a session from the cache once it leaves ACTIVE.
func (s *Store) Delete(ctx context.Context, sessionID int64) error {
	return s.client.Del(ctx, s.key(sessionID)).Err()
}
