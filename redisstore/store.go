// Package redisstore provides a Redis backed userdir.Store.
//
// Each user is stored BSON encoded under a key derived from its email,
// so emails are unique. Insertion order is kept in a sorted set scored by
// a sequence counter.
package redisstore

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/icza/userdir"
)

// DefaultPrefix is the default for Config.Prefix.
const DefaultPrefix = "userdir:"

// Key suffixes, appended to Config.Prefix.
const (
	keyUser  = "user:"
	keyOrder = "users"
	keySeq   = "users_seq"
)

// insertScript stores a user, assigns its sequence number and indexes it
// in one step. KEYS: user, order, seq. ARGV: encoded user, email.
// Returns 0 if the user key exists.
var insertScript = redis.NewScript(`
if not redis.call("SET", KEYS[1], ARGV[1], "NX") then
	return 0
end
local seq = redis.call("INCR", KEYS[3])
redis.call("ZADD", KEYS[2], seq, ARGV[2])
return 1
`)

// deleteAllScript deletes all indexed users, the order set and the sequence.
// KEYS: order, seq. ARGV: user key prefix. Returns the number of users deleted.
var deleteAllScript = redis.NewScript(`
local n = 0
for _, email in ipairs(redis.call("ZRANGE", KEYS[1], 0, -1)) do
	n = n + redis.call("DEL", ARGV[1] .. email)
end
redis.call("DEL", KEYS[1], KEYS[2])
return n
`)

// dropOrphanScript deletes a user key unless the user is indexed.
// KEYS: user, order. ARGV: email.
var dropOrphanScript = redis.NewScript(`
if redis.call("ZSCORE", KEYS[2], ARGV[1]) then
	return 0
end
return redis.call("DEL", KEYS[1])
`)

// Config holds Redis store configuration.
type Config struct {
	// Client is an existing Redis client.
	// If provided, Addr, Password and DB are ignored.
	Client redis.UniversalClient

	// Addr is the Redis server address (host:port).
	Addr string

	// Password is the Redis password.
	Password string

	// DB is the Redis database number.
	DB int

	// Prefix is prepended to all keys.
	Prefix string
}

// Store implements userdir.Store using Redis.
type Store struct {
	client redis.UniversalClient
	prefix string
}

// New creates a new Redis store.
func New(cfg Config) *Store {
	client := cfg.Client
	if client == nil {
		client = redis.NewClient(&redis.Options{
			Addr:     cfg.Addr,
			Password: cfg.Password,
			DB:       cfg.DB,
		})
	}
	if cfg.Prefix == "" {
		cfg.Prefix = DefaultPrefix
	}

	return &Store{client: client, prefix: cfg.Prefix}
}

// Ping verifies the Redis connection is alive.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("can not connect Redis: %w", err)
	}
	return nil
}

// Close closes the Redis connection.
func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) userKey(email string) string {
	return s.prefix + keyUser + email
}

func (s *Store) orderKey() string {
	return s.prefix + keyOrder
}

func (s *Store) seqKey() string {
	return s.prefix + keySeq
}

// FindByEmail implements userdir.Store.FindByEmail.
func (s *Store) FindByEmail(ctx context.Context, email string) (*userdir.User, error) {
	data, err := s.client.Get(ctx, s.userKey(email)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return decode(data)
}

// Insert implements userdir.Store.Insert.
func (s *Store) Insert(ctx context.Context, u *userdir.User) error {
	u.ID = bson.NewObjectID()
	data, err := bson.Marshal(u)
	if err != nil {
		u.ID = bson.ObjectID{}
		return fmt.Errorf("failed to encode user: %w", err)
	}

	keys := []string{s.userKey(u.Email), s.orderKey(), s.seqKey()}
	ok, err := insertScript.Run(ctx, s.client, keys, data, u.Email).Bool()
	if err != nil {
		u.ID = bson.ObjectID{}
		return fmt.Errorf("failed to insert user: %w", err)
	}
	if !ok {
		u.ID = bson.ObjectID{}
		return fmt.Errorf("%w: %s", userdir.ErrDuplicateEmail, u.Email)
	}
	return nil
}

// Save implements userdir.Store.Save.
func (s *Store) Save(ctx context.Context, u *userdir.User) error {
	key := s.userKey(u.Email)

	data, err := bson.Marshal(u)
	if err != nil {
		return fmt.Errorf("failed to encode user: %w", err)
	}

	// The stored user must be the same (by ID) as the one being saved.
	txf := func(tx *redis.Tx) error {
		old, err := tx.Get(ctx, key).Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return userdir.ErrNotFound
			}
			return err
		}
		stored, err := decode(old)
		if err != nil {
			return err
		}
		if stored.ID != u.ID {
			return userdir.ErrNotFound
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, 0)
			return nil
		})
		return err
	}

	if err := s.client.Watch(ctx, txf, key); err != nil {
		if errors.Is(err, userdir.ErrNotFound) {
			return err
		}
		return fmt.Errorf("failed to save user: %w", err)
	}
	return nil
}

// Count implements userdir.Store.Count.
func (s *Store) Count(ctx context.Context) (int64, error) {
	n, err := s.client.ZCard(ctx, s.orderKey()).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to count users: %w", err)
	}
	return n, nil
}

// List implements userdir.Store.List.
func (s *Store) List(ctx context.Context, skip, limit int64) ([]*userdir.User, error) {
	users := []*userdir.User{}
	if skip < 0 || limit <= 0 {
		return users, nil
	}

	emails, err := s.client.ZRange(ctx, s.orderKey(), skip, skip+limit-1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	if len(emails) == 0 {
		return users, nil
	}

	keys := make([]string, len(emails))
	for i, email := range emails {
		keys[i] = s.userKey(email)
	}
	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load users: %w", err)
	}

	for _, v := range values {
		str, ok := v.(string)
		if !ok {
			continue // Deleted since listed
		}
		u, err := decode([]byte(str))
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, nil
}

// DeleteAll implements userdir.Store.DeleteAll.
// Indexed users are deleted atomically, then user keys missing from the
// order set (left behind by an interrupted write) are swept.
func (s *Store) DeleteAll(ctx context.Context) (int64, error) {
	keys := []string{s.orderKey(), s.seqKey()}
	deleted, err := deleteAllScript.Run(ctx, s.client, keys, s.prefix+keyUser).Int64()
	if err != nil {
		return 0, fmt.Errorf("failed to delete users: %w", err)
	}

	iter := s.client.Scan(ctx, 0, escapeGlob(s.prefix+keyUser)+"*", 100).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		email := strings.TrimPrefix(key, s.prefix+keyUser)
		n, err := dropOrphanScript.Run(ctx, s.client, []string{key, s.orderKey()}, email).Int64()
		if err != nil {
			return deleted, fmt.Errorf("failed to delete user: %w", err)
		}
		deleted += n
	}
	if err := iter.Err(); err != nil {
		return deleted, fmt.Errorf("failed to scan users: %w", err)
	}
	return deleted, nil
}

// escapeGlob escapes the special characters of a SCAN / KEYS pattern.
func escapeGlob(s string) string {
	return globEscaper.Replace(s)
}

var globEscaper = strings.NewReplacer(`\`, `\\`, `*`, `\*`, `?`, `\?`, `[`, `\[`, `]`, `\]`)

func decode(data []byte) (*userdir.User, error) {
	var u *userdir.User
	if err := bson.Unmarshal(data, &u); err != nil {
		return nil, fmt.Errorf("failed to decode user: %w", err)
	}
	return u, nil
}

var _ userdir.Store = (*Store)(nil)
