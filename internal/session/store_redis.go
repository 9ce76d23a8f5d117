package session

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"inclusao/internal/sentinel"
	id "inclusao/pkg/domain"
)

const (
	sessionKeyPrefix = "inclusao:sessao:"
	tokenKeyPrefix   = "inclusao:token:"
)

type sessionJSON struct {
	ID           string `json:"id"`
	UserID       string `json:"user_id"`
	Email        string `json:"email"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	Device       string `json:"device"`
	LoginAt      int64  `json:"login_at"` // Unix nano
	Status       string `json:"status"`
}

func toJSON(s *Session) *sessionJSON {
	return &sessionJSON{
		ID:           uuid.UUID(s.ID).String(),
		UserID:       uuid.UUID(s.UserID).String(),
		Email:        s.Email,
		AccessToken:  s.AccessToken,
		RefreshToken: s.RefreshToken,
		Device:       s.Device,
		LoginAt:      s.LoginAt.UnixNano(),
		Status:       string(s.Status),
	}
}

func fromJSON(j *sessionJSON) (*Session, error) {
	sessionID, err := uuid.Parse(j.ID)
	if err != nil {
		return nil, fmt.Errorf("parse session id: %w", err)
	}
	userID, err := uuid.Parse(j.UserID)
	if err != nil {
		return nil, fmt.Errorf("parse user id: %w", err)
	}
	return &Session{
		ID:           id.SessionID(sessionID),
		UserID:       id.UserID(userID),
		Email:        j.Email,
		AccessToken:  j.AccessToken,
		RefreshToken: j.RefreshToken,
		Device:       j.Device,
		LoginAt:      time.Unix(0, j.LoginAt),
		Status:       Status(j.Status),
	}, nil
}

// RedisStore shares sessions between instances. Keys live for ttl after
// the last write, so abandoned sessions disappear without the sweeper.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore stores sessions for ttl; use at least twice the session
// max age so expiry notices survive until the user returns.
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func sessionKey(sessionID id.SessionID) string {
	return sessionKeyPrefix + uuid.UUID(sessionID).String()
}

// tokenKey indexes sessions by a digest of their access token.
func tokenKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return tokenKeyPrefix + hex.EncodeToString(sum[:])
}

func (r *RedisStore) Create(ctx context.Context, s *Session) error {
	data, err := json.Marshal(toJSON(s))
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	pipe := r.client.TxPipeline()
	pipe.Set(ctx, sessionKey(s.ID), data, r.ttl)
	pipe.SAdd(ctx, tokenKey(s.AccessToken), uuid.UUID(s.ID).String())
	pipe.Expire(ctx, tokenKey(s.AccessToken), r.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

func (r *RedisStore) FindByID(ctx context.Context, sessionID id.SessionID) (*Session, error) {
	data, err := r.client.Get(ctx, sessionKey(sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("session %s: %w", sessionID, sentinel.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("find session: %w", err)
	}
	var j sessionJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}
	return fromJSON(&j)
}

// Update rewrites the session under an optimistic lock on its key.
func (r *RedisStore) Update(ctx context.Context, s *Session) error {
	key := sessionKey(s.ID)
	data, err := json.Marshal(toJSON(s))
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	return r.client.Watch(ctx, func(tx *redis.Tx) error {
		exists, err := tx.Exists(ctx, key).Result()
		if err != nil {
			return fmt.Errorf("check session exists: %w", err)
		}
		if exists == 0 {
			return fmt.Errorf("session %s: %w", s.ID, sentinel.ErrNotFound)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, r.ttl)
			return nil
		})
		return err
	}, key)
}

func (r *RedisStore) Delete(ctx context.Context, sessionID id.SessionID) error {
	s, err := r.FindByID(ctx, sessionID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	pipe := r.client.TxPipeline()
	pipe.Del(ctx, sessionKey(sessionID))
	pipe.SRem(ctx, tokenKey(s.AccessToken), uuid.UUID(sessionID).String())
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func (r *RedisStore) FindByAccessToken(ctx context.Context, token string) ([]*Session, error) {
	ids, err := r.client.SMembers(ctx, tokenKey(token)).Result()
	if err != nil {
		return nil, fmt.Errorf("list sessions by token: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	pipe := r.client.Pipeline()
	cmds := make([]*redis.StringCmd, len(ids))
	for i, sid := range ids {
		cmds[i] = pipe.Get(ctx, sessionKeyPrefix+sid)
	}
	// missing keys surface as redis.Nil per command
	_, _ = pipe.Exec(ctx)

	out := make([]*Session, 0, len(ids))
	for _, cmd := range cmds {
		if s := decodeCmd(cmd); s != nil {
			out = append(out, s)
		}
	}
	return out, nil
}

// DeleteLoggedInBefore scans every session key. Redis TTLs already bound
// the keyspace, so this only trims sessions ahead of their TTL.
func (r *RedisStore) DeleteLoggedInBefore(ctx context.Context, cutoff time.Time) (int, error) {
	var (
		cursor  uint64
		deleted int
	)
	for {
		keys, next, err := r.client.Scan(ctx, cursor, sessionKeyPrefix+"*", 100).Result()
		if err != nil {
			return deleted, fmt.Errorf("scan sessions: %w", err)
		}
		for _, key := range keys {
			s := decodeCmd(r.client.Get(ctx, key))
			if s == nil || !s.LoginAt.Before(cutoff) {
				continue
			}
			if err := r.Delete(ctx, s.ID); err != nil {
				return deleted, err
			}
			deleted++
		}
		cursor = next
		if cursor == 0 {
			return deleted, nil
		}
	}
}

// decodeCmd returns nil for missing or malformed entries.
func decodeCmd(cmd *redis.StringCmd) *Session {
	data, err := cmd.Bytes()
	if err != nil {
		return nil
	}
	var j sessionJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return nil
	}
	s, err := fromJSON(&j)
	if err != nil {
		return nil
	}
	return s
}

var _ Store = (*RedisStore)(nil)
