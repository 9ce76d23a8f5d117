//go:build integration

package session

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"inclusao/internal/sentinel"
	id "inclusao/pkg/domain"
	"inclusao/pkg/testutil/containers"
)

type RedisStoreSuite struct {
	suite.Suite
	ctx   context.Context
	redis *containers.RedisContainer
	store *RedisStore
}

func TestRedisStoreSuite(t *testing.T) {
	suite.Run(t, new(RedisStoreSuite))
}

func (s *RedisStoreSuite) SetupSuite() {
	s.ctx = context.Background()
	s.redis = containers.GetManager().GetRedis(s.T())
	s.store = NewRedisStore(s.redis.Client, 2*time.Hour)
}

func (s *RedisStoreSuite) SetupTest() {
	s.Require().NoError(s.redis.Flush(s.ctx))
}

func (s *RedisStoreSuite) newSession(token string, loginAt time.Time) *Session {
	return &Session{
		ID:          id.NewSessionID(),
		UserID:      id.UserID(uuid.New()),
		Email:       "admin@exemplo.org",
		AccessToken: token,
		Device:      "Chrome em Windows 10",
		LoginAt:     loginAt,
		Status:      StatusActive,
	}
}

func (s *RedisStoreSuite) TestRoundTripAndTTL() {
	sess := s.newSession("tok-1", time.Now().Truncate(time.Millisecond))
	s.Require().NoError(s.store.Create(s.ctx, sess))

	got, err := s.store.FindByID(s.ctx, sess.ID)
	s.Require().NoError(err)
	s.Equal(sess.UserID, got.UserID)
	s.True(sess.LoginAt.Equal(got.LoginAt))

	ttl, err := s.redis.Client.TTL(s.ctx, sessionKey(sess.ID)).Result()
	s.Require().NoError(err)
	s.Greater(ttl, time.Hour)
}

func (s *RedisStoreSuite) TestUpdateAndTokenIndex() {
	sess := s.newSession("tok-2", time.Now())
	s.Require().NoError(s.store.Create(s.ctx, sess))

	sess.Status = StatusExpired
	s.Require().NoError(s.store.Update(s.ctx, sess))

	found, err := s.store.FindByAccessToken(s.ctx, "tok-2")
	s.Require().NoError(err)
	s.Require().Len(found, 1)
	s.Equal(StatusExpired, found[0].Status)

	s.Require().NoError(s.store.Delete(s.ctx, sess.ID))
	_, err = s.store.FindByID(s.ctx, sess.ID)
	s.ErrorIs(err, sentinel.ErrNotFound)
	s.ErrorIs(s.store.Update(s.ctx, sess), sentinel.ErrNotFound)

	found, err = s.store.FindByAccessToken(s.ctx, "tok-2")
	s.Require().NoError(err)
	s.Empty(found)
}

func (s *RedisStoreSuite) TestDeleteLoggedInBefore() {
	now := time.Now()
	s.Require().NoError(s.store.Create(s.ctx, s.newSession("a", now.Add(-3*time.Hour))))
	s.Require().NoError(s.store.Create(s.ctx, s.newSession("b", now)))

	n, err := s.store.DeleteLoggedInBefore(s.ctx, now.Add(-2*time.Hour))
	s.Require().NoError(err)
	s.Equal(1, n)
}
