//go:build integration

package lock_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"fedcore/internal/profile/lock"
	dErrors "fedcore/pkg/domain-errors"
	"fedcore/pkg/platform/sentinel"
	"fedcore/pkg/testutil/containers"
)

type RedisLockSuite struct {
	suite.Suite
	redis  *containers.RedisContainer
	locker *lock.Redis
}

func TestRedisLockSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisLockSuite))
}

func (s *RedisLockSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.redis = mgr.GetRedis(s.T())
	s.locker = lock.NewRedis(s.redis.Client, lock.WithTTL(time.Second), lock.WithRetryInterval(10*time.Millisecond))
}

func (s *RedisLockSuite) SetupTest() {
	s.Require().NoError(s.redis.DeleteKeys(context.Background(), "fedcore:lock:*"))
}

func (s *RedisLockSuite) TestSecondHolderWaits() {
	ctx := context.Background()
	release, err := s.locker.Acquire(ctx, "core")
	s.Require().NoError(err)

	waitCtx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()
	_, err = s.locker.Acquire(waitCtx, "core")
	s.Require().Error(err)
	s.True(errors.Is(err, sentinel.ErrLockHeld))

	s.Require().NoError(release(ctx))
	release, err = s.locker.Acquire(ctx, "core")
	s.Require().NoError(err)
	s.Require().NoError(release(ctx))
}

func (s *RedisLockSuite) TestExpiredLockIsNotReleasedByOldHolder() {
	ctx := context.Background()
	short := lock.NewRedis(s.redis.Client, lock.WithTTL(50*time.Millisecond))
	release, err := short.Acquire(ctx, "core")
	s.Require().NoError(err)

	time.Sleep(100 * time.Millisecond)
	other, err := s.locker.Acquire(ctx, "core")
	s.Require().NoError(err)

	err = release(ctx)
	s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	s.Require().NoError(other(ctx))
}
