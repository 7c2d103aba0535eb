//go:build integration

package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"pointer/internal/identity"
	"pointer/pkg/testutil/containers"
)

func TestRedisSessionStoreAgainstRedis(t *testing.T) {
	rc := containers.NewRedisContainer(t)
	suite.Run(t, &SessionStoreSuite{newStore: func(t *testing.T) identity.SessionStore {
		if err := rc.FlushAll(t.Context()); err != nil {
			t.Fatalf("flush redis: %v", err)
		}
		return NewRedisSessionStore(rc.Client, time.Hour)
	}})
}
