package portal

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *TokenStore {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewTokenStore(rdb, 72*time.Hour)
}

func TestIssueAndValidate(t *testing.T) {
	store := newTestStore(t)
	orgID := uuid.New()

	token, issued, err := store.Issue(context.Background(), orgID, 42)
	require.NoError(t, err)
	require.Contains(t, token, ".")
	// Only the hash is at rest.
	require.True(t, strings.HasPrefix(issued.Secret, "$2"))

	link, err := store.Validate(context.Background(), token)
	require.NoError(t, err)
	require.Equal(t, orgID, link.OrgID)
	require.Equal(t, int64(42), link.ClientID)
	require.Empty(t, link.Secret)
}

func TestValidateRejectsWrongSecret(t *testing.T) {
	store := newTestStore(t)

	token, _, err := store.Issue(context.Background(), uuid.New(), 1)
	require.NoError(t, err)
	id, _, _ := strings.Cut(token, ".")

	_, err = store.Validate(context.Background(), id+".deadbeef")
	require.ErrorIs(t, err, ErrTokenNotFound)
}

func TestValidateRejectsMalformedAndMissing(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Validate(context.Background(), "no-separator")
	require.ErrorIs(t, err, ErrMalformedToken)

	_, err = store.Validate(context.Background(), ".secretonly")
	require.ErrorIs(t, err, ErrMalformedToken)

	_, err = store.Validate(context.Background(), "unknownid.secret")
	require.ErrorIs(t, err, ErrTokenNotFound)
}

func TestValidateExpiredLink(t *testing.T) {
	store := newTestStore(t)

	token, _, err := store.Issue(context.Background(), uuid.New(), 1)
	require.NoError(t, err)

	// Move past the link window while the redis key still exists.
	store.WithNow(func() time.Time { return time.Now().Add(73 * time.Hour) })
	_, err = store.Validate(context.Background(), token)
	require.ErrorIs(t, err, ErrTokenExpired)
}

func TestRevoke(t *testing.T) {
	store := newTestStore(t)

	token, link, err := store.Issue(context.Background(), uuid.New(), 1)
	require.NoError(t, err)
	require.NoError(t, store.Revoke(context.Background(), link.ID))

	_, err = store.Validate(context.Background(), token)
	require.ErrorIs(t, err, ErrTokenNotFound)
}
