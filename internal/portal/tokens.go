package portal

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
)

var (
	// ErrTokenNotFound indicates the link id does not exist or the secret does
	// not match.
	ErrTokenNotFound = errors.New("portal: link not found")
	// ErrTokenExpired indicates the link existed but its window has passed.
	ErrTokenExpired = errors.New("portal: link expired")
	// ErrMalformedToken indicates a token that is not id.secret shaped.
	ErrMalformedToken = errors.New("portal: malformed token")
)

// Link grants a client read access to their statement for a bounded window.
type Link struct {
	ID        string    `json:"id"`
	OrgID     uuid.UUID `json:"orgId"`
	ClientID  int64     `json:"clientId"`
	Secret    string    `json:"secret"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// TokenStore keeps magic links in redis. Only a bcrypt hash of the secret is
// at rest; the full token travels to the client once, at creation.
type TokenStore struct {
	rdb *redis.Client
	ttl time.Duration
	now func() time.Time
}

// NewTokenStore constructs a TokenStore with the configured link lifetime.
func NewTokenStore(rdb *redis.Client, ttl time.Duration) *TokenStore {
	return &TokenStore{rdb: rdb, ttl: ttl, now: time.Now}
}

// WithNow overrides the clock for testing.
func (s *TokenStore) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

func linkKey(id string) string {
	return "portal:link:" + id
}

func randomHex(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// Issue creates a link for a client and returns the one-time token, shaped
// id.secret.
func (s *TokenStore) Issue(ctx context.Context, orgID uuid.UUID, clientID int64) (string, Link, error) {
	id, err := randomHex(8)
	if err != nil {
		return "", Link{}, err
	}
	secret, err := randomHex(16)
	if err != nil {
		return "", Link{}, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return "", Link{}, err
	}

	link := Link{
		ID:        id,
		OrgID:     orgID,
		ClientID:  clientID,
		Secret:    string(hash),
		ExpiresAt: s.now().Add(s.ttl),
	}
	payload, err := json.Marshal(link)
	if err != nil {
		return "", Link{}, err
	}
	// Redis keeps the key a little past the window so expiry reads as
	// ErrTokenExpired instead of silently vanishing.
	if err := s.rdb.Set(ctx, linkKey(id), payload, s.ttl+24*time.Hour).Err(); err != nil {
		return "", Link{}, err
	}
	return fmt.Sprintf("%s.%s", id, secret), link, nil
}

// Validate resolves a token back to its link, checking the secret against the
// stored hash and the expiry against the injected clock.
func (s *TokenStore) Validate(ctx context.Context, token string) (Link, error) {
	id, secret, ok := strings.Cut(token, ".")
	if !ok || id == "" || secret == "" {
		return Link{}, ErrMalformedToken
	}
	payload, err := s.rdb.Get(ctx, linkKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Link{}, ErrTokenNotFound
		}
		return Link{}, err
	}
	var link Link
	if err := json.Unmarshal(payload, &link); err != nil {
		return Link{}, err
	}
	if bcrypt.CompareHashAndPassword([]byte(link.Secret), []byte(secret)) != nil {
		return Link{}, ErrTokenNotFound
	}
	if !s.now().Before(link.ExpiresAt) {
		return Link{}, ErrTokenExpired
	}
	link.Secret = ""
	return link, nil
}

// Revoke removes a link before its window closes.
func (s *TokenStore) Revoke(ctx context.Context, id string) error {
	return s.rdb.Del(ctx, linkKey(id)).Err()
}
