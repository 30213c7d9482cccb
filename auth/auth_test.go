package auth

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/hike-social/hike/accounts"
	"github.com/hike-social/hike/errs"
	"github.com/hike-social/hike/store/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newService(t *testing.T) (*Service, *JWTIssuer) {
	t.Helper()
	issuer := NewJWTIssuer("test-secret", time.Hour)
	hasher := BcryptHasher{Cost: bcrypt.MinCost}
	return NewService(accounts.NewDirectory(memory.New()), hasher, issuer), issuer
}

func TestRegisterAndLogin(t *testing.T) {
	ctx := context.Background()
	svc, issuer := newService(t)

	acc, err := svc.Register(ctx, "alice", "alice@example.com", "s3cret")
	require.NoError(t, err)
	assert.NotEqual(t, "s3cret", acc.PasswordHash)

	_, err = svc.Register(ctx, "alice", "new@example.com", "x")
	assert.ErrorIs(t, err, accounts.ErrDuplicateAccount)
	_, err = svc.Register(ctx, "bob", "bob@example.com", "")
	assert.ErrorIs(t, err, ErrMissingPassword)

	for _, login := range []string{"alice", "alice@example.com"} {
		got, token, err := svc.Login(ctx, login, "s3cret")
		require.NoError(t, err)
		assert.Equal(t, acc.ID, got.ID)

		claims, err := issuer.Parse(token)
		require.NoError(t, err)
		assert.Equal(t, acc.Email, claims.Email)
		id, err := claims.AccountID()
		require.NoError(t, err)
		assert.Equal(t, acc.ID, id)
	}

	_, _, err = svc.Login(ctx, "alice", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	assert.ErrorIs(t, err, errs.ErrInvalidInput)

	_, _, err = svc.Login(ctx, "nobody", "s3cret")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestRegisterRejectsLongPassword(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)

	_, err := svc.Register(ctx, "alice", "alice@example.com", strings.Repeat("p", 80))
	assert.ErrorIs(t, err, ErrPasswordTooLong)
	assert.ErrorIs(t, err, errs.ErrInvalidInput)

	_, err = BcryptHasher{Cost: bcrypt.MinCost}.Hash(strings.Repeat("p", 80))
	assert.ErrorIs(t, err, ErrPasswordTooLong)

	_, err = svc.Register(ctx, "alice", "alice@example.com", strings.Repeat("p", 72))
	assert.NoError(t, err)
}

func TestParseRejectsBadTokens(t *testing.T) {
	issuer := NewJWTIssuer("secret", time.Hour)
	other := NewJWTIssuer("other", time.Hour)
	svc, _ := newService(t)
	acc, err := svc.Register(context.Background(), "alice", "alice@example.com", "pw")
	require.NoError(t, err)

	forged, err := other.Issue(acc)
	require.NoError(t, err)
	_, err = issuer.Parse(forged)
	assert.ErrorIs(t, err, ErrInvalidToken)
	assert.ErrorIs(t, err, errs.ErrUnauthorized)

	issuer.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	expired, err := issuer.Issue(acc)
	require.NoError(t, err)
	issuer.now = time.Now
	_, err = issuer.Parse(expired)
	assert.ErrorIs(t, err, ErrInvalidToken)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{ID: acc.ID.String()})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = issuer.Parse(unsigned)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = issuer.Parse("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestDefaultTokenLifetime(t *testing.T) {
	issuer := NewJWTIssuer("secret", 0)
	assert.Equal(t, 7*24*time.Hour, issuer.TTL())
	assert.Equal(t, 2*time.Hour, NewJWTIssuer("secret", 2*time.Hour).TTL())
}
