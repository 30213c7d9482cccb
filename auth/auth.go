// Package auth registers accounts and issues session tokens for them.
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/hike-social/hike/accounts"
	"github.com/hike-social/hike/errs"
	"github.com/hike-social/hike/models"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = fmt.Errorf("%w: invalid credentials", errs.ErrInvalidInput)
	ErrUserNotFound       = fmt.Errorf("%w: user not found", errs.ErrInvalidInput)
	ErrMissingPassword    = fmt.Errorf("%w: password is required", errs.ErrInvalidInput)
	ErrPasswordTooLong    = fmt.Errorf("%w: password must be at most %d bytes", errs.ErrInvalidInput, maxPasswordBytes)
	ErrInvalidToken       = fmt.Errorf("%w: invalid token", errs.ErrUnauthorized)
)

// Hasher turns a password into a stored credential hash and checks it.
type Hasher interface {
	Hash(password string) (string, error)
	Compare(hash, password string) error
}

// bcrypt only reads the first 72 bytes of a password.
const maxPasswordBytes = 72

// BcryptHasher hashes with bcrypt at Cost.
type BcryptHasher struct {
	Cost int
}

func NewBcryptHasher() BcryptHasher {
	return BcryptHasher{Cost: 10}
}

func (h BcryptHasher) Hash(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), h.Cost)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return "", ErrPasswordTooLong
	}
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(b), nil
}

func (h BcryptHasher) Compare(hash, password string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return ErrInvalidCredentials
	}
	return nil
}

// Claims identify the account a token was issued to.
type Claims struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// TokenIssuer creates and verifies session tokens.
type TokenIssuer interface {
	Issue(acc models.Account) (string, error)
	Parse(token string) (*Claims, error)
	// TTL is how long an issued token stays valid.
	TTL() time.Duration
}

// JWTIssuer signs HS256 tokens.
type JWTIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewJWTIssuer(secret string, ttl time.Duration) *JWTIssuer {
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &JWTIssuer{secret: []byte(secret), ttl: ttl, now: time.Now}
}

func (j *JWTIssuer) TTL() time.Duration {
	return j.ttl
}

func (j *JWTIssuer) Issue(acc models.Account) (string, error) {
	now := j.now()
	claims := Claims{
		ID:    acc.ID.String(),
		Email: acc.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   acc.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(j.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(j.secret)
}

func (j *JWTIssuer) Parse(token string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return j.secret, nil
	}, jwt.WithTimeFunc(j.now))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// AccountID returns the account id carried by the token.
func (c *Claims) AccountID() (uuid.UUID, error) {
	id, err := uuid.Parse(c.ID)
	if err != nil {
		return uuid.Nil, ErrInvalidToken
	}
	return id, nil
}

// Directory is the part of accounts.Directory registration needs.
type Directory interface {
	Create(ctx context.Context, name, email, credentialHash string) (models.Account, error)
	FindByEmailOrName(ctx context.Context, value string) (models.Account, bool, error)
}

type Service struct {
	accounts Directory
	hasher   Hasher
	tokens   TokenIssuer
}

func NewService(accounts Directory, hasher Hasher, tokens TokenIssuer) *Service {
	return &Service{accounts: accounts, hasher: hasher, tokens: tokens}
}

// Register creates an account for username and email with a hashed
// password.
func (s *Service) Register(ctx context.Context, username, email, password string) (models.Account, error) {
	if password == "" {
		return models.Account{}, ErrMissingPassword
	}
	if len(password) > maxPasswordBytes {
		return models.Account{}, ErrPasswordTooLong
	}
	for _, v := range []string{email, username} {
		if _, found, err := s.accounts.FindByEmailOrName(ctx, v); err != nil {
			return models.Account{}, err
		} else if found {
			return models.Account{}, accounts.ErrDuplicateAccount
		}
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return models.Account{}, err
	}
	acc, err := s.accounts.Create(ctx, username, email, hash)
	if err != nil {
		return models.Account{}, err
	}

	logrus.WithFields(logrus.Fields{
		"function":   "Register",
		"account_id": acc.ID,
	}).Info("User registered")
	return acc, nil
}

// Login checks the password of the account named or addressed by
// usernameOrEmail and returns it with a fresh token.
func (s *Service) Login(ctx context.Context, usernameOrEmail, password string) (models.Account, string, error) {
	acc, found, err := s.accounts.FindByEmailOrName(ctx, usernameOrEmail)
	if err != nil {
		return models.Account{}, "", err
	}
	if !found {
		return models.Account{}, "", ErrUserNotFound
	}
	if err := s.hasher.Compare(acc.PasswordHash, password); err != nil {
		logrus.WithFields(logrus.Fields{
			"function":   "Login",
			"account_id": acc.ID,
		}).Warn("Login with wrong password")
		return models.Account{}, "", err
	}

	token, err := s.tokens.Issue(acc)
	if err != nil {
		return models.Account{}, "", fmt.Errorf("issue token: %w", err)
	}
	return acc, token, nil
}
