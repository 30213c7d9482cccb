// Package accounts is the account directory: identity records every other
// component refers to by id.
package accounts

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hike-social/hike/errs"
	"github.com/hike-social/hike/media"
	"github.com/hike-social/hike/models"
	"github.com/hike-social/hike/store"
	"github.com/sirupsen/logrus"
)

var (
	ErrAccountNotFound  = fmt.Errorf("%w: user not found", errs.ErrNotFound)
	ErrDuplicateAccount = fmt.Errorf("%w: user already exists", errs.ErrConflict)
	ErrInvalidEmail     = fmt.Errorf("%w: invalid email format", errs.ErrInvalidInput)
	ErrInvalidName      = fmt.Errorf("%w: name is required", errs.ErrInvalidInput)
)

var emailPattern = regexp.MustCompile(`^[\w-]+(\.[\w-]+)*@([\w-]+\.)+[a-zA-Z]{2,7}$`)

// ValidEmail reports whether email has a local@domain.tld shape.
func ValidEmail(email string) bool {
	return emailPattern.MatchString(email)
}

// Directory owns account records.
type Directory struct {
	store   store.Store
	objects media.ObjectStorage
	bucket  string
	now     func() time.Time
}

// Option configures a Directory.
type Option func(*Directory)

// WithMedia makes Delete remove the account's stored media from bucket.
func WithMedia(objects media.ObjectStorage, bucket string) Option {
	return func(d *Directory) {
		d.objects = objects
		d.bucket = bucket
	}
}

// WithClock replaces time.Now for timestamps.
func WithClock(now func() time.Time) Option {
	return func(d *Directory) { d.now = now }
}

func NewDirectory(s store.Store, opts ...Option) *Directory {
	d := &Directory{store: s, now: func() time.Time { return time.Now().UTC() }}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// AccountUpdate holds the fields Update may change; nil means unchanged.
type AccountUpdate struct {
	Name       *string
	Email      *string
	ProfilePic *string
}

func notFound(err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return ErrAccountNotFound
	}
	return err
}

func duplicate(err error) error {
	if errors.Is(err, store.ErrDuplicate) {
		return ErrDuplicateAccount
	}
	return err
}

// Create registers a new account. credentialHash is stored as given.
func (d *Directory) Create(ctx context.Context, name, email, credentialHash string) (models.Account, error) {
	name, email = strings.TrimSpace(name), strings.TrimSpace(email)
	if name == "" {
		return models.Account{}, ErrInvalidName
	}
	if !ValidEmail(email) {
		return models.Account{}, ErrInvalidEmail
	}

	now := d.now()
	acc := models.Account{
		ID:           uuid.New(),
		Name:         name,
		Email:        email,
		PasswordHash: credentialHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := d.store.InsertAccount(ctx, &acc); err != nil {
		return models.Account{}, duplicate(err)
	}

	logrus.WithFields(logrus.Fields{
		"function":   "Create",
		"account_id": acc.ID,
		"name":       acc.Name,
	}).Info("Account created")
	return acc, nil
}

func (d *Directory) Find(ctx context.Context, id uuid.UUID) (models.Account, error) {
	acc, err := d.store.GetAccount(ctx, id)
	return acc, notFound(err)
}

// FindByEmailOrName returns false when no account matches value.
func (d *Directory) FindByEmailOrName(ctx context.Context, value string) (models.Account, bool, error) {
	acc, err := d.store.FindAccount(ctx, strings.TrimSpace(value))
	if errors.Is(err, store.ErrNotFound) {
		return models.Account{}, false, nil
	}
	if err != nil {
		return models.Account{}, false, err
	}
	return acc, true, nil
}

func (d *Directory) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	_, err := d.store.GetAccount(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

// List returns every account in creation order.
func (d *Directory) List(ctx context.Context) ([]models.Account, error) {
	return d.store.ListAccounts(ctx)
}

func (d *Directory) Update(ctx context.Context, id uuid.UUID, upd AccountUpdate) (models.Account, error) {
	acc, err := d.store.GetAccount(ctx, id)
	if err != nil {
		return models.Account{}, notFound(err)
	}

	if upd.Name != nil {
		name := strings.TrimSpace(*upd.Name)
		if name == "" {
			return models.Account{}, ErrInvalidName
		}
		acc.Name = name
	}
	if upd.Email != nil {
		email := strings.TrimSpace(*upd.Email)
		if !ValidEmail(email) {
			return models.Account{}, ErrInvalidEmail
		}
		acc.Email = email
	}
	if upd.ProfilePic != nil {
		acc.ProfilePic = *upd.ProfilePic
	}
	acc.UpdatedAt = d.now()

	if err := d.store.UpdateAccount(ctx, &acc); err != nil {
		return models.Account{}, duplicate(notFound(err))
	}
	return acc, nil
}

// Delete removes the account together with its friendships, every request
// it takes part in and its posts, in one transaction. Stored media is
// removed afterwards; a failure there is logged, not returned.
func (d *Directory) Delete(ctx context.Context, id uuid.UUID) error {
	err := d.store.InTx(ctx, func(tx store.Store) error {
		if _, err := tx.GetAccount(ctx, id); err != nil {
			return notFound(err)
		}
		friends, err := tx.ListFriendIDs(ctx, id)
		if err != nil {
			return err
		}
		for _, f := range friends {
			if _, err := tx.DeleteEdge(ctx, id, f); err != nil {
				return err
			}
		}
		reqs, err := tx.ListRequests(ctx, store.RequestFilter{Involving: id})
		if err != nil {
			return err
		}
		for _, r := range reqs {
			if err := tx.DeleteRequest(ctx, r.ID); err != nil {
				return err
			}
		}
		if err := tx.DeletePostsBy(ctx, id); err != nil {
			return err
		}
		return notFound(tx.DeleteAccount(ctx, id))
	})
	if err != nil {
		return err
	}

	logrus.WithFields(logrus.Fields{
		"function":   "Delete",
		"account_id": id,
	}).Info("Account deleted")

	if d.objects != nil && d.bucket != "" {
		if err := d.objects.DeleteByPrefix(ctx, d.bucket, media.AccountPrefix(id)); err != nil {
			logrus.WithFields(logrus.Fields{
				"function":   "Delete",
				"account_id": id,
				"error":      err.Error(),
			}).Warn("Failed to remove account media")
		}
	}
	return nil
}
