// Package posts stores what accounts publish. Friends see each other's
// posts through Feed.
package posts

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hike-social/hike/accounts"
	"github.com/hike-social/hike/errs"
	"github.com/hike-social/hike/models"
	"github.com/hike-social/hike/store"
	"github.com/sirupsen/logrus"
)

var (
	ErrPostNotFound = fmt.Errorf("%w: post not found", errs.ErrNotFound)
	ErrEmptyPost    = fmt.Errorf("%w: post needs content or an image", errs.ErrInvalidInput)
)

type Service struct {
	store store.Store
	now   func() time.Time
}

func NewService(s store.Store, now func() time.Time) *Service {
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &Service{store: s, now: now}
}

// PostUpdate holds the fields Update may change; nil means unchanged.
type PostUpdate struct {
	Content *string
	Image   *string
}

func notFound(err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return ErrPostNotFound
	}
	return err
}

func (s *Service) Create(ctx context.Context, author uuid.UUID, content, image string) (models.Post, error) {
	content, image = strings.TrimSpace(content), strings.TrimSpace(image)
	if content == "" && image == "" {
		return models.Post{}, ErrEmptyPost
	}

	now := s.now()
	post := models.Post{
		ID:        uuid.New(),
		UserID:    author,
		Content:   content,
		Image:     image,
		CreatedAt: now,
		UpdatedAt: now,
	}
	err := s.store.InTx(ctx, func(tx store.Store) error {
		if _, err := tx.GetAccount(ctx, author); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return accounts.ErrAccountNotFound
			}
			return err
		}
		return tx.InsertPost(ctx, &post)
	})
	if err != nil {
		return models.Post{}, err
	}

	logrus.WithFields(logrus.Fields{
		"function": "Create",
		"post_id":  post.ID,
		"user_id":  author,
	}).Debug("Post created")
	return post, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (models.Post, error) {
	post, err := s.store.GetPost(ctx, id)
	return post, notFound(err)
}

// List returns every post, newest first.
func (s *Service) List(ctx context.Context) ([]models.Post, error) {
	return s.store.ListPosts(ctx)
}

func (s *Service) Update(ctx context.Context, id uuid.UUID, upd PostUpdate) (models.Post, error) {
	var post models.Post
	err := s.store.InTx(ctx, func(tx store.Store) error {
		var err error
		post, err = tx.GetPost(ctx, id)
		if err != nil {
			return notFound(err)
		}
		if upd.Content != nil {
			post.Content = strings.TrimSpace(*upd.Content)
		}
		if upd.Image != nil {
			post.Image = strings.TrimSpace(*upd.Image)
		}
		if post.Content == "" && post.Image == "" {
			return ErrEmptyPost
		}
		post.UpdatedAt = s.now()
		return notFound(tx.UpdatePost(ctx, &post))
	})
	if err != nil {
		return models.Post{}, err
	}
	return post, nil
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return notFound(s.store.DeletePost(ctx, id))
}

// Feed returns user's own posts and their friends' posts, newest first.
func (s *Service) Feed(ctx context.Context, user uuid.UUID) ([]models.Post, error) {
	if _, err := s.store.GetAccount(ctx, user); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, accounts.ErrAccountNotFound
		}
		return nil, err
	}
	friends, err := s.store.ListFriendIDs(ctx, user)
	if err != nil {
		return nil, err
	}
	return s.store.ListPosts(ctx, append(friends, user)...)
}
