// Package sqlstore is the gorm-backed store.Store used in production
// (postgres). Uniqueness of account names/emails and of the pending request
// per account pair is enforced by unique indexes, not by application checks.
package sqlstore

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/hike-social/hike/errs"
	"github.com/hike-social/hike/models"
	"github.com/hike-social/hike/store"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// Config tunes the shared connection pool.
type Config struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// DefaultConfig returns the pool settings used when none are configured.
func DefaultConfig() Config {
	return Config{
		MaxOpenConns:    25,
		MaxIdleConns:    10,
		ConnMaxLifetime: 30 * time.Minute,
		ConnMaxIdleTime: 5 * time.Minute,
	}
}

type Store struct {
	db *gorm.DB
	tx bool
}

var _ store.Store = (*Store)(nil)

// OpenPostgres connects to dsn and migrates the schema.
func OpenPostgres(ctx context.Context, dsn string, cfg Config) (*Store, error) {
	return Open(ctx, postgres.Open(dsn), cfg)
}

// Open connects through dialector, configures the pool and migrates the
// schema.
func Open(ctx context.Context, dialector gorm.Dialector, cfg Config) (*Store, error) {
	db, err := gorm.Open(dialector, &gorm.Config{
		TranslateError: true,
		Logger: logger.New(logrus.StandardLogger(), logger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
		}),
	})
	if err != nil {
		return nil, errs.Unavailable("sqlstore: open", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, errs.Unavailable("sqlstore: pool", err)
	}
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(pingCtx); err != nil {
		sqlDB.Close()
		return nil, errs.Unavailable("sqlstore: ping", err)
	}

	if err := db.WithContext(ctx).AutoMigrate(&accountRow{}, &edgeRow{}, &requestRow{}, &postRow{}); err != nil {
		sqlDB.Close()
		return nil, errs.Unavailable("sqlstore: migrate", err)
	}

	logrus.WithFields(logrus.Fields{
		"function": "Open",
		"dialect":  dialector.Name(),
	}).Info("Store connected and migrated")

	return &Store{db: db}, nil
}

func (s *Store) with(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx)
}

func (s *Store) InTx(ctx context.Context, fn func(tx store.Store) error) error {
	var fnErr error
	err := s.with(ctx).Transaction(func(tx *gorm.DB) error {
		fnErr = fn(&Store{db: tx, tx: true})
		return fnErr
	})
	if fnErr != nil {
		return fnErr
	}
	return errs.Unavailable("sqlstore: transaction", err)
}

func (s *Store) Close() error {
	if s.tx {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// taken reports whether a failed write hit a unique index. Drivers without
// error translation are covered by re-checking for the conflicting row.
func (s *Store) taken(ctx context.Context, err error, model interface{}, query string, args ...interface{}) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var n int64
	if s.with(ctx).Model(model).Where(query, args...).Count(&n).Error != nil {
		return false
	}
	return n > 0
}

func (s *Store) InsertAccount(ctx context.Context, acc *models.Account) error {
	if acc.ID == uuid.Nil {
		acc.ID = uuid.New()
	}
	row := accountToRow(acc)
	if err := s.with(ctx).Create(&row).Error; err != nil {
		if s.taken(ctx, err, &accountRow{}, "id = ? OR email = ? OR name = ?", row.ID, row.Email, row.Name) {
			return store.ErrDuplicate
		}
		return errs.Unavailable("sqlstore: insert account", err)
	}
	return nil
}

func (s *Store) getAccount(ctx context.Context, query string, args ...interface{}) (models.Account, error) {
	var row accountRow
	err := s.with(ctx).Where(query, args...).Order("seq").First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.Account{}, store.ErrNotFound
	}
	if err != nil {
		return models.Account{}, errs.Unavailable("sqlstore: get account", err)
	}
	return row.model(), nil
}

func (s *Store) GetAccount(ctx context.Context, id uuid.UUID) (models.Account, error) {
	return s.getAccount(ctx, "id = ?", id.String())
}

func (s *Store) FindAccount(ctx context.Context, emailOrName string) (models.Account, error) {
	return s.getAccount(ctx, "email = ? OR name = ?", emailOrName, emailOrName)
}

func (s *Store) UpdateAccount(ctx context.Context, acc *models.Account) error {
	res := s.with(ctx).Model(&accountRow{}).Where("id = ?", acc.ID.String()).Updates(map[string]interface{}{
		"name":          acc.Name,
		"email":         acc.Email,
		"password_hash": acc.PasswordHash,
		"profile_pic":   acc.ProfilePic,
		"updated_at":    acc.UpdatedAt,
	})
	if res.Error != nil {
		if s.taken(ctx, res.Error, &accountRow{}, "id <> ? AND (email = ? OR name = ?)", acc.ID.String(), acc.Email, acc.Name) {
			return store.ErrDuplicate
		}
		return errs.Unavailable("sqlstore: update account", res.Error)
	}
	if res.RowsAffected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) DeleteAccount(ctx context.Context, id uuid.UUID) error {
	res := s.with(ctx).Where("id = ?", id.String()).Delete(&accountRow{})
	if res.Error != nil {
		return errs.Unavailable("sqlstore: delete account", res.Error)
	}
	if res.RowsAffected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) ListAccounts(ctx context.Context) ([]models.Account, error) {
	var rows []accountRow
	if err := s.with(ctx).Order("seq").Find(&rows).Error; err != nil {
		return nil, errs.Unavailable("sqlstore: list accounts", err)
	}
	out := make([]models.Account, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.model())
	}
	return out, nil
}

func (s *Store) HasEdge(ctx context.Context, a, b uuid.UUID) (bool, error) {
	var n int64
	err := s.with(ctx).Model(&edgeRow{}).
		Where("account_id = ? AND friend_id = ?", a.String(), b.String()).
		Count(&n).Error
	if err != nil {
		return false, errs.Unavailable("sqlstore: has edge", err)
	}
	return n > 0, nil
}

func (s *Store) ListFriendIDs(ctx context.Context, a uuid.UUID) ([]uuid.UUID, error) {
	var rows []edgeRow
	err := s.with(ctx).Where("account_id = ?", a.String()).Order("created_at, friend_id").Find(&rows).Error
	if err != nil {
		return nil, errs.Unavailable("sqlstore: list friends", err)
	}
	out := make([]uuid.UUID, 0, len(rows))
	for _, r := range rows {
		out = append(out, parseID(r.FriendID))
	}
	return out, nil
}

func (s *Store) InsertEdge(ctx context.Context, a, b uuid.UUID) error {
	now := time.Now().UTC()
	rows := []edgeRow{
		{AccountID: a.String(), FriendID: b.String(), CreatedAt: now},
		{AccountID: b.String(), FriendID: a.String(), CreatedAt: now},
	}
	err := s.with(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&rows).Error
	if err != nil {
		return errs.Unavailable("sqlstore: insert edge", err)
	}
	return nil
}

func (s *Store) DeleteEdge(ctx context.Context, a, b uuid.UUID) (bool, error) {
	res := s.with(ctx).
		Where("(account_id = ? AND friend_id = ?) OR (account_id = ? AND friend_id = ?)",
			a.String(), b.String(), b.String(), a.String()).
		Delete(&edgeRow{})
	if res.Error != nil {
		return false, errs.Unavailable("sqlstore: delete edge", res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (s *Store) InsertRequest(ctx context.Context, req *models.FriendRequest) error {
	if req.ID == uuid.Nil {
		req.ID = uuid.New()
	}
	row := requestToRow(req)
	if err := s.with(ctx).Create(&row).Error; err != nil {
		key := ""
		if row.PairKey != nil {
			key = *row.PairKey
		}
		if s.taken(ctx, err, &requestRow{}, "id = ? OR pair_key = ?", row.ID, key) {
			return store.ErrDuplicate
		}
		return errs.Unavailable("sqlstore: insert request", err)
	}
	return nil
}

func (s *Store) getRequest(ctx context.Context, query string, args ...interface{}) (models.FriendRequest, error) {
	var row requestRow
	err := s.with(ctx).Where(query, args...).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.FriendRequest{}, store.ErrNotFound
	}
	if err != nil {
		return models.FriendRequest{}, errs.Unavailable("sqlstore: get request", err)
	}
	return row.model(), nil
}

func (s *Store) GetRequest(ctx context.Context, id uuid.UUID) (models.FriendRequest, error) {
	return s.getRequest(ctx, "id = ?", id.String())
}

func (s *Store) PendingBetween(ctx context.Context, a, b uuid.UUID) (models.FriendRequest, error) {
	return s.getRequest(ctx, "pair_key = ?", models.PairKey(a, b))
}

func (s *Store) ListRequests(ctx context.Context, filter store.RequestFilter) ([]models.FriendRequest, error) {
	q := s.with(ctx).Model(&requestRow{})
	if filter.ReceiverID != uuid.Nil {
		q = q.Where("receiver_id = ?", filter.ReceiverID.String())
	}
	if filter.Involving != uuid.Nil {
		id := filter.Involving.String()
		q = q.Where("(sender_id = ? OR receiver_id = ?)", id, id)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", string(filter.Status))
	}
	var rows []requestRow
	if err := q.Order("seq").Find(&rows).Error; err != nil {
		return nil, errs.Unavailable("sqlstore: list requests", err)
	}
	out := make([]models.FriendRequest, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.model())
	}
	return out, nil
}

func (s *Store) DeleteRequest(ctx context.Context, id uuid.UUID) error {
	res := s.with(ctx).Where("id = ?", id.String()).Delete(&requestRow{})
	if res.Error != nil {
		return errs.Unavailable("sqlstore: delete request", res.Error)
	}
	if res.RowsAffected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) InsertPost(ctx context.Context, post *models.Post) error {
	if post.ID == uuid.Nil {
		post.ID = uuid.New()
	}
	row := postToRow(post)
	if err := s.with(ctx).Create(&row).Error; err != nil {
		if s.taken(ctx, err, &postRow{}, "id = ?", row.ID) {
			return store.ErrDuplicate
		}
		return errs.Unavailable("sqlstore: insert post", err)
	}
	return nil
}

func (s *Store) GetPost(ctx context.Context, id uuid.UUID) (models.Post, error) {
	var row postRow
	err := s.with(ctx).Where("id = ?", id.String()).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.Post{}, store.ErrNotFound
	}
	if err != nil {
		return models.Post{}, errs.Unavailable("sqlstore: get post", err)
	}
	return row.model(), nil
}

func (s *Store) UpdatePost(ctx context.Context, post *models.Post) error {
	res := s.with(ctx).Model(&postRow{}).Where("id = ?", post.ID.String()).Updates(map[string]interface{}{
		"content":    post.Content,
		"image":      post.Image,
		"updated_at": post.UpdatedAt,
	})
	if res.Error != nil {
		return errs.Unavailable("sqlstore: update post", res.Error)
	}
	if res.RowsAffected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) DeletePost(ctx context.Context, id uuid.UUID) error {
	res := s.with(ctx).Where("id = ?", id.String()).Delete(&postRow{})
	if res.Error != nil {
		return errs.Unavailable("sqlstore: delete post", res.Error)
	}
	if res.RowsAffected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) ListPosts(ctx context.Context, authors ...uuid.UUID) ([]models.Post, error) {
	q := s.with(ctx).Order("created_at DESC, seq DESC")
	if len(authors) > 0 {
		ids := make([]string, 0, len(authors))
		for _, a := range authors {
			ids = append(ids, a.String())
		}
		q = q.Where("user_id IN ?", ids)
	}
	var rows []postRow
	if err := q.Find(&rows).Error; err != nil {
		return nil, errs.Unavailable("sqlstore: list posts", err)
	}
	out := make([]models.Post, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.model())
	}
	return out, nil
}

func (s *Store) DeletePostsBy(ctx context.Context, author uuid.UUID) error {
	if err := s.with(ctx).Where("user_id = ?", author.String()).Delete(&postRow{}).Error; err != nil {
		return errs.Unavailable("sqlstore: delete posts", err)
	}
	return nil
}
