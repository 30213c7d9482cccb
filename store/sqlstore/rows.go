package sqlstore

import (
	"time"

	"github.com/google/uuid"
	"github.com/hike-social/hike/models"
)

// Each table carries an auto-increment Seq primary key for stable creation
// order; the public uuid lives in a unique ID column.

type accountRow struct {
	Seq          uint64 `gorm:"primaryKey;autoIncrement"`
	ID           string `gorm:"size:36;uniqueIndex;not null"`
	Name         string `gorm:"uniqueIndex;not null"`
	Email        string `gorm:"uniqueIndex;not null"`
	PasswordHash string
	ProfilePic   string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (accountRow) TableName() string { return "accounts" }

// edgeRow is one direction of a friendship; every edge has two rows.
type edgeRow struct {
	AccountID string `gorm:"primaryKey;size:36"`
	FriendID  string `gorm:"primaryKey;size:36"`
	CreatedAt time.Time
}

func (edgeRow) TableName() string { return "friendships" }

type requestRow struct {
	Seq        uint64 `gorm:"primaryKey;autoIncrement"`
	ID         string `gorm:"size:36;uniqueIndex;not null"`
	SenderID   string `gorm:"size:36;index;not null"`
	ReceiverID string `gorm:"size:36;index;not null"`
	Status     string `gorm:"size:16;not null"`
	// PairKey is set only while pending; NULLs never collide, so the unique
	// index allows one pending request per unordered pair.
	PairKey   *string `gorm:"size:73;uniqueIndex"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (requestRow) TableName() string { return "friend_requests" }

type postRow struct {
	Seq       uint64 `gorm:"primaryKey;autoIncrement"`
	ID        string `gorm:"size:36;uniqueIndex;not null"`
	UserID    string `gorm:"size:36;index;not null"`
	Content   string
	Image     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (postRow) TableName() string { return "posts" }

func parseID(s string) uuid.UUID {
	id, _ := uuid.Parse(s)
	return id
}

func accountToRow(a *models.Account) accountRow {
	return accountRow{
		ID:           a.ID.String(),
		Name:         a.Name,
		Email:        a.Email,
		PasswordHash: a.PasswordHash,
		ProfilePic:   a.ProfilePic,
		CreatedAt:    a.CreatedAt,
		UpdatedAt:    a.UpdatedAt,
	}
}

func (r accountRow) model() models.Account {
	return models.Account{
		ID:           parseID(r.ID),
		Name:         r.Name,
		Email:        r.Email,
		PasswordHash: r.PasswordHash,
		ProfilePic:   r.ProfilePic,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}

func requestToRow(req *models.FriendRequest) requestRow {
	row := requestRow{
		ID:         req.ID.String(),
		SenderID:   req.SenderID.String(),
		ReceiverID: req.ReceiverID.String(),
		Status:     string(req.Status),
		CreatedAt:  req.CreatedAt,
		UpdatedAt:  req.UpdatedAt,
	}
	if req.Status == models.StatusPending {
		key := req.PairKey()
		row.PairKey = &key
	}
	return row
}

func (r requestRow) model() models.FriendRequest {
	return models.FriendRequest{
		ID:         parseID(r.ID),
		SenderID:   parseID(r.SenderID),
		ReceiverID: parseID(r.ReceiverID),
		Status:     models.RequestStatus(r.Status),
		CreatedAt:  r.CreatedAt,
		UpdatedAt:  r.UpdatedAt,
	}
}

func postToRow(p *models.Post) postRow {
	return postRow{
		ID:        p.ID.String(),
		UserID:    p.UserID.String(),
		Content:   p.Content,
		Image:     p.Image,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
}

func (r postRow) model() models.Post {
	return models.Post{
		ID:        parseID(r.ID),
		UserID:    parseID(r.UserID),
		Content:   r.Content,
		Image:     r.Image,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}
