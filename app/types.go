package app

import (
	"time"

	"github.com/hike-social/hike/accounts"
	"github.com/hike-social/hike/auth"
	"github.com/hike-social/hike/friends"
	"github.com/hike-social/hike/media"
	"github.com/hike-social/hike/posts"
	"github.com/hike-social/hike/store"
)

// Hike holds the wired services both transports serve.
type Hike struct {
	Store    store.Store
	Accounts *accounts.Directory
	Friends  *friends.Coordinator
	Posts    *posts.Service
	Auth     *auth.Service
	Tokens   auth.TokenIssuer

	// Media is nil when no bucket is configured.
	Media        media.ObjectStorage
	Bucket       string
	Region       string
	UploadURLTTL time.Duration

	RequestTimeout time.Duration
}

type Options struct {
	Hasher    auth.Hasher
	Tokens    auth.TokenIssuer
	Media     media.ObjectStorage
	Bucket    string
	Region    string
	UploadTTL time.Duration
	Timeout   time.Duration
	Clock     func() time.Time
}

// New builds every service on top of s.
func New(s store.Store, opts Options) *Hike {
	if opts.Clock == nil {
		opts.Clock = func() time.Time { return time.Now().UTC() }
	}
	if opts.Hasher == nil {
		opts.Hasher = auth.NewBcryptHasher()
	}
	if opts.UploadTTL <= 0 {
		opts.UploadTTL = 60 * time.Second
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}

	dirOpts := []accounts.Option{accounts.WithClock(opts.Clock)}
	if opts.Media != nil && opts.Bucket != "" {
		dirOpts = append(dirOpts, accounts.WithMedia(opts.Media, opts.Bucket))
	}
	dir := accounts.NewDirectory(s, dirOpts...)

	return &Hike{
		Store:          s,
		Accounts:       dir,
		Friends:        friends.NewCoordinator(s, dir, friends.WithClock(opts.Clock)),
		Posts:          posts.NewService(s, opts.Clock),
		Auth:           auth.NewService(dir, opts.Hasher, opts.Tokens),
		Tokens:         opts.Tokens,
		Media:          opts.Media,
		Bucket:         opts.Bucket,
		Region:         opts.Region,
		UploadURLTTL:   opts.UploadTTL,
		RequestTimeout: opts.Timeout,
	}
}
