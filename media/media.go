// Package media issues upload URLs for, and removes, user media kept in
// object storage.
package media

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ObjectStorage is the object store holding profile pictures and post images.
type ObjectStorage interface {
	// IssueUploadURL returns a presigned URL a client can PUT key to for ttl.
	IssueUploadURL(ctx context.Context, bucket, key string, ttl time.Duration) (string, error)
	// DeleteByPrefix removes every object under prefix.
	DeleteByPrefix(ctx context.Context, bucket, prefix string) error
}

const root = "hike"

// AccountPrefix is the key prefix of everything stored for an account.
func AccountPrefix(id uuid.UUID) string {
	return fmt.Sprintf("%s/%s/", root, id)
}

// ProfilePicKey is the object key of an account's profile picture.
func ProfilePicKey(id uuid.UUID) string {
	return fmt.Sprintf("%s/%s/profilePic/%s-profilePic", root, id, id)
}

// PostImageKey is the object key of an image attached to a post.
func PostImageKey(owner, post uuid.UUID) string {
	return fmt.Sprintf("%s/%s/posts/%s", root, owner, post)
}

// PublicURL is where a stored object is served from.
func PublicURL(bucket, region, key string) string {
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", bucket, region, key)
}
