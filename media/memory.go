package media

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"
)

// MemoryStorage is an in-process ObjectStorage. Put adds objects directly;
// issued upload URLs are fake and point nowhere.
type MemoryStorage struct {
	mu      sync.Mutex
	objects map[string][]byte
	issued  []string
}

var _ ObjectStorage = (*MemoryStorage)(nil)

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{objects: make(map[string][]byte)}
}

func (m *MemoryStorage) Put(bucket, key string, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[bucket+"/"+key] = data
}

// Keys lists the stored keys of bucket.
func (m *MemoryStorage) Keys(bucket string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var keys []string
	for k := range m.objects {
		if strings.HasPrefix(k, bucket+"/") {
			keys = append(keys, strings.TrimPrefix(k, bucket+"/"))
		}
	}
	return keys
}

func (m *MemoryStorage) IssueUploadURL(_ context.Context, bucket, key string, ttl time.Duration) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u := fmt.Sprintf("memory://%s/%s?expires=%d", bucket, url.PathEscape(key), int(ttl.Seconds()))
	m.issued = append(m.issued, u)
	return u, nil
}

func (m *MemoryStorage) DeleteByPrefix(_ context.Context, bucket, prefix string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k := range m.objects {
		if strings.HasPrefix(k, bucket+"/"+prefix) {
			delete(m.objects, k)
		}
	}
	return nil
}

// Issued returns the upload URLs handed out so far.
func (m *MemoryStorage) Issued() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.issued...)
}
