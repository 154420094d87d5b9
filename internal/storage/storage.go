// Package storage uploads finished assets and lists a dealer's library.
package storage

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/ZacxDev/dealer-poster/internal/config"
)

// Entry is one listed object or folder. Name is the full key.
type Entry struct {
	Name      string
	IsFolder  bool
	CreatedAt time.Time
	Size      int64
}

// Store is the storage collaborator. Errors are returned as the backend
// produced them; callers decide whether to retry.
type Store interface {
	// Upload stores data at key and returns its public URL.
	Upload(ctx context.Context, key string, data []byte, contentType string) (string, error)
	// List returns the entries directly under prefix.
	List(ctx context.Context, prefix string) ([]Entry, error)
}

// ObjectKey is "<dealerId>/<YYYY-MM-DD>/<filename>", dated in UTC.
func ObjectKey(dealerID string, at time.Time, filename string) string {
	return path.Join(dealerID, at.UTC().Format(time.DateOnly), filename)
}

// DealerPrefix is the listing prefix of a dealer's library.
func DealerPrefix(dealerID string) string {
	return strings.TrimSuffix(dealerID, "/") + "/"
}

// NewFromEnv builds the backend selected by STORAGE_BACKEND.
func NewFromEnv(ctx context.Context, env *config.Env) (Store, error) {
	switch env.StorageBackend {
	case "supabase":
		return NewSupabase(env.SupabaseURL, env.SupabaseServiceRoleKey, env.SupabaseBucket), nil
	case "s3":
		s, err := NewS3(ctx, S3Config{
			Bucket:        env.S3Bucket,
			Region:        env.S3Region,
			Profile:       env.S3Profile,
			PublicBaseURL: env.S3PublicBaseURL,
			UsePathStyle:  env.S3PathStyle,
		})
		if err != nil {
			return nil, err
		}
		return s, nil
	case "fs":
		fs, err := NewFileStore(env.StorageDir, env.StorageBaseURL)
		if err != nil {
			return nil, err
		}
		return fs, nil
	default:
		return nil, fmt.Errorf("storage: unsupported backend %q", env.StorageBackend)
	}
}

func joinURL(base, key string) string {
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(key, "/")
}
