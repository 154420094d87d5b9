package storage

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	storage_go "github.com/supabase-community/storage-go"
)

const (
	supabaseCacheControl = "3600"
	supabaseListLimit    = 1000
)

// Supabase stores objects in a Supabase Storage bucket.
type Supabase struct {
	client  *storage_go.Client
	bucket  string
	baseURL string
}

func NewSupabase(supabaseURL, serviceRoleKey, bucket string) *Supabase {
	baseURL := strings.TrimRight(supabaseURL, "/")
	return &Supabase{
		client:  storage_go.NewClient(baseURL+"/storage/v1", serviceRoleKey, nil),
		bucket:  bucket,
		baseURL: baseURL,
	}
}

// Upload never overwrites: an existing key is a storage error.
func (s *Supabase) Upload(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	cacheControl := supabaseCacheControl
	upsert := false
	_, err := s.client.UploadFile(s.bucket, key, bytes.NewReader(data), storage_go.FileOptions{
		CacheControl: &cacheControl,
		ContentType:  &contentType,
		Upsert:       &upsert,
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload %s: %w", key, err)
	}
	return s.PublicURL(key), nil
}

func (s *Supabase) PublicURL(key string) string {
	return fmt.Sprintf("%s/storage/v1/object/public/%s/%s", s.baseURL, s.bucket, key)
}

func (s *Supabase) List(ctx context.Context, prefix string) ([]Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	dir := strings.TrimSuffix(prefix, "/")
	files, err := s.client.ListFiles(s.bucket, dir, storage_go.FileSearchOptions{
		Limit: supabaseListLimit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", prefix, err)
	}

	entries := make([]Entry, 0, len(files))
	for _, f := range files {
		// Folders come back without an object id.
		e := Entry{Name: path.Join(dir, f.Name), IsFolder: f.Id == ""}
		if t, err := time.Parse(time.RFC3339, f.CreatedAt); err == nil {
			e.CreatedAt = t
		}
		entries = append(entries, e)
	}
	return entries, nil
}
