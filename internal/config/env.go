package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Env holds collaborator settings read from the environment.
type Env struct {
	StorageBackend string

	SupabaseURL            string
	SupabaseServiceRoleKey string
	SupabaseBucket         string

	S3Bucket        string
	S3Region        string
	S3Profile       string
	S3PublicBaseURL string
	S3PathStyle     bool

	StorageDir     string
	StorageBaseURL string

	DealerID         string
	SessionToken     string
	SessionJWTSecret string
}

// LoadEnv reads .env (when present) and then the process environment.
func LoadEnv() (*Env, error) {
	// A missing .env is normal outside development.
	_ = godotenv.Load()

	env := &Env{
		StorageBackend: strings.ToLower(getEnv("STORAGE_BACKEND", "fs")),

		SupabaseURL:            strings.TrimRight(os.Getenv("SUPABASE_URL"), "/"),
		SupabaseServiceRoleKey: os.Getenv("SUPABASE_SERVICE_ROLE_KEY"),
		SupabaseBucket:         getEnv("SUPABASE_BUCKET", "posts"),

		S3Bucket:        os.Getenv("S3_BUCKET"),
		S3Region:        os.Getenv("S3_REGION"),
		S3Profile:       os.Getenv("S3_PROFILE"),
		S3PublicBaseURL: os.Getenv("S3_PUBLIC_BASE_URL"),
		S3PathStyle:     getEnvBool("S3_PATH_STYLE", false),

		StorageDir:     getEnv("STORAGE_DIR", "./library"),
		StorageBaseURL: getEnv("STORAGE_BASE_URL", "file://library"),

		DealerID:         os.Getenv("DEALER_ID"),
		SessionToken:     os.Getenv("SESSION_TOKEN"),
		SessionJWTSecret: os.Getenv("SESSION_JWT_SECRET"),
	}

	if err := env.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return env, nil
}

// Validate checks that the selected storage backend is fully configured.
func (e *Env) Validate() error {
	switch e.StorageBackend {
	case "supabase":
		if e.SupabaseURL == "" {
			return fmt.Errorf("SUPABASE_URL is required")
		}
		if e.SupabaseServiceRoleKey == "" {
			return fmt.Errorf("SUPABASE_SERVICE_ROLE_KEY is required")
		}
	case "s3":
		if e.S3Bucket == "" {
			return fmt.Errorf("S3_BUCKET is required")
		}
	case "fs":
		if e.StorageDir == "" {
			return fmt.Errorf("STORAGE_DIR is required")
		}
	default:
		return fmt.Errorf("unsupported STORAGE_BACKEND %q (supported: supabase, s3, fs)", e.StorageBackend)
	}
	if e.SessionToken != "" && e.SessionJWTSecret == "" {
		return fmt.Errorf("SESSION_JWT_SECRET is required when SESSION_TOKEN is set")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}
