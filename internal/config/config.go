// Package config loads service configuration from environment variables.
package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/fpang/caption-studio/internal/chat"
)

// DefaultSSMParam is the parameter holding the Gemini API key when
// GEMINI_API_KEY is not set.
const DefaultSSMParam = "/caption-studio/prod/gemini-api-key"

// Store backends for POST_STORE.
const (
	StoreDynamo = "dynamo"
	StoreMemory = "memory"
)

// ErrNoAPIKey is returned when no Gemini API key can be resolved.
var ErrNoAPIKey = errors.New("gemini API key not configured")

// Config holds everything the server and Lambda need at startup.
type Config struct {
	Port           int
	GeminiAPIKey   string
	SSMAPIKeyParam string
	GeminiModel    string
	ValidateAPIKey bool

	MediaBucket   string
	MediaPrefix   string
	PublicBaseURL string

	PostStore  string
	PostsTable string

	MaxUploadMB        int
	AllowedOrigins     []string
	OriginVerifySecret string
}

// MaxUploadBytes is MaxUploadMB in bytes.
func (c Config) MaxUploadBytes() int64 {
	return int64(c.MaxUploadMB) << 20
}

// Load reads the environment. Only values that are present but malformed
// are errors; required-ness depends on the binary and is checked by Validate.
func Load() (Config, error) {
	port, err := getEnvInt("PORT", 3000)
	if err != nil {
		return Config{}, err
	}
	maxMB, err := getEnvInt("MAX_UPLOAD_MB", 5)
	if err != nil {
		return Config{}, err
	}
	if maxMB <= 0 {
		return Config{}, fmt.Errorf("MAX_UPLOAD_MB must be positive, got %d", maxMB)
	}
	validate, err := getEnvBool("VALIDATE_API_KEY", false)
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		Port:               port,
		GeminiAPIKey:       os.Getenv("GEMINI_API_KEY"),
		SSMAPIKeyParam:     getEnv("SSM_API_KEY_PARAM", DefaultSSMParam),
		GeminiModel:        chat.GetModelName(),
		ValidateAPIKey:     validate,
		MediaBucket:        os.Getenv("MEDIA_BUCKET_NAME"),
		MediaPrefix:        strings.Trim(getEnv("MEDIA_PREFIX", "posts"), "/"),
		PublicBaseURL:      strings.TrimRight(os.Getenv("MEDIA_PUBLIC_BASE_URL"), "/"),
		PostStore:          getEnv("POST_STORE", StoreDynamo),
		PostsTable:         os.Getenv("POSTS_TABLE_NAME"),
		MaxUploadMB:        maxMB,
		AllowedOrigins:     splitList(os.Getenv("ALLOWED_ORIGINS")),
		OriginVerifySecret: os.Getenv("ORIGIN_VERIFY_SECRET"),
	}

	store, err := ParseStore(cfg.PostStore)
	if err != nil {
		return Config{}, fmt.Errorf("POST_STORE: %w", err)
	}
	cfg.PostStore = store

	return cfg, nil
}

// ParseStore normalizes a post store name from the environment or a flag.
func ParseStore(s string) (string, error) {
	store := strings.ToLower(strings.TrimSpace(s))
	switch store {
	case StoreDynamo, StoreMemory:
		return store, nil
	default:
		return "", fmt.Errorf("post store must be %q or %q, got %q", StoreDynamo, StoreMemory, s)
	}
}

// Validate checks the settings needed to serve caption requests.
func (c Config) Validate() error {
	if _, err := ParseStore(c.PostStore); err != nil {
		return err
	}
	var missing []string
	if c.MediaBucket == "" {
		missing = append(missing, "MEDIA_BUCKET_NAME")
	}
	if c.PostStore == StoreDynamo && c.PostsTable == "" {
		missing = append(missing, "POSTS_TABLE_NAME")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}
	return nil
}

// LoadDotEnv reads KEY=VALUE pairs from path into the environment for local
// runs. Variables already set are left alone and a missing file is ignored.
func LoadDotEnv(path string) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	log.Debug().Str("file", path).Msg("Loaded environment file")
	return nil
}

// ParamGetter is the subset of the SSM client used to read secrets.
type ParamGetter interface {
	GetParameter(ctx context.Context, params *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
}

// ResolveGeminiKey returns the API key from GEMINI_API_KEY, falling back to
// the SSM parameter paramName. ssmClient may be nil when running without AWS.
func ResolveGeminiKey(ctx context.Context, ssmClient ParamGetter, paramName string) (string, error) {
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		log.Debug().Msg("Gemini API key loaded from environment")
		return key, nil
	}
	if ssmClient == nil || paramName == "" {
		return "", ErrNoAPIKey
	}

	start := time.Now()
	result, err := ssmClient.GetParameter(ctx, &ssm.GetParameterInput{
		Name:           aws.String(paramName),
		WithDecryption: aws.Bool(true),
	})
	if err != nil {
		return "", fmt.Errorf("read API key from SSM %s: %w", paramName, err)
	}
	if result.Parameter == nil || aws.ToString(result.Parameter.Value) == "" {
		return "", fmt.Errorf("SSM parameter %s is empty: %w", paramName, ErrNoAPIKey)
	}
	log.Debug().Str("param", paramName).Dur("elapsed", time.Since(start)).Msg("Gemini API key loaded from SSM")
	return aws.ToString(result.Parameter.Value), nil
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid integer %q", key, v)
	}
	return n, nil
}

func getEnvBool(key string, fallback bool) (bool, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s: invalid boolean %q", key, v)
	}
	return b, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
