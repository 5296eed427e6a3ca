// Package awsboot wires the caption service from configuration: AWS config,
// S3, DynamoDB, the Gemini key from SSM, and the startup log. The server and
// the Lambda share it so both start the same way.
package awsboot

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/rs/zerolog/log"

	"github.com/fpang/caption-studio/internal/api"
	"github.com/fpang/caption-studio/internal/chat"
	"github.com/fpang/caption-studio/internal/config"
	"github.com/fpang/caption-studio/internal/logging"
	"github.com/fpang/caption-studio/internal/post"
	"github.com/fpang/caption-studio/internal/storage"
	"github.com/fpang/caption-studio/internal/store"
)

// AWSClients holds the AWS config and the SSM client.
type AWSClients struct {
	Config aws.Config
	SSM    *ssm.Client
}

// App is a fully wired service.
type App struct {
	Config    config.Config
	Service   *post.Service
	Posts     store.PostStore
	Captioner *chat.GeminiCaptioner
}

// Handler returns the HTTP API for the app.
func (a App) Handler() http.Handler {
	return api.New(api.Options{
		Poster:             a.Service,
		Posts:              a.Posts,
		MaxUploadBytes:     a.Config.MaxUploadBytes(),
		AllowedOrigins:     a.Config.AllowedOrigins,
		OriginVerifySecret: a.Config.OriginVerifySecret,
	})
}

// InitAWS loads the default AWS config. Fatals on error.
func InitAWS(ctx context.Context) AWSClients {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load AWS config")
	}
	log.Debug().Str("region", cfg.Region).Msg("AWS config loaded")
	return AWSClients{
		Config: cfg,
		SSM:    ssm.NewFromConfig(cfg),
	}
}

// InitBlobStore creates the S3 image store.
func InitBlobStore(awsCfg aws.Config, cfg config.Config) *storage.S3Store {
	return storage.NewS3Store(s3.NewFromConfig(awsCfg), storage.Options{
		Bucket:        cfg.MediaBucket,
		Prefix:        cfg.MediaPrefix,
		PublicBaseURL: cfg.PublicBaseURL,
	})
}

// InitPostStore returns the DynamoDB store, or the in-memory store when
// POST_STORE=memory.
func InitPostStore(awsCfg aws.Config, cfg config.Config) store.PostStore {
	if cfg.PostStore == config.StoreMemory {
		log.Warn().Msg("Using in-memory post store; posts are lost on restart")
		return store.NewMemoryStore()
	}
	return store.NewDynamoStore(dynamodb.NewFromConfig(awsCfg), cfg.PostsTable)
}

// LoadGeminiKey resolves the Gemini API key from the environment or SSM.
// Fatals when no key is available.
func LoadGeminiKey(ctx context.Context, ssmClient config.ParamGetter, paramName string) string {
	key, err := config.ResolveGeminiKey(ctx, ssmClient, paramName)
	if err != nil {
		log.Fatal().Err(err).Str("param", paramName).Msg("Failed to load Gemini API key")
	}
	return key
}

// InitCaptioner creates the Gemini captioner, optionally checking the key
// with a minimal request first. Fatals on error.
func InitCaptioner(ctx context.Context, apiKey, model string, validate bool) *chat.GeminiCaptioner {
	client, err := chat.NewGeminiClient(ctx, apiKey)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create Gemini client")
	}
	if validate {
		if err := chat.ValidateAPIKey(ctx, client, model); err != nil {
			log.Fatal().Err(err).Msg("Invalid Gemini API key")
		}
		log.Info().Msg("Gemini API key validated")
	}
	return chat.NewGeminiCaptioner(client, model)
}

// Wire builds the App. Missing required configuration is fatal.
func Wire(ctx context.Context, cfg config.Config) App {
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	clients := InitAWS(ctx)
	apiKey := LoadGeminiKey(ctx, clients.SSM, cfg.SSMAPIKeyParam)
	captioner := InitCaptioner(ctx, apiKey, cfg.GeminiModel, cfg.ValidateAPIKey)
	blobs := InitBlobStore(clients.Config, cfg)
	posts := InitPostStore(clients.Config, cfg)

	return App{
		Config:    cfg,
		Service:   post.NewService(captioner, blobs, posts),
		Posts:     posts,
		Captioner: captioner,
	}
}

// StartupLog returns a StartupLogger pre-filled from cfg.
func StartupLog(name string, initStart time.Time, cfg config.Config) *logging.StartupLogger {
	sl := logging.NewStartupLogger(name).
		InitDuration(time.Since(initStart)).
		S3Bucket("media", cfg.MediaBucket).
		Feature("originVerify", cfg.OriginVerifySecret != "").
		Feature("publicURLs", cfg.PublicBaseURL != "").
		Feature("validateAPIKey", cfg.ValidateAPIKey).
		Config("model", cfg.GeminiModel).
		Config("postStore", cfg.PostStore).
		Config("mediaPrefix", cfg.MediaPrefix).
		Config("maxUploadMB", strconv.Itoa(cfg.MaxUploadMB))
	if cfg.PostStore == config.StoreDynamo {
		sl.DynamoTable("posts", cfg.PostsTable)
	}
	if cfg.GeminiAPIKey == "" {
		sl.SSMParam("geminiKey", cfg.SSMAPIKeyParam)
	}
	return sl
}
