// Package api exposes the caption service over HTTP.
//
// Endpoints:
//
//	GET  /api/health           health check (no origin verification)
//	POST /api/post             multipart upload; caption, store and persist
//	GET  /api/post             recent posts, newest first (?limit=)
//	GET  /api/post/{id}        a single post
//	POST /api/prompt/preview   system instruction for a set of options
//
// The same handler runs under the standalone server and behind API Gateway.
package api

import (
	"context"
	"net/http"

	"github.com/fpang/caption-studio/internal/caption"
	"github.com/fpang/caption-studio/internal/post"
	"github.com/fpang/caption-studio/internal/store"
)

// ServiceName is reported by the health endpoint.
const ServiceName = "caption-studio"

// DefaultMaxUploadBytes applies when Options.MaxUploadBytes is zero.
const DefaultMaxUploadBytes int64 = 5 << 20

// Poster creates posts from uploads.
type Poster interface {
	CreatePost(ctx context.Context, upload post.Upload, raw caption.RawOptions) (*store.Post, error)
}

// PostReader reads persisted posts.
type PostReader interface {
	GetPost(ctx context.Context, id string) (*store.Post, error)
	ListPosts(ctx context.Context, limit int) ([]*store.Post, error)
}

// Options configures the handler.
type Options struct {
	Poster         Poster
	Posts          PostReader
	MaxUploadBytes int64

	// AllowedOrigins lists CORS origins; "*" allows any. Empty disables CORS headers.
	AllowedOrigins []string
	// OriginVerifySecret, when set, must match the x-origin-verify header.
	OriginVerifySecret string
}

type handler struct {
	poster    Poster
	posts     PostReader
	maxUpload int64
}

// New returns the API with its middleware chain applied.
func New(opts Options) http.Handler {
	h := &handler{
		poster:    opts.Poster,
		posts:     opts.Posts,
		maxUpload: opts.MaxUploadBytes,
	}
	if h.maxUpload <= 0 {
		h.maxUpload = DefaultMaxUploadBytes
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/health", h.handleHealth)
	mux.HandleFunc("POST /api/post", h.handleCreatePost)
	mux.HandleFunc("GET /api/post", h.handleListPosts)
	mux.HandleFunc("GET /api/post/{id}", h.handleGetPost)
	mux.HandleFunc("POST /api/prompt/preview", h.handlePromptPreview)

	var next http.Handler = mux
	next = withOriginVerify(opts.OriginVerifySecret, next)
	next = withCORS(opts.AllowedOrigins, next)
	next = withMetrics(next)
	next = withLogging(next)
	return next
}
