// Package store persists Posts, the association between an uploaded image's
// public URL and the caption generated for it.
//
// Posts are write-once: the service creates a record after the image has
// been captioned and uploaded, and never updates or deletes it afterwards.
// The production backend is DynamoDB (single item per post, PK POST#{id},
// SK META). MemoryStore backs local runs and tests.
package store

import (
	"context"
	"time"
)

// DefaultListLimit and MaxListLimit bound ListPosts.
const (
	DefaultListLimit = 20
	MaxListLimit     = 100
)

// PostStore defines the persistence interface for posts.
//
// GetPost returns (nil, nil) when the post does not exist.
type PostStore interface {
	// CreatePost assigns ID and CreatedAt when they are unset and stores the post.
	CreatePost(ctx context.Context, post *Post) (*Post, error)

	// GetPost retrieves a post by ID. Returns nil, nil if not found.
	GetPost(ctx context.Context, id string) (*Post, error)

	// ListPosts returns up to limit posts, newest first.
	ListPosts(ctx context.Context, limit int) ([]*Post, error)
}

// Post is a persisted caption/image pair.
//
// Image and Caption are the payload; the remaining fields record how the
// caption was requested and what was uploaded.
type Post struct {
	ID          string    `json:"_id" dynamodbav:"-"`
	Image       string    `json:"image" dynamodbav:"image"`
	Caption     string    `json:"caption" dynamodbav:"caption"`
	ImageKey    string    `json:"-" dynamodbav:"imageKey,omitempty"`
	ContentType string    `json:"contentType,omitempty" dynamodbav:"contentType,omitempty"`
	Width       int       `json:"width,omitempty" dynamodbav:"width,omitempty"`
	Height      int       `json:"height,omitempty" dynamodbav:"height,omitempty"`
	Length      string    `json:"length,omitempty" dynamodbav:"length,omitempty"`
	Mood        string    `json:"mood,omitempty" dynamodbav:"mood,omitempty"`
	Hashtags    bool      `json:"hashtags" dynamodbav:"hashtags"`
	CreatedAt   time.Time `json:"createdAt" dynamodbav:"createdAt"`

	// EXIF details, when the upload carried them.
	CameraMake  string     `json:"cameraMake,omitempty" dynamodbav:"cameraMake,omitempty"`
	CameraModel string     `json:"cameraModel,omitempty" dynamodbav:"cameraModel,omitempty"`
	TakenAt     *time.Time `json:"takenAt,omitempty" dynamodbav:"takenAt,omitempty"`
}

// ClampLimit applies DefaultListLimit and MaxListLimit to a requested limit.
func ClampLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultListLimit
	case limit > MaxListLimit:
		return MaxListLimit
	default:
		return limit
	}
}
