// Package post runs the caption request: normalize the options, build the
// system instruction, caption the image, upload it, and persist the Post.
//
// The three external calls run strictly in sequence. Each stage either
// yields its value or a *StageError, and the first failure ends the
// request. Nothing is retried and nothing is rolled back: a caption that
// was generated before a storage or persistence failure is discarded.
package post

import (
	"context"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/fpang/caption-studio/internal/caption"
	"github.com/fpang/caption-studio/internal/chat"
	"github.com/fpang/caption-studio/internal/imageinfo"
	"github.com/fpang/caption-studio/internal/metrics"
	"github.com/fpang/caption-studio/internal/storage"
	"github.com/fpang/caption-studio/internal/store"
)

// Captioner generates a caption for an image.
type Captioner interface {
	Caption(ctx context.Context, req chat.CaptionRequest) (chat.CaptionResult, error)
}

// BlobStore stores image bytes and returns a URL for them.
type BlobStore interface {
	Upload(ctx context.Context, data []byte, contentType string) (storage.UploadResult, error)
}

// Creator persists a new post.
type Creator interface {
	CreatePost(ctx context.Context, post *store.Post) (*store.Post, error)
}

// Upload is the image received from the client.
type Upload struct {
	Data        []byte
	ContentType string
	Filename    string
}

// State is the progress of a single request.
type State string

const (
	StateReceived  State = "received"
	StateCaptioned State = "captioned"
	StateStored    State = "stored"
	StatePersisted State = "persisted"
	StateSucceeded State = "succeeded"
	StateFailed    State = "failed"
)

// Service wires the collaborators together. It holds no per-request state
// and is safe for concurrent use.
type Service struct {
	captioner Captioner
	blobs     BlobStore
	posts     Creator
}

// NewService creates a Service.
func NewService(captioner Captioner, blobs BlobStore, posts Creator) *Service {
	return &Service{captioner: captioner, blobs: blobs, posts: posts}
}

// request carries one CreatePost call through the pipeline.
type request struct {
	state       State
	upload      Upload
	image       imageinfo.Info
	opts        caption.Options
	instruction string
	caption     string
	stored      storage.UploadResult
	post        *store.Post
}

type step struct {
	stage Stage
	next  State
	run   func(context.Context, *request) error
}

// CreatePost captions, stores and persists one image. Validation failures
// (ErrNoImage, imageinfo.ErrNotImage) happen before any external call;
// later failures are *StageError.
func (s *Service) CreatePost(ctx context.Context, upload Upload, raw caption.RawOptions) (*store.Post, error) {
	if len(upload.Data) == 0 {
		return nil, ErrNoImage
	}
	info, err := imageinfo.Inspect(upload.Data, upload.ContentType)
	if err != nil {
		return nil, err
	}

	opts := caption.Normalize(raw)
	req := &request{
		state:       StateReceived,
		upload:      upload,
		image:       info,
		opts:        opts,
		instruction: caption.BuildSystemInstruction(opts),
	}

	log.Info().
		Str("length", string(opts.Length)).
		Bool("has_mood", opts.HasMood()).
		Bool("hashtags", opts.IncludeHashtags).
		Bool("special_request", opts.HasSpecialRequest()).
		Str("mime_type", info.MIMEType).
		Int("size", len(upload.Data)).
		Msg("Caption request received")

	steps := []step{
		{stage: StageCaption, next: StateCaptioned, run: s.generateCaption},
		{stage: StageStorage, next: StateStored, run: s.storeImage},
		{stage: StagePersistence, next: StatePersisted, run: s.persist},
	}

	for _, st := range steps {
		start := time.Now()
		err := st.run(ctx, req)
		recordStage(st.stage, time.Since(start), err)
		if err != nil {
			s.fail(req, st.stage, err)
			return nil, &StageError{Stage: st.stage, Err: err}
		}
		req.state = st.next
	}

	req.state = StateSucceeded
	metrics.New(metrics.Namespace).
		Dimension("Result", "success").
		Count("PostCreateResult").
		Property("postId", req.post.ID).
		Flush()
	log.Info().Str("postId", req.post.ID).Str("state", string(req.state)).Msg("Post created")

	return req.post, nil
}

func (s *Service) generateCaption(ctx context.Context, req *request) error {
	res, err := s.captioner.Caption(ctx, chat.CaptionRequest{
		ImageBase64:       base64.StdEncoding.EncodeToString(req.upload.Data),
		MIMEType:          req.image.MIMEType,
		SystemInstruction: req.instruction,
		UserPrompt:        caption.UserPrompt,
	})
	if err != nil {
		return err
	}
	req.caption = res.Text
	return nil
}

func (s *Service) storeImage(ctx context.Context, req *request) error {
	res, err := s.blobs.Upload(ctx, req.upload.Data, req.image.MIMEType)
	if err != nil {
		return err
	}
	if res.URL == "" {
		return fmt.Errorf("upload of %s returned no URL", res.Key)
	}
	req.stored = res
	return nil
}

func (s *Service) persist(ctx context.Context, req *request) error {
	p := &store.Post{
		Image:       req.stored.URL,
		Caption:     req.caption,
		ImageKey:    req.stored.Key,
		ContentType: req.image.MIMEType,
		Width:       req.image.Width,
		Height:      req.image.Height,
		Length:      string(req.opts.Length),
		Mood:        req.opts.Mood,
		Hashtags:    req.opts.IncludeHashtags,
		CameraMake:  req.image.CameraMake,
		CameraModel: req.image.CameraModel,
	}
	if !req.image.TakenAt.IsZero() {
		taken := req.image.TakenAt.UTC()
		p.TakenAt = &taken
	}

	created, err := s.posts.CreatePost(ctx, p)
	if err != nil {
		return err
	}
	if created == nil {
		return fmt.Errorf("store returned no post for %s", req.stored.Key)
	}
	req.post = created
	return nil
}

// fail logs the terminal state. A caption produced before the failure is
// dropped here.
func (s *Service) fail(req *request, stage Stage, err error) {
	evt := log.Error().Err(err).
		Str("stage", string(stage)).
		Str("reached", string(req.state))
	if kind, ok := chat.KindOf(err); ok {
		evt = evt.Str("kind", kind.String())
	}
	evt.Msg("Caption request failed")

	if req.caption != "" {
		log.Warn().
			Int("caption_length", len(req.caption)).
			Str("stage", string(stage)).
			Msg("Discarding generated caption")
	}
	req.state = StateFailed

	metrics.New(metrics.Namespace).
		Dimension("Result", "failed").
		Dimension("Stage", string(stage)).
		Count("PostCreateResult").
		Flush()
}

func recordStage(stage Stage, d time.Duration, err error) {
	result := "success"
	if err != nil {
		result = "error"
	}
	metrics.New(metrics.Namespace).
		Dimension("Stage", string(stage)).
		Dimension("Result", result).
		Duration("StageLatencyMs", d).
		Flush()
}
