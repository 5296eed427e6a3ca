package post

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"image"
	"image/png"
	"io"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/fpang/caption-studio/internal/caption"
	"github.com/fpang/caption-studio/internal/chat"
	"github.com/fpang/caption-studio/internal/imageinfo"
	"github.com/fpang/caption-studio/internal/metrics"
	"github.com/fpang/caption-studio/internal/storage"
	"github.com/fpang/caption-studio/internal/store"
)

func TestMain(m *testing.M) {
	metrics.SetOutput(io.Discard)
	os.Exit(m.Run())
}

// calls records the order collaborators were invoked in.
type calls []string

type fakeCaptioner struct {
	log  *calls
	req  chat.CaptionRequest
	text string
	err  error
}

func (f *fakeCaptioner) Caption(_ context.Context, req chat.CaptionRequest) (chat.CaptionResult, error) {
	*f.log = append(*f.log, "caption")
	f.req = req
	if f.err != nil {
		return chat.CaptionResult{}, f.err
	}
	return chat.CaptionResult{Text: f.text}, nil
}

type fakeBlobs struct {
	log  *calls
	data []byte
	ct   string
	url  string
	err  error
}

func (f *fakeBlobs) Upload(_ context.Context, data []byte, contentType string) (storage.UploadResult, error) {
	*f.log = append(*f.log, "storage")
	f.data = data
	f.ct = contentType
	if f.err != nil {
		return storage.UploadResult{}, f.err
	}
	return storage.UploadResult{Key: "posts/k.png", URL: f.url}, nil
}

type fakePosts struct {
	log     *calls
	created []*store.Post
	err     error
	empty   bool
}

func (f *fakePosts) CreatePost(_ context.Context, p *store.Post) (*store.Post, error) {
	*f.log = append(*f.log, "persistence")
	if f.err != nil {
		return nil, f.err
	}
	if f.empty {
		return nil, nil
	}
	cp := *p
	cp.ID = "post-1"
	f.created = append(f.created, &cp)
	return &cp, nil
}

type harness struct {
	log   calls
	cap   *fakeCaptioner
	blobs *fakeBlobs
	posts *fakePosts
	svc   *Service
}

func newHarness() *harness {
	h := &harness{}
	h.cap = &fakeCaptioner{log: &h.log, text: "Living for these golden hour vibes"}
	h.blobs = &fakeBlobs{log: &h.log, url: "https://cdn.example.com/posts/k.png"}
	h.posts = &fakePosts{log: &h.log}
	h.svc = NewService(h.cap, h.blobs, h.posts)
	return h
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewGray(image.Rect(0, 0, 3, 2))); err != nil {
		t.Fatalf("encode: %v", err)
	}
	return buf.Bytes()
}

func TestCreatePostSuccess(t *testing.T) {
	h := newHarness()
	data := pngBytes(t)

	p, err := h.svc.CreatePost(context.Background(), Upload{Data: data, ContentType: "image/png"}, caption.RawOptions{
		Length:            "lengthy",
		Mood:              "Funny",
		ExtraInstructions: "mention coffee",
		IncludeHashtags:   "true",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if strings.Join(h.log, ",") != "caption,storage,persistence" {
		t.Errorf("unexpected call order %v", h.log)
	}
	if p.ID != "post-1" || p.Image != "https://cdn.example.com/posts/k.png" || p.Caption != "Living for these golden hour vibes" {
		t.Errorf("unexpected post %+v", p)
	}
	if p.Width != 3 || p.Height != 2 || p.ContentType != "image/png" {
		t.Errorf("expected image metadata on post, got %+v", p)
	}
	if p.Length != "lengthy" || p.Mood != "Funny" || !p.Hashtags {
		t.Errorf("expected options on post, got %+v", p)
	}

	req := h.cap.req
	if req.ImageBase64 != base64.StdEncoding.EncodeToString(data) {
		t.Error("image was not base64 encoded for the captioner")
	}
	if req.MIMEType != "image/png" {
		t.Errorf("unexpected MIME type %q", req.MIMEType)
	}
	if req.UserPrompt != caption.UserPrompt {
		t.Errorf("unexpected user prompt %q", req.UserPrompt)
	}
	for _, want := range []string{"Detailed (25-40 words)", "funny tone", "Include 2-4 relevant hashtags", "SPECIAL REQUEST: mention coffee"} {
		if !strings.Contains(req.SystemInstruction, want) {
			t.Errorf("system instruction missing %q", want)
		}
	}
	if !bytes.Equal(h.blobs.data, data) {
		t.Error("storage did not receive the raw image bytes")
	}
}

func TestCreatePostNoImage(t *testing.T) {
	h := newHarness()
	_, err := h.svc.CreatePost(context.Background(), Upload{}, caption.RawOptions{})
	if !errors.Is(err, ErrNoImage) {
		t.Fatalf("expected ErrNoImage, got %v", err)
	}
	if len(h.log) != 0 {
		t.Errorf("no collaborator should be called, got %v", h.log)
	}
}

func TestCreatePostNotAnImage(t *testing.T) {
	h := newHarness()
	_, err := h.svc.CreatePost(context.Background(), Upload{Data: []byte("plain text"), ContentType: "text/plain"}, caption.RawOptions{})
	if !errors.Is(err, imageinfo.ErrNotImage) {
		t.Fatalf("expected ErrNotImage, got %v", err)
	}
	if len(h.log) != 0 {
		t.Errorf("no collaborator should be called, got %v", h.log)
	}
}

func TestCreatePostStageFailures(t *testing.T) {
	tests := []struct {
		name      string
		setup     func(h *harness)
		wantStage Stage
		wantCalls string
	}{
		{
			name:      "caption fails",
			setup:     func(h *harness) { h.cap.err = &chat.ProviderError{Kind: chat.KindRateLimited, Message: "quota"} },
			wantStage: StageCaption,
			wantCalls: "caption",
		},
		{
			name:      "storage fails",
			setup:     func(h *harness) { h.blobs.err = errors.New("access denied") },
			wantStage: StageStorage,
			wantCalls: "caption,storage",
		},
		{
			name:      "storage returns no url",
			setup:     func(h *harness) { h.blobs.url = "" },
			wantStage: StageStorage,
			wantCalls: "caption,storage",
		},
		{
			name:      "persistence fails",
			setup:     func(h *harness) { h.posts.err = errors.New("write conflict") },
			wantStage: StagePersistence,
			wantCalls: "caption,storage,persistence",
		},
		{
			name:      "persistence returns no post",
			setup:     func(h *harness) { h.posts.empty = true },
			wantStage: StagePersistence,
			wantCalls: "caption,storage,persistence",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness()
			tt.setup(h)

			p, err := h.svc.CreatePost(context.Background(), Upload{Data: pngBytes(t)}, caption.RawOptions{})
			if err == nil {
				t.Fatal("expected error")
			}
			if p != nil {
				t.Errorf("expected no post, got %+v", p)
			}
			if !IsStage(err, tt.wantStage) {
				t.Errorf("expected stage %s, got %v", tt.wantStage, err)
			}
			if got := strings.Join(h.log, ","); got != tt.wantCalls {
				t.Errorf("expected calls %q, got %q", tt.wantCalls, got)
			}
			if len(h.posts.created) != 0 {
				t.Error("no post should be created")
			}
		})
	}
}

func TestPersistCarriesEXIF(t *testing.T) {
	taken := time.Date(2024, 6, 1, 18, 30, 0, 0, time.FixedZone("PDT", -7*3600))
	tests := []struct {
		name      string
		image     imageinfo.Info
		wantMake  string
		wantModel string
		wantTaken *time.Time
	}{
		{
			name:      "exif present",
			image:     imageinfo.Info{MIMEType: "image/jpeg", Width: 4, Height: 3, CameraMake: "Apple", CameraModel: "iPhone 15 Pro", TakenAt: taken},
			wantMake:  "Apple",
			wantModel: "iPhone 15 Pro",
			wantTaken: &taken,
		},
		{
			name:  "no exif",
			image: imageinfo.Info{MIMEType: "image/png", Width: 3, Height: 2},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness()
			req := &request{
				image:   tt.image,
				opts:    caption.Normalize(caption.RawOptions{}),
				caption: "hello",
				stored:  storage.UploadResult{Key: "posts/k.jpg", URL: "https://cdn.example.com/posts/k.jpg"},
			}
			if err := h.svc.persist(context.Background(), req); err != nil {
				t.Fatalf("persist: %v", err)
			}
			p := h.posts.created[0]
			if p.CameraMake != tt.wantMake || p.CameraModel != tt.wantModel {
				t.Errorf("unexpected camera %q %q", p.CameraMake, p.CameraModel)
			}
			switch {
			case tt.wantTaken == nil && p.TakenAt != nil:
				t.Errorf("expected no takenAt, got %v", p.TakenAt)
			case tt.wantTaken != nil && (p.TakenAt == nil || !p.TakenAt.Equal(*tt.wantTaken)):
				t.Errorf("expected takenAt %v, got %v", tt.wantTaken, p.TakenAt)
			}
		})
	}
}

func TestStageErrorUnwraps(t *testing.T) {
	cause := &chat.ProviderError{Kind: chat.KindTransient, Message: "network"}
	err := error(&StageError{Stage: StageCaption, Err: cause})

	if kind, ok := chat.KindOf(err); !ok || kind != chat.KindTransient {
		t.Errorf("expected transient provider error through StageError, got %v", err)
	}
	if !strings.Contains(err.Error(), "caption failed") {
		t.Errorf("unexpected message %q", err.Error())
	}
	if _, ok := FailedStage(errors.New("plain")); ok {
		t.Error("plain error should have no stage")
	}
}

func TestPromptRebuiltPerRequest(t *testing.T) {
	h := newHarness()
	raw := caption.RawOptions{Length: "short"}

	if _, err := h.svc.CreatePost(context.Background(), Upload{Data: pngBytes(t)}, raw); err != nil {
		t.Fatalf("first: %v", err)
	}
	first := h.cap.req.SystemInstruction

	if _, err := h.svc.CreatePost(context.Background(), Upload{Data: pngBytes(t)}, raw); err != nil {
		t.Fatalf("second: %v", err)
	}
	if h.cap.req.SystemInstruction != first {
		t.Error("identical options should produce identical instructions")
	}
}
