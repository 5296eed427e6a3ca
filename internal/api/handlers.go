package api

import (
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/rs/zerolog/log"

	"github.com/fpang/caption-studio/internal/caption"
	"github.com/fpang/caption-studio/internal/chat"
	"github.com/fpang/caption-studio/internal/imageinfo"
	"github.com/fpang/caption-studio/internal/post"
	"github.com/fpang/caption-studio/internal/store"
)

// Client-facing messages.
const (
	msgCreated       = "Post Created Successfully !!"
	msgNoFile        = "No file is Selected !!!"
	msgCaptionFailed = "Error generating caption"
	msgTooLarge      = "File is too large"
	msgNotImage      = "File is not a supported image"
	msgNotFound      = "Post not found"
)

// multipartOverhead is allowed on top of the file limit for boundaries and
// the text fields.
const multipartOverhead = 64 << 10

// stageFailure is the 500 body for a failed pipeline stage.
type stageFailure struct {
	Message string `json:"message"`
	Error   string `json:"error"`
	Stage   string `json:"stage"`
	Kind    string `json:"kind,omitempty"`
}

func (h *handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"service": ServiceName,
	})
}

// POST /api/post (multipart/form-data)
//
// Fields: image (file), captionLength, mood, extraInstructions, includeHashtags.
func (h *handler) handleCreatePost(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload+multipartOverhead)
	if err := r.ParseMultipartForm(h.maxUpload); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			httpError(w, http.StatusRequestEntityTooLarge, msgTooLarge)
			return
		}
		if errors.Is(err, http.ErrNotMultipart) {
			httpError(w, http.StatusBadRequest, msgNoFile)
			return
		}
		httpError(w, http.StatusBadRequest, "invalid multipart form", err.Error())
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("image")
	if err != nil {
		log.Warn().Err(err).Msg("Caption request without image")
		httpError(w, http.StatusBadRequest, msgNoFile)
		return
	}
	defer file.Close()

	if header.Size > h.maxUpload {
		httpError(w, http.StatusRequestEntityTooLarge, msgTooLarge)
		return
	}
	data, err := readUpload(file, h.maxUpload)
	if err != nil {
		httpError(w, http.StatusRequestEntityTooLarge, msgTooLarge, err.Error())
		return
	}

	upload := post.Upload{
		Data:        data,
		ContentType: header.Header.Get("Content-Type"),
		Filename:    header.Filename,
	}
	p, err := h.poster.CreatePost(r.Context(), upload, rawOptions(r.MultipartForm))
	if err != nil {
		h.createError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, map[string]any{
		"message": msgCreated,
		"post":    p,
	})
}

func (h *handler) createError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, post.ErrNoImage):
		httpError(w, http.StatusBadRequest, msgNoFile)
	case errors.Is(err, imageinfo.ErrNotImage):
		httpError(w, http.StatusUnsupportedMediaType, msgNotImage)
	default:
		stage, ok := post.FailedStage(err)
		if !ok {
			httpError(w, http.StatusInternalServerError, msgCaptionFailed, err.Error())
			return
		}
		body := stageFailure{
			Message: msgCaptionFailed,
			Error:   stageMessage(err),
			Stage:   string(stage),
		}
		if kind, ok := chat.KindOf(err); ok {
			body.Kind = kind.String()
		}
		respondJSON(w, http.StatusInternalServerError, body)
	}
}

// stageMessage returns the collaborator's message for the response body.
func stageMessage(err error) string {
	var se *post.StageError
	if errors.As(err, &se) && se.Err != nil {
		return se.Err.Error()
	}
	return err.Error()
}

// rawOptions reads the caption fields. An absent includeHashtags field
// means hashtags are wanted.
func rawOptions(form *multipart.Form) caption.RawOptions {
	raw := caption.RawOptions{
		Length:            formValue(form, "captionLength"),
		Mood:              formValue(form, "mood"),
		ExtraInstructions: formValue(form, "extraInstructions"),
		IncludeHashtags:   "true",
	}
	if v, ok := form.Value["includeHashtags"]; ok && len(v) > 0 {
		raw.IncludeHashtags = v[0]
	}
	return raw
}

func formValue(form *multipart.Form, key string) string {
	if v := form.Value[key]; len(v) > 0 {
		return v[0]
	}
	return ""
}

func readUpload(r io.Reader, max int64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, max+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > max {
		return nil, errors.New("upload exceeds limit")
	}
	return data, nil
}

// GET /api/post?limit=N
func (h *handler) handleListPosts(w http.ResponseWriter, r *http.Request) {
	limit := store.DefaultListLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			httpError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = store.ClampLimit(n)
	}

	posts, err := h.posts.ListPosts(r.Context(), limit)
	if err != nil {
		httpError(w, http.StatusInternalServerError, "failed to list posts", err.Error())
		return
	}
	if posts == nil {
		posts = []*store.Post{}
	}
	respondJSON(w, http.StatusOK, map[string]any{"posts": posts})
}

// GET /api/post/{id}
func (h *handler) handleGetPost(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	p, err := h.posts.GetPost(r.Context(), id)
	if err != nil {
		httpError(w, http.StatusInternalServerError, "failed to load post", err.Error())
		return
	}
	if p == nil {
		httpError(w, http.StatusNotFound, msgNotFound)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"post": p})
}

// POST /api/prompt/preview
//
// Body: {"captionLength", "mood", "extraInstructions", "includeHashtags"}.
// Returns the instruction that would be sent; no external calls are made.
// Omitted fields take the same defaults as an upload.
func (h *handler) handlePromptPreview(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, multipartOverhead)
	raw := caption.RawOptions{IncludeHashtags: "true"}
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil && !errors.Is(err, io.EOF) {
		httpError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	opts := caption.Normalize(raw)
	respondJSON(w, http.StatusOK, map[string]any{
		"options": map[string]any{
			"captionLength":     opts.Length,
			"mood":              opts.Mood,
			"extraInstructions": opts.ExtraInstructions,
			"includeHashtags":   opts.IncludeHashtags,
		},
		"systemInstruction": caption.BuildSystemInstruction(opts),
		"userPrompt":        caption.UserPrompt,
	})
}
