// Package api exposes the how-to service over HTTP. Identity resolution
// happens upstream; the resolved user arrives in request headers and is
// attached to the request context.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/google/uuid"

	"github.com/makerhub/howto/pkg/howto"
)

// Handler handles HTTP requests for how-to content
type Handler struct {
	service howto.Service
	log     *slog.Logger
}

// NewHandler creates a new how-to handler
func NewHandler(service howto.Service, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{service: service, log: log}
}

// Routes returns the routes for how-to content
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(identityFromHeaders)

	r.Post("/", h.SubmitHowto)
	r.Get("/", h.ListHowtos)
	r.Get("/{slug}", h.GetHowto)
	r.Put("/{slug}/moderation", h.ModerateHowto)

	return r
}

// identityFromHeaders attaches the upstream-resolved user to the context.
func identityFromHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name := r.Header.Get("X-User-Name")
		if name != "" {
			user := &howto.User{
				UserName: name,
				IsAdmin:  r.Header.Get("X-User-Admin") == "true",
				Country:  r.Header.Get("X-User-Country"),
			}
			if code := r.Header.Get("X-User-Country-Code"); code != "" {
				user.Location = &howto.Location{CountryCode: code}
			}
			r = r.WithContext(howto.WithUser(r.Context(), user))
		}
		next.ServeHTTP(w, r)
	})
}

// MediaRefPayload is the wire form of a media reference. Content carries
// raw bytes (base64 in JSON) for a pending upload; a payload with a
// download URL references already-stored media.
type MediaRefPayload struct {
	Name        string `json:"name"`
	Type        string `json:"type,omitempty"`
	Size        int64  `json:"size,omitempty"`
	DownloadURL string `json:"download_url,omitempty"`
	FullPath    string `json:"full_path,omitempty"`
	Content     []byte `json:"content,omitempty"`
}

func (p *MediaRefPayload) toRef() *howto.MediaRef {
	if p == nil {
		return nil
	}
	return &howto.MediaRef{
		Name:        p.Name,
		Type:        p.Type,
		Size:        p.Size,
		DownloadURL: p.DownloadURL,
		FullPath:    p.FullPath,
		Content:     p.Content,
	}
}

// StepPayload is the wire form of one step. Image slots may be null.
type StepPayload struct {
	Title  string             `json:"title"`
	Text   string             `json:"text"`
	Images []*MediaRefPayload `json:"images"`
}

// SubmitHowtoPayload is the request body for submitting or editing a how-to
type SubmitHowtoPayload struct {
	ID             string             `json:"id,omitempty"`
	Title          string             `json:"title"`
	Description    string             `json:"description,omitempty"`
	Slug           string             `json:"slug"`
	CoverImage     *MediaRefPayload   `json:"cover_image,omitempty"`
	Steps          []StepPayload      `json:"steps"`
	Files          []*MediaRefPayload `json:"files,omitempty"`
	Tags           []string           `json:"tags,omitempty"`
	CreatedBy      string             `json:"created_by,omitempty"`
	CreatedAt      time.Time          `json:"created_at,omitempty"`
	Moderation     string             `json:"moderation,omitempty"`
	CreatorCountry string             `json:"creator_country,omitempty"`
}

// SubmitHowtoResponse pairs the committed record with the milestones the
// submission reached.
type SubmitHowtoResponse struct {
	Howto    *howto.Howto         `json:"howto"`
	Progress howto.UploadProgress `json:"progress"`
}

func (h *Handler) SubmitHowto(w http.ResponseWriter, r *http.Request) {
	var payload SubmitHowtoPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, map[string]string{"error": "invalid request body"})
		return
	}

	req := howto.SubmitHowtoRequest{
		Title:          payload.Title,
		Description:    payload.Description,
		Slug:           payload.Slug,
		CoverImage:     payload.CoverImage.toRef(),
		CreatedBy:      payload.CreatedBy,
		CreatedAt:      payload.CreatedAt,
		Moderation:     howto.ModerationStatus(payload.Moderation),
		CreatorCountry: payload.CreatorCountry,
	}

	if payload.ID != "" {
		id, err := uuid.Parse(payload.ID)
		if err != nil {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, map[string]string{"error": "invalid howto id"})
			return
		}
		req.ID = id
	}

	for _, step := range payload.Steps {
		images := make([]*howto.MediaRef, len(step.Images))
		for i, img := range step.Images {
			images[i] = img.toRef()
		}
		req.Steps = append(req.Steps, howto.Step{Title: step.Title, Text: step.Text, Images: images})
	}
	for _, f := range payload.Files {
		req.Files = append(req.Files, f.toRef())
	}
	if len(payload.Tags) > 0 {
		req.Tags = make(map[string]bool, len(payload.Tags))
		for _, tag := range payload.Tags {
			req.Tags[tag] = true
		}
	}

	committed, progress, err := h.service.SubmitHowto(r.Context(), req)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, howto.ErrNoActingUser) {
			status = http.StatusUnauthorized
		} else if errors.Is(err, howto.ErrInvalidSubmission) {
			status = http.StatusBadRequest
		}
		h.log.ErrorContext(r.Context(), "howto submission failed", "slug", payload.Slug, "error", err)
		render.Status(r, status)
		render.JSON(w, r, map[string]interface{}{"error": err.Error(), "progress": progress})
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, SubmitHowtoResponse{Howto: committed, Progress: progress})
}

func (h *Handler) ListHowtos(w http.ResponseWriter, r *http.Request) {
	viewer := howto.UserFromContext(r.Context())

	filter := howto.ListFilter{
		SearchQuery: r.URL.Query().Get("q"),
	}
	if tags := r.URL.Query().Get("tags"); tags != "" {
		filter.SelectedTags = make(map[string]bool)
		for _, tag := range strings.Split(tags, ",") {
			if tag = strings.TrimSpace(tag); tag != "" {
				filter.SelectedTags[tag] = true
			}
		}
	}

	items := h.service.FilteredHowtos(viewer, filter)
	render.JSON(w, r, items)
}

func (h *Handler) GetHowto(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")

	// Resolve and check visibility before making the item active: a hidden
	// record must not become the active item or gain a stats subscription.
	item, err := h.service.GetHowtoBySlug(r.Context(), slug)
	if err != nil {
		h.log.ErrorContext(r.Context(), "howto lookup failed", "slug", slug, "error", err)
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, map[string]string{"error": err.Error()})
		return
	}

	viewer := howto.UserFromContext(r.Context())
	if item == nil || !howto.IsVisible(item, viewer) {
		render.Status(r, http.StatusNotFound)
		render.JSON(w, r, map[string]string{"error": "howto not found"})
		return
	}

	if _, err := h.service.SetActiveHowtoBySlug(r.Context(), slug); err != nil {
		h.log.ErrorContext(r.Context(), "howto activation failed", "slug", slug, "error", err)
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, map[string]string{"error": err.Error()})
		return
	}

	render.JSON(w, r, item)
}

// ModerationPayload is the request body for a moderation write
type ModerationPayload struct {
	Moderation string `json:"moderation"`
}

func (h *Handler) ModerateHowto(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	viewer := howto.UserFromContext(r.Context())

	var payload ModerationPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, map[string]string{"error": "invalid request body"})
		return
	}

	item, err := h.service.GetHowtoBySlug(r.Context(), slug)
	if err != nil {
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, map[string]string{"error": err.Error()})
		return
	}
	if item == nil {
		render.Status(r, http.StatusNotFound)
		render.JSON(w, r, map[string]string{"error": "howto not found"})
		return
	}

	item.Moderation = howto.ModerationStatus(payload.Moderation)
	ok, err := h.service.ModerateHowto(r.Context(), item, viewer)
	if err != nil {
		h.log.ErrorContext(r.Context(), "moderation write failed", "slug", slug, "error", err)
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, map[string]string{"error": err.Error()})
		return
	}
	if !ok {
		render.Status(r, http.StatusForbidden)
		render.JSON(w, r, map[string]string{"error": "moderation requires admin rights"})
		return
	}

	render.JSON(w, r, item)
}
