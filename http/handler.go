package http

import (
	"bufio"
	"context"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/sagarc03/shelfd"
	"github.com/sagarc03/shelfd/assets"
)

// multipartMemory is the in-memory buffer handed to ParseMultipartForm;
// larger uploads spill to temp files.
const multipartMemory = 8 << 20

// Service is the catalog surface the handlers need.
type Service interface {
	List(ctx context.Context, identity string) ([]shelfd.RecordView, error)
	Get(ctx context.Context, identity, id string) (shelfd.RecordView, error)
	Create(ctx context.Context, identity string, fields shelfd.Fields, upload *shelfd.Upload) (shelfd.RecordView, error)
	Update(ctx context.Context, identity, id string, fields shelfd.Fields, upload *shelfd.Upload) (shelfd.RecordView, error)
	Delete(ctx context.Context, identity, id string) (shelfd.RecordView, error)
}

// AssetOpener serves stored asset bytes. Nil when the asset backend keeps
// bytes inline in the record references.
type AssetOpener interface {
	Open(ctx context.Context, name string) (io.ReadSeekCloser, time.Time, error)
}

type CORSConfig struct {
	Enabled          bool     `mapstructure:"enabled"`
	AllowedOrigins   []string `mapstructure:"allowed_origins"`
	AllowedMethods   []string `mapstructure:"allowed_methods"`
	AllowedHeaders   []string `mapstructure:"allowed_headers"`
	ExposedHeaders   []string `mapstructure:"exposed_headers"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
	MaxAge           int      `mapstructure:"max_age"`
}

type HandlerConfig struct {
	// BasePath is the collection mount point, e.g. "/books" or "/artworks".
	BasePath string
	// PublicURL, when set, is prepended to server-relative asset
	// references so clients receive absolute URLs.
	PublicURL string
	// MaxUploadBytes caps the multipart request body. Zero means no cap.
	MaxUploadBytes int64
	CORS           CORSConfig
}

// Handler provides the HTTP handlers for the catalog.
type Handler struct {
	config  HandlerConfig
	service Service
	assets  AssetOpener
}

// NewHandler creates a Handler. opener may be nil when no static asset
// serving is wanted (inline asset backend).
func NewHandler(config *HandlerConfig, service Service, opener AssetOpener) *Handler {
	return &Handler{
		config:  *config,
		service: service,
		assets:  opener,
	}
}

// Router returns an http.Handler with the catalog routes mounted under
// the configured base path and stored assets under /uploads.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()

	if h.config.CORS.Enabled {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   h.config.CORS.AllowedOrigins,
			AllowedMethods:   h.config.CORS.AllowedMethods,
			AllowedHeaders:   h.config.CORS.AllowedHeaders,
			ExposedHeaders:   h.config.CORS.ExposedHeaders,
			AllowCredentials: h.config.CORS.AllowCredentials,
			MaxAge:           h.config.CORS.MaxAge,
		}))
	}

	r.Use(IdentityMiddleware)

	r.Route(h.config.BasePath, func(r chi.Router) {
		r.Get("/", h.handleList)
		r.Post("/", h.handleCreate)
		r.Get("/{id}", h.handleGet)
		r.Put("/{id}", h.handleUpdate)
		r.Delete("/{id}", h.handleDelete)
	})

	r.Get("/uploads/{filename}", h.handleAsset)

	return r
}

// render maps a view for the wire, absolutizing the asset reference when
// a public URL is configured.
func (h *Handler) render(view shelfd.RecordView) shelfd.RecordView {
	if h.config.PublicURL != "" && strings.HasPrefix(view.AssetRef, "/") {
		view.AssetRef = strings.TrimSuffix(h.config.PublicURL, "/") + view.AssetRef
	}
	return view
}

func (h *Handler) renderAll(views []shelfd.RecordView) []shelfd.RecordView {
	out := make([]shelfd.RecordView, len(views))
	for i, v := range views {
		out[i] = h.render(v)
	}
	return out
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	views, err := h.service.List(r.Context(), IdentityFromContext(r.Context()))
	if err != nil {
		HandleError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, h.renderAll(views))
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	view, err := h.service.Get(r.Context(), IdentityFromContext(r.Context()), id)
	if err != nil {
		HandleError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, h.render(view))
}

// parseRecordForm parses the multipart body into text fields and an
// optional upload. The returned close function must be called after the
// service has consumed the upload reader.
func (h *Handler) parseRecordForm(w http.ResponseWriter, r *http.Request) (shelfd.Fields, *shelfd.Upload, func(), error) {
	if h.config.MaxUploadBytes > 0 {
		// Allow some slack over the asset ceiling for text fields and
		// multipart framing; the asset store enforces the exact limit.
		r.Body = http.MaxBytesReader(w, r.Body, h.config.MaxUploadBytes+(1<<20))
	}

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			return shelfd.Fields{}, nil, nil, err
		}
		return shelfd.Fields{}, nil, nil, errors.Join(shelfd.ErrInvalidInput, err)
	}

	fields := shelfd.Fields{
		Title:  formField(r.MultipartForm, "title"),
		Author: formField(r.MultipartForm, "author"),
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return fields, nil, func() {}, nil
		}
		return shelfd.Fields{}, nil, nil, errors.Join(shelfd.ErrInvalidInput, err)
	}

	content := bufio.NewReader(file)
	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		peek, _ := content.Peek(512)
		contentType = http.DetectContentType(peek)
	}

	upload := &shelfd.Upload{
		Filename:    header.Filename,
		ContentType: contentType,
		Size:        header.Size,
		Content:     content,
	}

	return fields, upload, func() { _ = file.Close() }, nil
}

func formField(form *multipart.Form, key string) *string {
	values, ok := form.Value[key]
	if !ok || len(values) == 0 {
		return nil
	}
	return &values[0]
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	fields, upload, closeUpload, err := h.parseRecordForm(w, r)
	if err != nil {
		HandleError(w, err)
		return
	}
	defer closeUpload()

	view, err := h.service.Create(r.Context(), IdentityFromContext(r.Context()), fields, upload)
	if err != nil {
		HandleError(w, err)
		return
	}

	WriteJSON(w, http.StatusCreated, Envelope{
		Status:  "success",
		Message: "record created",
		Data:    h.render(view),
	})
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	fields, upload, closeUpload, err := h.parseRecordForm(w, r)
	if err != nil {
		HandleError(w, err)
		return
	}
	defer closeUpload()

	view, err := h.service.Update(r.Context(), IdentityFromContext(r.Context()), id, fields, upload)
	if err != nil {
		HandleError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, Envelope{
		Status:  "success",
		Message: "record updated",
		Data:    h.render(view),
	})
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	view, err := h.service.Delete(r.Context(), IdentityFromContext(r.Context()), id)
	if err != nil {
		HandleError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, Envelope{
		Status:  "success",
		Message: "record deleted",
		Data:    h.render(view),
	})
}

func (h *Handler) handleAsset(w http.ResponseWriter, r *http.Request) {
	if h.assets == nil {
		WriteError(w, http.StatusNotFound, "asset not found")
		return
	}

	name := chi.URLParam(r, "filename")
	if !assets.IsValidName(name) {
		WriteError(w, http.StatusNotFound, "asset not found")
		return
	}

	content, modTime, err := h.assets.Open(r.Context(), name)
	if err != nil {
		if errors.Is(err, shelfd.ErrNotFound) {
			WriteError(w, http.StatusNotFound, "asset not found")
		} else {
			HandleError(w, err)
		}
		return
	}
	defer func() { _ = content.Close() }()

	http.ServeContent(w, r, name, modTime, content)
}
