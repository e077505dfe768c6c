package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/sagarc03/shelfd"
	shelfdhttp "github.com/sagarc03/shelfd/http"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockService struct {
	mock.Mock
}

func (m *MockService) List(ctx context.Context, identity string) ([]shelfd.RecordView, error) {
	args := m.Called(ctx, identity)
	views, _ := args.Get(0).([]shelfd.RecordView)
	return views, args.Error(1)
}

func (m *MockService) Get(ctx context.Context, identity, id string) (shelfd.RecordView, error) {
	args := m.Called(ctx, identity, id)
	view, _ := args.Get(0).(shelfd.RecordView)
	return view, args.Error(1)
}

func (m *MockService) Create(ctx context.Context, identity string, fields shelfd.Fields, upload *shelfd.Upload) (shelfd.RecordView, error) {
	args := m.Called(ctx, identity, fields, upload)
	view, _ := args.Get(0).(shelfd.RecordView)
	return view, args.Error(1)
}

func (m *MockService) Update(ctx context.Context, identity, id string, fields shelfd.Fields, upload *shelfd.Upload) (shelfd.RecordView, error) {
	args := m.Called(ctx, identity, id, fields, upload)
	view, _ := args.Get(0).(shelfd.RecordView)
	return view, args.Error(1)
}

func (m *MockService) Delete(ctx context.Context, identity, id string) (shelfd.RecordView, error) {
	args := m.Called(ctx, identity, id)
	view, _ := args.Get(0).(shelfd.RecordView)
	return view, args.Error(1)
}

type readSeekNopCloser struct {
	*strings.Reader
}

func (readSeekNopCloser) Close() error { return nil }

type fakeOpener struct {
	files map[string]string
}

func (f fakeOpener) Open(ctx context.Context, name string) (io.ReadSeekCloser, time.Time, error) {
	content, ok := f.files[name]
	if !ok {
		return nil, time.Time{}, shelfd.ErrNotFound
	}
	return readSeekNopCloser{strings.NewReader(content)}, time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC), nil
}

func newRouter(service shelfdhttp.Service, opener shelfdhttp.AssetOpener, mutate ...func(*shelfdhttp.HandlerConfig)) http.Handler {
	config := shelfdhttp.HandlerConfig{BasePath: "/books"}
	for _, m := range mutate {
		m(&config)
	}
	return shelfdhttp.NewHandler(&config, service, opener).Router()
}

// recordForm builds a multipart request body. A nil image omits the file
// part entirely; withPartType controls whether the file part declares a
// Content-Type header.
func recordForm(t *testing.T, fields map[string]string, image []byte, partType string) (*bytes.Buffer, string) {
	t.Helper()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	for key, value := range fields {
		require.NoError(t, w.WriteField(key, value))
	}

	if image != nil {
		header := textproto.MIMEHeader{}
		header.Set("Content-Disposition", `form-data; name="image"; filename="cover.jpg"`)
		if partType != "" {
			header.Set("Content-Type", partType)
		}
		part, err := w.CreatePart(header)
		require.NoError(t, err)
		_, err = part.Write(image)
		require.NoError(t, err)
	}

	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

func decodeEnvelope(t *testing.T, body io.Reader) (string, string, shelfd.RecordView) {
	t.Helper()

	var envelope struct {
		Status  string            `json:"status"`
		Message string            `json:"message"`
		Data    shelfd.RecordView `json:"data"`
	}
	require.NoError(t, json.NewDecoder(body).Decode(&envelope))
	return envelope.Status, envelope.Message, envelope.Data
}

func TestHandleList(t *testing.T) {
	t.Run("returns the visible records as a bare array", func(t *testing.T) {
		service := new(MockService)
		views := []shelfd.RecordView{
			{CatalogRecord: shelfd.CatalogRecord{ID: "1", Title: "first"}},
			{CatalogRecord: shelfd.CatalogRecord{ID: "2", Title: "mine", Owner: "a@x.com"}, Mine: true},
		}
		service.On("List", mock.Anything, "a@x.com").Return(views, nil)

		req := httptest.NewRequest(http.MethodGet, "/books/", nil)
		req.Header.Set("Authorization", "a@x.com")
		rec := httptest.NewRecorder()

		newRouter(service, nil).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

		var got []shelfd.RecordView
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
		assert.Equal(t, views, got)
		service.AssertExpectations(t)
	})

	t.Run("anonymous caller passes an empty identity", func(t *testing.T) {
		service := new(MockService)
		service.On("List", mock.Anything, "").Return([]shelfd.RecordView{}, nil)

		req := httptest.NewRequest(http.MethodGet, "/books/", nil)
		rec := httptest.NewRecorder()

		newRouter(service, nil).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		service.AssertExpectations(t)
	})

	t.Run("absolutizes asset references when a public URL is set", func(t *testing.T) {
		service := new(MockService)
		service.On("List", mock.Anything, "").Return([]shelfd.RecordView{
			{CatalogRecord: shelfd.CatalogRecord{ID: "1", AssetRef: "/uploads/a.jpg"}},
			{CatalogRecord: shelfd.CatalogRecord{ID: "2", AssetRef: "data:image/png;base64,AAAA"}},
		}, nil)

		req := httptest.NewRequest(http.MethodGet, "/books/", nil)
		rec := httptest.NewRecorder()

		router := newRouter(service, nil, func(c *shelfdhttp.HandlerConfig) {
			c.PublicURL = "https://shelfd.example.com/"
		})
		router.ServeHTTP(rec, req)

		var got []shelfd.RecordView
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
		require.Len(t, got, 2)
		assert.Equal(t, "https://shelfd.example.com/uploads/a.jpg", got[0].AssetRef)
		assert.Equal(t, "data:image/png;base64,AAAA", got[1].AssetRef, "inline refs stay untouched")
	})
}

func TestHandleGet(t *testing.T) {
	t.Run("returns the record", func(t *testing.T) {
		service := new(MockService)
		view := shelfd.RecordView{
			CatalogRecord: shelfd.CatalogRecord{ID: "b1", Title: "title", Owner: "a@x.com"},
			Mine:          true,
		}
		service.On("Get", mock.Anything, "a@x.com", "b1").Return(view, nil)

		req := httptest.NewRequest(http.MethodGet, "/books/b1", nil)
		req.Header.Set("Authorization", "a@x.com")
		rec := httptest.NewRecorder()

		newRouter(service, nil).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)

		var got shelfd.RecordView
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
		assert.Equal(t, view, got)
		assert.True(t, got.Mine)
	})

	t.Run("unknown record", func(t *testing.T) {
		service := new(MockService)
		service.On("Get", mock.Anything, "", "nope").Return(shelfd.RecordView{}, shelfd.ErrNotFound)

		req := httptest.NewRequest(http.MethodGet, "/books/nope", nil)
		rec := httptest.NewRecorder()

		newRouter(service, nil).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNotFound, rec.Code)

		var resp shelfdhttp.ErrorResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.Equal(t, "error", resp.Status)
	})
}

func TestHandleCreate(t *testing.T) {
	t.Run("creates from a multipart form", func(t *testing.T) {
		service := new(MockService)
		view := shelfd.RecordView{
			CatalogRecord: shelfd.CatalogRecord{ID: "b1", Title: "Go in Practice", Author: "Matt", Owner: "a@x.com"},
			Mine:          true,
		}
		service.On("Create", mock.Anything, "a@x.com",
			mock.MatchedBy(func(fields shelfd.Fields) bool {
				return fields.Title != nil && *fields.Title == "Go in Practice" &&
					fields.Author != nil && *fields.Author == "Matt"
			}),
			mock.MatchedBy(func(upload *shelfd.Upload) bool {
				if upload == nil || upload.Filename != "cover.jpg" || upload.ContentType != "image/jpeg" {
					return false
				}
				data, err := io.ReadAll(upload.Content)
				return err == nil && string(data) == "jpeg bytes"
			}),
		).Return(view, nil)

		body, contentType := recordForm(t, map[string]string{
			"title":  "Go in Practice",
			"author": "Matt",
		}, []byte("jpeg bytes"), "image/jpeg")

		req := httptest.NewRequest(http.MethodPost, "/books/", body)
		req.Header.Set("Content-Type", contentType)
		req.Header.Set("Authorization", "a@x.com")
		rec := httptest.NewRecorder()

		newRouter(service, nil).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusCreated, rec.Code)

		status, message, data := decodeEnvelope(t, rec.Body)
		assert.Equal(t, "success", status)
		assert.Equal(t, "record created", message)
		assert.Equal(t, "b1", data.ID)
		assert.True(t, data.Mine)
		service.AssertExpectations(t)
	})

	t.Run("sniffs the media type when the part declares none", func(t *testing.T) {
		pngMagic := []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0}

		service := new(MockService)
		service.On("Create", mock.Anything, "", mock.Anything,
			mock.MatchedBy(func(upload *shelfd.Upload) bool {
				return upload != nil && upload.ContentType == "image/png"
			}),
		).Return(shelfd.RecordView{}, nil)

		body, contentType := recordForm(t, map[string]string{"title": "t", "author": "a"}, pngMagic, "")

		req := httptest.NewRequest(http.MethodPost, "/books/", body)
		req.Header.Set("Content-Type", contentType)
		rec := httptest.NewRecorder()

		newRouter(service, nil).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusCreated, rec.Code)
		service.AssertExpectations(t)
	})

	t.Run("omitted fields arrive as nil, not empty", func(t *testing.T) {
		service := new(MockService)
		service.On("Create", mock.Anything, "",
			mock.MatchedBy(func(fields shelfd.Fields) bool {
				return fields.Title == nil && fields.Author != nil
			}),
			(*shelfd.Upload)(nil),
		).Return(shelfd.RecordView{}, &shelfd.ValidationError{Fields: []string{"title", "image"}})

		body, contentType := recordForm(t, map[string]string{"author": "a"}, nil, "")

		req := httptest.NewRequest(http.MethodPost, "/books/", body)
		req.Header.Set("Content-Type", contentType)
		rec := httptest.NewRecorder()

		newRouter(service, nil).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)

		var resp shelfdhttp.ErrorResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.Equal(t, "error", resp.Status)
		assert.Contains(t, resp.Message, "title")
		assert.Equal(t, []string{"title", "image"}, resp.Fields)
		service.AssertExpectations(t)
	})

	t.Run("non-multipart body is rejected", func(t *testing.T) {
		service := new(MockService)

		req := httptest.NewRequest(http.MethodPost, "/books/", strings.NewReader(`{"title":"t"}`))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()

		newRouter(service, nil).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		service.AssertNotCalled(t, "Create")
	})

	t.Run("oversized body is cut off with a client error", func(t *testing.T) {
		service := new(MockService)

		// Two MiB of image against a one-byte ceiling overflows even the
		// slack granted for text fields and framing.
		body, contentType := recordForm(t, map[string]string{"title": "t", "author": "a"},
			bytes.Repeat([]byte("x"), 2<<20), "image/jpeg")

		req := httptest.NewRequest(http.MethodPost, "/books/", body)
		req.Header.Set("Content-Type", contentType)
		rec := httptest.NewRecorder()

		router := newRouter(service, nil, func(c *shelfdhttp.HandlerConfig) {
			c.MaxUploadBytes = 1
		})
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)

		var resp shelfdhttp.ErrorResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.Contains(t, resp.Message, "too large")
		service.AssertNotCalled(t, "Create")
	})
}

func TestHandleUpdate(t *testing.T) {
	t.Run("updates and wraps in the envelope", func(t *testing.T) {
		service := new(MockService)
		view := shelfd.RecordView{
			CatalogRecord: shelfd.CatalogRecord{ID: "b1", Title: "new title", Owner: "a@x.com"},
			Mine:          true,
		}
		service.On("Update", mock.Anything, "a@x.com", "b1",
			mock.MatchedBy(func(fields shelfd.Fields) bool {
				return fields.Title != nil && *fields.Title == "new title" && fields.Author == nil
			}),
			(*shelfd.Upload)(nil),
		).Return(view, nil)

		body, contentType := recordForm(t, map[string]string{"title": "new title"}, nil, "")

		req := httptest.NewRequest(http.MethodPut, "/books/b1", body)
		req.Header.Set("Content-Type", contentType)
		req.Header.Set("Authorization", "a@x.com")
		rec := httptest.NewRecorder()

		newRouter(service, nil).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)

		status, message, data := decodeEnvelope(t, rec.Body)
		assert.Equal(t, "success", status)
		assert.Equal(t, "record updated", message)
		assert.Equal(t, "new title", data.Title)
		service.AssertExpectations(t)
	})

	t.Run("someone else's record", func(t *testing.T) {
		service := new(MockService)
		service.On("Update", mock.Anything, "b@y.com", "b1", mock.Anything, mock.Anything).
			Return(shelfd.RecordView{}, shelfd.ErrForbidden)

		body, contentType := recordForm(t, map[string]string{"title": "hijack"}, nil, "")

		req := httptest.NewRequest(http.MethodPut, "/books/b1", body)
		req.Header.Set("Content-Type", contentType)
		req.Header.Set("Authorization", "b@y.com")
		rec := httptest.NewRecorder()

		newRouter(service, nil).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusForbidden, rec.Code)
	})
}

func TestHandleDelete(t *testing.T) {
	t.Run("deletes and returns the final state", func(t *testing.T) {
		service := new(MockService)
		view := shelfd.RecordView{
			CatalogRecord: shelfd.CatalogRecord{ID: "b1", Title: "gone", Owner: "a@x.com"},
			Mine:          true,
		}
		service.On("Delete", mock.Anything, "a@x.com", "b1").Return(view, nil)

		req := httptest.NewRequest(http.MethodDelete, "/books/b1", nil)
		req.Header.Set("Authorization", "a@x.com")
		rec := httptest.NewRecorder()

		newRouter(service, nil).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)

		status, message, data := decodeEnvelope(t, rec.Body)
		assert.Equal(t, "success", status)
		assert.Equal(t, "record deleted", message)
		assert.Equal(t, "b1", data.ID)
	})

	t.Run("unknown record", func(t *testing.T) {
		service := new(MockService)
		service.On("Delete", mock.Anything, "", "nope").Return(shelfd.RecordView{}, shelfd.ErrNotFound)

		req := httptest.NewRequest(http.MethodDelete, "/books/nope", nil)
		rec := httptest.NewRecorder()

		newRouter(service, nil).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestHandleAsset(t *testing.T) {
	opener := fakeOpener{files: map[string]string{"a.jpg": "jpeg bytes"}}

	t.Run("serves stored bytes", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/uploads/a.jpg", nil)
		rec := httptest.NewRecorder()

		newRouter(new(MockService), opener).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "jpeg bytes", rec.Body.String())
	})

	t.Run("missing asset", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/uploads/nope.jpg", nil)
		rec := httptest.NewRecorder()

		newRouter(new(MockService), opener).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("no opener configured", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/uploads/a.jpg", nil)
		rec := httptest.NewRecorder()

		newRouter(new(MockService), nil).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestIdentity(t *testing.T) {
	t.Run("whitespace is trimmed", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "  a@x.com  ")
		assert.Equal(t, "a@x.com", shelfdhttp.Identity(req))
	})

	t.Run("missing header means anonymous", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		assert.Empty(t, shelfdhttp.Identity(req))
	})
}

func TestCORS(t *testing.T) {
	service := new(MockService)
	service.On("List", mock.Anything, "").Return([]shelfd.RecordView{}, nil)

	router := newRouter(service, nil, func(c *shelfdhttp.HandlerConfig) {
		c.CORS = shelfdhttp.CORSConfig{
			Enabled:        true,
			AllowedOrigins: []string{"https://app.example.com"},
			AllowedMethods: []string{"GET", "POST", "PUT", "DELETE"},
			AllowedHeaders: []string{"Authorization", "Content-Type"},
		}
	})

	req := httptest.NewRequest(http.MethodGet, "/books/", nil)
	req.Header.Set("Origin", "https://app.example.com")
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "https://app.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
}
