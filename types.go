package shelfd

import (
	"io"
	"strings"
	"time"
)

// CatalogRecord is one entry in the catalog.
//
// Owner is the opaque identity string of the caller that created the
// record; empty means the record is public. AssetRef is backend-dependent:
// a server-relative path like "/uploads/<name>" for disk-backed assets, or
// a data: URI when the asset store keeps the bytes inline.
type CatalogRecord struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Author    string    `json:"author"`
	Owner     string    `json:"owner,omitempty"`
	AssetRef  string    `json:"asset_ref"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// RecordView is a CatalogRecord annotated for a specific caller. Mine is
// derived per request from the caller identity and is never persisted.
type RecordView struct {
	CatalogRecord
	Mine bool `json:"mine"`
}

// Fields carries the text fields of a create or update request.
// A nil pointer means the field was not supplied at all, which matters for
// updates: absent fields keep their stored value, while supplied-but-blank
// fields are a validation error.
type Fields struct {
	Title  *string
	Author *string
}

// Upload describes one uploaded asset as handed over by the transport
// layer. Content is consumed exactly once by AssetStore.Store. Size is the
// declared size and must not be trusted for enforcement.
type Upload struct {
	Filename    string
	ContentType string
	Size        int64
	Content     io.Reader
}

func trimmed(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}
