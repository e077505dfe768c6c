// Package assets manages the stored bytes of uploaded catalog assets.
//
// Two backends satisfy shelfd.AssetStore: DiskStore keeps files under a
// sandboxed directory and hands out "/uploads/<name>" references, while
// MemoryStore encodes the bytes into a data: URI so the reference itself
// carries the asset. Both enforce the same media-type and size limits.
package assets

import (
	"fmt"
	"mime"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/sagarc03/shelfd"
)

// Limits is the acceptance policy applied before an upload is stored.
// An empty AllowedTypes list accepts every media type; a zero MaxBytes
// means no ceiling.
type Limits struct {
	MaxBytes     int64
	AllowedTypes []string
}

// check validates the declared media type and size of an upload. The real
// byte count is enforced again during the copy, since the declared size
// cannot be trusted.
func (l Limits) check(upload shelfd.Upload) error {
	if len(l.AllowedTypes) > 0 {
		mediaType, _, err := mime.ParseMediaType(upload.ContentType)
		if err != nil {
			return fmt.Errorf("media type %q: %w", upload.ContentType, shelfd.ErrUnsupportedMediaType)
		}

		accepted := false
		for _, t := range l.AllowedTypes {
			if strings.EqualFold(t, mediaType) {
				accepted = true
				break
			}
		}
		if !accepted {
			return fmt.Errorf("media type %q: %w", mediaType, shelfd.ErrUnsupportedMediaType)
		}
	}

	if l.MaxBytes > 0 && upload.Size > l.MaxBytes {
		return fmt.Errorf("declared size %d exceeds %d: %w", upload.Size, l.MaxBytes, shelfd.ErrPayloadTooLarge)
	}

	return nil
}

var extRegex = regexp.MustCompile(`^\.[a-z0-9]+$`)

// newAssetName generates a collision-safe storage name for an upload,
// preserving the original extension when it is a sane one.
func newAssetName(originalFilename string) string {
	ext := strings.ToLower(filepath.Ext(originalFilename))
	if !extRegex.MatchString(ext) {
		ext = ""
	}
	return uuid.New().String() + ext
}

// IsValidName reports whether name is a plain generated asset filename:
// a single path segment with no traversal, control characters or spaces.
func IsValidName(name string) bool {
	if name == "" || name == "." || name == ".." {
		return false
	}

	if strings.ContainsAny(name, `/\`) {
		return false
	}

	for _, r := range name {
		if r < 0x21 || r == 0x7f {
			return false
		}
	}

	return true
}
