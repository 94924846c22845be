// Package storage holds binary objects (chat attachments, voice notes) and
// hands back the public URL they are served from.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
)

var ErrInvalidPath = errors.New("invalid object path")

// ObjectStore uploads blobs under a slash separated object path
type ObjectStore interface {
	Upload(ctx context.Context, objectPath string, r io.Reader, contentType string) (string, error)
}

// LocalStore writes objects below a root directory that the HTTP server
// exposes at publicURL.
type LocalStore struct {
	root      string
	publicURL string
}

func NewLocalStore(root, publicURL string) (*LocalStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("storage: create root: %w", err)
	}
	return &LocalStore{root: root, publicURL: strings.TrimRight(publicURL, "/")}, nil
}

// Root is the directory served as static files
func (s *LocalStore) Root() string {
	return s.root
}

func (s *LocalStore) Upload(ctx context.Context, objectPath string, r io.Reader, _ string) (string, error) {
	clean := path.Clean("/" + objectPath)[1:]
	if clean == "" || strings.HasPrefix(clean, "..") {
		return "", ErrInvalidPath
	}
	dst := filepath.Join(s.root, filepath.FromSlash(clean))
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", fmt.Errorf("storage: create dir: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dst), ".upload-*")
	if err != nil {
		return "", fmt.Errorf("storage: create temp: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, &ctxReader{ctx: ctx, r: r}); err != nil {
		_ = tmp.Close()
		return "", fmt.Errorf("storage: write: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("storage: close: %w", err)
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		return "", fmt.Errorf("storage: rename: %w", err)
	}
	return s.publicURL + "/" + clean, nil
}

// ctxReader stops a copy once the request is cancelled
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}

// ObjectPath builds prefix/<yyyy>/<mm>/<uuid>-<sanitized name>
func ObjectPath(prefix, filename string, at time.Time) string {
	return fmt.Sprintf("%s/%04d/%02d/%s-%s", prefix, at.Year(), int(at.Month()), uuid.NewString(), SanitizeName(filename))
}

// SanitizeName keeps letters, digits, dot, dash and underscore
func SanitizeName(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	var b strings.Builder
	for _, r := range name {
		switch {
		case r < 128 && (unicode.IsLetter(r) || unicode.IsDigit(r)), r == '.', r == '-', r == '_':
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteByte('_')
		}
	}
	out := strings.Trim(b.String(), ".")
	if out == "" {
		return "file"
	}
	if len(out) > 100 {
		out = out[len(out)-100:]
	}
	return out
}
