// Package media uploads profile images to the object store and removes
// superseded ones on a best-effort basis.
package media

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ayush/videotube/backend/internal/logging"
)

// ObjectStore is the subset of the object store the relay needs.
type ObjectStore interface {
	Upload(ctx context.Context, key string, data []byte, contentType string) error
	Remove(ctx context.Context, key string) error
}

// File is an uploaded file held in memory.
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

var (
	ErrEmptyFile   = errors.New("media: empty file")
	ErrForeignURL  = errors.New("media: url does not belong to this store")
	ErrUnsupported = errors.New("media: unsupported content type")
)

// Rejected reports whether err means the file itself was unacceptable, as
// opposed to the object store failing.
func Rejected(err error) bool {
	return errors.Is(err, ErrEmptyFile) || errors.Is(err, ErrUnsupported)
}

const discardTimeout = 30 * time.Second

// Relay maps files to object keys and object keys to public URLs.
type Relay struct {
	store   ObjectStore
	baseURL string // public URL prefix including the bucket, no trailing slash
}

// NewRelay builds a relay whose objects are served from publicURL/bucket/key.
func NewRelay(store ObjectStore, publicURL, bucket string) *Relay {
	return &Relay{
		store:   store,
		baseURL: strings.TrimRight(publicURL, "/") + "/" + bucket,
	}
}

// Upload stores f under folder and returns its public URL.
func (r *Relay) Upload(ctx context.Context, folder string, f File) (string, error) {
	if len(f.Data) == 0 {
		return "", ErrEmptyFile
	}
	contentType := f.ContentType
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = http.DetectContentType(f.Data)
	}
	if !strings.HasPrefix(contentType, "image/") {
		return "", fmt.Errorf("%w: %s", ErrUnsupported, contentType)
	}

	key := path.Join(folder, uuid.NewString()+strings.ToLower(path.Ext(f.Name)))
	if err := r.store.Upload(ctx, key, f.Data, contentType); err != nil {
		return "", err
	}
	return r.URL(key), nil
}

// URL returns the public URL for key.
func (r *Relay) URL(key string) string {
	return r.baseURL + "/" + key
}

// KeyFromURL recovers the object key from a URL produced by URL.
func (r *Relay) KeyFromURL(url string) (string, error) {
	key, ok := strings.CutPrefix(url, r.baseURL+"/")
	if !ok || key == "" {
		return "", ErrForeignURL
	}
	return key, nil
}

// Remove deletes the object behind url.
func (r *Relay) Remove(ctx context.Context, url string) error {
	key, err := r.KeyFromURL(url)
	if err != nil {
		return err
	}
	return r.store.Remove(ctx, key)
}

// Discard removes url in the background. The returned channel yields the
// outcome once and is then closed; failures are also logged. Callers are free
// to ignore it. An empty url completes immediately.
func (r *Relay) Discard(ctx context.Context, url string) <-chan error {
	done := make(chan error, 1)
	if url == "" {
		close(done)
		return done
	}

	logger := logging.FromContext(ctx)
	go func() {
		defer close(done)
		bg, cancel := context.WithTimeout(context.WithoutCancel(ctx), discardTimeout)
		defer cancel()

		err := r.Remove(bg, url)
		if err != nil {
			logger.Warn("discard media failed", "url", url, "error", err)
		}
		done <- err
	}()
	return done
}
