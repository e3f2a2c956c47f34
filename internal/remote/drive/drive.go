// Package drive implements remote.Store on Google Drive.
package drive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"sentinel/internal/logging"
	"sentinel/internal/remote"
)

const listFields = "files(id, name, mimeType, createdTime)"

// Store is a Drive-backed remote.Store.
type Store struct {
	svc *drive.Service
}

// NewWithService wraps an existing Drive service.
func NewWithService(svc *drive.Service) *Store {
	return &Store{svc: svc}
}

// NewWithClient builds a Store on an authenticated HTTP client. Extra
// options (endpoint overrides) are passed to the Drive client.
func NewWithClient(ctx context.Context, client *http.Client, opts ...option.ClientOption) (*Store, error) {
	opts = append([]option.ClientOption{option.WithHTTPClient(client)}, opts...)
	svc, err := drive.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create drive service: %w", err)
	}
	return NewWithService(svc), nil
}

// BuildQuery renders the Drive search expression for q.
func BuildQuery(q remote.Query) string {
	parts := []string{"trashed = false"}
	if q.Prefix != "" {
		parts = append(parts, fmt.Sprintf("name contains '%s'", escape(q.Prefix)))
	}
	if len(q.MimeTypes) > 0 {
		mimes := make([]string, len(q.MimeTypes))
		for i, m := range q.MimeTypes {
			mimes[i] = fmt.Sprintf("mimeType = '%s'", escape(m))
		}
		parts = append(parts, "("+strings.Join(mimes, " or ")+")")
	}
	return strings.Join(parts, " and ")
}

func escape(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, `'`, `\'`)
}

// List implements remote.Store. Drive's "contains" also matches inside
// names, so results are filtered to the prefix.
func (s *Store) List(ctx context.Context, q remote.Query) ([]remote.Document, error) {
	call := s.svc.Files.List().
		Q(BuildQuery(q)).
		OrderBy("createdTime desc").
		Fields(listFields).
		Context(ctx)
	if q.PageSize > 0 {
		call = call.PageSize(int64(q.PageSize))
	}

	resp, err := call.Do()
	if err != nil {
		return nil, classify("list", err)
	}

	docs := make([]remote.Document, 0, len(resp.Files))
	for _, f := range resp.Files {
		if q.Prefix != "" && !strings.HasPrefix(f.Name, q.Prefix) {
			continue
		}
		created, err := time.Parse(time.RFC3339, f.CreatedTime)
		if err != nil {
			logging.RemoteDebug("document %s has unparseable createdTime %q", f.Id, f.CreatedTime)
		}
		docs = append(docs, remote.Document{
			ID:          f.Id,
			Name:        f.Name,
			MimeType:    f.MimeType,
			CreatedTime: created,
		})
	}
	logging.RemoteDebug("listed %d documents", len(docs))
	return docs, nil
}

// Download implements remote.Store.
func (s *Store) Download(ctx context.Context, id string, w io.Writer) error {
	resp, err := s.svc.Files.Get(id).Context(ctx).Download()
	if err != nil {
		return classify("download "+id, err)
	}
	defer resp.Body.Close()

	if _, err := io.Copy(w, resp.Body); err != nil {
		return fmt.Errorf("%w: download %s: %v", remote.ErrTransient, id, err)
	}
	return nil
}

// Delete implements remote.Store.
func (s *Store) Delete(ctx context.Context, id string) error {
	if err := s.svc.Files.Delete(id).Context(ctx).Do(); err != nil {
		return classify("delete "+id, err)
	}
	return nil
}

// classify wraps retryable API failures with remote.ErrTransient.
func classify(op string, err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		if apiErr.Code == http.StatusTooManyRequests || apiErr.Code >= 500 {
			return fmt.Errorf("%w: %s: %v", remote.ErrTransient, op, err)
		}
		return fmt.Errorf("drive %s: %w", op, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return fmt.Errorf("%w: %s: %v", remote.ErrTransient, op, err)
	}
	return fmt.Errorf("drive %s: %w", op, err)
}
