package drive

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"

	"sentinel/internal/remote"
)

type fakeDrive struct {
	mu       sync.Mutex
	lastList map[string]string
	deleted  []string
	failList int
}

func (f *fakeDrive) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch {
	case r.Method == http.MethodGet && r.URL.Path == "/files":
		if f.failList != 0 {
			w.WriteHeader(f.failList)
			_, _ = w.Write([]byte(`{"error": {"code": 500, "message": "backend"}}`))
			return
		}
		f.lastList = map[string]string{
			"q":        r.URL.Query().Get("q"),
			"orderBy":  r.URL.Query().Get("orderBy"),
			"pageSize": r.URL.Query().Get("pageSize"),
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"files": []map[string]string{
				{"id": "new", "name": "SentScript-proj-1a2b-b.txt", "mimeType": "text/plain", "createdTime": "2024-05-02T10:00:00Z"},
				{"id": "mid", "name": "Copy of SentScript-proj-1a2b-x.txt", "mimeType": "text/plain", "createdTime": "2024-05-01T11:00:00Z"},
				{"id": "old", "name": "SentScript-proj-1a2b-a.txt", "mimeType": "text/plain", "createdTime": "2024-05-01T10:00:00Z"},
			},
		})
	case r.Method == http.MethodGet && r.URL.Path == "/files/new":
		if r.URL.Query().Get("alt") != "media" {
			http.Error(w, "expected media download", http.StatusBadRequest)
			return
		}
		_, _ = w.Write([]byte("<# hello"))
	case r.Method == http.MethodDelete && strings.HasPrefix(r.URL.Path, "/files/"):
		f.deleted = append(f.deleted, strings.TrimPrefix(r.URL.Path, "/files/"))
		w.WriteHeader(http.StatusNoContent)
	default:
		http.NotFound(w, r)
	}
}

func newTestStore(t *testing.T, fake *fakeDrive) *Store {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	store, err := NewWithClient(context.Background(), srv.Client(), option.WithEndpoint(srv.URL+"/"))
	require.NoError(t, err)
	return store
}

func TestList(t *testing.T) {
	fake := &fakeDrive{}
	store := newTestStore(t, fake)

	docs, err := store.List(context.Background(), remote.Query{
		Prefix:    "SentScript-",
		MimeTypes: []string{"text/plain"},
		PageSize:  20,
	})
	require.NoError(t, err)

	require.Len(t, docs, 2)
	assert.Equal(t, "new", docs[0].ID)
	assert.Equal(t, "old", docs[1].ID)
	assert.Equal(t, 2024, docs[0].CreatedTime.Year())

	assert.Equal(t, "createdTime desc", fake.lastList["orderBy"])
	assert.Equal(t, "20", fake.lastList["pageSize"])
	assert.Contains(t, fake.lastList["q"], "name contains 'SentScript-'")
	assert.Contains(t, fake.lastList["q"], "mimeType = 'text/plain'")
	assert.Contains(t, fake.lastList["q"], "trashed = false")
}

func TestDownloadAndDelete(t *testing.T) {
	fake := &fakeDrive{}
	store := newTestStore(t, fake)

	var buf bytes.Buffer
	require.NoError(t, store.Download(context.Background(), "new", &buf))
	assert.Equal(t, "<# hello", buf.String())

	require.NoError(t, store.Delete(context.Background(), "new"))
	assert.Equal(t, []string{"new"}, fake.deleted)

	err := store.Download(context.Background(), "missing", &buf)
	require.Error(t, err)
	assert.NotErrorIs(t, err, remote.ErrTransient)
}

func TestServerErrorIsTransient(t *testing.T) {
	store := newTestStore(t, &fakeDrive{failList: http.StatusInternalServerError})

	_, err := store.List(context.Background(), remote.Query{Prefix: "SentScript-"})
	assert.ErrorIs(t, err, remote.ErrTransient)
}

func TestBuildQuery(t *testing.T) {
	q := BuildQuery(remote.Query{
		Prefix:    "Sent'Script-",
		MimeTypes: []string{"text/plain", "application/vnd.openxmlformats-officedocument.wordprocessingml.document"},
	})
	assert.Equal(t,
		`trashed = false and name contains 'Sent\'Script-' and (mimeType = 'text/plain' or mimeType = 'application/vnd.openxmlformats-officedocument.wordprocessingml.document')`,
		q)
}
