package store

import (
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordAndRecent(t *testing.T) {
	s, err := Open(":memory:")
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Record(Entry{Channel: "local", Identifier: "/a/SentScript-proj-1a2b-1.txt", ProjectID: "proj-1a2b", State: StateSucceeded, Digest: Digest("<# one")}))
	require.NoError(t, s.Record(Entry{Channel: "remote", Identifier: "docid", State: StateMalformed, Detail: "not a bundle name"}))
	require.NoError(t, s.Record(Entry{Channel: "local", Identifier: "/a/SentScript-proj-1a2b-2.txt", State: StateDeclined}))

	entries, err := s.Recent(2)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, StateDeclined, entries[0].State)
	assert.Equal(t, "docid", entries[1].Identifier)
	assert.Equal(t, "not a bundle name", entries[1].Detail)
	assert.WithinDuration(t, time.Now(), entries[0].CreatedAt, time.Minute)

	all, err := s.Recent(0)
	require.NoError(t, err)
	assert.Len(t, all, 3)
	assert.Equal(t, Digest("<# one"), all[2].Digest)
}

func TestPersistsAcrossOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "history.db")

	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Record(Entry{Channel: "local", Identifier: "x", State: StateFailed}))
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()
	entries, err := s.Recent(10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, StateFailed, entries[0].State)
}

func TestMigratesLedgerWithoutDigest(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")

	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	_, err = db.Exec(`CREATE TABLE bundle_events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		channel TEXT NOT NULL,
		identifier TEXT NOT NULL,
		project_id TEXT NOT NULL DEFAULT '',
		label TEXT NOT NULL DEFAULT '',
		state TEXT NOT NULL,
		detail TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL
	)`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	s, err := Open(path)
	require.NoError(t, err)
	defer s.Close()
	require.NoError(t, s.Record(Entry{Channel: "local", Identifier: "y", State: StateSucceeded, Digest: "blake3:00"}))

	entries, err := s.Recent(1)
	require.NoError(t, err)
	assert.Equal(t, "blake3:00", entries[0].Digest)
}

func TestDigest(t *testing.T) {
	a := Digest("<# patch")
	assert.Equal(t, a, Digest("<# patch"))
	assert.NotEqual(t, a, Digest("<# patch2"))
	assert.Len(t, a, len("blake3:")+64)
}
