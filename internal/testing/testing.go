// package testing contains shared testing utilities
package testing

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"net/http"
	"os"
	"sync"
	"testing"

	"github.com/desertthunder/vibesync/internal/models"
	"github.com/desertthunder/vibesync/internal/shared"
)

// FakeRemote is an in-memory stand-in for the sync account.
//
// Uploads replace the stored snapshot, so consecutive syncs see their own output.
type FakeRemote struct {
	mu sync.Mutex

	Authenticated bool
	Snapshot      *models.RemoteSnapshot
	Uploads       []models.SyncPayload
	FetchErr      error
	UploadErr     error
	// Block, when set, is received from before FetchSnapshot returns.
	Block chan struct{}
}

// NewFakeRemote returns a signed-in remote with no data.
func NewFakeRemote() *FakeRemote {
	return &FakeRemote{Authenticated: true}
}

func (f *FakeRemote) IsAuthenticated() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Authenticated
}

func (f *FakeRemote) FetchSnapshot(ctx context.Context) (*models.RemoteSnapshot, error) {
	if f.Block != nil {
		select {
		case <-f.Block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FetchErr != nil {
		return nil, f.FetchErr
	}
	if f.Snapshot == nil {
		return &models.RemoteSnapshot{Message: models.NoSyncDataMessage}, nil
	}
	copied := *f.Snapshot
	return &copied, nil
}

func (f *FakeRemote) Upload(ctx context.Context, payload *models.SyncPayload) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.UploadErr != nil {
		return f.UploadErr
	}
	f.Uploads = append(f.Uploads, *payload)
	snapshot := models.SnapshotFromPayload(*payload)
	f.Snapshot = &snapshot
	return nil
}

// UploadCount returns the number of successful uploads.
func (f *FakeRemote) UploadCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Uploads)
}

// LastUpload returns the most recent payload, or nil.
func (f *FakeRemote) LastUpload() *models.SyncPayload {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.Uploads) == 0 {
		return nil
	}
	p := f.Uploads[len(f.Uploads)-1]
	return &p
}

// MustOpenLibrary opens a migrated in-memory library closed at test cleanup.
func MustOpenLibrary(t *testing.T) *sql.DB {
	t.Helper()

	db, err := shared.NewDatabase(shared.MemoryDatabase)
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	t.Cleanup(func() { db.Close() })
	return db
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

// FCloser simulates a failure when reading response body
type FCloser struct{}

func (f *FCloser) Read(p []byte) (n int, err error) {
	return 0, errors.New("read failed")
}

func (f *FCloser) Close() error {
	return nil
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
