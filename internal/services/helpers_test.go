package services

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"jobsphere/internal/db"
	"jobsphere/internal/models"
	"jobsphere/internal/repositories"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	conn, err := db.Open(context.Background(), db.DriverSQLite, filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

var testArgon2 = Argon2Params{Time: 1, MemoryKiB: 64, Threads: 1}

func testAuth() AuthService {
	return NewAuthServiceWithParams(testArgon2)
}

type fakeMailer struct {
	mu      sync.Mutex
	welcome []string
	resets  map[string]string
	err     error
}

func (f *fakeMailer) SendWelcomeEmail(email, username string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.welcome = append(f.welcome, email)
	return f.err
}

func (f *fakeMailer) SendResetCodeEmail(email, code string, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.resets == nil {
		f.resets = map[string]string{}
	}
	f.resets[email] = code
	return f.err
}

type fakeSource struct {
	name  string
	jobs  []models.JobPosting
	calls []string
}

func (f *fakeSource) Name() string { return f.name }

func (f *fakeSource) Fetch(ctx context.Context, query, location string) []models.JobPosting {
	f.calls = append(f.calls, query+"|"+location)
	return append([]models.JobPosting(nil), f.jobs...)
}

func newUserRepo(t *testing.T) (repositories.UserRepository, *sql.DB) {
	conn := setupDB(t)
	return repositories.NewUserRepository(conn), conn
}
