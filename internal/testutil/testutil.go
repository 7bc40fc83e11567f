package testutil

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dom/account-auth/internal/api"
	"github.com/dom/account-auth/internal/config"
	"github.com/dom/account-auth/internal/repository"
	repoPostgres "github.com/dom/account-auth/internal/repository/postgres"
	"github.com/dom/account-auth/internal/service"
	"github.com/testcontainers/testcontainers-go"
	tcPostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	gormPostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// TestDB manages a testcontainers PostgreSQL instance
type TestDB struct {
	Container testcontainers.Container
	DB        *gorm.DB
	DSN       string
}

// NewTestDB creates a new PostgreSQL testcontainer and returns a migrated connection
func NewTestDB(t *testing.T) *TestDB {
	t.Helper()

	ctx := context.Background()

	container, err := tcPostgres.Run(ctx,
		"postgres:16-alpine",
		tcPostgres.WithDatabase("test_account_auth"),
		tcPostgres.WithUsername("test"),
		tcPostgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}

	testDB := &TestDB{Container: container}
	t.Cleanup(testDB.Cleanup)

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("failed to get connection string: %v", err)
	}

	db, err := gorm.Open(gormPostgres.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("failed to connect to database: %v", err)
	}

	if err := repoPostgres.Migrate(db); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	testDB.DB = db
	testDB.DSN = dsn
	return testDB
}

// Cleanup terminates the container
func (tdb *TestDB) Cleanup() {
	if tdb.Container != nil {
		tdb.Container.Terminate(context.Background())
	}
}

// Truncate clears all tables for test isolation
func (tdb *TestDB) Truncate(t *testing.T) {
	t.Helper()

	for _, table := range []string{"pending_mails", "tokens", "users"} {
		if err := tdb.DB.Exec(fmt.Sprintf("TRUNCATE TABLE %s CASCADE", table)).Error; err != nil {
			t.Logf("warning: failed to truncate %s: %v", table, err)
		}
	}
}

// TestConfig returns a configuration suitable for testing
func TestConfig() *config.Config {
	return &config.Config{
		Port:              "0",
		Environment:       "test",
		JWTAccessSecret:   "test-access-secret",
		JWTRefreshSecret:  "test-refresh-secret",
		AccessTokenTTL:    15 * time.Minute,
		RefreshTokenTTL:   15 * 24 * time.Hour,
		MailRetryInterval: time.Second,
		SMTP: config.SMTPConfig{
			Host: "localhost",
			Port: 2525,
			User: "mailer@example.com",
			From: "mailer@example.com",
		},
		APIURL:    "http://api.test",
		ClientURL: "http://client.test",
	}
}

// DiscardLogger returns a logger that drops everything
func DiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// NewTestServices builds the service layer over testDB with the given mailer
func NewTestServices(t *testing.T, testDB *TestDB, mailer *FakeMailer) (*repository.Repositories, *service.Services) {
	t.Helper()

	repos := repoPostgres.NewRepositories(testDB.DB)
	services, err := service.NewServices(repos, mailer, TestConfig(), DiscardLogger())
	if err != nil {
		t.Fatalf("failed to build services: %v", err)
	}
	return repos, services
}

// TestServer holds all components for integration testing
type TestServer struct {
	Server   *httptest.Server
	DB       *TestDB
	Repos    *repository.Repositories
	Services *service.Services
	Mailer   *FakeMailer
	Config   *config.Config
}

// NewTestServer creates a complete test server with all dependencies
func NewTestServer(t *testing.T) *TestServer {
	t.Helper()

	testDB := NewTestDB(t)
	cfg := TestConfig()
	mailer := NewFakeMailer()
	repos, services := NewTestServices(t, testDB, mailer)

	server := httptest.NewServer(api.NewRouter(services, cfg, DiscardLogger()))
	t.Cleanup(server.Close)

	return &TestServer{
		Server:   server,
		DB:       testDB,
		Repos:    repos,
		Services: services,
		Mailer:   mailer,
		Config:   cfg,
	}
}

// APIURL returns the full auth API URL for a given path
func (ts *TestServer) APIURL(path string) string {
	return fmt.Sprintf("%s/api/auth%s", ts.Server.URL, path)
}

// Client returns an HTTP client with its own cookie jar that does not follow redirects
func (ts *TestServer) Client(t *testing.T) *http.Client {
	t.Helper()

	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("failed to create cookie jar: %v", err)
	}
	return &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}
