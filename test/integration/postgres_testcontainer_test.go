//go:build integration

package integration

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"gorm.io/gorm"

	"github.com/sandeepkv93/account-lifecycle-service/internal/config"
	"github.com/sandeepkv93/account-lifecycle-service/internal/database"
)

const defaultPostgresTestImage = "docker.io/library/postgres:17-alpine"

func newPostgresDB(t *testing.T) *gorm.DB {
	t.Helper()

	ctx := context.Background()
	image := os.Getenv("POSTGRES_TEST_IMAGE")
	if strings.TrimSpace(image) == "" {
		image = defaultPostgresTestImage
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image: image,
			Env: map[string]string{
				"POSTGRES_USER":     "accounts",
				"POSTGRES_PASSWORD": "accounts",
				"POSTGRES_DB":       "accounts",
			},
			ExposedPorts: []string{"5432/tcp"},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("start postgres test container: %v", err)
	}
	t.Cleanup(func() {
		_ = container.Terminate(ctx)
	})

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("resolve postgres host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("resolve postgres port: %v", err)
	}

	cfg := &config.Config{
		DatabaseURL: fmt.Sprintf("postgres://accounts:accounts@%s:%s/accounts?sslmode=disable", host, port.Port()),
	}
	db, err := database.Open(cfg)
	if err != nil {
		t.Fatalf("open postgres: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate postgres: %v", err)
	}
	pending, err := database.PendingTables(ctx, db)
	if err != nil {
		t.Fatalf("pending tables: %v", err)
	}
	if len(pending) != 0 {
		t.Fatalf("expected schema to be complete, pending=%v", pending)
	}
	return db
}

func TestPostgresAccountLifecycle(t *testing.T) {
	s := newTestServerOnDB(t, newPostgresDB(t), testServerOptions{})
	const email = "pg-user@example.com"
	s.registerVerified(t, email)

	resp, env := s.do(t, http.MethodPost, "/api/v1/auth/register", map[string]string{
		"email":      "PG-USER@example.com",
		"first_name": "Ada",
		"last_name":  "Lovelace",
		"password":   testPassword,
		"password2":  testPassword,
	}, "")
	if resp.StatusCode != http.StatusConflict || env.Error == nil || env.Error.Code != "CONFLICT" {
		t.Fatalf("expected unique violation to map to conflict, got status=%d env=%+v", resp.StatusCode, env)
	}

	login := s.login(t, email, testPassword)
	resp, _ = s.do(t, http.MethodPost, "/api/v1/auth/logout", map[string]string{"refresh_token": login.RefreshToken}, login.AccessToken)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("logout failed: %d", resp.StatusCode)
	}
	resp, _ = s.do(t, http.MethodPost, "/api/v1/auth/token/refresh", map[string]string{"refresh": login.RefreshToken}, "")
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected revoked refresh token to fail, got %d", resp.StatusCode)
	}

	resp, _ = s.do(t, http.MethodGet, "/health/ready", nil, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected ready against postgres, got %d", resp.StatusCode)
	}
}
