//go:build integration || !unit

package mysql_test

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"testing"

	_ "github.com/go-sql-driver/mysql"
	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"

	"bookhub/internal/domain"
	mysqlrepo "bookhub/internal/storage/mysql"
)

func mustEnv(t *testing.T, k string) string {
	t.Helper()
	v := os.Getenv(k)
	if v == "" {
		t.Fatalf("%s not set; export it (e.g. MIGRATIONS_DIR=/path/to/sql)", k)
	}
	return v
}

func applyMigrations(t *testing.T, db *sql.DB) {
	t.Helper()
	dir := mustEnv(t, "MIGRATIONS_DIR")

	st, err := os.Stat(dir)
	if err != nil || !st.IsDir() {
		t.Fatalf("MIGRATIONS_DIR=%s is not a directory or missing", dir)
	}

	ents, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read migrations dir: %v", err)
	}
	var files []string
	for _, e := range ents {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".sql" {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	if len(files) == 0 {
		t.Fatalf("no .sql files in %s", dir)
	}
	sort.Strings(files)

	for _, f := range files {
		sqlBytes, err := os.ReadFile(f)
		if err != nil {
			t.Fatalf("read %s: %v", f, err)
		}
		if _, err := db.Exec(string(sqlBytes)); err != nil {
			t.Fatalf("exec %s: %v", f, err)
		}
	}
}

func TestRepo_MySQL_SeedAndQuery(t *testing.T) {
	// Start isolated MySQL; let Docker pick a free host port.
	pool, err := dockertest.NewPool("")
	if err != nil {
		t.Fatalf("dockertest: %v", err)
	}

	runOpts := &dockertest.RunOptions{
		Repository: "mysql",
		Tag:        "8.0.36",
		Env: []string{
			"MYSQL_ROOT_PASSWORD=root",
			"MYSQL_DATABASE=bookhub",
		},
	}
	resource, err := pool.RunWithOptions(runOpts, func(hc *docker.HostConfig) {
		hc.AutoRemove = true
		hc.RestartPolicy = docker.RestartPolicy{Name: "no"}
	})
	if err != nil {
		t.Fatalf("run mysql: %v", err)
	}
	t.Cleanup(func() { _ = pool.Purge(resource) })

	hostPort := resource.GetPort("3306/tcp")
	dsn := fmt.Sprintf("root:%s@tcp(127.0.0.1:%s)/%s?parseTime=true&multiStatements=true&charset=utf8mb4,utf8&loc=UTC",
		"root", hostPort, "bookhub")

	var db *sql.DB
	if err := pool.Retry(func() error {
		var e error
		db, e = sql.Open("mysql", dsn)
		if e != nil {
			return e
		}
		return db.Ping()
	}); err != nil {
		t.Fatalf("connect mysql: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	applyMigrations(t, db)

	repo := mysqlrepo.New(db)
	ctx := context.Background()

	b := domain.Book{
		ID:          "truth-justice",
		Title:       "Truth Without Justice",
		Author:      "TURYAHIKAYO EVEREST",
		Description: "A story of truth pursued past the point where justice can follow.",
		CoverURL:    "https://placehold.co/300x450",
	}
	if err := repo.UpsertBook(ctx, b); err != nil {
		t.Fatalf("UpsertBook: %v", err)
	}
	links := []domain.BookLink{
		{Name: "Draft2Digital", URL: "https://books2read.com/u/truth"},
		{Name: "Amazon", URL: "https://example.com/amazon/truth"},
	}
	if err := repo.UpsertLinks(ctx, b.ID, links); err != nil {
		t.Fatalf("UpsertLinks: %v", err)
	}

	// Upsert again with a shorter link list; replace-wholesale must win.
	if err := repo.UpsertBook(ctx, b); err != nil {
		t.Fatalf("re-UpsertBook: %v", err)
	}
	if err := repo.UpsertLinks(ctx, b.ID, links[:1]); err != nil {
		t.Fatalf("re-UpsertLinks: %v", err)
	}

	got, err := repo.GetBook(ctx, "truth-justice")
	if err != nil {
		t.Fatalf("GetBook: %v", err)
	}
	if got.Title != b.Title || got.Author != b.Author {
		t.Fatalf("unexpected book: %+v", got)
	}
	if len(got.Links) != 1 || got.Links[0].Name != "Draft2Digital" {
		t.Fatalf("unexpected links: %+v", got.Links)
	}

	if _, err := repo.GetBook(ctx, "nope"); err != domain.ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	// Second title to exercise ListBooks ordering.
	b2 := domain.Book{ID: "rising-disgrace", Title: "Rising From Disgrace"}
	if err := repo.UpsertBook(ctx, b2); err != nil {
		t.Fatalf("UpsertBook b2: %v", err)
	}
	all, err := repo.ListBooks(ctx)
	if err != nil {
		t.Fatalf("ListBooks: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 books, got %d", len(all))
	}
	if all[0].ID != "rising-disgrace" || all[1].ID != "truth-justice" {
		t.Fatalf("unexpected order: %s, %s", all[0].ID, all[1].ID)
	}
}
