package source

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/rankengine/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/rankengine/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/rankengine/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/rankengine/pkg/postgres"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestFileSourceLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "docs.jsonl")
	writeFile(t, path, `{"id":1,"text":"Ana are mere"}

{"id":2,"text":"Ana Ana Ana Ana Ana Ana Ana Ana"}
`)
	docs, err := NewFileSource(path).Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []index.Document{
		{ID: 1, Text: "Ana are mere"},
		{ID: 2, Text: "Ana Ana Ana Ana Ana Ana Ana Ana"},
	}, docs)
}

func TestFileSourceLoadErrors(t *testing.T) {
	dir := t.TempDir()
	_, err := NewFileSource(filepath.Join(dir, "missing.jsonl")).Load(context.Background())
	assert.Error(t, err)

	bad := filepath.Join(dir, "bad.jsonl")
	writeFile(t, bad, "{\"id\":1,\"text\":\"ok\"}\n{\"id\":\n")
	_, err = NewFileSource(bad).Load(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad.jsonl:2")

	negative := filepath.Join(dir, "negative.jsonl")
	writeFile(t, negative, `{"id":-3,"text":"x"}`)
	_, err = NewFileSource(negative).Load(context.Background())
	assert.Error(t, err)
}

func TestLoadInto(t *testing.T) {
	path := filepath.Join(t.TempDir(), "docs.jsonl")
	writeFile(t, path, "{\"id\":1,\"text\":\"a\"}\n{\"id\":1,\"text\":\"dup\"}\n{\"id\":2,\"text\":\"b\"}\n")
	engine := indexer.NewEngine(nil)

	added, err := LoadInto(context.Background(), NewFileSource(path), engine)
	require.NoError(t, err)
	assert.Equal(t, 2, added)

	added, err = LoadInto(context.Background(), NewFileSource(path), engine)
	require.NoError(t, err)
	assert.Zero(t, added)
	assert.Equal(t, 2, engine.IndexSize())
}

func TestFileSourceWatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "docs.jsonl")
	writeFile(t, path, "{\"id\":1,\"text\":\"first\"}\n")
	engine := indexer.NewEngine(nil)
	src := NewFileSource(path)
	src.debounce = 20 * time.Millisecond

	_, err := LoadInto(context.Background(), src, engine)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- src.Watch(ctx, engine) }()

	// Give the watcher time to register before writing.
	time.Sleep(100 * time.Millisecond)
	writeFile(t, path, "{\"id\":1,\"text\":\"first\"}\n{\"id\":2,\"text\":\"second\"}\n")

	assert.Eventually(t, func() bool { return engine.IndexSize() == 2 }, 5*time.Second, 20*time.Millisecond)
	cancel()
	require.NoError(t, <-done)
}

func TestPostgresSourceLoad(t *testing.T) {
	host := os.Getenv("RANK_TEST_POSTGRES_HOST")
	if host == "" {
		t.Skip("RANK_TEST_POSTGRES_HOST not set")
	}
	ctx := context.Background()
	db, err := postgres.New(ctx, config.PostgresConfig{
		Host:     host,
		Port:     5432,
		Database: "rankengine",
		User:     "rankengine",
		Password: "rankengine",
		SSLMode:  "disable",
	})
	require.NoError(t, err)
	defer db.Close()
	require.NoError(t, db.EnsureSchema(ctx))

	err = db.InTx(ctx, func(tx *sql.Tx) error {
		for _, doc := range []index.Document{{ID: 900002, Text: "beta"}, {ID: 900001, Text: "alpha"}} {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO documents (id, text) VALUES ($1, $2) ON CONFLICT (id) DO NOTHING`, doc.ID, doc.Text); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		db.DB.ExecContext(ctx, `DELETE FROM documents WHERE id IN (900001, 900002)`)
	})

	docs, err := NewPostgresSource(db).Load(ctx)
	require.NoError(t, err)
	var ids []int
	for _, d := range docs {
		if d.ID >= 900001 && d.ID <= 900002 {
			ids = append(ids, d.ID)
		}
	}
	assert.Equal(t, []int{900001, 900002}, ids)
}
