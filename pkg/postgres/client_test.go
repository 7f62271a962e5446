package postgres

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/rankengine/pkg/config"
)

// newTestClient connects to the database named by RANK_TEST_POSTGRES_HOST or
// skips the test.
func newTestClient(t *testing.T) *Client {
	t.Helper()
	host := os.Getenv("RANK_TEST_POSTGRES_HOST")
	if host == "" {
		t.Skip("RANK_TEST_POSTGRES_HOST not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	c, err := New(ctx, config.PostgresConfig{
		Host:         host,
		Port:         5432,
		Database:     "rankengine",
		User:         "rankengine",
		Password:     "rankengine",
		SSLMode:      "disable",
		MaxOpenConns: 2,
		MaxIdleConns: 1,
	})
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func TestEnsureSchemaAndInTx(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()
	require.NoError(t, c.EnsureSchema(ctx))
	require.NoError(t, c.EnsureSchema(ctx))

	boom := errors.New("boom")
	err := c.InTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `INSERT INTO documents (id, text) VALUES (-1, 'rolled back')`); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	var n int
	require.NoError(t, c.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents WHERE id = -1`).Scan(&n))
	assert.Equal(t, 0, n)
}
