package tx

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

func openDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "tx.db"))
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })
	_, err = db.Exec(`CREATE TABLE items (id INTEGER PRIMARY KEY)`)
	require.NoError(t, err)
	return db
}

func count(t *testing.T, db *sql.DB) int {
	t.Helper()
	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM items`).Scan(&n))
	return n
}

func TestRun(t *testing.T) {
	ctx := context.Background()

	t.Run("commits on success", func(t *testing.T) {
		db := openDB(t)
		err := Run(ctx, db, nil, func(ctx context.Context) error {
			_, err := ExecutorFor(ctx, db).ExecContext(ctx, `INSERT INTO items (id) VALUES (1)`)
			return err
		})
		require.NoError(t, err)
		assert.Equal(t, 1, count(t, db))
	})

	t.Run("rolls back on error", func(t *testing.T) {
		db := openDB(t)
		errBoom := errors.New("boom")
		err := Run(ctx, db, nil, func(ctx context.Context) error {
			if _, err := ExecutorFor(ctx, db).ExecContext(ctx, `INSERT INTO items (id) VALUES (1)`); err != nil {
				return err
			}
			return errBoom
		})
		assert.ErrorIs(t, err, errBoom)
		assert.Equal(t, 0, count(t, db))
	})

	t.Run("nested run joins the outer transaction", func(t *testing.T) {
		db := openDB(t)
		err := Run(ctx, db, nil, func(outer context.Context) error {
			outerTx, ok := From(outer)
			require.True(t, ok)
			return Run(outer, db, nil, func(inner context.Context) error {
				innerTx, ok := From(inner)
				require.True(t, ok)
				assert.Same(t, outerTx, innerTx)
				return nil
			})
		})
		require.NoError(t, err)
	})
}

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()
	_, ok := From(ctx)
	assert.False(t, ok)
	assert.Equal(t, ctx, WithTx(ctx, nil))

	db := openDB(t)
	assert.Equal(t, Executor(db), ExecutorFor(ctx, db))
}
