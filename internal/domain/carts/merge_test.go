package carts

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedRow satisfies pgx.Row for single-column scans.
type scriptedRow struct {
	err  error
	scan func(dest ...any) error
}

func (r scriptedRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	return r.scan(dest...)
}

// mergeDB scripts the two lookups Merge issues and records which write
// statements follow.
type mergeDB struct {
	guestCartID int64 // 0 means no open guest cart
	userItems   int

	discardedGuest bool
	droppedUser    bool
	adopted        bool
	adoptArgs      []any
}

func (d *mergeDB) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	switch {
	case strings.Contains(sql, "DELETE FROM carts WHERE id = $1"):
		d.discardedGuest = true
	case strings.Contains(sql, "DELETE FROM carts"):
		d.droppedUser = true
	case strings.Contains(sql, "UPDATE carts"):
		d.adopted = true
		d.adoptArgs = args
	}
	return pgconn.NewCommandTag("UPDATE 1"), nil
}

func (d *mergeDB) Query(context.Context, string, ...any) (pgx.Rows, error) {
	return nil, errors.New("unexpected query")
}

func (d *mergeDB) QueryRow(_ context.Context, sql string, _ ...any) pgx.Row {
	switch {
	case strings.Contains(sql, "guest_token = $1"):
		if d.guestCartID == 0 {
			return scriptedRow{err: pgx.ErrNoRows}
		}
		id := d.guestCartID
		return scriptedRow{scan: func(dest ...any) error {
			*dest[0].(*int64) = id
			return nil
		}}
	case strings.Contains(sql, "COUNT(ci.id)"):
		n := d.userItems
		return scriptedRow{scan: func(dest ...any) error {
			*dest[0].(*int) = n
			return nil
		}}
	}
	return scriptedRow{err: errors.New("unexpected query row")}
}

func TestMergeWithoutGuestCartIsNoop(t *testing.T) {
	db := &mergeDB{}
	repo := NewRepository(db)

	require.NoError(t, repo.Merge(context.Background(), "stale-token", 7))

	assert.False(t, db.discardedGuest)
	assert.False(t, db.droppedUser)
	assert.False(t, db.adopted)
}

func TestMergeKeepsUserCartWhenNonEmpty(t *testing.T) {
	db := &mergeDB{guestCartID: 42, userItems: 3}
	repo := NewRepository(db)

	require.NoError(t, repo.Merge(context.Background(), "guest-token", 7))

	assert.True(t, db.discardedGuest)
	assert.False(t, db.droppedUser)
	assert.False(t, db.adopted)
}

func TestMergeAdoptsGuestCartWhenUserCartEmpty(t *testing.T) {
	db := &mergeDB{guestCartID: 42, userItems: 0}
	repo := NewRepository(db)

	require.NoError(t, repo.Merge(context.Background(), "guest-token", 7))

	assert.False(t, db.discardedGuest)
	assert.True(t, db.droppedUser)
	require.True(t, db.adopted)
	require.Len(t, db.adoptArgs, 2)
	assert.Equal(t, int64(42), db.adoptArgs[0])
	assert.Equal(t, int64(7), db.adoptArgs[1])
}
