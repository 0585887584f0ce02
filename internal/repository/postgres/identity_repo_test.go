package postgres

import (
	"context"
	"testing"

	pgxmock "github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/require"
)

func TestIdentityRepo_GetOrCreateAlias(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewIdentityRepo(db)
	ctx := context.Background()

	// First use: the candidate wins and comes back.
	mock.ExpectQuery(`INSERT INTO anonymous_users`).
		WithArgs("fp", "anon-aaaaaaaaaaaa").
		WillReturnRows(pgxmock.NewRows([]string{"alias"}).AddRow("anon-aaaaaaaaaaaa"))

	alias, err := r.GetOrCreateAlias(ctx, "fp", "anon-aaaaaaaaaaaa")
	require.NoError(t, err)
	require.Equal(t, "anon-aaaaaaaaaaaa", alias)

	// Later calls offer a fresh candidate but the stored alias wins.
	mock.ExpectQuery(`INSERT INTO anonymous_users`).
		WithArgs("fp", "anon-bbbbbbbbbbbb").
		WillReturnRows(pgxmock.NewRows([]string{"alias"}).AddRow("anon-aaaaaaaaaaaa"))

	alias, err = r.GetOrCreateAlias(ctx, "fp", "anon-bbbbbbbbbbbb")
	require.NoError(t, err)
	require.Equal(t, "anon-aaaaaaaaaaaa", alias)

	require.NoError(t, mock.ExpectationsWereMet())
}
