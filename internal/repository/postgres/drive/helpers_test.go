package drive_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/require"

	models "tgdrive/internal/domain/models/drive"
	"tgdrive/internal/repository/postgres"
)

const (
	ownerID  = "6f1c2d3e-4b5a-4c6d-8e7f-901a2b3c4d5e"
	folderID = "1a2b3c4d-5e6f-4a7b-8c9d-0e1f2a3b4c5d"
	parentID = "9f8e7d6c-5b4a-4f3e-8d2c-1b0a9f8e7d6c"
	fileID   = "c0ffee00-1234-4abc-9def-00112233aabb"
)

var stamp = time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)

func newMockConfig(t *testing.T) (pgxmock.PgxPoolIface, *postgres.RepositoryConfig) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)

	return mock, &postgres.RepositoryConfig{
		Pool:   mock,
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func pgErr(code string) error {
	return &pgconn.PgError{Code: code, Message: "pg error " + code}
}

func strPtr(s string) *string { return &s }

func folderRows(folders ...models.Folder) *pgxmock.Rows {
	rows := pgxmock.NewRows([]string{"id", "owner_id", "parent_id", "name", "created_at", "updated_at"})
	for _, f := range folders {
		rows.AddRow(f.ID, f.OwnerID, f.ParentID, f.Name, f.CreatedAt, f.UpdatedAt)
	}
	return rows
}

func fileRows(files ...models.File) *pgxmock.Rows {
	rows := pgxmock.NewRows([]string{
		"id", "owner_id", "parent_id", "name", "size", "mime_type",
		"remote_message_ref", "remote_blob_ref", "created_at", "updated_at",
	})
	for _, f := range files {
		rows.AddRow(f.ID, f.OwnerID, f.ParentID, f.Name, f.Size, f.MimeType,
			f.RemoteMessageRef, f.RemoteBlobRef, f.CreatedAt, f.UpdatedAt)
	}
	return rows
}

// abortedTx behaves like a transaction after a failed statement: every
// further statement fails with err.
type abortedTx struct {
	pgx.Tx
	err error
}

func (t abortedTx) QueryRow(context.Context, string, ...any) pgx.Row { return errRow{t.err} }

func (t abortedTx) Query(context.Context, string, ...any) (pgx.Rows, error) { return nil, t.err }

func (t abortedTx) Exec(context.Context, string, ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, t.err
}

type errRow struct{ err error }

func (r errRow) Scan(...any) error { return r.err }
