package postgres

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestPgErrorHelpers(t *testing.T) {
	dup := fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505", ConstraintName: "folders_owner_parent_name_key"})
	fk := &pgconn.PgError{Code: "23503"}
	other := errors.New("boom")

	tests := []struct {
		name      string
		err       error
		duplicate bool
		foreign   bool
		noRows    bool
		badText   bool
	}{
		{name: "unique violation", err: dup, duplicate: true},
		{name: "foreign key violation", err: fk, foreign: true},
		{name: "no rows", err: fmt.Errorf("get: %w", pgx.ErrNoRows), noRows: true},
		{name: "invalid uuid", err: &pgconn.PgError{Code: "22P02"}, badText: true},
		{name: "plain error", err: other},
		{name: "nil", err: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.duplicate, IsPgDuplicateError(tt.err))
			assert.Equal(t, tt.foreign, IsPgForeignKeyError(tt.err))
			assert.Equal(t, tt.noRows, IsPgNoRowsError(tt.err))
			assert.Equal(t, tt.badText, IsPgInvalidTextError(tt.err))
		})
	}

	assert.Equal(t, "folders_owner_parent_name_key", constraintName(dup))
	assert.Empty(t, constraintName(other))
}
