package db

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCopyInto_EmptyRows(t *testing.T) {
	n, err := CopyInto(context.Background(), nil, "staging.stg_semillas", []string{"cedula"}, nil)
	assert.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestCopyInto_SchemaQualified(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectCopyFrom(pgx.Identifier{"staging", "stg_semillas"}, []string{"cedula", "canton"}).WillReturnResult(2)

	n, err := CopyInto(context.Background(), mock, "staging.stg_semillas", []string{"cedula", "canton"}, [][]any{
		{"0912345678", "DAULE"},
		{"0998765432", "SAMBORONDON"},
	})
	assert.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}
