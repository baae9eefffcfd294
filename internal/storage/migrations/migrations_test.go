package migrations

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostgres_Ordered(t *testing.T) {
	files, err := Postgres()
	require.NoError(t, err)
	require.Len(t, files, 3)

	assert.Equal(t, "001_accounts.sql", files[0].Name)
	assert.Equal(t, "002_transactions.sql", files[1].Name)
	assert.Equal(t, "003_ledger_progress.sql", files[2].Name)
	for _, f := range files {
		assert.Contains(t, f.SQL, "IF NOT EXISTS", f.Name)
	}
}

func TestClickhouse_SingleTable(t *testing.T) {
	files, err := Clickhouse()
	require.NoError(t, err)
	require.Len(t, files, 1)

	stmts := files[0].Statements()
	require.Len(t, stmts, 1)
	assert.True(t, strings.Contains(stmts[0], "CREATE TABLE IF NOT EXISTS instruction_events"))
}

func TestStatements(t *testing.T) {
	tests := []struct {
		name string
		sql  string
		want []string
	}{
		{
			name: "two statements",
			sql:  "CREATE TABLE a (x Int8);\nCREATE TABLE b (y Int8);\n",
			want: []string{"CREATE TABLE a (x Int8)", "CREATE TABLE b (y Int8)"},
		},
		{
			name: "semicolon in string literal",
			sql:  "INSERT INTO t VALUES ('a;b');",
			want: []string{"INSERT INTO t VALUES ('a;b')"},
		},
		{
			name: "escaped quote",
			sql:  "SELECT 'it''s; fine'; SELECT 2",
			want: []string{"SELECT 'it''s; fine'", "SELECT 2"},
		},
		{
			name: "semicolon in comments",
			sql:  "-- drop; later\nSELECT 1 /* a; b */;",
			want: []string{"-- drop; later\nSELECT 1 /* a; b */"},
		},
		{
			name: "trailing comment only",
			sql:  "SELECT 1;\n-- end\n",
			want: []string{"SELECT 1"},
		},
		{
			name: "empty",
			sql:  "  \n",
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Migration{Name: "x.sql", SQL: tt.sql}.Statements()
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDatabaseFromDSN(t *testing.T) {
	db, err := databaseFromDSN("clickhouse://default:pw@localhost:9000/ledger")
	require.NoError(t, err)
	assert.Equal(t, "ledger", db)

	_, err = databaseFromDSN("clickhouse://localhost:9000")
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "pw")

	assert.Equal(t, "`we``ird`", quoteIdent("we`ird"))
}
