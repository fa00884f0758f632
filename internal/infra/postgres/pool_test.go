package postgres

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSchemaStatements(t *testing.T) {
	stmts := schemaStatements()
	require.Len(t, stmts, 5)
	require.Equal(t, "CREATE EXTENSION IF NOT EXISTS vector", stmts[0])
	require.True(t, strings.Contains(stmts[1], "embedding vector(384) NOT NULL"))
	for _, stmt := range stmts {
		require.False(t, strings.HasSuffix(stmt, ";"))
	}
}
