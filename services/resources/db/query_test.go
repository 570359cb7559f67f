package db

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func columns(list string) []string {
	fields := strings.Split(list, ",")
	for i, f := range fields {
		fields[i] = strings.TrimSpace(f)
	}
	return fields
}

func TestJoinedColumnsMatchResourceColumns(t *testing.T) {
	plain := columns(resourceColumns)
	joined := columns(joinedResourceColumns)
	require.Len(t, joined, len(plain))
	for i, c := range plain {
		require.Equal(t, "r."+c, joined[i])
	}
	require.Contains(t, searchResources, joinedResourceColumns)
}
