package database

import (
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrationVersions(t *testing.T) {
	versions := migrationVersions()
	require.NotEmpty(t, versions)

	assert.True(t, sort.StringsAreSorted(versions), "migrations must apply in filename order")

	seen := make(map[string]bool, len(versions))
	for _, v := range versions {
		assert.True(t, strings.HasSuffix(v, ".sql"), v)
		assert.False(t, strings.ContainsRune(v, '/'), "version is a bare filename: %s", v)
		assert.False(t, seen[v], "duplicate migration %s", v)
		seen[v] = true

		sql, err := migrationFS.ReadFile("migrations/" + v)
		require.NoError(t, err)
		assert.NotEmpty(t, sql, "migration %s is empty", v)
	}
}
