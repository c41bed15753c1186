//go:build integration

package postgres_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"octopus/internal/platform/postgres"
	"octopus/pkg/testutil/containers"
)

func TestMigrate_IsIdempotent(t *testing.T) {
	pg := containers.GetManager().GetPostgres(t)

	require.NoError(t, postgres.Migrate(pg.DSN))

	version, dirty, err := postgres.MigrationVersion(pg.DSN)
	require.NoError(t, err)
	assert.False(t, dirty)
	assert.Equal(t, uint(4), version)
}
