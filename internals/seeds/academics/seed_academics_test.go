package academics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tuitionhub_backend/internals/databases/dbtest"
)

func TestSeedAcademicsIsRepeatable(t *testing.T) {
	db := dbtest.Open(t)

	require.NoError(t, SeedAcademicsFromJSON(db, "data_academics.json"))
	require.NoError(t, SeedAcademicsFromJSON(db, "data_academics.json"))

	counts := map[string]int64{}
	for _, table := range []string{"users", "students", "batches", "enrollments", "fee_plans"} {
		var n int64
		require.NoError(t, db.Table(table).Count(&n).Error)
		counts[table] = n
	}
	assert.Equal(t, map[string]int64{
		"users": 3, "students": 2, "batches": 2, "enrollments": 3, "fee_plans": 2,
	}, counts)
}

func TestSeedAcademicsMissingFile(t *testing.T) {
	db := dbtest.Open(t)
	assert.Error(t, SeedAcademicsFromJSON(db, "nope.json"))
}
