package repositories

import (
	"github.com/maxaizer/scout-pipeline/internal/config"
	"github.com/maxaizer/scout-pipeline/internal/entities"
	"github.com/stretchr/testify/require"
	"path/filepath"
	"testing"
)

func newTestDb(t *testing.T) *DbContext {
	t.Helper()

	dbCtx, err := NewDbContext(config.DBConfig{
		Driver:           config.DriverSqlite,
		ConnectionString: filepath.Join(t.TempDir(), "test.db"),
	})
	require.NoError(t, err)
	require.NoError(t, dbCtx.Migrate())

	t.Cleanup(func() { _ = dbCtx.Close() })
	return dbCtx
}

func ptr(s string) *string {
	return &s
}

func seedPosition(t *testing.T, dbCtx *DbContext) entities.Position {
	position := entities.Position{PoolName: "Backend", CompanyName: "Acme", Demand: "1"}
	require.NoError(t, dbCtx.DB.Create(&position).Error)
	return position
}

func seedCandidates(t *testing.T, dbCtx *DbContext, keys ...string) {
	for _, key := range keys {
		candidate := entities.Candidate{
			SourceKey: key,
			Location:  ptr("서울"),
			MySkills:  ptr("golang,postgresql"),
			WorkYear:  ptr("4년"),
			PageURL:   ptr("https://example.com/" + key),
		}
		require.NoError(t, dbCtx.DB.Create(&candidate).Error)
	}
}
