package palletstatus

import (
	"context"
	"testing"
	"time"

	"github.com/angelmondragon/palletflow/internal/schema"
	"github.com/angelmondragon/palletflow/pkg/db/dbtest"
	"github.com/angelmondragon/palletflow/pkg/db/models"
	"github.com/angelmondragon/palletflow/pkg/enums"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRepositoryUpdateRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(dbtest.Open(t))

	require.NoError(t, repo.Create(ctx, &models.PalletStatus{PalletID: "P2", LocationID: "A-2", OccupancyStatus: enums.OccupancyStatusEmpty}))
	require.NoError(t, repo.Create(ctx, &models.PalletStatus{PalletID: "P1", LocationID: "A-1"}))

	table, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, table.Rows, 2)
	assert.Equal(t, "P1", table.Rows[0].PalletID)
	assert.Equal(t, int64(1), table.Rows[0].RowNum)
	assert.NoError(t, table.Columns.Require(schema.Status.Name, schema.MaterializerStatusColumns...))

	ts := time.Date(2024, 3, 5, 8, 0, 0, 0, time.UTC)
	row := table.Rows[0]
	row.OccupancyStatus = enums.OccupancyStatusOccupied
	row.AssignmentStatus = enums.AssignmentStatusUnassigned
	row.CurrentQty = 12
	row.SKUID = "S1"
	row.LastLedgerAt = &ts
	row.MaterializedAt = &ts
	require.NoError(t, repo.Update(ctx, []models.PalletStatus{row}))

	table, err = repo.List(ctx)
	require.NoError(t, err)
	got, ok := table.Find("P1")
	require.True(t, ok)
	assert.True(t, got.SameState(row))
	assert.Equal(t, "A-1", got.LocationID)
	require.NotNil(t, got.MaterializedAt)
	assert.True(t, got.MaterializedAt.Equal(ts))

	other, ok := table.Find("P2")
	require.True(t, ok)
	assert.Equal(t, enums.OccupancyStatusEmpty, other.OccupancyStatus)
	assert.Nil(t, other.MaterializedAt)
}

func TestRepositoryUpdateClearsFields(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(dbtest.Open(t))
	require.NoError(t, repo.Create(ctx, &models.PalletStatus{PalletID: "P1", LocationID: "A-1", SKUID: "S1", CurrentQty: 4}))

	require.NoError(t, repo.Update(ctx, []models.PalletStatus{{PalletID: "P1", OccupancyStatus: enums.OccupancyStatusEmpty}}))
	require.NoError(t, repo.Update(ctx, nil))

	table, err := repo.List(ctx)
	require.NoError(t, err)
	got, ok := table.Find("P1")
	require.True(t, ok)
	assert.Empty(t, got.LocationID)
	assert.Empty(t, got.SKUID)
	assert.Zero(t, got.CurrentQty)
}
