package grn

import (
	"context"
	"errors"
	"testing"

	"github.com/angelmondragon/palletflow/internal/schema"
	"github.com/angelmondragon/palletflow/pkg/db/dbtest"
	"github.com/angelmondragon/palletflow/pkg/db/models"
	"github.com/angelmondragon/palletflow/pkg/enums"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestRepositoryUpdateStatus(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(dbtest.Open(t))
	require.NoError(t, repo.Create(ctx, &models.GRNEntry{GRNID: "G1", Status: "Received"}))
	require.NoError(t, repo.Create(ctx, &models.GRNEntry{GRNID: "G2"}))

	require.NoError(t, repo.UpdateStatus(ctx, "G1", enums.GRNStatusUnloadingInProgress))

	table, err := repo.List(ctx)
	require.NoError(t, err)
	assert.NoError(t, table.Columns.Require(schema.GRN.Name, schema.GRN.Columns...))
	entry, ok := table.Find("G1")
	require.True(t, ok)
	assert.Equal(t, enums.GRNStatusUnloadingInProgress, entry.Status)
	other, ok := table.Find("G2")
	require.True(t, ok)
	assert.Empty(t, other.Status)
}

func TestRepositoryUpdateStatusMissingEntry(t *testing.T) {
	repo := NewRepository(dbtest.Open(t))
	err := repo.UpdateStatus(context.Background(), "G404", enums.GRNStatusUnloadingInProgress)
	assert.True(t, errors.Is(err, gorm.ErrRecordNotFound))
}
