package sheetstore

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/angelmondragon/palletflow/internal/ledger"
	"github.com/angelmondragon/palletflow/internal/schema"
	"github.com/angelmondragon/palletflow/pkg/config"
	"github.com/angelmondragon/palletflow/pkg/db/models"
	"github.com/angelmondragon/palletflow/pkg/enums"
	pferrors "github.com/angelmondragon/palletflow/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

var testSheets = Sheets{
	Build:  "Pallet_Build_IB_04",
	Ledger: "Pallet_Transaction_Ledger",
	Status: "Pallet_Status_02",
	GRN:    "GRN_Entry_IB_01",
}

func newTestStore(t *testing.T, decorate bool) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "warehouse.xlsx")
	require.NoError(t, Init(path, testSheets))
	store, err := New(config.StoreConfig{
		Backend:           config.StoreBackendXLSX,
		WorkbookPath:      path,
		BuildSheet:        testSheets.Build,
		LedgerSheet:       testSheets.Ledger,
		StatusSheet:       testSheets.Status,
		GRNSheet:          testSheets.GRN,
		DecorateOccupancy: decorate,
	})
	require.NoError(t, err)
	return store, path
}

func TestBuildsRoundTrip(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t, false)

	ts := time.Date(2024, 3, 5, 8, 30, 0, 0, time.UTC)
	rec := &models.BuildRecord{PalletID: "P1", GRNID: "G1", PalletGRN: "P1-G1", Timestamp: &ts, SKUID: "S1", QuantityBoxes: 10, ExpiryDate: "2025-01-01"}
	require.NoError(t, store.Builds().Create(ctx, rec))
	require.NoError(t, store.Builds().Create(ctx, &models.BuildRecord{PalletID: "P2", GRNID: "G1", VehicleCompleted: true}))
	assert.Equal(t, int64(1), rec.RowNum)

	table, err := store.Builds().List(ctx)
	require.NoError(t, err)
	assert.NoError(t, table.Columns.Require(schema.Build.Name, schema.Build.Columns...))
	require.Len(t, table.Records, 2)

	got := table.Records[0]
	assert.Equal(t, "P1", got.PalletID)
	assert.Equal(t, int64(10), got.QuantityBoxes)
	assert.Equal(t, "2025-01-01", got.ExpiryDate)
	assert.False(t, got.VehicleCompleted)
	require.NotNil(t, got.Timestamp)
	assert.True(t, got.Timestamp.Equal(ts))

	latest, ok := table.Latest()
	require.True(t, ok)
	assert.Equal(t, int64(2), latest.RowNum)
	assert.True(t, latest.VehicleCompleted)
	assert.Nil(t, latest.Timestamp)
}

func TestBuildsDecodeLooseCells(t *testing.T) {
	ctx := context.Background()
	store, path := newTestStore(t, false)

	x, err := excelize.OpenFile(path)
	require.NoError(t, err)
	// GRN_ID, Pallet_ID, Pallet_GRN, Timestamp, ..., Expiry_Date, Vehicle_Completed
	require.NoError(t, x.SetSheetRow(testSheets.Build, "A2", &[]any{7001, 1001.0, "1001-7001", 45357.5, "S1", "", "", 12, 45658, ""}))
	require.NoError(t, x.Save())
	require.NoError(t, x.Close())

	table, err := store.Builds().List(ctx)
	require.NoError(t, err)
	require.Len(t, table.Records, 1)
	rec := table.Records[0]
	assert.Equal(t, "1001", rec.PalletID)
	assert.Equal(t, "7001", rec.GRNID)
	assert.Equal(t, "2025-01-01", rec.ExpiryDate)
	assert.True(t, rec.VehicleCompleted, "blank flag counts as complete")
	require.NotNil(t, rec.Timestamp)
	assert.Equal(t, time.Date(2024, 3, 6, 12, 0, 0, 0, time.UTC), *rec.Timestamp)

	_, ok := table.LatestFor("1001")
	assert.True(t, ok)
}

func TestBuildsFlagUnreadableCellsPerRow(t *testing.T) {
	ctx := context.Background()
	store, path := newTestStore(t, false)

	x, err := excelize.OpenFile(path)
	require.NoError(t, err)
	require.NoError(t, x.SetSheetRow(testSheets.Build, "A2", &[]any{"G0", "P0", "P0-G0", "2024-03-05", "S0", "", "", "ten"}))
	require.NoError(t, x.SetSheetRow(testSheets.Build, "A3", &[]any{"G1", "P1", "P1-G1", "2024-03-06", "S1", "", "", 10}))
	require.NoError(t, x.Save())
	require.NoError(t, x.Close())

	table, err := store.Builds().List(ctx)
	require.NoError(t, err)
	require.Len(t, table.Records, 2)
	assert.True(t, pferrors.IsCode(table.RowError(1), pferrors.CodeValidation), "got %v", table.RowError(1))
	assert.NoError(t, table.RowError(2))
	assert.Zero(t, table.Records[0].QuantityBoxes)

	writer, err := ledger.NewService(store.Builds(), store.Ledger())
	require.NoError(t, err)
	res, err := writer.RecordBuilt(ctx)
	require.NoError(t, err)
	assert.Equal(t, ledger.OutcomeRecorded, res.Outcome)
	require.NotNil(t, res.Fact)
	assert.Equal(t, int64(10), res.Fact.QtyChange)
}

func TestUnreadableLatestBuildIsRejected(t *testing.T) {
	ctx := context.Background()
	store, path := newTestStore(t, false)

	x, err := excelize.OpenFile(path)
	require.NoError(t, err)
	require.NoError(t, x.SetSheetRow(testSheets.Build, "A2", &[]any{"G1", "P1", "P1-G1", "not a date"}))
	require.NoError(t, x.Save())
	require.NoError(t, x.Close())

	writer, err := ledger.NewService(store.Builds(), store.Ledger())
	require.NoError(t, err)
	_, err = writer.RecordBuilt(ctx)
	assert.True(t, pferrors.IsCode(err, pferrors.CodeValidation), "got %v", err)

	facts, err := store.Ledger().List(ctx)
	require.NoError(t, err)
	assert.Empty(t, facts.Facts)
}

func TestExponentShapedCodesStayVerbatim(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t, false)
	writer, err := ledger.NewService(store.Builds(), store.Ledger())
	require.NoError(t, err)

	require.NoError(t, store.Builds().Create(ctx, &models.BuildRecord{PalletID: "12000", GRNID: "G1", BatchNumber: "1E5", SKUID: "2E4"}))
	first, err := writer.RecordBuilt(ctx)
	require.NoError(t, err)
	assert.Equal(t, ledger.OutcomeRecorded, first.Outcome)

	require.NoError(t, store.Builds().Create(ctx, &models.BuildRecord{PalletID: "12E3", GRNID: "G1"}))
	second, err := writer.RecordBuilt(ctx)
	require.NoError(t, err)
	assert.Equal(t, ledger.OutcomeRecorded, second.Outcome, "12E3 is a different pallet from 12000")

	table, err := store.Builds().List(ctx)
	require.NoError(t, err)
	assert.Equal(t, "1E5", table.Records[0].BatchNumber)
	assert.Equal(t, "2E4", table.Records[0].SKUID)
	assert.Equal(t, "12E3", table.Records[1].PalletID)

	facts, err := store.Ledger().List(ctx)
	require.NoError(t, err)
	require.Len(t, facts.Facts, 2)
	assert.Equal(t, "1E5", facts.Facts[0].BatchNo)
}

func TestMissingSheetIsSchemaError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "partial.xlsx")
	require.NoError(t, Init(path, testSheets))
	store, err := New(config.StoreConfig{WorkbookPath: path, BuildSheet: "Nope"})
	require.NoError(t, err)

	_, err = store.Builds().List(context.Background())
	assert.True(t, pferrors.IsCode(err, pferrors.CodeSchema), "got %v", err)
}

func TestLedgerAppendAndList(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t, false)

	ts := time.Date(2024, 3, 5, 8, 0, 0, 0, time.UTC)
	fact := &models.LedgerFact{
		Timestamp: ts, ActionType: enums.ActionTypeBuilt, PalletGRN: "P1-G1", PalletID: "P1", GRNID: "G1",
		SKUID: "S1", QtyChange: 10, Status: enums.LedgerStatusReadyForPutaway,
	}
	require.NoError(t, store.Ledger().Append(ctx, fact))
	assert.Equal(t, int64(1), fact.RowNum)
	require.NoError(t, store.Ledger().Append(ctx, &models.LedgerFact{Timestamp: ts, ActionType: "Relabelled", PalletID: "P1", GRNID: "G1"}))

	table, err := store.Ledger().List(ctx)
	require.NoError(t, err)
	assert.NoError(t, table.Columns.Require(schema.Ledger.Name, schema.WriterLedgerColumns...))
	require.Len(t, table.Facts, 2)
	assert.Equal(t, enums.ActionTypeBuilt, table.Facts[0].ActionType)
	assert.Equal(t, int64(10), table.Facts[0].QtyChange)
	assert.True(t, table.Facts[0].Timestamp.Equal(ts))
	assert.Equal(t, enums.ActionType("Relabelled"), table.Facts[1].ActionType)
	assert.True(t, table.HasBuilt("P1", "G1"))
}

func TestStatusUpdateWritesOnlyAffectedRows(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t, true)

	require.NoError(t, store.Status().Create(ctx, &models.PalletStatus{PalletID: "P1", LocationID: "A-1"}))
	require.NoError(t, store.Status().Create(ctx, &models.PalletStatus{PalletID: "P2", LocationID: "A-2", OccupancyStatus: enums.OccupancyStatusEmpty}))

	table, err := store.Status().List(ctx)
	require.NoError(t, err)
	assert.NoError(t, table.Columns.Require(schema.Status.Name, schema.MaterializerStatusColumns...))
	row, ok := table.Find("P1")
	require.True(t, ok)

	ts := time.Date(2024, 3, 5, 8, 0, 0, 0, time.UTC)
	row.OccupancyStatus = enums.OccupancyStatusOccupied
	row.AssignmentStatus = enums.AssignmentStatusUnassigned
	row.CurrentQty = 10
	row.LastLedgerAt = &ts
	row.MaterializedAt = &ts
	require.NoError(t, store.Status().Update(ctx, []models.PalletStatus{row}))

	table, err = store.Status().List(ctx)
	require.NoError(t, err)
	got, ok := table.Find("P1")
	require.True(t, ok)
	assert.True(t, got.SameState(row), "decorated labels decode back to the same state")
	other, _ := table.Find("P2")
	assert.Equal(t, enums.OccupancyStatusEmpty, other.OccupancyStatus)
	assert.Equal(t, "A-2", other.LocationID)

	err = store.Status().Update(ctx, []models.PalletStatus{{PalletID: "P9"}})
	assert.True(t, pferrors.IsCode(err, pferrors.CodeNotFound), "got %v", err)
}

func TestStatusWritesDecoratedLabels(t *testing.T) {
	ctx := context.Background()
	store, path := newTestStore(t, true)
	require.NoError(t, store.Status().Create(ctx, &models.PalletStatus{PalletID: "P1", OccupancyStatus: enums.OccupancyStatusOccupied}))

	x, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer x.Close()
	v, err := x.GetCellValue(testSheets.Status, "B2")
	require.NoError(t, err)
	assert.Equal(t, enums.OccupancyStatusOccupied.Decorated(), v)
}

func TestGRNUpdateStatus(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t, false)
	require.NoError(t, store.GRN().Create(ctx, &models.GRNEntry{GRNID: "G1", Status: "Received"}))
	require.NoError(t, store.GRN().Create(ctx, &models.GRNEntry{GRNID: "G2"}))

	require.NoError(t, store.GRN().UpdateStatus(ctx, "G2", enums.GRNStatusUnloadingInProgress))

	table, err := store.GRN().List(ctx)
	require.NoError(t, err)
	g1, _ := table.Find("G1")
	g2, _ := table.Find("G2")
	assert.Equal(t, "Received", g1.Status)
	assert.Equal(t, enums.GRNStatusUnloadingInProgress, g2.Status)

	err = store.GRN().UpdateStatus(ctx, "G404", enums.GRNStatusUnloadingInProgress)
	assert.True(t, pferrors.IsCode(err, pferrors.CodeNotFound), "got %v", err)
}

func TestNewRequiresPath(t *testing.T) {
	_, err := New(config.StoreConfig{})
	assert.Error(t, err)
}
