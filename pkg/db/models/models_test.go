package models

import (
	"testing"
	"time"

	"github.com/angelmondragon/palletflow/pkg/enums"
)

func TestPalletStatusSameState(t *testing.T) {
	ts := time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC)
	base := PalletStatus{
		PalletID:         "P1",
		OccupancyStatus:  enums.OccupancyStatusOccupied,
		CurrentQty:       10,
		LastLedgerAt:     &ts,
		AssignmentStatus: enums.AssignmentStatusUnassigned,
	}

	stamped := base
	now := time.Now()
	stamped.MaterializedAt = &now
	stamped.RowNum = 9
	if !base.SameState(stamped) {
		t.Fatal("materialization stamp and row position should be ignored")
	}

	sameInstantOtherZone := base
	local := ts.In(time.FixedZone("UTC+2", 2*3600))
	sameInstantOtherZone.LastLedgerAt = &local
	if !base.SameState(sameInstantOtherZone) {
		t.Fatal("equal instants in different zones should match")
	}

	changed := base
	changed.CurrentQty = 0
	if base.SameState(changed) {
		t.Fatal("quantity change should be detected")
	}

	cleared := base
	cleared.LastLedgerAt = nil
	if base.SameState(cleared) {
		t.Fatal("nil vs set timestamp should differ")
	}
}
