package palletstatus

import (
	"strings"

	"github.com/angelmondragon/palletflow/pkg/db/models"
	"github.com/angelmondragon/palletflow/pkg/enums"
)

// derivation is the outcome of folding one fact and one build record onto a row.
type derivation struct {
	row          models.PalletStatus
	ledgerFound  bool
	expiryFound  bool
	unrecognized bool
}

// derive computes the next state of current from the latest ledger fact and the
// latest build record for the pallet. Either input may be nil.
func derive(current models.PalletStatus, fact *models.LedgerFact, build *models.BuildRecord, skipExpiryOnEmpty bool) derivation {
	next := current
	out := derivation{}

	if fact != nil {
		out.ledgerFound = true
		ts := fact.Timestamp
		next.SKUID = fact.SKUID
		next.SKUDescription = fact.SKUDescription
		next.BatchNumber = fact.BatchNo
		next.CurrentQty = fact.QtyChange
		next.GRNID = fact.GRNID
		next.LastLedgerAt = &ts

		switch {
		case fact.ActionType.Occupies():
			next.OccupancyStatus = enums.OccupancyStatusOccupied
			next.AssignmentStatus = enums.AssignmentStatusUnassigned
		case fact.ActionType.Vacates() || fact.QtyChange == 0:
			next.OccupancyStatus = enums.OccupancyStatusEmpty
			next.AssignmentStatus = enums.AssignmentStatusNotApplicable
			next.SKUID = ""
			next.SKUDescription = ""
			next.BatchNumber = ""
			next.CurrentQty = 0
			next.GRNID = ""
			next.ExpiryDate = ""
			next.LocationID = ""
		default:
			out.unrecognized = true
		}
	}

	// expiry from the build source is applied after clearing
	if build != nil && strings.TrimSpace(build.ExpiryDate) != "" {
		if !(skipExpiryOnEmpty && next.OccupancyStatus == enums.OccupancyStatusEmpty) {
			out.expiryFound = true
			next.ExpiryDate = build.ExpiryDate
		}
	}

	out.row = next
	return out
}
