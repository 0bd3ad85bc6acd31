package enums

// Labels written by the pipeline onto ledger facts and GRN entries.
const (
	LedgerStatusReadyForPutaway  = "Ready For Putaway"
	GRNStatusUnloadingInProgress = "Unloading in Progress"
)
