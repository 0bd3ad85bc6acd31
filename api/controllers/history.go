package controllers

import (
	"context"
	"net/http"

	"github.com/angelmondragon/palletflow/api/responses"
	"github.com/angelmondragon/palletflow/api/validators"
	"github.com/angelmondragon/palletflow/internal/ledger"
	"github.com/angelmondragon/palletflow/pkg/logger"
	"github.com/angelmondragon/palletflow/pkg/pagination"
)

// HistoryReader pages through a pallet's ledger facts.
type HistoryReader interface {
	ForPallet(ctx context.Context, palletID string, params pagination.Params) (ledger.HistoryPage, error)
}

func PalletHistory(history HistoryReader, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		palletID, err := validators.ParseIdentifierParam(r, "palletID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		page, err := history.ForPallet(r.Context(), palletID, pagination.Params{
			Limit:  limit,
			Cursor: validators.SanitizeString(r.URL.Query().Get("cursor"), 256),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}
