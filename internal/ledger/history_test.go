package ledger

import (
	"context"
	"errors"
	"testing"

	"github.com/angelmondragon/palletflow/pkg/db/models"
	"github.com/angelmondragon/palletflow/pkg/enums"
	pferrors "github.com/angelmondragon/palletflow/pkg/errors"
	"github.com/angelmondragon/palletflow/pkg/pagination"
)

func historyStore() *fakeStore {
	store := &fakeStore{}
	actions := []struct {
		pallet string
		action enums.ActionType
	}{
		{"P1", enums.ActionTypeBuilt},
		{"P2", enums.ActionTypeBuilt},
		{"P1", enums.ActionTypePutaway},
		{"1001", enums.ActionTypeBuilt},
		{"P1", enums.ActionTypeShipped},
	}
	for i, a := range actions {
		store.facts = append(store.facts, models.LedgerFact{RowNum: int64(i + 1), PalletID: a.pallet, GRNID: "G1", ActionType: a.action})
	}
	return store
}

func TestHistoryPagesNewestFirst(t *testing.T) {
	history, err := NewHistory(historyStore())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	first, err := history.ForPallet(context.Background(), "P1", pagination.Params{Limit: 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(first.Facts) != 2 || first.Facts[0].RowNum != 5 || first.Facts[1].RowNum != 3 {
		t.Fatalf("unexpected first page %+v", first.Facts)
	}
	if first.NextCursor == "" {
		t.Fatalf("expected next cursor")
	}

	second, err := history.ForPallet(context.Background(), "P1", pagination.Params{Limit: 2, Cursor: first.NextCursor})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(second.Facts) != 1 || second.Facts[0].RowNum != 1 {
		t.Fatalf("unexpected second page %+v", second.Facts)
	}
	if second.NextCursor != "" {
		t.Fatalf("expected last page, got cursor %q", second.NextCursor)
	}
}

func TestHistoryMatchesLooseKeys(t *testing.T) {
	history, _ := NewHistory(historyStore())
	page, err := history.ForPallet(context.Background(), "1001.0", pagination.Params{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(page.Facts) != 1 || page.Facts[0].RowNum != 4 {
		t.Fatalf("unexpected page %+v", page.Facts)
	}
}

func TestHistoryErrors(t *testing.T) {
	history, _ := NewHistory(historyStore())
	ctx := context.Background()

	if _, err := history.ForPallet(ctx, "P404", pagination.Params{}); !pferrors.IsCode(err, pferrors.CodeNotFound) {
		t.Fatalf("expected not found got %v", err)
	}
	if _, err := history.ForPallet(ctx, " ", pagination.Params{}); !pferrors.IsCode(err, pferrors.CodeValidation) {
		t.Fatalf("expected validation error got %v", err)
	}
	if _, err := history.ForPallet(ctx, "P1", pagination.Params{Cursor: "%%%"}); !pferrors.IsCode(err, pferrors.CodeValidation) {
		t.Fatalf("expected validation error for cursor got %v", err)
	}

	broken, _ := NewHistory(&fakeStore{listErr: errors.New("db down")})
	if _, err := broken.ForPallet(ctx, "P1", pagination.Params{}); !pferrors.IsCode(err, pferrors.CodeDependency) {
		t.Fatalf("expected dependency error got %v", err)
	}

	if _, err := NewHistory(nil); err == nil {
		t.Fatalf("expected error for nil reader")
	}
}
