package validators

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	pkgerrors "github.com/angelmondragon/palletflow/pkg/errors"
)

func requestWithParam(name, value string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	rc := chi.NewRouteContext()
	rc.URLParams.Add(name, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rc))
}

func TestParseIdentifierParamTrims(t *testing.T) {
	got, err := ParseIdentifierParam(requestWithParam("palletID", "  P-1001 "), "palletID")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "P-1001" {
		t.Fatalf("expected P-1001 got %q", got)
	}
}

func TestParseIdentifierParamRejectsInvalid(t *testing.T) {
	for _, value := range []string{"", "   ", strings.Repeat("x", maxIdentifierLength+1), "P\x01"} {
		_, err := ParseIdentifierParam(requestWithParam("palletID", value), "palletID")
		if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
			t.Fatalf("value %q: expected validation error got %v", value, err)
		}
	}
}

func TestSanitizeStringTruncates(t *testing.T) {
	if got := SanitizeString("  abcdef  ", 3); got != "abc" {
		t.Fatalf("expected abc got %q", got)
	}
}

func TestParseQueryInt(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?limit=10&bad=x&big=500", nil)

	if got, err := ParseQueryInt(req, "limit", 25, 1, 100); err != nil || got != 10 {
		t.Fatalf("expected 10 got %d, %v", got, err)
	}
	if got, err := ParseQueryInt(req, "missing", 25, 1, 100); err != nil || got != 25 {
		t.Fatalf("expected default 25 got %d, %v", got, err)
	}
	if _, err := ParseQueryInt(req, "bad", 25, 1, 100); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error got %v", err)
	}
	if _, err := ParseQueryInt(req, "big", 25, 1, 100); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected range error got %v", err)
	}
}
