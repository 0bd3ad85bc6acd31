package validators

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	pkgerrors "github.com/angelmondragon/palletflow/pkg/errors"
)

const maxIdentifierLength = 128

var validate = validator.New()

// ParseIdentifierParam reads a chi URL parameter holding a warehouse key such
// as a pallet id. The value is trimmed and must be printable and non-empty.
func ParseIdentifierParam(r *http.Request, name string) (string, error) {
	value := SanitizeString(chi.URLParam(r, name), 0)
	if err := validate.Var(value, "required,printascii,max=128"); err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, name+" is invalid").
			WithDetails(map[string]any{"param": name, "max_length": maxIdentifierLength})
	}
	return value, nil
}

// ParseQueryInt reads an optional bounded integer query parameter.
func ParseQueryInt(r *http.Request, key string, fallback, lo, hi int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return fallback, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeValidation, err, key+" must be an integer").
			WithDetails(map[string]any{"field": key})
	}
	if err := validate.Var(value, "min="+strconv.Itoa(lo)+",max="+strconv.Itoa(hi)); err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeValidation, err, key+" is out of range").
			WithDetails(map[string]any{"field": key, "min": lo, "max": hi})
	}
	return value, nil
}

// SanitizeString trims input and truncates it to maxLen bytes when maxLen is positive.
func SanitizeString(input string, maxLen int) string {
	out := strings.TrimSpace(input)
	if maxLen > 0 && len(out) > maxLen {
		out = out[:maxLen]
	}
	return out
}
