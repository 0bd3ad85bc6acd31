package enums

import (
	"fmt"
	"strings"
)

// ActionType is the kind of state-changing action recorded in the pallet ledger.
type ActionType string

const (
	ActionTypeBuilt    ActionType = "Built"
	ActionTypeReceived ActionType = "Received"
	ActionTypePutaway  ActionType = "Putaway"
	ActionTypeShipped  ActionType = "Shipped"
	ActionTypeEmpty    ActionType = "Empty"
)

var validActionTypes = []ActionType{
	ActionTypeBuilt,
	ActionTypeReceived,
	ActionTypePutaway,
	ActionTypeShipped,
	ActionTypeEmpty,
}

// IsValid reports whether the value matches a known ledger action.
func (a ActionType) IsValid() bool {
	for _, candidate := range validActionTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// Occupies reports whether the action leaves the pallet holding stock.
func (a ActionType) Occupies() bool {
	switch a {
	case ActionTypeBuilt, ActionTypeReceived, ActionTypePutaway:
		return true
	}
	return false
}

// Vacates reports whether the action empties the pallet.
func (a ActionType) Vacates() bool {
	return a == ActionTypeShipped || a == ActionTypeEmpty
}

// ParseActionType converts raw cell input into ActionType, ignoring case and surrounding space.
func ParseActionType(value string) (ActionType, error) {
	trimmed := strings.TrimSpace(value)
	for _, candidate := range validActionTypes {
		if strings.EqualFold(string(candidate), trimmed) {
			return candidate, nil
		}
	}
	return ActionType(trimmed), fmt.Errorf("invalid action type %q", value)
}
