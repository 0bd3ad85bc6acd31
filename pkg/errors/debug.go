package errors

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
)

const pgUniqueViolation = "23505"

// StoreDiag is the driver-level detail of a failed SQL statement.
type StoreDiag struct {
	Driver     string `json:"driver"`
	Code       string `json:"code"`
	Constraint string `json:"constraint,omitempty"`
	Table      string `json:"table,omitempty"`
	Detail     string `json:"detail,omitempty"`
	unique     bool
}

// ErrorDump is a log-friendly snapshot of an error chain.
type ErrorDump struct {
	TopMessage string     `json:"top_message"`
	Code       Code       `json:"code,omitempty"`
	Details    any        `json:"details,omitempty"`
	Chain      []string   `json:"chain,omitempty"`
	Store      *StoreDiag `json:"store,omitempty"`
}

func Dump(err error) ErrorDump {
	if err == nil {
		return ErrorDump{}
	}
	d := ErrorDump{TopMessage: err.Error(), Store: storeDiag(err)}
	if te := As(err); te != nil {
		d.Code = te.Code()
		d.Details = te.Details()
	}
	for e := err; e != nil; e = errors.Unwrap(e) {
		d.Chain = append(d.Chain, fmt.Sprintf("%T: %v", e, e))
	}
	return d
}

// storeDiag pulls diagnostics from whichever SQL driver produced err.
func storeDiag(err error) *StoreDiag {
	var pgxErr *pgconn.PgError
	if errors.As(err, &pgxErr) {
		return &StoreDiag{Driver: "pgx", Code: pgxErr.Code, Constraint: pgxErr.ConstraintName,
			Table: pgxErr.TableName, Detail: pgxErr.Detail, unique: pgxErr.Code == pgUniqueViolation}
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return &StoreDiag{Driver: "pq", Code: string(pqErr.Code), Constraint: pqErr.Constraint,
			Table: pqErr.Table, Detail: pqErr.Detail, unique: pqErr.Code == pgUniqueViolation}
	}
	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		return &StoreDiag{Driver: "sqlite3", Code: strconv.Itoa(int(liteErr.ExtendedCode)),
			Detail: liteErr.Error(), unique: liteErr.ExtendedCode == sqlite3.ErrConstraintUnique}
	}
	return nil
}

// Fields flattens the dump into logger fields, skipping empty values.
func (d ErrorDump) Fields() map[string]any {
	fields := map[string]any{}
	if d.Code != "" {
		fields["error_code"] = d.Code
	}
	if d.Details != nil {
		fields["error_details"] = d.Details
	}
	if len(d.Chain) > 1 {
		fields["error_chain"] = d.Chain
	}
	if d.Store != nil {
		fields["db_driver"] = d.Store.Driver
		fields["db_code"] = d.Store.Code
		if d.Store.Constraint != "" {
			fields["db_constraint"] = d.Store.Constraint
		}
		if d.Store.Table != "" {
			fields["db_table"] = d.Store.Table
		}
	}
	return fields
}

// IsUniqueViolation reports whether err is a unique constraint failure raised
// by Postgres (pgx or pq) or SQLite.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	diag := storeDiag(err)
	return diag != nil && diag.unique
}
