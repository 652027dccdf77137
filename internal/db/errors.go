package db

import (
	"errors"
	"fmt"
	"strings"

	"github.com/surrealdb/surrealdb.go"
)

var (
	// ErrTaskAlreadyExists is returned by InsertTask when the record id is taken.
	ErrTaskAlreadyExists = errors.New("task already exists")

	// ErrTransactionConflict is returned when a concurrent write touched the
	// same record. Single-record writes retry on it before giving up.
	ErrTransactionConflict = errors.New("transaction conflict")
)

// queryErrorKinds maps SurrealDB query error text to sentinels.
var queryErrorKinds = []struct {
	marker   string
	sentinel error
}{
	{"already exists", ErrTaskAlreadyExists},
	{"Transaction conflict", ErrTransactionConflict},
}

// wrapQueryError attaches a sentinel to known *surrealdb.QueryError messages.
// Anything else is returned unchanged.
func wrapQueryError(err error) error {
	var queryErr *surrealdb.QueryError
	if err == nil || !errors.As(err, &queryErr) {
		return err
	}
	for _, k := range queryErrorKinds {
		if strings.Contains(queryErr.Message, k.marker) {
			return fmt.Errorf("%w: %s", k.sentinel, queryErr.Message)
		}
	}
	return err
}
