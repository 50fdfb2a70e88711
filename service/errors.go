package service

import (
	"errors"
	"fmt"
	"strings"

	"github.com/alwitt/karte/models"
)

// ErrRecordNotFound no visit record exists with the requested ID
var ErrRecordNotFound = errors.New("record not found")

// ValidationFailure the input violates one or more field rules
//
// Every violated rule is listed, not only the first.
type ValidationFailure struct {
	Violations []models.FieldViolation
}

func (e *ValidationFailure) Error() string {
	msgs := make([]string, 0, len(e.Violations))
	for _, violation := range e.Violations {
		msgs = append(msgs, violation.Message)
	}
	return fmt.Sprintf("validation failed: %s", strings.Join(msgs, "; "))
}

// PersistenceFailure the row store or the document store failed an operation
//
// The message is deliberately generic. Details are logged and available through Unwrap.
type PersistenceFailure struct {
	// Operation the record operation that failed
	Operation string
	// RecordID the affected record, if known
	RecordID string
	// Location the affected document location, if known
	Location string
	// OrphanDocument a document was written without a row referencing it
	OrphanDocument bool
	// Err the underlying error
	Err error
}

func (e *PersistenceFailure) Error() string {
	return fmt.Sprintf("record %s failed", e.Operation)
}

func (e *PersistenceFailure) Unwrap() error {
	return e.Err
}

// IsValidationFailure whether the error is caused by a ValidationFailure
func IsValidationFailure(err error) bool {
	var vf *ValidationFailure
	return errors.As(err, &vf)
}

// IsPersistenceFailure whether the error is caused by a PersistenceFailure
func IsPersistenceFailure(err error) bool {
	var pf *PersistenceFailure
	return errors.As(err, &pf)
}
