package allocation

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"

	"gorm.io/gorm"
)

// ErrBatchAborted wraps the infrastructure error that rolled a whole batch back.
var ErrBatchAborted = errors.New("allocation batch aborted")

var (
	errGenderNotSpecified  = errors.New("gender not specified")
	errNoCurrentAssignment = errors.New("no current assignment")
	errSavepoint           = errors.New("savepoint failed")
)

// isFatal reports whether err must roll back the whole batch rather than
// just the candidate being processed.
func isFatal(err error) bool {
	for _, target := range []error{
		context.Canceled,
		context.DeadlineExceeded,
		driver.ErrBadConn,
		sql.ErrConnDone,
		sql.ErrTxDone,
		gorm.ErrInvalidTransaction,
		errSavepoint,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
