package postgres

import (
	"errors"
	"fmt"

	"bookclub/internal/domain"

	"github.com/lib/pq"
)

// Postgres SQLSTATE codes inspected by the repositories.
const (
	codeUniqueViolation      = "23505"
	codeLockNotAvailable     = "55P03"
	codeDeadlockDetected     = "40P01"
	codeSerializationFailure = "40001"
)

func pqCode(err error) string {
	var perr *pq.Error
	if errors.As(err, &perr) {
		return string(perr.Code)
	}
	return ""
}

// mapLockError turns lock timeouts, deadlocks and serialization failures into domain.ErrLockTimeout
// so that services can retry them. Other errors are returned unchanged.
func mapLockError(err error) error {
	switch pqCode(err) {
	case codeLockNotAvailable, codeDeadlockDetected, codeSerializationFailure:
		return fmt.Errorf("%w: %v", domain.ErrLockTimeout, err)
	}
	return err
}
