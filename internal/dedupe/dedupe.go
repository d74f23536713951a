// Package dedupe implements the pre-write duplicate check against the
// external ledger. The ledger has no uniqueness constraint, so the check is
// a linear scan of the full row set; fine at hundreds to low thousands of
// rows.
package dedupe

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/academia-hn/enrollment-intake/internal/ledger"
	"github.com/academia-hn/enrollment-intake/internal/models"
)

// Reader is the read side of the ledger collaborator.
type Reader interface {
	ReadAll(ctx context.Context) ([]ledger.Row, error)
}

// IsDuplicate reports whether the ledger already holds a row for the same
// student by (studentName, phone) or, when an email was provided,
// (studentName, email).
//
// Fails open: if the ledger read errors, the submission proceeds and the
// failure is logged. Blocking intake because a read-only pre-check failed
// would be worse than risking an undetected duplicate.
func IsDuplicate(ctx context.Context, rd Reader, req models.IntakeRequest, log *zap.Logger) bool {
	rows, err := rd.ReadAll(ctx)
	if err != nil {
		log.Warn("duplicate check skipped: ledger read failed",
			zap.Error(err),
			zap.String("student_name", req.StudentName),
		)
		return false
	}

	name := strings.TrimSpace(req.StudentName)
	phone := strings.TrimSpace(req.Phone)
	email := strings.TrimSpace(req.Email)
	if email == ledger.Placeholder {
		email = ""
	}

	for _, row := range rows {
		if strings.TrimSpace(row.StudentName) != name {
			continue
		}
		if strings.TrimSpace(row.Phone) == phone {
			return true
		}
		if email != "" && strings.TrimSpace(row.Email) == email {
			return true
		}
	}
	return false
}
