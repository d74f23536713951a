package ledger

import (
	"context"
	"errors"
)

// Placeholder is written instead of blank optional fields so downstream
// consumers of the ledger never see ambiguous empty cells.
const Placeholder = "No proporcionado"

// ErrSchemaMismatch marks a configuration-shaped failure: the ledger's
// header/columns do not match the contract below. Callers surface it as a
// misconfiguration, never as a client error.
var ErrSchemaMismatch = errors.New("ledger schema mismatch")

// IsSchemaMismatch reports whether err is configuration-shaped.
func IsSchemaMismatch(err error) bool {
	return errors.Is(err, ErrSchemaMismatch)
}

// Row is one enrollment record in ledger column order. Created once by the
// write stage and never mutated after append.
type Row struct {
	Timestamp    string
	StudentName  string
	BirthDate    string
	Address      string
	GuardianName string
	Phone        string
	Email        string
	ProgramID    string
	GradeLabel   string
	Message      string
}

// Header is the ordered column contract shared by every backend. The sheet
// backend verifies it against the live sheet; the Postgres backend encodes
// it in its schema.
func Header() []string {
	return []string{
		"Fecha",
		"Nombre del Estudiante",
		"Fecha de Nacimiento",
		"Dirección",
		"Nombre del Encargado",
		"Teléfono",
		"Correo",
		"Programa",
		"Grado",
		"Mensaje",
	}
}

// Store is the external ledger collaborator: an append-only row set with no
// native uniqueness constraint. ReadAll returns the full current row set
// (the ledger offers no server-side filtering).
type Store interface {
	ReadAll(ctx context.Context) ([]Row, error)
	Append(ctx context.Context, row Row) error
	Ping(ctx context.Context) error
}
