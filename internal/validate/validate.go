package validate

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/academia-hn/enrollment-intake/internal/models"
)

// Reason partitions validation failures for callers that map them to
// responses or metrics.
type Reason string

const (
	ReasonMissingFields Reason = "missing-fields"
	ReasonBadFormat     Reason = "bad-format"
	ReasonBadAge        Reason = "bad-age"
)

// Error carries one category of field-level failures. Categories
// short-circuit (required → format → age); within a category every
// offending field is reported together.
type Error struct {
	Reason  Reason
	Fields  []string
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Reason, strings.Join(e.Fields, ", "))
}

const (
	minAge = 5
	maxAge = 25

	birthDateLayout = "2006-01-02"
)

var (
	// Spanish-alphabet letters only, evaluated after stripping whitespace
	// so compound names ("María José") pass as written.
	nameRe = regexp.MustCompile(`^[A-Za-zÁÉÍÓÚÜÑáéíóúüñ]+$`)

	// Honduran numbers: optional country code, optional space, 4+4 digits
	// with an optional hyphen ("+504 9876-5432", "50498765432").
	phoneRe = regexp.MustCompile(`^(\+?504)? ?[0-9]{4}-?[0-9]{4}$`)

	emailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
)

// requiredFields is the contract's fixed required set, in payload order.
var requiredFields = []struct {
	name string
	get  func(models.IntakeRequest) string
}{
	{"studentName", func(r models.IntakeRequest) string { return r.StudentName }},
	{"birthDate", func(r models.IntakeRequest) string { return r.BirthDate }},
	{"address", func(r models.IntakeRequest) string { return r.Address }},
	{"guardianName", func(r models.IntakeRequest) string { return r.GuardianName }},
	{"phone", func(r models.IntakeRequest) string { return r.Phone }},
	{"programId", func(r models.IntakeRequest) string { return r.ProgramID }},
	{"gradeLabel", func(r models.IntakeRequest) string { return r.GradeLabel }},
}

// Request validates req against the intake rules at instant now.
// Returns nil when the request is acceptable. Pure: no side effects.
func Request(req models.IntakeRequest, now time.Time) *Error {
	if err := checkRequired(req); err != nil {
		return err
	}
	if err := checkFormats(req); err != nil {
		return err
	}
	return checkAge(req.BirthDate, now)
}

func checkRequired(req models.IntakeRequest) *Error {
	var missing []string
	for _, f := range requiredFields {
		if strings.TrimSpace(f.get(req)) == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	return &Error{
		Reason:  ReasonMissingFields,
		Fields:  missing,
		Message: "Faltan campos obligatorios: " + strings.Join(missing, ", "),
	}
}

func checkFormats(req models.IntakeRequest) *Error {
	var fields, msgs []string

	fail := func(field, msg string) {
		fields = append(fields, field)
		msgs = append(msgs, msg)
	}

	if !ValidName(req.StudentName) {
		fail("studentName", "El nombre del estudiante solo puede contener letras")
	}
	if !ValidName(req.GuardianName) {
		fail("guardianName", "El nombre del encargado solo puede contener letras")
	}
	if _, err := time.Parse(birthDateLayout, strings.TrimSpace(req.BirthDate)); err != nil {
		fail("birthDate", "La fecha de nacimiento debe tener el formato AAAA-MM-DD")
	}
	if !phoneRe.MatchString(strings.TrimSpace(req.Phone)) {
		fail("phone", "El teléfono debe tener el formato +504 9876-5432")
	}
	if e := strings.TrimSpace(req.Email); e != "" && !emailRe.MatchString(e) {
		fail("email", "El correo electrónico no es válido")
	}

	if len(fields) == 0 {
		return nil
	}
	return &Error{
		Reason:  ReasonBadFormat,
		Fields:  fields,
		Message: strings.Join(msgs, ". "),
	}
}

// checkAge runs only after checkFormats, so the date is parseable here.
// The future-date check comes first: a future date yields a negative age
// and would otherwise be misreported as "too young".
func checkAge(birthDate string, now time.Time) *Error {
	birth, err := time.Parse(birthDateLayout, strings.TrimSpace(birthDate))
	if err != nil {
		return &Error{
			Reason:  ReasonBadFormat,
			Fields:  []string{"birthDate"},
			Message: "La fecha de nacimiento debe tener el formato AAAA-MM-DD",
		}
	}

	ageErr := func(msg string) *Error {
		return &Error{Reason: ReasonBadAge, Fields: []string{"birthDate"}, Message: msg}
	}

	if birth.After(now) {
		return ageErr("La fecha de nacimiento no puede ser una fecha futura")
	}
	age := AgeAt(birth, now)
	if age < minAge {
		return ageErr(fmt.Sprintf("El estudiante debe tener al menos %d años", minAge))
	}
	if age > maxAge {
		return ageErr("La edad ingresada no es válida para nuestros programas")
	}
	return nil
}

// ValidName reports whether s is letters-only in the accepted alphabet,
// ignoring whitespace between name parts.
func ValidName(s string) bool {
	compact := strings.Join(strings.Fields(s), "")
	return compact != "" && nameRe.MatchString(compact)
}

// AgeAt computes age in whole years, decrementing the naive year
// difference when the birthday has not yet occurred in now's year.
func AgeAt(birth, now time.Time) int {
	years := now.Year() - birth.Year()
	if now.Month() < birth.Month() ||
		(now.Month() == birth.Month() && now.Day() < birth.Day()) {
		years--
	}
	return years
}
