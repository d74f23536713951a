package models

// IntakeRequest is the POST /api/enrollments payload.
// email and message are optional; everything else is required.
type IntakeRequest struct {
	StudentName  string `json:"studentName"`
	BirthDate    string `json:"birthDate"` // YYYY-MM-DD
	Address      string `json:"address"`
	GuardianName string `json:"guardianName"`
	Phone        string `json:"phone"`
	Email        string `json:"email,omitempty"`
	ProgramID    string `json:"programId"`
	GradeLabel   string `json:"gradeLabel"`
	Message      string `json:"message,omitempty"`
}

// IntakeResponse is returned by POST /api/enrollments.
// MissingFields is populated only for the missing-required-fields rejection.
type IntakeResponse struct {
	Success       bool     `json:"success"`
	Message       string   `json:"message"`
	RequestID     string   `json:"request_id,omitempty"`
	MissingFields []string `json:"missing_fields,omitempty"`
}
