package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// StudentStatus tracks enrolment state.
type StudentStatus string

const (
	StudentStatusActive      StudentStatus = "active"
	StudentStatusGraduated   StudentStatus = "graduated"
	StudentStatusTransferred StudentStatus = "transferred"
	StudentStatusSuspended   StudentStatus = "suspended"
	StudentStatusExpelled    StudentStatus = "expelled"
)

// ScholarshipStatus classifies scholarship coverage.
type ScholarshipStatus string

const (
	ScholarshipNone    ScholarshipStatus = "none"
	ScholarshipPartial ScholarshipStatus = "partial"
	ScholarshipFull    ScholarshipStatus = "full"
)

// ParseScholarshipStatus rejects values outside the closed set.
func ParseScholarshipStatus(raw string) (ScholarshipStatus, error) {
	switch s := ScholarshipStatus(strings.ToLower(strings.TrimSpace(raw))); s {
	case ScholarshipNone, ScholarshipPartial, ScholarshipFull:
		return s, nil
	default:
		return "", fmt.Errorf("unknown scholarship status %q", raw)
	}
}

// Student represents an enrolled learner.
type Student struct {
	ID              string        `db:"id" json:"id"`
	AdmissionNumber string        `db:"admission_number" json:"admission_number"`
	FirstName       string        `db:"first_name" json:"first_name"`
	MiddleName      string        `db:"middle_name" json:"middle_name"`
	LastName        string        `db:"last_name" json:"last_name"`
	DateOfBirth     time.Time     `db:"date_of_birth" json:"date_of_birth"`
	Gender          string        `db:"gender" json:"gender"`
	GradeID         *string       `db:"grade_id" json:"grade_id,omitempty"`
	GradeName       *string       `db:"grade_name" json:"grade_name,omitempty"`
	AdmissionDate   time.Time     `db:"admission_date" json:"admission_date"`
	Status          StudentStatus `db:"status" json:"status"`

	ScholarshipStatus     ScholarshipStatus `db:"scholarship_status" json:"scholarship_status"`
	ScholarshipPercentage decimal.Decimal   `db:"scholarship_percentage" json:"scholarship_percentage"`
	ScholarshipRemarks    string            `db:"scholarship_remarks" json:"scholarship_remarks"`

	Email   string `db:"email" json:"email"`
	Phone   string `db:"phone" json:"phone"`
	Address string `db:"address" json:"address"`

	GuardianName         string `db:"guardian_name" json:"guardian_name"`
	GuardianRelationship string `db:"guardian_relationship" json:"guardian_relationship"`
	GuardianPhone        string `db:"guardian_phone" json:"guardian_phone"`
	GuardianEmail        string `db:"guardian_email" json:"guardian_email"`
	GuardianAddress      string `db:"guardian_address" json:"guardian_address"`

	BloodGroup            string `db:"blood_group" json:"blood_group"`
	Allergies             string `db:"allergies" json:"allergies"`
	MedicalConditions     string `db:"medical_conditions" json:"medical_conditions"`
	EmergencyContactName  string `db:"emergency_contact_name" json:"emergency_contact_name"`
	EmergencyContactPhone string `db:"emergency_contact_phone" json:"emergency_contact_phone"`

	BirthCertificate    *string `db:"birth_certificate" json:"birth_certificate,omitempty"`
	PreviousReportCard  *string `db:"previous_report_card" json:"previous_report_card,omitempty"`
	TransferCertificate *string `db:"transfer_certificate" json:"transfer_certificate,omitempty"`
	OtherDocuments      *string `db:"other_documents" json:"other_documents,omitempty"`
	Photo               *string `db:"photo" json:"photo,omitempty"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// FullName joins the name parts, including the middle name when present.
func (s Student) FullName() string {
	if s.MiddleName != "" {
		return fmt.Sprintf("%s %s %s", s.FirstName, s.MiddleName, s.LastName)
	}
	return fmt.Sprintf("%s %s", s.FirstName, s.LastName)
}

// HasScholarship is true only for a non-none status with a positive percentage.
func (s Student) HasScholarship() bool {
	return s.ScholarshipStatus != ScholarshipNone && s.ScholarshipStatus != "" && s.ScholarshipPercentage.IsPositive()
}

// Age in whole years at the given date.
func (s Student) Age(at time.Time) int {
	years := at.Year() - s.DateOfBirth.Year()
	if at.Month() < s.DateOfBirth.Month() || (at.Month() == s.DateOfBirth.Month() && at.Day() < s.DateOfBirth.Day()) {
		years--
	}
	return years
}

// StudentDocument names the document slots that accept uploads.
type StudentDocument string

const (
	DocumentBirthCertificate    StudentDocument = "birth_certificate"
	DocumentPreviousReportCard  StudentDocument = "previous_report_card"
	DocumentTransferCertificate StudentDocument = "transfer_certificate"
	DocumentOther               StudentDocument = "other_documents"
	DocumentPhoto               StudentDocument = "photo"
)

// Valid reports whether d is an accepted document slot.
func (d StudentDocument) Valid() bool {
	switch d {
	case DocumentBirthCertificate, DocumentPreviousReportCard, DocumentTransferCertificate, DocumentOther, DocumentPhoto:
		return true
	default:
		return false
	}
}

// StudentFilter captures listing filters.
type StudentFilter struct {
	Search      string
	GradeID     string
	Status      string
	Scholarship string
	SortBy      string
	SortOrder   string
	Page        int
	PageSize    int
}

// ScholarshipStats summarises scholarship coverage.
type ScholarshipStats struct {
	Total   int `db:"total" json:"total"`
	Full    int `db:"full" json:"full"`
	Partial int `db:"partial" json:"partial"`
	None    int `db:"none" json:"none"`
}
