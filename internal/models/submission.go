package models

import "time"

// WorkType classifies a work submission.
type WorkType string

const (
	WorkLessonPlan WorkType = "lesson_plan"
	WorkAssignment WorkType = "assignment"
	WorkExam       WorkType = "exam"
	WorkReport     WorkType = "report"
	WorkCurriculum WorkType = "curriculum"
	WorkOther      WorkType = "other"
)

// Valid reports whether w is a known work type.
func (w WorkType) Valid() bool {
	switch w {
	case WorkLessonPlan, WorkAssignment, WorkExam, WorkReport, WorkCurriculum, WorkOther:
		return true
	default:
		return false
	}
}

// SubmissionStatus is the review state of a submission.
type SubmissionStatus string

const (
	SubmissionPending  SubmissionStatus = "pending"
	SubmissionApproved SubmissionStatus = "approved"
	SubmissionRejected SubmissionStatus = "rejected"
	SubmissionRevision SubmissionStatus = "revision"
)

// Valid reports whether s is a known status.
func (s SubmissionStatus) Valid() bool {
	switch s {
	case SubmissionPending, SubmissionApproved, SubmissionRejected, SubmissionRevision:
		return true
	default:
		return false
	}
}

// IsReviewOutcome reports whether s is a status a reviewer may set.
func (s SubmissionStatus) IsReviewOutcome() bool {
	return s == SubmissionApproved || s == SubmissionRejected || s == SubmissionRevision
}

// WorkSubmission is a document routed from a teacher to a reviewer. The
// recipient is resolved once at creation and may be nil.
type WorkSubmission struct {
	ID           string           `db:"id" json:"id"`
	TeacherID    string           `db:"teacher_id" json:"teacher_id"`
	SubmittedTo  *string          `db:"submitted_to" json:"submitted_to"`
	Title        string           `db:"title" json:"title"`
	WorkType     WorkType         `db:"work_type" json:"work_type"`
	Description  string           `db:"description" json:"description"`
	Document     *string          `db:"document" json:"document,omitempty"`
	Subject      string           `db:"subject" json:"subject"`
	GradeLevel   string           `db:"grade_level" json:"grade_level"`
	Status       SubmissionStatus `db:"status" json:"status"`
	SubmittedAt  time.Time        `db:"submitted_at" json:"submitted_at"`
	ReviewedBy   *string          `db:"reviewed_by" json:"reviewed_by,omitempty"`
	ReviewedAt   *time.Time       `db:"reviewed_at" json:"reviewed_at,omitempty"`
	Feedback     string           `db:"feedback" json:"feedback"`
	TeacherName  string           `db:"teacher_name" json:"teacher_name,omitempty"`
	ReceiverName *string          `db:"receiver_name" json:"receiver_name,omitempty"`
}

// SubmissionFilter narrows submission listings.
type SubmissionFilter struct {
	TeacherID   string
	SubmittedTo string
	Status      SubmissionStatus
	Page        int
	PageSize    int
}
