package models

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestLetterGradeBoundaries(t *testing.T) {
	cases := map[string]string{
		"100":   "A",
		"80":    "A",
		"79.99": "B",
		"70":    "B",
		"60":    "C",
		"50":    "D",
		"40":    "E",
		"39.99": "F",
		"0":     "F",
	}
	for pct, want := range cases {
		assert.Equal(t, want, LetterGrade(decimal.RequireFromString(pct)), pct)
	}
}

func TestPercentage(t *testing.T) {
	assert.Equal(t, "75.00", Percentage(decimal.NewFromInt(45), 60).StringFixed(2))
	assert.True(t, Percentage(decimal.NewFromInt(45), 0).IsZero())
}

func TestHoursWorkedSubtractsBreak(t *testing.T) {
	day := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)
	at := func(h, m int) *time.Time { v := day.Add(time.Duration(h)*time.Hour + time.Duration(m)*time.Minute); return &v }

	rec := StaffAttendance{CheckIn: at(8, 0), CheckOut: at(17, 0), BreakStart: at(12, 0), BreakEnd: at(12, 30)}
	assert.Equal(t, "8.50", rec.HoursWorked().StringFixed(2))

	rec.BreakEnd = nil
	assert.Equal(t, "9.00", rec.HoursWorked().StringFixed(2))

	rec.CheckOut = nil
	assert.True(t, rec.HoursWorked().IsZero())
}

func TestLeaveDurationIsInclusive(t *testing.T) {
	start := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)
	req := LeaveRequest{StartDate: start, EndDate: start.AddDate(0, 0, 4)}
	assert.Equal(t, 5, req.Duration())
}

func TestAverageRating(t *testing.T) {
	review := PerformanceReview{OverallRating: 4, GoalsAchievement: 5, Communication: 3, Teamwork: 4, TechnicalSkills: 5}
	assert.Equal(t, "4.20", review.AverageRating().StringFixed(2))
}
