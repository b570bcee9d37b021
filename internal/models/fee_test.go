package models

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestFeeStructureTotalFee(t *testing.T) {
	fs := FeeStructure{
		TuitionFee:      d("800.00"),
		RegistrationFee: d("50.00"),
		LibraryFee:      d("25.50"),
		SportsFee:       d("24.50"),
		LabFee:          d("0"),
		TransportFee:    d("60.00"),
		UniformFee:      d("20.00"),
		ExamFee:         d("15.00"),
		OtherFee:        d("5.00"),
	}
	assert.Equal(t, "1000.00", fs.TotalFee().StringFixed(2))
}

func TestPaymentStatusTransitions(t *testing.T) {
	assert.True(t, PaymentPending.CanTransition(PaymentCompleted))
	assert.True(t, PaymentPending.CanTransition(PaymentFailed))
	assert.True(t, PaymentCompleted.CanTransition(PaymentRefunded))
	assert.False(t, PaymentCompleted.CanTransition(PaymentPending))
	assert.False(t, PaymentCompleted.CanTransition(PaymentFailed))
	assert.False(t, PaymentRefunded.CanTransition(PaymentCompleted))
	assert.False(t, PaymentFailed.CanTransition(PaymentCompleted))
}

func TestCompletedPaymentLeavesOnlyByRefund(t *testing.T) {
	for _, to := range []PaymentStatus{PaymentPending, PaymentCompleted, PaymentFailed, PaymentRefunded} {
		assert.Equal(t, to == PaymentRefunded, PaymentCompleted.CanTransition(to), to)
	}
}

func TestStudentHasScholarship(t *testing.T) {
	assert.False(t, Student{ScholarshipStatus: ScholarshipNone, ScholarshipPercentage: d("50")}.HasScholarship())
	assert.False(t, Student{ScholarshipStatus: ScholarshipPartial, ScholarshipPercentage: d("0")}.HasScholarship())
	assert.True(t, Student{ScholarshipStatus: ScholarshipPartial, ScholarshipPercentage: d("50")}.HasScholarship())
}

func TestFeeTermLabel(t *testing.T) {
	assert.Equal(t, "Term 2", FeeTerm2.Label())
	assert.Equal(t, "Annual", FeeTermAnnual.Label())
	assert.False(t, FeeTerm("4").Valid())
}
