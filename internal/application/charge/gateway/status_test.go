package gateway

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"pixgate/internal/domain/charge/valueobjects"
)

func TestMapStatus(t *testing.T) {
	tests := []struct {
		provider string
		want     valueobjects.ChargeStatus
		known    bool
	}{
		{"APPROVED", valueobjects.ChargeStatusPaid, true},
		{"PAID", valueobjects.ChargeStatusPaid, true},
		{"RECEIVED", valueobjects.ChargeStatusPaid, true},
		{"CONFIRMED", valueobjects.ChargeStatusPaid, true},
		{"PENDING", valueobjects.ChargeStatusPending, true},
		{"ACTIVE", valueobjects.ChargeStatusPending, true},
		{"CREATED", valueobjects.ChargeStatusPending, true},
		{"PROCESSING", valueobjects.ChargeStatusPending, true},
		// Case and whitespace tolerant.
		{"approved", valueobjects.ChargeStatusPaid, true},
		{" Paid ", valueobjects.ChargeStatusPaid, true},
		// Unknown statuses never settle.
		{"REFUNDED", valueobjects.ChargeStatusPending, false},
		{"CANCELLED", valueobjects.ChargeStatusPending, false},
		{"", valueobjects.ChargeStatusPending, false},
	}

	for _, tt := range tests {
		t.Run(tt.provider, func(t *testing.T) {
			got, known := MapStatus(tt.provider)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.known, known)
		})
	}
}

func TestIsSettled(t *testing.T) {
	assert.True(t, IsSettled("APPROVED"))
	assert.False(t, IsSettled("PENDING"))
	assert.False(t, IsSettled("SOMETHING_NEW"))
}
