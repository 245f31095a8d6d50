package approval

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDecision_Feedback(t *testing.T) {
	tests := []struct {
		name     string
		decision Decision
		want     string
	}{
		{"approve", Approve(), ""},
		{"reject without reason", Reject(""), ""},
		{"reject with default reason", Reject(DefaultRejectReason), ""},
		{"reject with reason", Reject("too formal"), "too formal"},
		{"edit", Edit("mention Friday"), "User requested changes: mention Friday. Please update the email draft and try again."},
		{"edit without instructions", Edit(""), ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.decision.Feedback())
			assert.Equal(t, tt.want != "", tt.decision.RequestsRedraft())
		})
	}
}

func TestReject_DefaultsReason(t *testing.T) {
	assert.Equal(t, DefaultRejectReason, Reject("").Reason)
}
