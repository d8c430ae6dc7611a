package callstate

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHangupReason(t *testing.T) {
	tests := []struct {
		name  string
		cause int
		state int
		want  string
	}{
		{"normal clearing after up", CauseNormalClearing, StateUp, ReasonCompleted},
		{"normal clearing before up", CauseNormalClearing, StateRinging, ReasonNoAnswer},
		{"busy", CauseUserBusy, StateRing, ReasonBusy},
		{"busy even after up", CauseUserBusy, StateUp, ReasonBusy},
		{"no user response", CauseNoUserResponse, StateRing, ReasonNoAnswer},
		{"no answer", CauseNoAnswer, StateRing, ReasonNoAnswer},
		{"answered elsewhere", CauseAnsweredElsewhere, StateRinging, ReasonAnsweredElsewhere},
		{"rejected", CauseCallRejected, StateRing, ReasonRejected},
		{"unknown after up", CauseUnknown, StateUp, ReasonCompleted},
		{"unknown before up", CauseUnknown, StateRing, ReasonCancelled},
		{"interworking after up", CauseInterworking, StateUp, ReasonCompleted},
		{"interworking before up", CauseInterworking, StateDialing, ReasonCancelled},
		{"unmapped cause", 34, StateUp, ReasonFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HangupReason(tt.cause, tt.state))
		})
	}
}
