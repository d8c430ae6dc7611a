package callstate

// Channel state values as they appear on the AMI wire. The ringing
// logic keys off these exact numbers, so they must match Asterisk.
const (
	StateDown = iota
	StateReserved
	StateOffHook
	StateDialing
	StateRing
	StateRinging
	StateUp
	StateBusy
	StateDialingOffHook
	StatePreRing
)

// Hangup cause codes, per the Q.931 subset Asterisk emits.
const (
	CauseUnknown           = 0
	CauseNormalClearing    = 16
	CauseUserBusy          = 17
	CauseNoUserResponse    = 18
	CauseNoAnswer          = 19
	CauseCallRejected      = 21
	CauseAnsweredElsewhere = 26
	CauseInterworking      = 127
)

// Reason tags attached to hangup notifications. This closed set is the
// only place business meaning is attached to raw cause codes.
const (
	ReasonCompleted         = "completed"
	ReasonNoAnswer          = "no-answer"
	ReasonBusy              = "busy"
	ReasonAnsweredElsewhere = "answered-elsewhere"
	ReasonRejected          = "rejected"
	ReasonCancelled         = "cancelled"
	ReasonFailed            = "failed"
)

// HangupReason maps a numeric hangup cause plus the channel state at
// hangup time to a reason tag. The mapping is total: every cause code
// yields exactly one tag.
//
// Two causes depend on whether the call ever reached the up state:
// normal clearing on a channel that never came up means the call was
// not answered, and an unknown/interworking cause on a channel that
// never came up means the caller gave up.
func HangupReason(cause, state int) string {
	switch cause {
	case CauseNormalClearing:
		if state == StateUp {
			return ReasonCompleted
		}
		return ReasonNoAnswer
	case CauseUserBusy:
		return ReasonBusy
	case CauseNoUserResponse, CauseNoAnswer:
		return ReasonNoAnswer
	case CauseAnsweredElsewhere:
		return ReasonAnsweredElsewhere
	case CauseCallRejected:
		return ReasonRejected
	case CauseUnknown, CauseInterworking:
		if state == StateUp {
			return ReasonCompleted
		}
		return ReasonCancelled
	default:
		return ReasonFailed
	}
}
