package reporter

import (
	"errors"

	"github.com/sweeney/callwatch/internal/ami"
	"github.com/sweeney/callwatch/internal/callstate"
)

// Multi fans every notification out to a set of reporters, in order.
type Multi struct {
	reporters []callstate.Reporter
}

// NewMulti creates a fan-out over the given reporters.
func NewMulti(reporters ...callstate.Reporter) *Multi {
	return &Multi{reporters: reporters}
}

func (m *Multi) OnEvent(evt ami.Event) {
	for _, r := range m.reporters {
		r.OnEvent(evt)
	}
}

func (m *Multi) OnBDial(caller callstate.Party, targets []callstate.Party) {
	for _, r := range m.reporters {
		r.OnBDial(caller, targets)
	}
}

func (m *Multi) OnUp(caller, target callstate.Party) {
	for _, r := range m.reporters {
		r.OnUp(caller, target)
	}
}

func (m *Multi) OnAttendedTransfer(caller, transferer, target callstate.Party) {
	for _, r := range m.reporters {
		r.OnAttendedTransfer(caller, transferer, target)
	}
}

func (m *Multi) OnBlondeTransfer(caller, transferer callstate.Party, targets []callstate.Party) {
	for _, r := range m.reporters {
		r.OnBlondeTransfer(caller, transferer, targets)
	}
}

func (m *Multi) OnBlindTransfer(caller, transferer callstate.Party, targets []callstate.Party) {
	for _, r := range m.reporters {
		r.OnBlindTransfer(caller, transferer, targets)
	}
}

func (m *Multi) OnForward(caller, loser callstate.Party, targets []callstate.Party) {
	for _, r := range m.reporters {
		r.OnForward(caller, loser, targets)
	}
}

func (m *Multi) OnHangup(caller callstate.Party, reason string) {
	for _, r := range m.reporters {
		r.OnHangup(caller, reason)
	}
}

func (m *Multi) OnQueueCallerAbandon(caller callstate.Party) {
	for _, r := range m.reporters {
		r.OnQueueCallerAbandon(caller)
	}
}

func (m *Multi) OnUserEvent(caller callstate.Party, evt ami.Event) {
	for _, r := range m.reporters {
		r.OnUserEvent(caller, evt)
	}
}

// Close closes all reporters and joins their errors.
func (m *Multi) Close() error {
	var errs []error
	for _, r := range m.reporters {
		if err := r.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
