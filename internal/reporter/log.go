package reporter

import (
	"github.com/rs/zerolog"

	"github.com/sweeney/callwatch/internal/ami"
	"github.com/sweeney/callwatch/internal/callstate"
)

// Log writes every derived notification as a structured log line.
type Log struct {
	log         zerolog.Logger
	traceEvents bool
}

// NewLog creates a logging reporter. With traceEvents set, every raw
// event is logged at trace level as well.
func NewLog(l zerolog.Logger, traceEvents bool) *Log {
	return &Log{log: l, traceEvents: traceEvents}
}

func (r *Log) OnEvent(evt ami.Event) {
	if r.traceEvents {
		r.log.Trace().Str("event", evt.Type()).Interface("headers", evt.Map()).Msg("ami event")
	}
}

func (r *Log) OnBDial(caller callstate.Party, targets []callstate.Party) {
	r.log.Info().
		Str("linkedid", caller.LinkedID).
		Str("caller", caller.CallerID.String()).
		Str("exten", caller.Exten).
		Strs("targets", numbers(targets)).
		Msg("ringing")
}

func (r *Log) OnUp(caller, target callstate.Party) {
	r.log.Info().
		Str("linkedid", caller.LinkedID).
		Str("caller", caller.CallerID.String()).
		Str("target", target.CallerID.String()).
		Msg("up")
}

func (r *Log) OnAttendedTransfer(caller, transferer, target callstate.Party) {
	r.log.Info().
		Str("linkedid", caller.LinkedID).
		Str("transferer_linkedid", transferer.LinkedID).
		Str("caller", caller.CallerID.String()).
		Str("transferer", transferer.CallerID.String()).
		Str("target", target.CallerID.String()).
		Msg("attended transfer")
}

func (r *Log) OnBlondeTransfer(caller, transferer callstate.Party, targets []callstate.Party) {
	r.log.Info().
		Str("linkedid", caller.LinkedID).
		Str("transferer_linkedid", transferer.LinkedID).
		Str("caller", caller.CallerID.String()).
		Str("transferer", transferer.CallerID.String()).
		Strs("targets", numbers(targets)).
		Msg("blonde transfer")
}

func (r *Log) OnBlindTransfer(caller, transferer callstate.Party, targets []callstate.Party) {
	r.log.Info().
		Str("linkedid", caller.LinkedID).
		Str("transferer_linkedid", transferer.LinkedID).
		Str("caller", caller.CallerID.String()).
		Str("transferer", transferer.CallerID.String()).
		Strs("targets", numbers(targets)).
		Msg("blind transfer")
}

func (r *Log) OnForward(caller, loser callstate.Party, targets []callstate.Party) {
	r.log.Info().
		Str("linkedid", caller.LinkedID).
		Str("caller", caller.CallerID.String()).
		Str("loser", loser.CallerID.String()).
		Strs("targets", numbers(targets)).
		Msg("forward")
}

func (r *Log) OnHangup(caller callstate.Party, reason string) {
	r.log.Info().
		Str("linkedid", caller.LinkedID).
		Str("caller", caller.CallerID.String()).
		Str("reason", reason).
		Msg("hangup")
}

func (r *Log) OnQueueCallerAbandon(caller callstate.Party) {
	r.log.Info().
		Str("linkedid", caller.LinkedID).
		Str("caller", caller.CallerID.String()).
		Msg("queue caller abandon")
}

func (r *Log) OnUserEvent(caller callstate.Party, evt ami.Event) {
	r.log.Info().
		Str("linkedid", caller.LinkedID).
		Str("user_event", evt.Get("UserEvent")).
		Interface("headers", evt.Map()).
		Msg("user event")
}

func (r *Log) Close() error { return nil }

func numbers(parties []callstate.Party) []string {
	out := make([]string, 0, len(parties))
	for _, p := range parties {
		out = append(out, p.CallerID.Number)
	}
	return out
}
