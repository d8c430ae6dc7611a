package callstate

import "github.com/sweeney/callwatch/internal/ami"

// Reporter receives the high-level call notifications derived by the
// engine. Implementations live outside this package (log, JSON, MQTT,
// Redis, fan-out); the engine only depends on this contract.
//
// Reporters are invoked synchronously from event handling and must not
// block indefinitely, or they will stall ingestion. All Party arguments
// are snapshots, safe to retain.
type Reporter interface {
	// OnEvent is called for every ingested event after processing,
	// for audit and tracing purposes.
	OnEvent(evt ami.Event)

	// OnBDial is called when the target side of a call starts ringing.
	// A ring group produces a single notification listing all targets.
	OnBDial(caller Party, targets []Party)

	// OnUp is called when a call between two parties is connected.
	OnUp(caller, target Party)

	// OnAttendedTransfer is called when an attended transfer completes:
	// the transferer spoke to the target before connecting them to the
	// caller.
	OnAttendedTransfer(caller, transferer, target Party)

	// OnBlondeTransfer is called when a transfer initiated as attended
	// is completed before the target picked up.
	OnBlondeTransfer(caller, transferer Party, targets []Party)

	// OnBlindTransfer is called when a blind transfer target starts
	// ringing: the transferer redirected the caller without waiting.
	OnBlindTransfer(caller, transferer Party, targets []Party)

	// OnForward is called when a call is picked up by or forwarded to
	// another party than the one originally dialed, with the original
	// target as the loser.
	OnForward(caller, loser Party, targets []Party)

	// OnHangup is called when the call ends for the calling party,
	// with one of the Reason tags from this package.
	OnHangup(caller Party, reason string)

	// OnQueueCallerAbandon is called when a caller leaves a queue
	// before being connected.
	OnQueueCallerAbandon(caller Party)

	// OnUserEvent passes dialplan UserEvents through verbatim.
	OnUserEvent(caller Party, evt ami.Event)

	// Close flushes any buffered output.
	Close() error
}

// NopReporter is a Reporter that does nothing. Embed it to implement
// only the notifications you care about.
type NopReporter struct{}

func (NopReporter) OnEvent(ami.Event)                      {}
func (NopReporter) OnBDial(Party, []Party)                 {}
func (NopReporter) OnUp(Party, Party)                      {}
func (NopReporter) OnAttendedTransfer(Party, Party, Party) {}
func (NopReporter) OnBlondeTransfer(Party, Party, []Party) {}
func (NopReporter) OnBlindTransfer(Party, Party, []Party)  {}
func (NopReporter) OnForward(Party, Party, []Party)        {}
func (NopReporter) OnHangup(Party, string)                 {}
func (NopReporter) OnQueueCallerAbandon(Party)             {}
func (NopReporter) OnUserEvent(Party, ami.Event)           {}
func (NopReporter) Close() error                           { return nil }
