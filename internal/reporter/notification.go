// Package reporter contains the notification sinks fed by the
// callstate engine: structured logging, NDJSON, MQTT, Redis pub/sub,
// a fan-out and an in-memory recorder for tests.
package reporter

import (
	"github.com/sweeney/callwatch/internal/ami"
	"github.com/sweeney/callwatch/internal/callstate"
)

// Kind identifies a derived call notification.
type Kind string

const (
	KindBDial              Kind = "b_dial"
	KindUp                 Kind = "up"
	KindAttendedTransfer   Kind = "attended_transfer"
	KindBlondeTransfer     Kind = "blonde_transfer"
	KindBlindTransfer      Kind = "blind_transfer"
	KindForward            Kind = "forward"
	KindHangup             Kind = "hangup"
	KindQueueCallerAbandon Kind = "queue_caller_abandon"
	KindUserEvent          Kind = "user_event"
)

// Notification is the wire form of a derived call notification, shared
// by the serializing sinks.
type Notification struct {
	Kind       Kind              `json:"event"`
	Caller     callstate.Party   `json:"caller"`
	Target     *callstate.Party  `json:"target,omitempty"`
	Transferer *callstate.Party  `json:"transferer,omitempty"`
	Loser      *callstate.Party  `json:"loser,omitempty"`
	Targets    []callstate.Party `json:"targets,omitempty"`
	Reason     string            `json:"reason,omitempty"`
	UserEvent  map[string]string `json:"user_event,omitempty"`
}

// emitter adapts the callstate.Reporter notification methods onto a
// single emit function. Sinks embed it and provide OnEvent/Close
// themselves.
type emitter struct {
	emit func(Notification)
}

func (e emitter) OnBDial(caller callstate.Party, targets []callstate.Party) {
	e.emit(Notification{Kind: KindBDial, Caller: caller, Targets: targets})
}

func (e emitter) OnUp(caller, target callstate.Party) {
	e.emit(Notification{Kind: KindUp, Caller: caller, Target: &target})
}

func (e emitter) OnAttendedTransfer(caller, transferer, target callstate.Party) {
	e.emit(Notification{Kind: KindAttendedTransfer, Caller: caller, Transferer: &transferer, Target: &target})
}

func (e emitter) OnBlondeTransfer(caller, transferer callstate.Party, targets []callstate.Party) {
	e.emit(Notification{Kind: KindBlondeTransfer, Caller: caller, Transferer: &transferer, Targets: targets})
}

func (e emitter) OnBlindTransfer(caller, transferer callstate.Party, targets []callstate.Party) {
	e.emit(Notification{Kind: KindBlindTransfer, Caller: caller, Transferer: &transferer, Targets: targets})
}

func (e emitter) OnForward(caller, loser callstate.Party, targets []callstate.Party) {
	e.emit(Notification{Kind: KindForward, Caller: caller, Loser: &loser, Targets: targets})
}

func (e emitter) OnHangup(caller callstate.Party, reason string) {
	e.emit(Notification{Kind: KindHangup, Caller: caller, Reason: reason})
}

func (e emitter) OnQueueCallerAbandon(caller callstate.Party) {
	e.emit(Notification{Kind: KindQueueCallerAbandon, Caller: caller})
}

func (e emitter) OnUserEvent(caller callstate.Party, evt ami.Event) {
	e.emit(Notification{Kind: KindUserEvent, Caller: caller, UserEvent: evt.Map()})
}
