package callstate

import (
	"fmt"
	"sort"

	"github.com/rs/zerolog"

	"github.com/sweeney/callwatch/internal/ami"
	"github.com/sweeney/callwatch/internal/callerid"
)

// Engine is the event-correlation state machine. It ingests low-level
// switch events one at a time, maintains the channel/bridge graph and
// derives high-level call notifications for its Reporter.
//
// An Engine tracks exactly one event source and is not safe for
// concurrent use; run one instance per switch, each fed from a single
// ordered sequence.
type Engine struct {
	channels map[string]*Channel
	bridges  map[string]*Bridge
	reporter Reporter
	log      zerolog.Logger
	strict   bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger for diagnostics and defect reports.
func WithLogger(l zerolog.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// Strict makes invariant violations panic instead of being contained
// per event. Intended for tests and development runs.
func Strict() Option {
	return func(e *Engine) { e.strict = true }
}

// NewEngine creates an Engine with empty tables, reporting to r.
func NewEngine(r Reporter, opts ...Option) *Engine {
	e := &Engine{
		channels: make(map[string]*Channel),
		bridges:  make(map[string]*Bridge),
		reporter: r,
		log:      zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ChannelCount returns the number of channels currently tracked.
func (e *Engine) ChannelCount() int { return len(e.channels) }

// BridgeCount returns the number of bridges currently tracked.
func (e *Engine) BridgeCount() int { return len(e.bridges) }

// defectError marks a violated invariant: a logic bug or an
// unsupported topology, as opposed to the expected mid-stream-attach
// misses which are logged and skipped inline.
type defectError string

func (d defectError) Error() string { return string(d) }

func (e *Engine) defectf(format string, args ...any) {
	panic(defectError(fmt.Sprintf(format, args...)))
}

// HandleEvent ingests one event, running to completion before the
// caller may deliver the next. Defects abort processing of the single
// offending event and are logged, unless the engine is strict, in
// which case they propagate as panics.
func (e *Engine) HandleEvent(evt ami.Event) {
	defer func() {
		if r := recover(); r != nil {
			d, ok := r.(defectError)
			if !ok || e.strict {
				panic(r)
			}
			e.log.Error().
				Str("event", evt.Type()).
				Msg("defect: " + d.Error())
		}
		e.reporter.OnEvent(evt)
	}()

	e.dispatch(evt)
}

func (e *Engine) dispatch(evt ami.Event) {
	switch evt.Type() {
	case "FullyBooted":
		e.onFullyBooted(evt)
	case "Newchannel":
		e.onNewChannel(evt)
	case "Newstate":
		e.onNewState(evt)
	case "LocalBridge":
		e.onLocalBridge(evt)
	case "Hangup":
		e.onHangup(evt)
	case "DialBegin":
		e.onDialBegin(evt)
	case "DialEnd":
		e.onDialEnd(evt)
	case "NewCallerid":
		e.onNewCallerID(evt)
	case "NewConnectedLine":
		e.onNewConnectedLine(evt)
	case "NewAccountCode":
		e.onNewAccountCode(evt)
	case "AttendedTransfer":
		e.onAttendedTransfer(evt)
	case "BlindTransfer":
		e.onBlindTransfer(evt)
	case "BridgeCreate":
		e.onBridgeCreate(evt)
	case "BridgeEnter":
		e.onBridgeEnter(evt)
	case "BridgeLeave":
		e.onBridgeLeave(evt)
	case "BridgeDestroy":
		e.onBridgeDestroy(evt)
	case "UserEvent":
		e.onUserEvent(evt)
	case "QueueCallerAbandon":
		e.onQueueCallerAbandon(evt)
	}
}

// channelByID resolves a weak channel reference. Empty ids and
// dangling references yield nil.
func (e *Engine) channelByID(id string) *Channel {
	if id == "" {
		return nil
	}
	return e.channels[id]
}

func (e *Engine) bridgeByID(id string) *Bridge {
	if id == "" {
		return nil
	}
	return e.bridges[id]
}

// channel looks up the channel referenced by the given event key.
// A miss is expected when attaching to a switch with calls already in
// progress, so it is logged and the event is dropped by the caller.
func (e *Engine) channel(evt ami.Event, key string) (*Channel, bool) {
	id := evt.Get(key)
	ch, ok := e.channels[id]
	if !ok {
		e.log.Warn().
			Str("event", evt.Type()).
			Str("uniqueid", id).
			Msg("channel not in memory, dropping event")
	}
	return ch, ok
}

func (e *Engine) bridge(evt ami.Event, key string) (*Bridge, bool) {
	id := evt.Get(key)
	b, ok := e.bridges[id]
	if !ok {
		e.log.Warn().
			Str("event", evt.Type()).
			Str("bridge", id).
			Msg("bridge not in memory, dropping event")
	}
	return b, ok
}

// onFullyBooted marks a (re)established connection to the switch.
// Anything still in the tables is stale state from a previous session.
func (e *Engine) onFullyBooted(evt ami.Event) {
	e.log.Info().Msg("connection to switch established")

	if len(e.bridges) > 0 {
		e.log.Warn().Int("bridges", len(e.bridges)).Msg("flushing stale bridges")
		e.bridges = make(map[string]*Bridge)
	}
	if len(e.channels) > 0 {
		e.log.Warn().Int("channels", len(e.channels)).Msg("flushing stale channels")
		e.channels = make(map[string]*Channel)
	}
}

func (e *Engine) onNewChannel(evt ami.Event) {
	ch, err := newChannel(evt)
	if err != nil {
		e.log.Warn().Err(err).Msg("rejecting channel creation event")
		return
	}
	e.channels[ch.UniqueID] = ch
}

func (e *Engine) onNewState(evt ami.Event) {
	ch, ok := e.channel(evt, "Uniqueid")
	if !ok {
		return
	}

	oldState := ch.State
	ch.State = evt.GetInt("ChannelState")
	if oldState == ch.State {
		e.defectf("state change without a state change on %s (state %d)", ch.Name, ch.State)
	}

	e.onStateChange(ch, oldState)
}

// onStateChange derives call progress from a state transition. A
// transition out of down into ring means the caller hears a dial tone,
// which is deliberately not reported. Out of down into ringing or up
// means a called phone started ringing.
func (e *Engine) onStateChange(ch *Channel, oldState int) {
	if ch.IsLocal() {
		return
	}

	if oldState == StateDown {
		switch ch.State {
		case StateRinging, StateUp:
			if ch.backDial != "" {
				e.evaluateRinging(ch)
			}
		}
	}
}

func (e *Engine) onLocalBridge(evt ami.Event) {
	one, ok := e.channel(evt, "LocalOneUniqueid")
	if !ok {
		return
	}
	two, ok := e.channel(evt, "LocalTwoUniqueid")
	if !ok {
		return
	}

	if one.fwdLocalBridge != "" || one.backLocalBridge != "" ||
		two.fwdLocalBridge != "" || two.backLocalBridge != "" {
		e.defectf("local bridge between already-linked channels %s and %s", one.Name, two.Name)
	}

	one.fwdLocalBridge = two.UniqueID
	two.backLocalBridge = one.UniqueID
}

func (e *Engine) onHangup(evt ami.Event) {
	ch, ok := e.channel(evt, "Uniqueid")
	if !ok {
		return
	}

	e.notifyHangup(ch, evt)

	// Unlink any local-bridge partner before dropping the channel.
	if fwd := e.channelByID(ch.fwdLocalBridge); fwd != nil {
		fwd.backLocalBridge = ""
	}
	if back := e.channelByID(ch.backLocalBridge); back != nil {
		back.fwdLocalBridge = ""
	}

	delete(e.channels, ch.UniqueID)

	if len(e.channels) == 0 {
		e.log.Debug().Msg("no channels left")
	}
}

func (e *Engine) onDialBegin(evt ami.Event) {
	if !evt.Has("DestUniqueid") {
		e.defectf("dial begin without a destination: %v", evt.Map())
	}

	dest, ok := e.channel(evt, "DestUniqueid")
	if !ok {
		return
	}

	if evt.Get("Uniqueid") == "" {
		// A dial with a destination but no source is created by an
		// Originate: the switch itself is calling.
		dest.isOriginated = true
		return
	}

	src, ok := e.channel(evt, "Uniqueid")
	if !ok {
		return
	}

	src.isCalling = true

	if dest.backDial != "" {
		e.defectf("dial target %s is already being dialed", dest.Name)
	}

	src.fwdDials = append(src.fwdDials, dest.UniqueID)
	dest.backDial = src.UniqueID

	// The destination may already be ringing if the dial was attached
	// late (call pickup, queue member dials).
	if !dest.IsLocal() && dest.State == StateRinging {
		e.evaluateRinging(dest)
	}
}

func (e *Engine) onDialEnd(evt ami.Event) {
	// Originate creates dials without a source; there is nothing to
	// pull apart for those.
	if evt.Get("Uniqueid") == "" || evt.Get("DestUniqueid") == "" {
		return
	}
	src, ok := e.channel(evt, "Uniqueid")
	if !ok {
		return
	}
	dest, ok := e.channel(evt, "DestUniqueid")
	if !ok {
		return
	}

	dest.backDial = ""
	for i, id := range src.fwdDials {
		if id == dest.UniqueID {
			src.fwdDials = append(src.fwdDials[:i], src.fwdDials[i+1:]...)
			break
		}
	}
}

func (e *Engine) onNewCallerID(evt ami.Event) {
	ch, ok := e.channel(evt, "Uniqueid")
	if !ok {
		return
	}
	ch.CallerID = ch.CallerID.
		WithName(evt.Get("CallerIDName")).
		WithNumber(evt.Get("CallerIDNum"))
	if pres := evt.Get("CID-CallingPres"); pres != "" {
		ch.CallingPres = pres
		ch.CallerID = ch.CallerID.WithPrivacy(callerid.ParsePresentation(pres))
	}
}

func (e *Engine) onNewConnectedLine(evt ami.Event) {
	ch, ok := e.channel(evt, "Uniqueid")
	if !ok {
		return
	}
	ch.ConnectedLine = ch.ConnectedLine.
		WithName(evt.Get("ConnectedLineName")).
		WithNumber(evt.Get("ConnectedLineNum"))
}

func (e *Engine) onNewAccountCode(evt ami.Event) {
	ch, ok := e.channel(evt, "Uniqueid")
	if !ok {
		return
	}
	ch.AccountCode = evt.Get("AccountCode")
}

func (e *Engine) onBridgeCreate(evt ami.Event) {
	if _, exists := e.bridges[evt.Get("BridgeUniqueid")]; exists {
		e.defectf("bridge %s already exists", evt.Get("BridgeUniqueid"))
	}
	b, err := newBridge(evt)
	if err != nil {
		e.log.Warn().Err(err).Msg("rejecting bridge creation event")
		return
	}
	e.bridges[b.UniqueID] = b
}

func (e *Engine) onBridgeEnter(evt ami.Event) {
	ch, ok := e.channel(evt, "Uniqueid")
	if !ok {
		return
	}
	b, ok := e.bridge(evt, "BridgeUniqueid")
	if !ok {
		return
	}

	b.addPeer(ch.UniqueID)
	ch.bridgeID = b.UniqueID

	e.evaluateConnected(ch)
}

func (e *Engine) onBridgeLeave(evt ami.Event) {
	ch, ok := e.channel(evt, "Uniqueid")
	if !ok {
		return
	}
	b, ok := e.bridge(evt, "BridgeUniqueid")
	if !ok {
		return
	}

	b.removePeer(ch.UniqueID)
	ch.bridgeID = ""
}

func (e *Engine) onBridgeDestroy(evt ami.Event) {
	b, ok := e.bridge(evt, "BridgeUniqueid")
	if !ok {
		return
	}
	if b.Len() != 0 {
		e.defectf("destroying non-empty bridge %s", b.UniqueID)
	}
	delete(e.bridges, b.UniqueID)
}

func (e *Engine) onUserEvent(evt ami.Event) {
	ch, ok := e.channel(evt, "Uniqueid")
	if !ok {
		return
	}
	e.reporter.OnUserEvent(ch.Party(), evt)
}

func (e *Engine) onQueueCallerAbandon(evt ami.Event) {
	ch, ok := e.channel(evt, "Uniqueid")
	if !ok {
		return
	}
	e.reporter.OnQueueCallerAbandon(ch.Party())
}

// evaluateRinging decides whether a ringing transition on ch warrants
// a notification, and which one. Ring groups dial many targets but
// notify once: the first target to ring reports all of them, the rest
// are marked to be skipped.
func (e *Engine) evaluateRinging(ch *Channel) {
	if ch.suppressRing {
		// A sibling in the same ring group already reported this dial.
		ch.suppressRing = false
		return
	}

	a := e.dialingChannel(ch)

	switch {
	case a.blindTransfer != nil:
		// A blind transfer was recorded on the A-party earlier; this
		// ringing target realizes it.
		stash := a.blindTransfer
		a.blindTransfer = nil

		targets := e.dialedChannels(a)
		for _, t := range targets {
			if t != ch {
				t.suppressRing = true
			}
		}

		transferer := stash.transferer
		if live := e.channelByID(stash.transfererID); live != nil {
			transferer = live.Party()
		}
		e.reporter.OnBlindTransfer(a.Party(), transferer, parties(targets))

	case a.isOriginated && len(a.fwdDials) > 0 && a.fwdLocalBridge != "":
		// Click-to-dial: the originating local pair first bridges the
		// initiating phone, then dials out. Present the call as coming
		// from that phone rather than from the plumbing.
		e.evaluateOriginatedRinging(a, ch)

	case !a.IsLocal():
		targets := e.dialedChannels(a)

		if !a.HasExtension() {
			e.log.Error().
				Str("caller", a.Name).
				Str("destination", ch.Name).
				Msg("caller has no valid extension")
		}
		if len(targets) == 0 {
			e.log.Error().
				Str("caller", a.Name).
				Str("destination", ch.Name).
				Msg("caller has no dialed channels")
		}

		e.reporter.OnBDial(a.Party(), parties(targets))

		for _, t := range targets {
			if t != ch {
				t.suppressRing = true
			}
		}
	}
}

// evaluateOriginatedRinging handles the two-hop pattern of originated
// calls: orig is the local half that dialed out, ch the phone that is
// now ringing. The real A-party is the non-routing peer in the bridge
// on the far side of orig's local pair.
func (e *Engine) evaluateOriginatedRinging(orig, ch *Channel) {
	fwd := e.channelByID(orig.fwdLocalBridge)
	if fwd == nil {
		return
	}
	bridge := e.bridgeByID(fwd.bridgeID)
	if bridge == nil {
		return
	}

	var a *Channel
	for _, id := range bridge.peerIDs() {
		if peer := e.channelByID(id); peer != nil && !peer.IsLocal() {
			a = peer
			break
		}
	}
	if a == nil {
		return
	}

	// Make the call look like a normal dial from the initiating phone
	// to the originated target.
	if dialed := e.channelByID(orig.fwdDials[0]); dialed != nil {
		a.Exten = dialed.Exten
	}
	a.isCalling = true

	if !a.HasExtension() {
		e.log.Error().
			Str("caller", a.Name).
			Msg("originated caller has no valid extension")
	}

	e.reporter.OnBDial(a.Party(), []Party{ch.Party()})
}

// evaluateConnected decides whether a bridge membership change amounts
// to a call being connected. Reported once per logical call.
func (e *Engine) evaluateConnected(ch *Channel) {
	peers := e.bridgePeers(ch)
	if len(peers) < 2 {
		return
	}

	var callers, targets []*Channel
	for _, peer := range peers {
		if peer.isCalling {
			callers = append(callers, peer)
		} else {
			targets = append(targets, peer)
		}
	}

	var caller *Channel
	switch {
	case len(callers) > 1:
		// Multiple callers can meet in one bridge after an AB-CB-AC
		// transfer sequence. The oldest channel stays the caller, the
		// others are demoted to targets.
		sort.Slice(callers, func(i, j int) bool {
			return callers[i].nameSeq() < callers[j].nameSeq()
		})
		caller = callers[0]
		for _, demoted := range callers[1:] {
			demoted.isCalling = false
			targets = append(targets, demoted)
		}
	case len(callers) == 0:
		e.log.Warn().
			Str("linkedid", ch.LinkedID).
			Msg("call has no calling party")
		return
	default:
		caller = callers[0]
	}

	if len(targets) != 1 {
		// Three or more parties means a conference, which is not a
		// two-party call and is not supported.
		e.log.Warn().
			Str("linkedid", ch.LinkedID).
			Int("targets", len(targets)).
			Msg("call does not have exactly one target")
		return
	}

	if !caller.pickedUp {
		caller.pickedUp = true
		e.reporter.OnUp(caller.Party(), targets[0].Party())
	}
}

func (e *Engine) onAttendedTransfer(evt ami.Event) {
	orig, ok := e.channel(evt, "OrigTransfererUniqueid")
	if !ok {
		return
	}
	second, ok := e.channel(evt, "SecondTransfererUniqueid")
	if !ok {
		return
	}

	switch {
	case evt.Get("DestType") == "Bridge":
		e.completeAttendedTransfer(orig, second, evt)
	case evt.Get("DestType") == "App" && evt.Get("DestApp") == "Dial":
		e.completeBlondeTransfer(orig, second, evt)
	default:
		e.defectf("unsupported transfer destination %q for %s", evt.Get("DestType"), orig.Name)
	}
}

// completeAttendedTransfer resolves who was transferred to whom and
// reports it. The transferee becomes the new A-party of the surviving
// call; both transferer legs are obsolete and must not report their
// own hangups.
func (e *Engine) completeAttendedTransfer(orig, second *Channel, evt ami.Event) {
	var transferee, target *Channel

	if evt.Has("TransfereeUniqueid") && evt.Has("TransferTargetUniqueid") {
		var ok bool
		transferee, ok = e.channel(evt, "TransfereeUniqueid")
		if !ok {
			return
		}
		target, ok = e.channel(evt, "TransferTargetUniqueid")
		if !ok {
			return
		}
	} else {
		// The event does not say who is who; derive it from the
		// destination bridge. The peer still carrying the pre-transfer
		// linked id is the transferee.
		bridge, ok := e.bridge(evt, "DestBridgeUniqueid")
		if !ok {
			return
		}
		if bridge.Len() < 2 {
			e.log.Warn().
				Str("bridge", bridge.UniqueID).
				Msg("transfer destination bridge has too few peers")
			return
		}

		ids := bridge.peerIDs()
		one, two := e.channelByID(ids[0]), e.channelByID(ids[1])
		if one == nil || two == nil {
			return
		}
		switch evt.Get("OrigTransfererLinkedid") {
		case one.LinkedID:
			transferee, target = one, two
		case two.LinkedID:
			transferee, target = two, one
		default:
			e.defectf("cannot resolve transferee after attended transfer on %s", orig.Name)
			return
		}
	}

	if transferee.IsLocal() {
		// The transferee can be an unoptimized local channel; unwind
		// to the real endpoint behind it.
		for _, peer := range e.bridgePeers(transferee) {
			if peer != target && peer != second && peer != orig {
				transferee = peer
			}
		}
	}

	transferee.isCalling = true

	// The transferee is the caller of the surviving call, so it needs
	// a valid extension. Use the most specific one the event offers.
	switch {
	case evt.Get("SecondTransfererExten") != "":
		transferee.Exten = evt.Get("SecondTransfererExten")
	case evt.Get("OrigTransfererExten") != "":
		transferee.Exten = evt.Get("OrigTransfererExten")
	default:
		transferee.Exten = evt.Get("TransferTargetCallerIDNum")
	}

	if !transferee.HasExtension() {
		e.log.Error().
			Str("transferee", transferee.Name).
			Msg("attended transferee has no valid extension")
	}

	// A previous caller may end up as the target of the transfer.
	target.isCalling = false

	e.reporter.OnAttendedTransfer(transferee.Party(), second.Party(), target.Party())

	orig.suppressHangup = true
	second.suppressHangup = true
}

// completeBlondeTransfer handles an attended transfer that was
// finished before the target picked up. The transferee takes over the
// pending dial; the connected notification follows when someone
// answers.
func (e *Engine) completeBlondeTransfer(orig, second *Channel, evt ami.Event) {
	transferee, ok := e.channel(evt, "TransfereeUniqueid")
	if !ok {
		return
	}

	// The next bridge enter on the transferee is a fresh call.
	transferee.pickedUp = false
	transferee.isCalling = true
	transferee.Exten = second.Exten

	if !transferee.HasExtension() {
		e.log.Error().
			Str("transferee", transferee.Name).
			Msg("blonde transferee has no valid extension")
	}

	set := map[string]*Channel{}
	for _, t := range e.dialedChannels(second) {
		set[t.UniqueID] = t
	}
	for _, t := range e.dialedChannels(transferee) {
		set[t.UniqueID] = t
	}
	targets := sortChannels(set)

	e.reporter.OnBlondeTransfer(transferee.Party(), second.Party(), parties(targets))

	orig.suppressHangup = true
	second.suppressHangup = true
}

// onBlindTransfer records a blind transfer on the transferee. The
// notification itself is deferred until a transfer target starts
// ringing, which is when the dial becomes visible.
func (e *Engine) onBlindTransfer(evt ami.Event) {
	transferer, ok := e.channel(evt, "TransfererUniqueid")
	if !ok {
		return
	}
	transferee, ok := e.channel(evt, "TransfereeUniqueid")
	if !ok {
		return
	}

	transferee.blindTransfer = &blindTransfer{
		transfererID: transferer.UniqueID,
		transferer:   transferer.Party(),
	}

	// The transfer starts a fresh call for the transferee; allow a new
	// connected notification when the target answers.
	transferee.pickedUp = false

	// The transferer drops out and must not report the old call ended.
	transferer.suppressHangup = true

	// Make it look like the transferee is calling the target.
	transferee.isCalling = true
	transferee.Exten = evt.Get("Extension")
	transferer.Exten = evt.Get("Extension")
}

// notifyHangup applies the hangup notification rules before the
// channel is dropped from the table.
func (e *Engine) notifyHangup(ch *Channel, evt ami.Event) {
	if ch.IsLocal() {
		return
	}

	switch {
	case ch.blindTransfer != nil:
		// A blind transfer was pending on this channel but it is being
		// hung up: the target was never reached. No channel to the
		// third party exists, so report the call as it stood.
		stash := ch.blindTransfer
		ch.blindTransfer = nil

		caller := ch.Party()
		if live := e.channelByID(stash.transfererID); live != nil && live.isCalling {
			caller = live.Party()
		}
		e.reporter.OnHangup(caller, ReasonCompleted)

	case ch.suppressHangup:
		// This leg was already reported as ended by a transfer.

	case ch.isCalling:
		e.reporter.OnHangup(ch.Party(), HangupReason(evt.GetInt("Cause"), ch.State))
	}
}

func parties(channels []*Channel) []Party {
	out := make([]Party, 0, len(channels))
	for _, ch := range channels {
		out = append(out, ch.Party())
	}
	return out
}
