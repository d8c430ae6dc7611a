package callstate

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/sweeney/callwatch/internal/ami"
	"github.com/sweeney/callwatch/internal/callerid"
)

// Channel is one endpoint of a call leg inside the switch. Instances
// are owned exclusively by the engine's channel table; everything
// handed to reporters is a Party snapshot.
//
// Relationship fields hold unique ids, not pointers, so a channel can
// be removed from the table independently of anything still referring
// to it. Traversals resolve ids through the table and treat dangling
// references as absent.
type Channel struct {
	UniqueID    string
	LinkedID    string
	Name        string
	AccountCode string
	Exten       string
	State       int

	CallerID      callerid.CallerID
	ConnectedLine callerid.CallerID
	CallingPres   string

	// Relationship graph (weak, id-based).
	fwdLocalBridge  string   // other half of a local channel pair, forward
	backLocalBridge string   // other half of a local channel pair, backward
	backDial        string   // channel currently dialing us
	fwdDials        []string // channels we are currently dialing
	bridgeID        string   // bridge we currently occupy

	isCalling    bool
	isOriginated bool

	// Scratch flags used by the engine to disambiguate transfers.
	suppressRing   bool           // consume the next ringing evaluation
	suppressHangup bool           // leg already reported via a transfer
	pickedUp       bool           // an up notification went out for this call
	blindTransfer  *blindTransfer // pending blind transfer on this channel
}

// blindTransfer stashes who initiated a blind transfer. The transferer
// channel usually hangs up before the target answers, so a snapshot is
// kept alongside the id.
type blindTransfer struct {
	transfererID string
	transferer   Party
}

// newChannel builds a Channel from a Newchannel event. The identifying
// fields are required; a creation event without them is rejected.
func newChannel(evt ami.Event) (*Channel, error) {
	name := evt.Get("Channel")
	uniqueID := evt.Get("Uniqueid")
	linkedID := evt.Get("Linkedid")
	if name == "" || uniqueID == "" || linkedID == "" {
		return nil, fmt.Errorf("newchannel event missing identity fields: name=%q uniqueid=%q linkedid=%q",
			name, uniqueID, linkedID)
	}

	return &Channel{
		UniqueID:      uniqueID,
		LinkedID:      linkedID,
		Name:          name,
		AccountCode:   evt.Get("AccountCode"),
		Exten:         evt.Get("Exten"),
		State:         evt.GetInt("ChannelState"),
		CallerID:      callerid.New(evt.Get("CallerIDName"), evt.Get("CallerIDNum")),
		ConnectedLine: callerid.New(evt.Get("ConnectedLineName"), evt.Get("ConnectedLineNum")),
		// The first channel of a call attempt shares its unique id
		// with the linked id and starts out as the calling party.
		isCalling: uniqueID == linkedID,
	}, nil
}

// IsLocal reports whether this channel is one half of an internal
// local channel pair, used purely as call-routing plumbing. Local
// channels never appear in derived notifications.
func (c *Channel) IsLocal() bool {
	return strings.HasPrefix(c.Name, "Local/")
}

// HasExtension reports whether the channel has a routable extension:
// not empty, not the "s" dialplan placeholder and not a feature code.
func (c *Channel) HasExtension() bool {
	return c.Exten != "" && c.Exten != "s" && !strings.HasPrefix(c.Exten, "*")
}

// nameSeq returns the per-technology creation sequence suffix of the
// channel name ("SIP/202-0000002a" -> "0000002a"). Asterisk assigns
// these monotonically, which makes them a stable ordering key.
func (c *Channel) nameSeq() string {
	if i := strings.LastIndex(c.Name, "-"); i >= 0 {
		return c.Name[i+1:]
	}
	return c.Name
}

func (c *Channel) String() string {
	return fmt.Sprintf("<Channel %s id=%s linkedid=%s state=%d cli=%s exten=%s>",
		c.Name, c.UniqueID, c.LinkedID, c.State, c.CallerID, c.Exten)
}

// Party is an immutable snapshot of a channel's externally relevant
// data, taken at notification time. Reporters never observe later
// channel mutation through a Party.
type Party struct {
	Name          string            `json:"name"`
	UniqueID      string            `json:"uniqueid"`
	LinkedID      string            `json:"linkedid"`
	AccountCode   string            `json:"account_code,omitempty"`
	CallerID      callerid.CallerID `json:"caller_id"`
	CallingPres   string            `json:"calling_pres,omitempty"`
	ConnectedLine callerid.CallerID `json:"connected_line"`
	Exten         string            `json:"exten,omitempty"`
	State         int               `json:"state"`
}

// Party snapshots the channel. The account code is folded into the
// caller id code field when it is numeric.
func (c *Channel) Party() Party {
	cid := c.CallerID
	if code, err := strconv.Atoi(c.AccountCode); err == nil {
		cid = cid.WithCode(code)
	}
	return Party{
		Name:          c.Name,
		UniqueID:      c.UniqueID,
		LinkedID:      c.LinkedID,
		AccountCode:   c.AccountCode,
		CallerID:      cid,
		CallingPres:   c.CallingPres,
		ConnectedLine: c.ConnectedLine,
		Exten:         c.Exten,
		State:         c.State,
	}
}
