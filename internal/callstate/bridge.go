package callstate

import (
	"fmt"
	"sort"
	"strings"

	"github.com/sweeney/callwatch/internal/ami"
)

// Bridge is a media-mixing group of channels. Peers are held as
// channel ids; the engine's channel table is the single owner of the
// channels themselves.
type Bridge struct {
	UniqueID        string
	Type            string
	Technology      string
	Creator         string
	VideoSourceMode string

	peers map[string]struct{}
}

func newBridge(evt ami.Event) (*Bridge, error) {
	id := evt.Get("BridgeUniqueid")
	if id == "" {
		return nil, fmt.Errorf("bridgecreate event missing BridgeUniqueid")
	}
	return &Bridge{
		UniqueID:        id,
		Type:            evt.Get("BridgeType"),
		Technology:      evt.Get("BridgeTechnology"),
		Creator:         evt.Get("BridgeCreator"),
		VideoSourceMode: evt.Get("BridgeVideoSourceMode"),
		peers:           make(map[string]struct{}),
	}, nil
}

// Len returns the number of channels in this bridge.
func (b *Bridge) Len() int {
	return len(b.peers)
}

func (b *Bridge) addPeer(id string) {
	b.peers[id] = struct{}{}
}

func (b *Bridge) removePeer(id string) {
	delete(b.peers, id)
}

// peerIDs returns the peer channel ids in sorted order so traversal
// results do not depend on map iteration.
func (b *Bridge) peerIDs() []string {
	ids := make([]string, 0, len(b.peers))
	for id := range b.peers {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (b *Bridge) String() string {
	return fmt.Sprintf("<Bridge id=%s peers=%s>", b.UniqueID, strings.Join(b.peerIDs(), ","))
}
