package callstate

import "sort"

// Relationship-graph traversals. These collapse the internal routing
// model (dial links and local channel pairs) into the logical call
// participants. They are pure with respect to the graph: no mutation,
// no notifications.
//
// All traversals resolve ids through the engine tables and carry a
// visited guard, since the link fields are weak references and a
// malformed event sequence could otherwise loop them forever.

// dialingChannel resolves the true A-party for a channel: walk the
// backDial link, flatten through the local-bridge pair of the result,
// and repeat until no further back-link exists. A channel without a
// back-link is its own root.
func (e *Engine) dialingChannel(c *Channel) *Channel {
	visited := map[string]struct{}{}
	cur := c
	for {
		if _, seen := visited[cur.UniqueID]; seen {
			e.defectf("dial back-link cycle at %s", cur.Name)
			return cur
		}
		visited[cur.UniqueID] = struct{}{}

		a := e.channelByID(cur.backDial)
		if a != nil && a.backLocalBridge != "" {
			// Our dialer is the forward half of a local pair; continue
			// resolution from the backward half.
			if back := e.channelByID(a.backLocalBridge); back != nil {
				a = back
			}
		}
		if a == nil {
			return cur
		}
		cur = a
	}
}

// dialedChannels resolves the non-routing leaves currently being
// dialed on behalf of a channel, flattening single-hop local pairs.
// Routing chains deeper than one hop are unsupported and flagged.
func (e *Engine) dialedChannels(c *Channel) []*Channel {
	leaves := map[string]*Channel{}
	e.collectDialed(c, leaves, map[string]struct{}{})
	return sortChannels(leaves)
}

func (e *Engine) collectDialed(c *Channel, leaves map[string]*Channel, visited map[string]struct{}) {
	if _, seen := visited[c.UniqueID]; seen {
		e.defectf("dial forward-link cycle at %s", c.Name)
		return
	}
	visited[c.UniqueID] = struct{}{}

	for _, id := range c.fwdDials {
		b := e.channelByID(id)
		if b == nil {
			continue
		}
		if b.fwdLocalBridge != "" {
			other := e.channelByID(b.fwdLocalBridge)
			if other == nil {
				continue
			}
			if other.fwdLocalBridge != "" {
				e.defectf("local channel chain deeper than one hop at %s", other.Name)
				continue
			}
			e.collectDialed(other, leaves, visited)
		} else {
			if len(b.fwdDials) != 0 {
				e.defectf("dialed leaf %s has open dials of its own", b.Name)
			}
			leaves[b.UniqueID] = b
		}
	}
}

// bridgePeers resolves all non-routing channels transitively reachable
// from a channel's bridge, including the bridges on the far side of
// its local-bridge links. The result never contains a local channel.
func (e *Engine) bridgePeers(c *Channel) []*Channel {
	peers := map[string]*Channel{}
	visited := map[string]struct{}{}

	e.collectBridgePeers(c, peers, visited)

	if fwd := e.channelByID(c.fwdLocalBridge); fwd != nil {
		e.collectBridgePeers(fwd, peers, visited)
	}
	if back := e.channelByID(c.backLocalBridge); back != nil {
		e.collectBridgePeers(back, peers, visited)
	}

	return sortChannels(peers)
}

func (e *Engine) collectBridgePeers(c *Channel, peers map[string]*Channel, visited map[string]struct{}) {
	bridge := e.bridgeByID(c.bridgeID)
	if bridge == nil {
		return
	}
	if _, seen := visited[bridge.UniqueID]; seen {
		return
	}
	visited[bridge.UniqueID] = struct{}{}

	if !c.IsLocal() {
		peers[c.UniqueID] = c
	}

	for _, id := range bridge.peerIDs() {
		if id == c.UniqueID {
			continue
		}
		peer := e.channelByID(id)
		if peer == nil {
			continue
		}
		switch {
		case !peer.IsLocal():
			peers[peer.UniqueID] = peer
		case peer.fwdLocalBridge != "":
			if other := e.channelByID(peer.fwdLocalBridge); other != nil {
				e.collectBridgePeers(other, peers, visited)
			}
		case peer.backLocalBridge != "":
			if other := e.channelByID(peer.backLocalBridge); other != nil {
				e.collectBridgePeers(other, peers, visited)
			}
		}
	}
}

// sortChannels flattens a channel set into a slice ordered by the
// creation sequence in the channel name, so derived notifications are
// deterministic across replays.
func sortChannels(set map[string]*Channel) []*Channel {
	out := make([]*Channel, 0, len(set))
	for _, ch := range set {
		out = append(out, ch)
	}
	sort.Slice(out, func(i, j int) bool {
		if a, b := out[i].nameSeq(), out[j].nameSeq(); a != b {
			return a < b
		}
		return out[i].UniqueID < out[j].UniqueID
	})
	return out
}
