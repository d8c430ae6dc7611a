package callstate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sweeney/callwatch/internal/ami"
)

func TestNewBridgeRequiresID(t *testing.T) {
	_, err := newBridge(ami.NewEvent("Event", "BridgeCreate"))
	require.Error(t, err)

	b, err := newBridge(ami.NewEvent("Event", "BridgeCreate",
		"BridgeUniqueid", "b-1",
		"BridgeType", "basic",
		"BridgeTechnology", "simple_bridge"))
	require.NoError(t, err)
	assert.Equal(t, "b-1", b.UniqueID)
	assert.Equal(t, "basic", b.Type)
	assert.Equal(t, "simple_bridge", b.Technology)
	assert.Zero(t, b.Len())
}

func TestBridgePeerBookkeeping(t *testing.T) {
	b, err := newBridge(ami.NewEvent("Event", "BridgeCreate", "BridgeUniqueid", "b-1"))
	require.NoError(t, err)

	b.addPeer("z")
	b.addPeer("a")
	b.addPeer("a")
	assert.Equal(t, 2, b.Len())
	assert.Equal(t, []string{"a", "z"}, b.peerIDs())

	b.removePeer("a")
	b.removePeer("never-there")
	assert.Equal(t, []string{"z"}, b.peerIDs())
}
