package server

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fanout records a single delivery performed by the router.
type fanout struct {
	kind  string // "unicast", "multicast", "broadcast"
	room  string
	event any
}

// recordingBroadcaster captures fan-outs instead of delivering them.
type recordingBroadcaster struct {
	deliveries []fanout
}

func (r *recordingBroadcaster) unicast(_ *Client, event any) {
	r.deliveries = append(r.deliveries, fanout{kind: "unicast", event: event})
}

func (r *recordingBroadcaster) multicast(room string, event any) {
	r.deliveries = append(r.deliveries, fanout{kind: "multicast", room: room, event: event})
}

func (r *recordingBroadcaster) broadcastAll(event any) {
	r.deliveries = append(r.deliveries, fanout{kind: "broadcast", event: event})
}

func newTestRouter(seedRooms ...string) (*Router, *Registry, *recordingBroadcaster) {
	registry := newRegistry()
	rooms := newDirectory(seedRooms)
	sink := &recordingBroadcaster{}
	return newRouter(registry, rooms, sink), registry, sink
}

func registerTestClient(registry *Registry, username, room string) *Client {
	c := newTestClient(username, room)
	registry.add(c)
	return c
}

func TestRouterUserUpdateBroadcastsUserList(t *testing.T) {
	router, registry, sink := newTestRouter("general")
	c := registerTestClient(registry, "", "")

	router.dispatch(c, ClientEvent{Type: EventUserUpdate, Username: "alice"})

	assert.Equal(t, "alice", c.username)
	require.Len(t, sink.deliveries, 1)
	assert.Equal(t, "broadcast", sink.deliveries[0].kind)
	assert.Equal(t, newUserListEvent([]string{"alice"}), sink.deliveries[0].event)
}

func TestRouterUserUpdateEmptyUsernameDropped(t *testing.T) {
	router, registry, sink := newTestRouter("general")
	c := registerTestClient(registry, "", "")

	router.dispatch(c, ClientEvent{Type: EventUserUpdate})

	assert.Empty(t, c.username)
	assert.Empty(t, sink.deliveries)
}

func TestRouterJoinRoomRequiresUsername(t *testing.T) {
	router, registry, sink := newTestRouter("general")
	c := registerTestClient(registry, "", "")

	router.dispatch(c, ClientEvent{Type: EventJoinRoom, Room: "general"})

	assert.Empty(t, c.room)
	assert.Empty(t, sink.deliveries)
}

func TestRouterJoinRoomBroadcastsCount(t *testing.T) {
	router, registry, sink := newTestRouter("general")
	c := registerTestClient(registry, "alice", "")

	router.dispatch(c, ClientEvent{Type: EventJoinRoom, Room: "general"})

	assert.Equal(t, "general", c.room)
	require.Len(t, sink.deliveries, 1)
	assert.Equal(t, "multicast", sink.deliveries[0].kind)
	assert.Equal(t, "general", sink.deliveries[0].room)
	assert.Equal(t, newRoomCountEvent(1), sink.deliveries[0].event)
}

func TestRouterJoinRoomSwitchAnnouncesBothRooms(t *testing.T) {
	router, registry, sink := newTestRouter("general", "tech")
	alice := registerTestClient(registry, "alice", "")
	bob := registerTestClient(registry, "bob", "")

	router.dispatch(alice, ClientEvent{Type: EventJoinRoom, Room: "general"})
	router.dispatch(bob, ClientEvent{Type: EventJoinRoom, Room: "general"})
	sink.deliveries = nil

	router.dispatch(alice, ClientEvent{Type: EventJoinRoom, Room: "tech"})

	require.Len(t, sink.deliveries, 2)
	assert.Equal(t, fanout{kind: "multicast", room: "general", event: newRoomCountEvent(1)}, sink.deliveries[0])
	assert.Equal(t, fanout{kind: "multicast", room: "tech", event: newRoomCountEvent(1)}, sink.deliveries[1])
}

func TestRouterJoinRoomImplicitlyCreates(t *testing.T) {
	router, registry, sink := newTestRouter("general")
	c := registerTestClient(registry, "alice", "")

	router.dispatch(c, ClientEvent{Type: EventJoinRoom, Room: "hideout"})

	assert.True(t, router.rooms.exists("hideout"))
	require.Len(t, sink.deliveries, 1)
	assert.Equal(t, newRoomCountEvent(1), sink.deliveries[0].event)

	// A later explicit create of the same name is a silent no-op.
	sink.deliveries = nil
	router.dispatch(c, ClientEvent{Type: EventCreateRoom, Room: "hideout"})
	assert.Empty(t, sink.deliveries)
}

func TestRouterJoinRoomEmptyNameDropped(t *testing.T) {
	router, registry, sink := newTestRouter("general")
	c := registerTestClient(registry, "alice", "")

	router.dispatch(c, ClientEvent{Type: EventJoinRoom})

	assert.Empty(t, c.room)
	assert.Empty(t, sink.deliveries)
}

func TestRouterChatMessageRelayedToRoom(t *testing.T) {
	router, registry, sink := newTestRouter("general")
	c := registerTestClient(registry, "alice", "general")
	timestamp := json.RawMessage(`"2026-08-31T12:00:00Z"`)

	router.dispatch(c, ClientEvent{Type: EventMessage, Message: "hi", Timestamp: timestamp})

	require.Len(t, sink.deliveries, 1)
	assert.Equal(t, "multicast", sink.deliveries[0].kind)
	assert.Equal(t, "general", sink.deliveries[0].room)
	assert.Equal(t, ChatMessageEvent{
		Type:      EventMessage,
		Room:      "general",
		Username:  "alice",
		Message:   "hi",
		Timestamp: timestamp,
	}, sink.deliveries[0].event)
}

func TestRouterChatMessagePreconditions(t *testing.T) {
	router, registry, sink := newTestRouter("general")
	noName := registerTestClient(registry, "", "general")
	noRoom := registerTestClient(registry, "alice", "")

	router.dispatch(noName, ClientEvent{Type: EventMessage, Message: "hi"})
	router.dispatch(noRoom, ClientEvent{Type: EventMessage, Message: "hi"})

	assert.Empty(t, sink.deliveries)
}

func TestRouterCreateRoomBroadcasts(t *testing.T) {
	router, registry, sink := newTestRouter("general")
	c := registerTestClient(registry, "alice", "")

	router.dispatch(c, ClientEvent{Type: EventCreateRoom, Room: "gaming"})

	require.Len(t, sink.deliveries, 2)
	assert.Equal(t, "broadcast", sink.deliveries[0].kind)
	assert.Equal(t, newRoomListEvent([]string{"general", "gaming"}), sink.deliveries[0].event)
	assert.Equal(t, "broadcast", sink.deliveries[1].kind)
	assert.Equal(t, newSystemEvent(fmt.Sprintf("%s created a new room: %s", "alice", "gaming")), sink.deliveries[1].event)
}

func TestRouterCreateRoomSilentFailures(t *testing.T) {
	router, registry, sink := newTestRouter("general")
	c := registerTestClient(registry, "alice", "")
	anon := registerTestClient(registry, "", "")

	router.dispatch(c, ClientEvent{Type: EventCreateRoom, Room: "general"})
	router.dispatch(c, ClientEvent{Type: EventCreateRoom, Room: "   "})
	router.dispatch(c, ClientEvent{Type: EventCreateRoom, Room: ""})
	router.dispatch(anon, ClientEvent{Type: EventCreateRoom, Room: "gaming"})

	assert.Empty(t, sink.deliveries)
	assert.False(t, router.rooms.exists("gaming"))
}

func TestRouterUnknownEventTypeDropped(t *testing.T) {
	router, registry, sink := newTestRouter("general")
	c := registerTestClient(registry, "alice", "")

	router.dispatch(c, ClientEvent{Type: "bogus"})

	assert.Empty(t, sink.deliveries)
}

func TestRouterUnregisteredClientDropped(t *testing.T) {
	router, _, sink := newTestRouter("general")
	ghost := newTestClient("", "")

	router.dispatch(ghost, ClientEvent{Type: EventUserUpdate, Username: "ghost"})

	assert.Empty(t, ghost.username)
	assert.Empty(t, sink.deliveries)
}

func TestRouterDisconnectAnnouncesRoomCount(t *testing.T) {
	router, registry, sink := newTestRouter("general")
	alice := registerTestClient(registry, "alice", "")
	bob := registerTestClient(registry, "bob", "")
	router.dispatch(alice, ClientEvent{Type: EventJoinRoom, Room: "general"})
	router.dispatch(bob, ClientEvent{Type: EventJoinRoom, Room: "general"})
	sink.deliveries = nil

	registry.remove(alice)
	router.handleDisconnect(alice)

	require.Len(t, sink.deliveries, 1)
	assert.Equal(t, fanout{kind: "multicast", room: "general", event: newRoomCountEvent(1)}, sink.deliveries[0])
}

func TestRouterDisconnectWithoutRoomIsQuiet(t *testing.T) {
	router, registry, sink := newTestRouter("general")
	c := registerTestClient(registry, "alice", "")

	registry.remove(c)
	router.handleDisconnect(c)

	assert.Empty(t, sink.deliveries)
}

func TestRouterAllDisconnectConvergesToEmpty(t *testing.T) {
	router, registry, sink := newTestRouter("general")

	clients := make([]*Client, 0, 5)
	for i := 0; i < 5; i++ {
		c := registerTestClient(registry, "", "")
		router.dispatch(c, ClientEvent{Type: EventUserUpdate, Username: fmt.Sprintf("user-%d", i)})
		clients = append(clients, c)
	}

	for _, c := range clients {
		registry.remove(c)
		router.handleDisconnect(c)
	}

	assert.Empty(t, registry.usernames())
	require.NotEmpty(t, sink.deliveries)
}
