// Package server defines the JSON wire events exchanged with chat clients and
// helpers shared across client and hub logic.
package server

import (
	"encoding/json"
	"strings"
)

// Inbound event types accepted from clients.
const (
	EventUserUpdate = "user_update"
	EventJoinRoom   = "join_room"
	EventMessage    = "message"
	EventCreateRoom = "create_room"
)

// Outbound event types sent to clients.
const (
	EventSystem    = "system"
	EventRooms     = "rooms"
	EventUsers     = "users"
	EventRoomUsers = "room_users"
)

// ClientEvent is the envelope for every inbound frame. Fields beyond Type are
// populated depending on the event type. Timestamp is opaque to the server and
// echoed back verbatim on relayed messages.
type ClientEvent struct {
	Type      string          `json:"type"`
	Username  string          `json:"username,omitempty"`
	Room      string          `json:"room,omitempty"`
	Message   string          `json:"message,omitempty"`
	Timestamp json.RawMessage `json:"timestamp,omitempty"`
}

// SystemEvent carries a server notice shown to users.
type SystemEvent struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// RoomListEvent carries the full room-name list in creation order.
type RoomListEvent struct {
	Type  string   `json:"type"`
	Rooms []string `json:"rooms"`
}

// UserListEvent carries every non-empty display name in registration order.
type UserListEvent struct {
	Type  string   `json:"type"`
	Users []string `json:"users"`
}

// RoomCountEvent carries the member count of the receiving client's room.
// Count is deliberately not omitempty: an empty room reports 0.
type RoomCountEvent struct {
	Type  string `json:"type"`
	Count int    `json:"count"`
}

// ChatMessageEvent is a relayed chat message scoped to one room.
type ChatMessageEvent struct {
	Type      string          `json:"type"`
	Room      string          `json:"room"`
	Username  string          `json:"username"`
	Message   string          `json:"message"`
	Timestamp json.RawMessage `json:"timestamp,omitempty"`
}

func newSystemEvent(message string) SystemEvent {
	return SystemEvent{Type: EventSystem, Message: message}
}

func newRoomListEvent(rooms []string) RoomListEvent {
	return RoomListEvent{Type: EventRooms, Rooms: rooms}
}

func newUserListEvent(users []string) UserListEvent {
	return UserListEvent{Type: EventUsers, Users: users}
}

func newRoomCountEvent(count int) RoomCountEvent {
	return RoomCountEvent{Type: EventRoomUsers, Count: count}
}

// isExpectedCloseError checks if an error is expected during connection closure.
func isExpectedCloseError(err error) bool {
	if err == nil {
		return true
	}
	errStr := err.Error()
	return strings.Contains(errStr, "use of closed network connection") ||
		strings.Contains(errStr, "websocket: close sent") ||
		strings.Contains(errStr, "broken pipe")
}
