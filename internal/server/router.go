// Package server dispatches inbound client events to the registry and room
// directory and triggers the resulting fan-outs via the Router type.
package server

import (
	"fmt"
	"log"
)

// broadcaster is the delivery surface the router fans out through. The hub
// implements it; tests substitute a recorder.
type broadcaster interface {
	unicast(c *Client, event any)
	multicast(room string, event any)
	broadcastAll(event any)
}

// Router routes each inbound event to its handler. Every handler mutates
// shared state and computes its broadcast targets inside the hub's serialized
// event loop, so each fan-out sees the state its own mutation produced.
//
// Failure handling is deliberately silent toward the sender: precondition
// violations and unknown event types are logged and dropped, the connection
// stays open, and no error event is ever emitted.
type Router struct {
	registry *Registry
	rooms    *Directory
	send     broadcaster
}

func newRouter(registry *Registry, rooms *Directory, send broadcaster) *Router {
	return &Router{
		registry: registry,
		rooms:    rooms,
		send:     send,
	}
}

func (rt *Router) dispatch(c *Client, event ClientEvent) {
	if !rt.registry.contains(c) {
		log.Printf("Dropping %q event from unregistered connection %s", event.Type, c.addr)
		return
	}

	switch event.Type {
	case EventUserUpdate:
		rt.handleUserUpdate(c, event.Username)
	case EventJoinRoom:
		rt.handleJoinRoom(c, event.Room)
	case EventMessage:
		rt.handleChatMessage(c, event)
	case EventCreateRoom:
		rt.handleCreateRoom(c, event.Room)
	default:
		log.Printf("Unknown event type %q from %s", event.Type, c.addr)
	}
}

func (rt *Router) handleUserUpdate(c *Client, username string) {
	if username == "" {
		log.Printf("Dropping user_update with empty username from %s", c.addr)
		return
	}

	c.username = username
	rt.send.broadcastAll(newUserListEvent(rt.registry.usernames()))
	log.Printf("User updated: %s -> %s", c.id, username)
}

func (rt *Router) handleJoinRoom(c *Client, room string) {
	if c.username == "" {
		log.Printf("Dropping join_room from %s: no username announced", c.addr)
		return
	}
	if room == "" {
		log.Printf("Dropping join_room with empty room name from %s", c.addr)
		return
	}

	left := rt.rooms.join(room, c)
	if left != "" {
		rt.send.multicast(left, newRoomCountEvent(rt.rooms.count(left)))
	}
	rt.send.multicast(room, newRoomCountEvent(rt.rooms.count(room)))
	log.Printf("User %s joined room: %s", c.username, room)
}

func (rt *Router) handleChatMessage(c *Client, event ClientEvent) {
	if c.username == "" || c.room == "" {
		log.Printf("Dropping message from %s: no username or room", c.addr)
		return
	}

	rt.send.multicast(c.room, ChatMessageEvent{
		Type:      EventMessage,
		Room:      c.room,
		Username:  c.username,
		Message:   event.Message,
		Timestamp: event.Timestamp,
	})
	log.Printf("Message in %s from %s: %s", c.room, c.username, event.Message)
}

func (rt *Router) handleCreateRoom(c *Client, room string) {
	if c.username == "" {
		log.Printf("Dropping create_room from %s: no username announced", c.addr)
		return
	}

	if !rt.rooms.create(room) {
		log.Printf("Ignoring create_room for invalid or existing room %q from %s", room, c.addr)
		return
	}

	rt.send.broadcastAll(newRoomListEvent(rt.rooms.roomNames()))
	rt.send.broadcastAll(newSystemEvent(fmt.Sprintf("%s created a new room: %s", c.username, room)))
	log.Printf("New room created by %s: %s", c.username, room)
}

// handleDisconnect removes the connection from its room, announcing the
// updated count to the remaining members. Registry removal and the users-list
// broadcast are the hub's responsibility.
func (rt *Router) handleDisconnect(c *Client) {
	if left := rt.rooms.leave(c); left != "" {
		rt.send.multicast(left, newRoomCountEvent(rt.rooms.count(left)))
	}
}
