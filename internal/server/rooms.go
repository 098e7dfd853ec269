// Package server maintains the directory of chat rooms and their memberships
// via the Directory type.
package server

import "strings"

// Directory tracks every room name and, per room, the set of member
// connections. Rooms are never deleted; the name slice preserves creation
// order so room-list payloads are stable.
//
// Membership is keyed by connection ID rather than display name, so two
// connections sharing a name cannot corrupt each other's counts.
//
// Directory performs no locking of its own: every mutation and read happens
// under the hub's mutex.
type Directory struct {
	names   []string
	members map[string]map[string]struct{}
}

func newDirectory(seedRooms []string) *Directory {
	d := &Directory{
		members: make(map[string]map[string]struct{}),
	}
	for _, name := range seedRooms {
		d.ensure(name)
	}
	return d
}

// ensure creates the room if it does not exist and reports whether it was
// created. It never rejects a name; implicit creation via join relies on that.
func (d *Directory) ensure(name string) bool {
	if _, ok := d.members[name]; ok {
		return false
	}
	d.members[name] = make(map[string]struct{})
	d.names = append(d.names, name)
	return true
}

// create adds an explicitly requested room. It reports false without mutating
// anything when the name is empty/whitespace or already taken.
func (d *Directory) create(name string) bool {
	if strings.TrimSpace(name) == "" {
		return false
	}
	if _, ok := d.members[name]; ok {
		return false
	}
	return d.ensure(name)
}

func (d *Directory) exists(name string) bool {
	_, ok := d.members[name]
	return ok
}

// join moves the client into room, creating it on demand. When the client was
// already in a different room it is removed from that room first; the previous
// room's name is returned so the caller can announce the updated count there.
func (d *Directory) join(room string, c *Client) (left string) {
	if c.room != "" && c.room != room {
		left = c.room
		d.removeMember(left, c)
	}

	d.ensure(room)
	d.members[room][c.id] = struct{}{}
	c.room = room
	return left
}

// leave removes the client from its current room, if any, and returns the
// room's name.
func (d *Directory) leave(c *Client) string {
	if c.room == "" {
		return ""
	}
	room := c.room
	d.removeMember(room, c)
	c.room = ""
	return room
}

func (d *Directory) removeMember(room string, c *Client) {
	if set, ok := d.members[room]; ok {
		delete(set, c.id)
	}
}

// count returns the member count for room, 0 when the room is unknown.
func (d *Directory) count(room string) int {
	return len(d.members[room])
}

// roomNames returns every room name in creation order.
func (d *Directory) roomNames() []string {
	names := make([]string, len(d.names))
	copy(names, d.names)
	return names
}
