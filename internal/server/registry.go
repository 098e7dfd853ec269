// Package server tracks live client connections and their announced identities
// via the Registry type.
package server

// Registry is the authoritative set of live connections. It preserves
// registration order so user-list payloads are stable across broadcasts.
//
// Registry performs no locking of its own: every mutation and read happens
// under the hub's mutex.
type Registry struct {
	clients map[*Client]struct{}
	order   []*Client
}

func newRegistry() *Registry {
	return &Registry{
		clients: make(map[*Client]struct{}),
	}
}

func (r *Registry) add(c *Client) {
	if _, ok := r.clients[c]; ok {
		return
	}
	r.clients[c] = struct{}{}
	r.order = append(r.order, c)
}

func (r *Registry) remove(c *Client) bool {
	if _, ok := r.clients[c]; !ok {
		return false
	}
	delete(r.clients, c)
	for i, existing := range r.order {
		if existing == c {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return true
}

func (r *Registry) contains(c *Client) bool {
	_, ok := r.clients[c]
	return ok
}

func (r *Registry) size() int {
	return len(r.clients)
}

// snapshot returns all live clients in registration order.
func (r *Registry) snapshot() []*Client {
	clients := make([]*Client, len(r.order))
	copy(clients, r.order)
	return clients
}

// inRoom returns the clients whose current room equals room, in registration order.
func (r *Registry) inRoom(room string) []*Client {
	var clients []*Client
	for _, c := range r.order {
		if c.room == room {
			clients = append(clients, c)
		}
	}
	return clients
}

// usernames returns every non-empty display name in registration order.
// Duplicate names are reported once per connection, matching what each
// connection actually represents.
func (r *Registry) usernames() []string {
	users := make([]string, 0, len(r.order))
	for _, c := range r.order {
		if c.username != "" {
			users = append(users, c.username)
		}
	}
	return users
}
