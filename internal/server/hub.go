// Package server coordinates client registration, event routing, and fan-out
// delivery for the ChatRelay WebSocket system via the Hub type.
package server

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"
)

// inboundEvent pairs a parsed client frame with its originating connection.
type inboundEvent struct {
	client *Client
	event  ClientEvent
}

// Hub owns the connection registry and room directory and serializes every
// mutation through its Run loop: registrations, disconnects, and all inbound
// events are processed one at a time, so each broadcast reads the exact state
// its triggering mutation produced. Delivery itself goes through buffered
// per-client channels and never blocks the loop.
type Hub struct {
	registry *Registry
	rooms    *Directory
	router   *Router
	greeting string

	inbound    chan inboundEvent
	register   chan *Client
	unregister chan *Client
	mutex      sync.RWMutex
	wg         sync.WaitGroup
	ctx        context.Context
	cancel     context.CancelFunc
	done       chan struct{}
}

// NewHub creates and initializes a new Hub instance seeded with the configured
// default rooms. The returned Hub is ready to manage WebSocket connections
// once Run is started.
func NewHub() *Hub {
	cfg := currentConfig()
	ctx, cancel := context.WithCancel(context.Background())

	h := &Hub{
		registry:   newRegistry(),
		rooms:      newDirectory(cfg.DefaultRooms),
		greeting:   cfg.Greeting,
		inbound:    make(chan inboundEvent),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		ctx:        ctx,
		cancel:     cancel,
		done:       make(chan struct{}),
	}
	h.router = newRouter(h.registry, h.rooms, h)
	return h
}

// GetRegisterChan returns the channel used for registering new clients to the hub.
// This channel is write-only from the caller's perspective.
func (h *Hub) GetRegisterChan() chan<- *Client {
	return h.register
}

// GetUnregisterChan returns the channel used for unregistering clients from the hub.
// This channel is write-only from the caller's perspective.
func (h *Hub) GetUnregisterChan() chan<- *Client {
	return h.unregister
}

// Run starts the hub's main event loop, handling client registration,
// disconnects, and inbound event dispatch. This method should be called in a
// separate goroutine as it runs indefinitely.
func (h *Hub) Run() {
	defer close(h.done)

	for {
		select {
		case <-h.ctx.Done():
			h.shutdownClients()
			return

		case client := <-h.register:
			h.handleRegister(client)

		case client := <-h.unregister:
			h.handleUnregister(client)

		case ev := <-h.inbound:
			h.router.dispatch(ev.client, ev.event)
		}
	}
}

func (h *Hub) handleRegister(client *Client) {
	if client == nil {
		log.Printf("Received nil client registration; skipping")
		return
	}

	h.mutex.Lock()
	client.closed = false
	h.registry.add(client)
	clientCount := h.registry.size()
	h.mutex.Unlock()
	log.Printf("Client %s registered from %s. Total clients: %d", client.id, client.addr, clientCount)

	h.wg.Add(2)
	go func() {
		defer h.wg.Done()
		client.writePump()
	}()
	go func() {
		defer h.wg.Done()
		client.readPump()
	}()

	// Greeting and room list go out before any client event is processed.
	h.unicast(client, newSystemEvent(h.greeting))
	h.unicast(client, newRoomListEvent(h.rooms.roomNames()))
}

func (h *Hub) handleUnregister(client *Client) {
	h.mutex.Lock()
	removed := h.registry.remove(client)
	if removed {
		client.closed = true
	}
	clientCount := h.registry.size()
	h.mutex.Unlock()

	if !removed {
		return
	}
	close(client.send)

	h.router.handleDisconnect(client)
	h.broadcastAll(newUserListEvent(h.registry.usernames()))
	log.Printf("Client %s unregistered from %s. Total clients: %d", client.id, client.addr, clientCount)
}

// unicast delivers an event to exactly one live connection.
func (h *Hub) unicast(c *Client, event any) {
	h.deliver([]*Client{c}, event)
}

// multicast delivers an event to every connection currently in room.
func (h *Hub) multicast(room string, event any) {
	h.deliver(h.registry.inRoom(room), event)
}

// broadcastAll delivers an event to every live connection.
func (h *Hub) broadcastAll(event any) {
	h.deliver(h.registry.snapshot(), event)
}

// deliver marshals the event once and fans it out. Connections that are
// closed or whose send buffer is full are skipped; their transport is closed
// so the normal disconnect path cleans them up.
func (h *Hub) deliver(targets []*Client, event any) {
	payload, err := json.Marshal(event)
	if err != nil {
		log.Printf("Error marshaling outbound event: %v", err)
		return
	}

	for _, client := range targets {
		if !h.safeSend(client, payload) {
			h.dropSlowClient(client)
		}
	}
}

func (h *Hub) safeSend(client *Client, message []byte) bool {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Recovered from panic in safeSend: %v", r)
		}
	}()

	// Hold the lock during the entire send operation to prevent race conditions
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	if !h.registry.contains(client) || client.closed {
		return false
	}

	// The send channel might be closed concurrently, hence the recover above.
	select {
	case client.send <- message:
		return true
	default:
		return false
	}
}

// dropSlowClient closes the transport of a client that could not accept a
// delivery. The readPump notices the closed connection and funnels the client
// through the regular unregister path, keeping room state consistent.
func (h *Hub) dropSlowClient(client *Client) {
	h.mutex.RLock()
	registered := h.registry.contains(client)
	h.mutex.RUnlock()
	if !registered {
		return
	}

	log.Printf("Dropping client %s from %s due to full send buffer", client.id, client.addr)
	if client.conn != nil {
		if err := client.conn.Close(); err != nil && !isExpectedCloseError(err) {
			log.Printf("Error closing connection for %s: %v", client.addr, err)
		}
	}
}

// shutdownClients gracefully closes all active client connections
func (h *Hub) shutdownClients() {
	log.Println("Shutting down all client connections...")

	h.mutex.Lock()
	clients := h.registry.snapshot()
	h.mutex.Unlock()

	for _, client := range clients {
		if client.conn != nil {
			if err := client.conn.Close(); err != nil {
				if !isExpectedCloseError(err) {
					log.Printf("Error closing client connection from %s: %v", client.addr, err)
				}
			}
		}
	}

	log.Printf("Closed %d client connections", len(clients))
}

// Shutdown initiates graceful shutdown of the hub and waits for all goroutines
// to complete. It returns after all client connections are closed and
// goroutines have finished, or when the timeout is reached.
func (h *Hub) Shutdown(timeout time.Duration) error {
	log.Println("Initiating hub shutdown...")

	h.cancel()

	// Wait for Run() to complete
	<-h.done

	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		log.Println("Hub shutdown completed successfully")
		return nil
	case <-time.After(timeout):
		log.Println("Hub shutdown timeout reached, some goroutines may still be running")
		return context.DeadlineExceeded
	}
}
