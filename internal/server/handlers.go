// Package server exposes HTTP handlers, including WebSocket upgrades, health
// checks, and the built-in test page.
package server

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     checkOrigin,
}

// WebSocketHandler returns a handler that upgrades HTTP connections to
// WebSocket and registers the resulting client with the given hub. The hub
// launches the client's pump goroutines and sends the initial greeting and
// room list.
func WebSocketHandler(hub *Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed. WebSocket endpoint only accepts GET requests.", http.StatusMethodNotAllowed)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Printf("WebSocket upgrade failed: %v", err)
			return
		}

		client := NewClient(conn, hub, r.RemoteAddr)
		hub.register <- client
	}
}

// HealthHandler provides a simple health check endpoint that returns server status.
// It responds with a plain text message indicating the server is running.
func HealthHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	_, _ = fmt.Fprintf(w, "ChatRelay server is running!")
}

// TestPageHandler serves an HTML test page for exercising the chat protocol.
// It provides a simple web interface to pick a username, join rooms, send
// messages, and watch membership updates. The 3-character username minimum is
// a client-side affordance only; the server does not enforce it.
func TestPageHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html")
	html := `<!DOCTYPE html>
<html>
<head>
    <title>ChatRelay Test</title>
    <style>
        body { font-family: Arial, sans-serif; margin: 20px; }
        #messages {
            border: 1px solid #ccc;
            height: 300px;
            padding: 10px;
            overflow-y: scroll;
            margin: 10px 0;
            background-color: #f9f9f9;
        }
        input[type="text"] { padding: 5px; margin-right: 10px; }
        button {
            padding: 5px 15px;
            background-color: #007cba;
            color: white;
            border: none;
            cursor: pointer;
        }
        .meta { color: gray; font-size: 0.9em; }
    </style>
</head>
<body>
    <h1>ChatRelay Test</h1>

    <div>
        <input type="text" id="username" placeholder="Username (min 3 chars)">
        <input type="text" id="room" value="general">
        <button onclick="joinRoom()">Join room</button>
        <span class="meta">Room users: <span id="roomCount">0</span></span>
    </div>

    <div id="messages"></div>

    <div>
        <input type="text" id="messageInput" placeholder="Type a message..." disabled>
        <button id="sendButton" onclick="sendMessage()" disabled>Send</button>
    </div>

    <div class="meta">Online: <span id="users"></span> | Rooms: <span id="rooms"></span></div>

    <script>
        let ws = null;
        const messagesDiv = document.getElementById('messages');
        const usernameInput = document.getElementById('username');
        const messageInput = document.getElementById('messageInput');
        const sendButton = document.getElementById('sendButton');

        function addLine(text) {
            const el = document.createElement('div');
            el.textContent = text;
            messagesDiv.appendChild(el);
            messagesDiv.scrollTop = messagesDiv.scrollHeight;
        }

        function connect() {
            ws = new WebSocket('ws://' + location.host + '/ws');
            ws.onopen = function() {
                ws.send(JSON.stringify({type: 'user_update', username: usernameInput.value.trim()}));
            };
            ws.onmessage = function(event) {
                const data = JSON.parse(event.data);
                switch (data.type) {
                    case 'system':
                        addLine('* ' + data.message);
                        break;
                    case 'message':
                        addLine('[' + data.room + '] ' + data.username + ': ' + data.message);
                        break;
                    case 'rooms':
                        document.getElementById('rooms').textContent = data.rooms.join(', ');
                        break;
                    case 'users':
                        document.getElementById('users').textContent = data.users.join(', ');
                        break;
                    case 'room_users':
                        document.getElementById('roomCount').textContent = data.count;
                        break;
                }
            };
            ws.onclose = function() {
                addLine('* Connection closed');
                messageInput.disabled = true;
                sendButton.disabled = true;
                ws = null;
            };
        }

        function joinRoom() {
            const username = usernameInput.value.trim();
            if (username.length < 3) {
                addLine('* Username must be at least 3 characters');
                return;
            }
            if (!ws || ws.readyState !== WebSocket.OPEN) {
                connect();
                setTimeout(joinRoom, 200);
                return;
            }
            ws.send(JSON.stringify({type: 'join_room', room: document.getElementById('room').value.trim()}));
            messageInput.disabled = false;
            sendButton.disabled = false;
        }

        function sendMessage() {
            const message = messageInput.value.trim();
            if (message && ws && ws.readyState === WebSocket.OPEN) {
                ws.send(JSON.stringify({type: 'message', message: message, timestamp: new Date().toISOString()}));
                messageInput.value = '';
            }
        }

        messageInput.addEventListener('keypress', function(e) {
            if (e.key === 'Enter') {
                sendMessage();
            }
        });
    </script>
</body>
</html>`
	if _, err := fmt.Fprint(w, html); err != nil {
		log.Printf("Error writing HTML response: %v", err)
	}
}
