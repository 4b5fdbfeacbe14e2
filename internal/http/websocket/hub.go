package websocket

import (
	"context"
	"net/http"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/hbomb79/mediagetter/pkg/logger"
)

var socketLogger = logger.Get("WebSocket")

const TitleConnectionEstablished = "CONNECTION_ESTABLISHED"

type SocketHandler func(*SocketHub, *SocketMessage) error

// SocketHub is responsible for upgrading HTTP requests to websockets, and
// for pushing messages to (and receiving commands from) the connected clients.
// All client bookkeeping happens on the goroutine running Start.
type SocketHub struct {
	handlers           map[string]SocketHandler
	upgrader           *websocket.Upgrader
	clients            []*socketClient
	registerCh         chan *socketClient
	deregisterCh       chan *socketClient
	sendCh             chan *SocketMessage
	receiveCh          chan *SocketMessage
	doneCh             chan struct{}
	connectionCallback func() map[string]any
	running            atomic.Bool
}

func New() *SocketHub {
	return &SocketHub{
		handlers: make(map[string]SocketHandler),
		upgrader: &websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		registerCh:   make(chan *socketClient),
		deregisterCh: make(chan *socketClient),
		sendCh:       make(chan *SocketMessage),
		receiveCh:    make(chan *SocketMessage),
		doneCh:       make(chan struct{}),
		clients:      make([]*socketClient, 0),
	}
}

// WithConnectionCallback sets a callback executed each time a new client
// connects. The payload returned is included in the welcome message, so
// the client has the current state without waiting for an update.
func (hub *SocketHub) WithConnectionCallback(callback func() map[string]any) *SocketHub {
	hub.connectionCallback = callback
	return hub
}

// BindCommand binds a command title to the handler provided. Must be
// called before Start.
func (hub *SocketHub) BindCommand(command string, handler SocketHandler) *SocketHub {
	hub.handlers[command] = handler
	return hub
}

// Start runs the hub until the context is cancelled, at which point every
// client is closed. A hub cannot be restarted.
func (hub *SocketHub) Start(ctx context.Context) {
	if ctx.Err() != nil {
		socketLogger.Emit(logger.STOP, "Context already cancelled, socket hub will not start\n")
		return
	}
	if !hub.running.CompareAndSwap(false, true) {
		socketLogger.Emit(logger.WARNING, "Socket hub is already running\n")
		return
	}

	socketLogger.Emit(logger.INFO, "Socket hub listening for activity clients\n")
	defer hub.close()

	for {
		select {
		case message := <-hub.sendCh:
			if message.Target == nil {
				hub.broadcastMessage(message)
				break
			}

			if _, client := hub.findClient(*message.Target); client != nil {
				if err := client.SendMessage(message); err != nil {
					socketLogger.Emit(logger.ERROR, "Send to client %v failed: %v\n", message.Target, err)
				}
			} else {
				socketLogger.Emit(logger.WARNING, "Dropping message for unknown client %v\n", message.Target)
			}
		case message := <-hub.receiveCh:
			go hub.handleMessage(message)
		case client := <-hub.registerCh:
			if idx, _ := hub.findClient(client.id); idx > -1 {
				socketLogger.Emit(logger.ERROR, "Client %v is already registered, closing duplicate connection\n", client.id)
				client.Close()
				break
			}

			hub.clients = append(hub.clients, client)
			socketLogger.Emit(logger.NEW, "Client %v connected\n", client.id)
		case client := <-hub.deregisterCh:
			if idx, _ := hub.findClient(client.id); idx != -1 {
				hub.clients = append(hub.clients[:idx], hub.clients[idx+1:]...)
				socketLogger.Emit(logger.REMOVE, "Client %v disconnected\n", client.id)
				break
			}

			socketLogger.Emit(logger.WARNING, "Ignoring disconnect for unknown client %v\n", client.id)
		case <-ctx.Done():
			socketLogger.Emit(logger.REMOVE, "Socket hub stopping, closing %d clients\n", len(hub.clients))
			return
		}
	}
}

// Send queues the message for delivery. Messages with a Target are only
// delivered to the matching client, all others are broadcast. Messages
// sent while the hub is not running are dropped.
func (hub *SocketHub) Send(message *SocketMessage) {
	if !hub.running.Load() {
		socketLogger.Emit(logger.WARNING, "Socket hub offline, dropping %s message\n", message.Title)
		return
	}

	select {
	case hub.sendCh <- message:
	case <-hub.doneCh:
	}
}

// UpgradeToSocket upgrades the HTTP request to a websocket and registers the
// new client with the hub. It blocks until the client disconnects.
func (hub *SocketHub) UpgradeToSocket(w http.ResponseWriter, r *http.Request) {
	if !hub.running.Load() {
		socketLogger.Emit(logger.ERROR, "Rejecting websocket upgrade, socket hub is not running\n")
		http.Error(w, "socket hub offline", http.StatusServiceUnavailable)
		return
	}

	// Generate the ID first, a failure after upgrading leaves a dangling socket
	id, err := uuid.NewRandom()
	if err != nil {
		socketLogger.Emit(logger.ERROR, "Unable to allocate id for new socket connection: %v\n", err)
		return
	}

	sock, err := hub.upgrader.Upgrade(w, r, nil)
	if err != nil {
		socketLogger.Emit(logger.ERROR, "Websocket upgrade failed: %v\n", err)
		return
	}

	client := &socketClient{id: id, socket: sock}
	select {
	case hub.registerCh <- client:
	case <-hub.doneCh:
		client.Close()
		return
	}

	body := make(map[string]any)
	if hub.connectionCallback != nil {
		for k, v := range hub.connectionCallback() {
			body[k] = v
		}
	}
	body["client"] = id

	hub.Send(&SocketMessage{
		Title:  TitleConnectionEstablished,
		Body:   body,
		Target: &id,
		Type:   Welcome,
	})

	defer func() {
		select {
		case hub.deregisterCh <- client:
		case <-hub.doneCh:
		}
		client.Close()
	}()

	if err := client.Read(hub.receiveCh, hub.doneCh); err != nil {
		socketLogger.Emit(logger.DEBUG, "Client %v read loop ended: %v\n", client.id, err)
	}
}

func (hub *SocketHub) close() {
	for _, client := range hub.clients {
		client.Close()
	}

	hub.clients = nil
	hub.running.Store(false)
	close(hub.doneCh)
	socketLogger.Emit(logger.STOP, "Socket hub closed\n")
}

// handleMessage forwards a command to its bound handler, replying with an
// ErrorResponse if the handler fails or no handler exists.
func (hub *SocketHub) handleMessage(command *SocketMessage) {
	if command.Type != Command {
		socketLogger.Emit(logger.WARNING, "Client %v sent a %v message, only commands are accepted\n", command.Origin, command.Type)
		return
	}

	replyWithError := func(err string) {
		hub.Send(command.FormReply("COMMAND_FAILURE", map[string]any{"error": err}, ErrorResponse))
	}

	handler, ok := hub.handlers[command.Title]
	if !ok {
		socketLogger.Emit(logger.WARNING, "Unknown socket command %q\n", command.Title)
		replyWithError("Unknown command")
		return
	}

	if err := handler(hub, command); err != nil {
		socketLogger.Emit(logger.ERROR, "Socket command %q failed: %v\n", command.Title, err)
		replyWithError(err.Error())
		return
	}

	socketLogger.Emit(logger.SUCCESS, "Socket command %q handled\n", command.Title)
}

func (hub *SocketHub) findClient(id uuid.UUID) (int, *socketClient) {
	for idx, client := range hub.clients {
		if client.id == id {
			return idx, client
		}
	}

	return -1, nil
}

// broadcastMessage sends the message to every connected client. A failure
// to reach one client does not prevent delivery to the rest.
func (hub *SocketHub) broadcastMessage(message *SocketMessage) {
	for _, client := range hub.clients {
		if err := client.SendMessage(message); err != nil {
			socketLogger.Emit(logger.WARNING, "Broadcast of %s to client %v failed: %v\n", message.Title, client.id, err)
		}
	}
}
