package websocket

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/patrykmil/passy/internal/domain"
	"github.com/patrykmil/passy/internal/logging"
)

type ClientMessage struct {
	Client  *Client
	Message []byte
}

type Options struct {
	MaxConnPerUser int
	MaxMessageSize int64
	WriteWait      time.Duration
	PongWait       time.Duration
	PingPeriod     time.Duration
	Logger         *logging.Logger
}

// Manager tracks open connections per user and pushes domain events to
// them. Clients only ever send pings; everything else is server push.
type Manager struct {
	clients        map[string]*Client
	userIndex      map[string]map[string]bool
	clientsMutex   sync.RWMutex
	Register       chan *Client
	Unregister     chan *Client
	HandleMessage  chan *ClientMessage
	done           chan struct{}
	maxConnPerUser int
	maxMessageSize int64
	writeWait      time.Duration
	pongWait       time.Duration
	pingPeriod     time.Duration
	log            *logging.Logger
}

func NewManager(opts Options) *Manager {
	log := opts.Logger
	if log == nil {
		log = logging.Discard()
	}

	return &Manager{
		clients:        make(map[string]*Client),
		userIndex:      make(map[string]map[string]bool),
		Register:       make(chan *Client),
		Unregister:     make(chan *Client, 16),
		HandleMessage:  make(chan *ClientMessage),
		done:           make(chan struct{}),
		maxConnPerUser: opts.MaxConnPerUser,
		maxMessageSize: opts.MaxMessageSize,
		writeWait:      opts.WriteWait,
		pongWait:       opts.PongWait,
		pingPeriod:     opts.PingPeriod,
		log:            log,
	}
}

func (m *Manager) Run() {
	for {
		select {
		case client := <-m.Register:
			m.registerClient(client)

		case client := <-m.Unregister:
			m.unregisterClient(client)

		case clientMsg := <-m.HandleMessage:
			m.processMessage(clientMsg)

		case <-m.done:
			m.closeAll()
			return
		}
	}
}

// Stop closes every connection and ends Run.
func (m *Manager) Stop() {
	close(m.done)
}

func (m *Manager) registerClient(client *Client) {
	m.clientsMutex.Lock()
	defer m.clientsMutex.Unlock()

	if m.userIndex[client.UserID] == nil {
		m.userIndex[client.UserID] = make(map[string]bool)
	}

	if len(m.userIndex[client.UserID]) >= m.maxConnPerUser {
		m.log.Warnf("max connections reached for user %s", client.UserID)
		close(client.Send)
		return
	}

	m.clients[client.ID] = client
	m.userIndex[client.UserID][client.ID] = true

	m.log.Debugf("client registered: %s (user: %s, session: %s)", client.ID, client.UserID, client.SessionID)
}

func (m *Manager) unregisterClient(client *Client) {
	m.clientsMutex.Lock()
	defer m.clientsMutex.Unlock()

	if _, ok := m.clients[client.ID]; ok {
		delete(m.clients, client.ID)
		delete(m.userIndex[client.UserID], client.ID)

		if len(m.userIndex[client.UserID]) == 0 {
			delete(m.userIndex, client.UserID)
		}

		close(client.Send)
		m.log.Debugf("client unregistered: %s", client.ID)
	}
}

func (m *Manager) closeAll() {
	m.clientsMutex.Lock()
	defer m.clientsMutex.Unlock()

	for id, client := range m.clients {
		close(client.Send)
		delete(m.clients, id)
	}
	m.userIndex = make(map[string]map[string]bool)
}

func (m *Manager) processMessage(clientMsg *ClientMessage) {
	var msg Message
	if err := json.Unmarshal(clientMsg.Message, &msg); err != nil {
		m.log.Debugf("error unmarshaling message from %s: %v", clientMsg.Client.ID, err)
		m.reply(clientMsg.Client, TypeError, &ErrorPayload{Error: "malformed message"})
		return
	}

	switch msg.Type {
	case TypePing:
		m.reply(clientMsg.Client, TypePong, nil)
	default:
		m.reply(clientMsg.Client, TypeError, &ErrorPayload{Error: "unsupported message type " + string(msg.Type)})
	}
}

func (m *Manager) reply(client *Client, msgType MessageType, payload interface{}) {
	msg, err := NewMessage(msgType, payload)
	if err != nil {
		return
	}
	if err := m.SendToClient(client.ID, msg); err != nil {
		m.log.Debugf("failed to reply to %s: %v", client.ID, err)
	}
}

// NotifyUser pushes event to every connection of userID. Users without a
// connection simply miss it; clients refetch on reconnect.
func (m *Manager) NotifyUser(userID string, event *domain.Event) {
	msg, err := NewEventMessage(event)
	if err != nil {
		m.log.Errorf("failed to encode %s event: %v", event.Type, err)
		return
	}
	if err := m.BroadcastToUser(userID, msg); err != nil {
		m.log.Errorf("failed to notify user %s: %v", userID, err)
	}
}

func (m *Manager) BroadcastToUser(userID string, message *Message) error {
	m.clientsMutex.RLock()
	defer m.clientsMutex.RUnlock()

	messageBytes, err := json.Marshal(message)
	if err != nil {
		return err
	}

	for clientID := range m.userIndex[userID] {
		client := m.clients[clientID]
		select {
		case client.Send <- messageBytes:
		default:
			m.log.Warnf("client %s send buffer full, closing connection", clientID)
			select {
			case m.Unregister <- client:
			default:
			}
		}
	}

	return nil
}

func (m *Manager) SendToClient(clientID string, message *Message) error {
	m.clientsMutex.RLock()
	defer m.clientsMutex.RUnlock()

	client, exists := m.clients[clientID]
	if !exists {
		return nil
	}

	messageBytes, err := json.Marshal(message)
	if err != nil {
		return err
	}

	select {
	case client.Send <- messageBytes:
	default:
		m.log.Warnf("client %s send buffer full", clientID)
	}

	return nil
}

func (m *Manager) GetUserConnections(userID string) int {
	m.clientsMutex.RLock()
	defer m.clientsMutex.RUnlock()

	return len(m.userIndex[userID])
}
