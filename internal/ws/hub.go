package ws

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"

	"voltswap/internal/payments"
)

// Hub tracks registered client connections and routes pushed events. Drivers
// register under their user id; staff additionally register the station they
// are working at. At most one connection exists per (station, user) pair; a
// replacement connection closes the previous one.
type Hub struct {
	mu           sync.RWMutex
	users        map[string]*Connection            // user id -> connection
	stations     map[string]map[string]*Connection // station id -> user id -> connection
	pingInterval time.Duration
	logger       *zap.Logger
}

// NewHub builds hub.
func NewHub(pingInterval time.Duration, logger *zap.Logger) *Hub {
	if pingInterval <= 0 {
		pingInterval = 30 * time.Second
	}
	return &Hub{
		users:        make(map[string]*Connection),
		stations:     make(map[string]map[string]*Connection),
		pingInterval: pingInterval,
		logger:       logger,
	}
}

// BindUser registers the connection under its authenticated user id.
func (h *Hub) BindUser(conn *Connection) {
	h.mu.Lock()
	previous := h.users[conn.UserID()]
	h.users[conn.UserID()] = conn
	h.mu.Unlock()

	if previous != nil && previous != conn {
		previous.CloseStale()
	}
}

// BindStation additionally registers a staff connection for a station.
func (h *Hub) BindStation(conn *Connection, stationID string) {
	h.mu.Lock()
	byUser, ok := h.stations[stationID]
	if !ok {
		byUser = make(map[string]*Connection)
		h.stations[stationID] = byUser
	}
	previous := byUser[conn.UserID()]
	byUser[conn.UserID()] = conn
	conn.setStationID(stationID)
	h.mu.Unlock()

	if previous != nil && previous != conn {
		previous.CloseStale()
	}
}

// Remove drops the connection from every index. Called from the connection's
// own cleanup; after it returns the hub cannot deliver to that connection.
func (h *Hub) Remove(conn *Connection) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if current, ok := h.users[conn.UserID()]; ok && current == conn {
		delete(h.users, conn.UserID())
	}
	if stationID := conn.StationID(); stationID != "" {
		if byUser, ok := h.stations[stationID]; ok {
			if current, ok := byUser[conn.UserID()]; ok && current == conn {
				delete(byUser, conn.UserID())
			}
			if len(byUser) == 0 {
				delete(h.stations, stationID)
			}
		}
	}
}

// Envelope is the outgoing frame shape.
type Envelope struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

// SendToUser pushes an event to the user's connection, if any.
func (h *Hub) SendToUser(userID, event string, data interface{}) {
	h.mu.RLock()
	conn := h.users[userID]
	h.mu.RUnlock()
	if conn == nil {
		return
	}
	h.push(conn, event, data)
}

// SendToStation pushes an event to every staff connection at the station.
func (h *Hub) SendToStation(stationID, event string, data interface{}) {
	h.mu.RLock()
	byUser := h.stations[stationID]
	conns := make([]*Connection, 0, len(byUser))
	for _, conn := range byUser {
		conns = append(conns, conn)
	}
	h.mu.RUnlock()
	for _, conn := range conns {
		h.push(conn, event, data)
	}
}

func (h *Hub) push(conn *Connection, event string, data interface{}) {
	payload, err := json.Marshal(Envelope{Event: event, Data: data})
	if err != nil {
		h.logger.Error("failed to encode ws envelope", zap.String("event", event), zap.Error(err))
		return
	}
	conn.Send(payload)
}

// PaymentListener returns a reconciler listener that routes payment events:
// pending goes to the paying party, confirm to the station's staff, status to
// everyone attached to the session.
func (h *Hub) PaymentListener() payments.Listener {
	return func(ev payments.PaymentEvent, state payments.InvoiceState) {
		switch ev.Type {
		case payments.EventPaymentPending:
			h.SendToUser(ev.UserID, ev.Type, state)
		case payments.EventPaymentConfirm:
			h.SendToStation(ev.StationID, ev.Type, state)
		case payments.EventPaymentStatus:
			h.SendToUser(ev.UserID, ev.Type, state)
			h.SendToStation(ev.StationID, ev.Type, state)
		}
	}
}

// Notify fans a plain notification out to its addressees.
func (h *Hub) Notify(ev payments.PaymentEvent) {
	if ev.UserID != "" {
		h.SendToUser(ev.UserID, payments.EventNotification, ev)
	}
	if ev.StationID != "" {
		h.SendToStation(ev.StationID, payments.EventNotification, ev)
	}
}

// Start begins the ping loop keeping connections alive.
func (h *Hub) Start(ctx context.Context) {
	ticker := time.NewTicker(h.pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.mu.RLock()
			for _, conn := range h.users {
				_ = conn.Ping()
			}
			h.mu.RUnlock()
		}
	}
}
