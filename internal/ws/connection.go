package ws

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Register frame events accepted from clients right after connect.
const (
	frameRegister        = "register"
	frameRegisterUser    = "register:user"
	frameRegisterStation = "register-station"
)

type registerFrame struct {
	Event     string `json:"event"`
	StationID string `json:"station_id"`
}

// Connection wraps one client websocket. The user identity comes from the
// authenticated upgrade request; the register frame decides whether the
// connection also serves a station.
type Connection struct {
	userID       string
	role         string
	stationID    string
	ws           *websocket.Conn
	send         chan []byte
	hub          *Hub
	logger       *zap.Logger
	writeTimeout time.Duration
}

// NewConnection builds connection wrapper.
func NewConnection(userID, role string, wsConn *websocket.Conn, hub *Hub, writeTimeout time.Duration, logger *zap.Logger) *Connection {
	return &Connection{
		userID:       userID,
		role:         role,
		ws:           wsConn,
		send:         make(chan []byte, 16),
		hub:          hub,
		logger:       logger,
		writeTimeout: writeTimeout,
	}
}

// UserID returns the authenticated user identifier.
func (c *Connection) UserID() string {
	return c.userID
}

// StationID returns the registered station, empty for driver connections.
func (c *Connection) StationID() string {
	return c.stationID
}

func (c *Connection) setStationID(id string) {
	c.stationID = id
}

// Start launches read/write pumps. Blocks until the read side closes.
func (c *Connection) Start(ctx context.Context) {
	go c.writePump(ctx)
	c.readPump(ctx)
}

func (c *Connection) readPump(ctx context.Context) {
	defer c.cleanup()
	c.ws.SetReadLimit(64 * 1024)
	c.ws.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.ws.SetPongHandler(func(string) error {
		c.ws.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		_, message, err := c.ws.ReadMessage()
		if err != nil {
			c.logger.Info("ws connection closed", zap.String("user_id", c.userID), zap.Error(err))
			return
		}
		c.handleFrame(message)
	}
}

func (c *Connection) handleFrame(raw []byte) {
	var frame registerFrame
	if err := json.Unmarshal(raw, &frame); err != nil {
		c.logger.Warn("dropping malformed ws frame", zap.String("user_id", c.userID), zap.Error(err))
		return
	}

	switch frame.Event {
	case frameRegister, frameRegisterUser:
		c.hub.BindUser(c)
		c.logger.Info("ws client registered", zap.String("user_id", c.userID))
	case frameRegisterStation:
		if frame.StationID == "" {
			c.logger.Warn("register-station without station id", zap.String("user_id", c.userID))
			return
		}
		if c.role != "staff" && c.role != "admin" {
			c.logger.Warn("register-station rejected for role",
				zap.String("user_id", c.userID),
				zap.String("role", c.role))
			return
		}
		c.hub.BindUser(c)
		c.hub.BindStation(c, frame.StationID)
		c.logger.Info("ws staff registered",
			zap.String("user_id", c.userID),
			zap.String("station_id", frame.StationID))
	default:
		// Clients only talk to register; everything else is server push.
	}
}

func (c *Connection) writePump(ctx context.Context) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-c.send:
			if !ok {
				_ = c.write(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.write(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			if err := c.write(websocket.PingMessage, []byte("ping")); err != nil {
				return
			}
		}
	}
}

// Send enqueues a message for writing.
func (c *Connection) Send(msg []byte) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Warn("attempted to send on closed ws connection", zap.String("user_id", c.userID))
		}
	}()
	select {
	case c.send <- msg:
	default:
		c.logger.Warn("dropping outgoing ws message, buffer full", zap.String("user_id", c.userID))
	}
}

// Ping sends ping.
func (c *Connection) Ping() error {
	return c.write(websocket.PingMessage, []byte("ping"))
}

// CloseStale force-closes a connection replaced by a newer one for the same
// identity. The read pump's cleanup handles deregistration.
func (c *Connection) CloseStale() {
	_ = c.ws.Close()
}

func (c *Connection) write(messageType int, data []byte) error {
	c.ws.SetWriteDeadline(time.Now().Add(c.writeTimeout))
	return c.ws.WriteMessage(messageType, data)
}

func (c *Connection) cleanup() {
	c.hub.Remove(c)
	close(c.send)
	_ = c.ws.Close()
}
