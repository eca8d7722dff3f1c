package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"pokermates/internal/service/game"
	"pokermates/internal/service/table"
	pkgAuth "pokermates/pkg/auth"
	"pokermates/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

type Handler struct {
	coord *table.Coordinator
}

func NewHandler(coord *table.Coordinator) *Handler {
	return &Handler{coord: coord}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for dev
	},
}

// HandleTableWS upgrades an authenticated request into a table connection.
// Identity comes from the token; membership is checked when the connection
// sends its join intent.
func (h *Handler) HandleTableWS(c *gin.Context) {
	roomIDStr := c.Param("roomId")
	roomID, err := strconv.ParseInt(roomIDStr, 10, 64)
	if err != nil || roomID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid room id"})
		return
	}

	token, err := getTokenFromRequest(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}
	claims, err := pkgAuth.ParseToken(token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Log.Error("Failed to upgrade websocket", zap.Error(err))
		return
	}

	logger.Log.Info("New table connection",
		zap.Int64("roomID", roomID),
		zap.Int64("userID", claims.SubjectID),
	)

	client := newClient(conn, claims.SubjectID, roomID, h.coord)
	client.run()
}

func getTokenFromRequest(c *gin.Context) (string, error) {
	token := strings.TrimSpace(c.Query("token"))
	if token != "" {
		return token, nil
	}
	authHeader := strings.TrimSpace(c.GetHeader("Authorization"))
	if authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			token = strings.TrimSpace(parts[1])
			if token != "" {
				return token, nil
			}
		}
	}
	return "", errors.New("missing token")
}

type client struct {
	conn      *websocket.Conn
	connID    string
	userID    int64
	roomID    int64
	coord     *table.Coordinator
	direct    chan table.OutgoingMessage
	sub       chan (<-chan table.OutgoingMessage)
	done      chan struct{}
	joined    bool
	pingEvery time.Duration
}

func newClient(conn *websocket.Conn, userID, roomID int64, coord *table.Coordinator) *client {
	conn.SetReadLimit(1 << 20)
	conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})
	return &client{
		conn:      conn,
		connID:    uuid.NewString(),
		userID:    userID,
		roomID:    roomID,
		coord:     coord,
		direct:    make(chan table.OutgoingMessage, 4),
		sub:       make(chan (<-chan table.OutgoingMessage), 1),
		done:      make(chan struct{}),
		pingEvery: 25 * time.Second,
	}
}

func (c *client) run() {
	go c.writePump()
	c.readPump()
}

type actPayload struct {
	Action string `json:"action"`
	Amount int64  `json:"amount"`
}

func (c *client) readPump() {
	defer func() {
		close(c.done)
		if c.joined {
			c.coord.Disconnect(c.roomID, c.userID, c.connID)
		}
		c.conn.Close()
	}()

	ctx := context.Background()
	for {
		mt, message, err := c.conn.ReadMessage()
		if err != nil {
			logger.Log.Info("WS read error", zap.Error(err), zap.Int64("userID", c.userID), zap.Int64("roomID", c.roomID))
			return
		}
		if mt != websocket.TextMessage && mt != websocket.BinaryMessage {
			continue
		}

		var incoming struct {
			Type string          `json:"type"`
			Data json.RawMessage `json:"data"`
		}
		if err := json.Unmarshal(message, &incoming); err != nil {
			c.sendError("invalid payload")
			continue
		}

		switch incoming.Type {
		case "join":
			if c.joined {
				continue
			}
			out, err := c.coord.Connect(ctx, c.connID, c.roomID, c.userID)
			if err != nil {
				c.sendError(err.Error())
				continue
			}
			c.joined = true
			c.sub <- out
		case "leave":
			if err := c.coord.Leave(ctx, c.roomID, c.userID, c.connID); err != nil {
				c.sendError(err.Error())
				continue
			}
			// the coordinator closed our outbound channel; writePump
			// tears the connection down
			c.joined = false
		case "start_hand":
			if err := c.coord.StartHand(ctx, c.roomID, c.userID); err != nil {
				c.sendError(err.Error())
			}
		case "act":
			var payload actPayload
			if len(incoming.Data) > 0 {
				if err := json.Unmarshal(incoming.Data, &payload); err != nil {
					c.sendError("invalid action payload")
					continue
				}
			}
			if err := c.coord.Act(ctx, c.roomID, c.userID, game.ActionType(payload.Action), payload.Amount); err != nil {
				c.sendError(err.Error())
			}
		case "ping":
			c.push(table.OutgoingMessage{Type: "pong", Data: gin.H{"message": "pong"}})
		case "":
			continue
		default:
			c.sendError("unsupported message type")
		}
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(c.pingEvery)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	var outbound <-chan table.OutgoingMessage
	for {
		select {
		case out := <-c.sub:
			outbound = out
		case msg, ok := <-outbound:
			if !ok {
				return
			}
			if err := c.conn.WriteJSON(msg); err != nil {
				logger.Log.Info("WS write error", zap.Error(err), zap.Int64("userID", c.userID), zap.Int64("roomID", c.roomID))
				return
			}
		case msg := <-c.direct:
			if err := c.conn.WriteJSON(msg); err != nil {
				logger.Log.Info("WS write error", zap.Error(err), zap.Int64("userID", c.userID), zap.Int64("roomID", c.roomID))
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, []byte("ping"), time.Now().Add(5*time.Second)); err != nil {
				return
			}
		case <-c.done:
			return
		}
	}
}

func (c *client) sendError(message string) {
	c.push(table.OutgoingMessage{Type: "error", Data: gin.H{"message": message}})
}

func (c *client) push(msg table.OutgoingMessage) {
	select {
	case c.direct <- msg:
	default:
	}
}
