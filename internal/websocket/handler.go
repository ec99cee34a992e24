package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"instoo/internal/domain"
	"instoo/internal/events"
	"instoo/internal/services"
	"instoo/internal/transport/httpdto"
	instoo_errors "instoo/pkg/errors"
	"instoo/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const maxControlMessage = 1024

type Authenticator interface {
	Authenticate(ctx context.Context, token string) (domain.Actor, error)
}

// controlMessage is what a client sends to change its subscriptions.
type controlMessage struct {
	Action  string `json:"action"`
	Channel string `json:"channel"`
}

type controlReply struct {
	Action  string `json:"action"`
	Channel string `json:"channel"`
	Error   string `json:"error,omitempty"`
}

type Handler struct {
	auth       Authenticator
	authorizer *ChannelAuthorizer
	hub        *Hub
	upgrader   websocket.Upgrader
}

func NewHandler(auth Authenticator, authorizer *ChannelAuthorizer, hub *Hub) *Handler {
	return &Handler{
		auth:       auth,
		authorizer: authorizer,
		hub:        hub,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Connect upgrades GET /v1/events/ws. Browsers cannot set headers on a
// websocket handshake, so the token may also come from ?token=. Initial
// channels come from ?channels=a,b and default to schedule-events.
func (h *Handler) Connect(c *gin.Context) {
	ctx := c.Request.Context()

	actor, err := h.auth.Authenticate(ctx, requestToken(c))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, httpdto.NewErrorResponse("unauthorized", "UNAUTHORIZED"))
		return
	}

	channels := requestedChannels(c.Query("channels"))
	for _, channel := range channels {
		ok, err := h.authorizer.CanSubscribe(ctx, channel)
		if err != nil {
			_ = c.Error(err)
			c.AbortWithStatusJSON(services.HTTPStatus(err), httpdto.NewKindErrorResponse(instoo_errors.As(err)))
			return
		}
		if !ok {
			forbidden := instoo_errors.Forbidden(instoo_errors.CodeChannelForbidden, "cannot subscribe to "+channel)
			c.AbortWithStatusJSON(http.StatusForbidden, httpdto.NewKindErrorResponse(forbidden))
			return
		}
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	client := NewClient(conn, actor.ID)
	connCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	h.hub.Register(client)
	for _, channel := range channels {
		h.hub.Subscribe(client, channel)
	}
	go client.WriteLoop(connCtx)

	logger.GetGlobalLogger().Info(ctx, "feed client connected",
		zap.String("client_id", client.ID),
		zap.Strings("channels", channels),
	)

	h.readLoop(connCtx, client)
	h.hub.Unregister(client)
}

// readLoop handles subscribe and unsubscribe requests until the peer goes away.
func (h *Handler) readLoop(ctx context.Context, client *Client) {
	conn := client.conn
	conn.SetReadLimit(maxControlMessage)
	_ = conn.SetReadDeadline(time.Now().Add(pongTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongTimeout))
	})

	for {
		var msg controlMessage
		if err := conn.ReadJSON(&msg); err != nil {
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(pongTimeout))

		reply := controlReply{Action: msg.Action, Channel: msg.Channel}
		switch msg.Action {
		case "subscribe":
			ok, err := h.authorizer.CanSubscribe(ctx, msg.Channel)
			switch {
			case err != nil:
				reply.Error = "unavailable"
			case !ok:
				reply.Error = "forbidden"
			default:
				h.hub.Subscribe(client, msg.Channel)
			}
		case "unsubscribe":
			h.hub.Unsubscribe(client, msg.Channel)
		default:
			reply.Error = "unknown action"
		}
		if reply.Error != "" {
			if payload, err := json.Marshal(reply); err == nil {
				client.enqueue(payload)
			}
		}
	}
}

func requestToken(c *gin.Context) string {
	if token := c.Query("token"); token != "" {
		return token
	}
	header := c.GetHeader("Authorization")
	if len(header) > 7 && strings.EqualFold(header[:7], "Bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return ""
}

func requestedChannels(raw string) []string {
	var out []string
	seen := map[string]bool{}
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" || seen[part] {
			continue
		}
		seen[part] = true
		out = append(out, part)
	}
	if len(out) == 0 {
		out = []string{events.ChannelScheduleEvents}
	}
	return out
}
