package handler

import (
	"context"
	"os"

	internalWS "legal-research-be/internal/websocket"
	"legal-research-be/pkg/events"
	pktNats "legal-research-be/pkg/nats"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// StreamHandler owns the websocket entrypoint and forwards ingest events to
// the connected owner, so a client learns when its uploaded document became
// searchable.
type StreamHandler struct {
	hub        *internalWS.Hub
	subscriber *pktNats.Subscriber
	logger     *zap.Logger
}

func NewStreamHandler(hub *internalWS.Hub, subscriber *pktNats.Subscriber, logger *zap.Logger) *StreamHandler {
	return &StreamHandler{
		hub:        hub,
		subscriber: subscriber,
		logger:     logger,
	}
}

// StartEventBridge subscribes to indexing events and pushes them to the
// uploading user's websocket connections.
func (h *StreamHandler) StartEventBridge() error {
	if h.subscriber == nil {
		return nil
	}

	return h.subscriber.Subscribe("events."+events.TypeDocumentIndexed, "ws-indexed-bridge",
		func(ctx context.Context, event events.Event) error {
			ownerIdStr, _ := event.Payload()["owner_id"].(string)
			ownerId, err := uuid.Parse(ownerIdStr)
			if err != nil {
				// Shared-collection documents have no owner to notify.
				return nil
			}
			h.hub.Send(ownerId, internalWS.StreamEvent{
				Type: "document_indexed",
				Data: event.Payload(),
			})
			return nil
		})
}

// ServeWs handles websocket requests from the peer.
func (h *StreamHandler) ServeWs(c *fiber.Ctx) error {
	// Token from query param (browser standard) or Authorization header.
	tokenStr := c.Query("token")
	if tokenStr == "" {
		authHeader := c.Get("Authorization")
		if len(authHeader) > 7 && authHeader[:7] == "Bearer " {
			tokenStr = authHeader[7:]
		}
	}
	if tokenStr == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Missing token (Query 'token' or Header 'Authorization')"})
	}

	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fiber.ErrUnauthorized
		}
		return []byte(os.Getenv("JWT_SECRET")), nil
	})
	if err != nil || !token.Valid {
		h.logger.Warn("invalid token in ws handshake", zap.Error(err))
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token claims"})
	}

	userIDStr, ok := claims["user_id"].(string)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Token missing user_id"})
	}
	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid user ID format in token"})
	}

	if websocket.IsWebSocketUpgrade(c) {
		return websocket.New(func(conn *websocket.Conn) {
			h.logger.Info("starting websocket session", zap.String("user_id", userID.String()))
			internalWS.ServeWs(h.hub, conn, userID)
			h.logger.Info("websocket session ended", zap.String("user_id", userID.String()))
		})(c)
	}
	return fiber.ErrUpgradeRequired
}

// RegisterRoutes registers the streaming routes.
func (h *StreamHandler) RegisterRoutes(router fiber.Router) {
	// Handshake does its own token validation; the JWT middleware cannot
	// read query-param tokens.
	router.Get("/ws", h.ServeWs)
}
