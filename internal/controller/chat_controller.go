package controller

import (
	"legal-research-be/internal/dto"
	"legal-research-be/internal/pkg/serverutils"
	"legal-research-be/internal/service"
	ws "legal-research-be/internal/websocket"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type IChatController interface {
	RegisterRoutes(r fiber.Router)
	CreateSession(ctx *fiber.Ctx) error
	GetAllSessions(ctx *fiber.Ctx) error
	GetChatHistory(ctx *fiber.Ctx) error
	SendChat(ctx *fiber.Ctx) error
	DeleteSession(ctx *fiber.Ctx) error
}

type chatController struct {
	chatService service.IChatService
	hub         *ws.Hub
}

func NewChatController(chatService service.IChatService, hub *ws.Hub) IChatController {
	return &chatController{
		chatService: chatService,
		hub:         hub,
	}
}

func (c *chatController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/chat/v1")
	h.Use(serverutils.JwtMiddleware)
	h.Post("session", c.CreateSession)
	h.Get("sessions", c.GetAllSessions)
	h.Get("session/:id/history", c.GetChatHistory)
	h.Post("send", c.SendChat)
	h.Delete("session", c.DeleteSession)
}

func (c *chatController) CreateSession(ctx *fiber.Ctx) error {
	userId, firmId := identity(ctx)

	res, err := c.chatService.CreateSession(ctx.Context(), userId, firmId)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success create session", res))
}

func (c *chatController) GetAllSessions(ctx *fiber.Ctx) error {
	userId, _ := identity(ctx)

	res, err := c.chatService.GetAllSessions(ctx.Context(), userId)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success get sessions", res))
}

func (c *chatController) GetChatHistory(ctx *fiber.Ctx) error {
	userId, _ := identity(ctx)

	sessionId, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid session id")
	}

	res, err := c.chatService.GetChatHistory(ctx.Context(), userId, sessionId)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success get chat history", res))
}

// SendChat runs one research turn. Answer chunks stream to the user's
// websocket connections while the turn runs; the HTTP response carries the
// complete reply with citations.
func (c *chatController) SendChat(ctx *fiber.Ctx) error {
	userId, firmId := identity(ctx)

	var req dto.SendChatRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	sessionIdStr := req.ChatSessionId.String()
	onChunk := func(chunk string) {
		c.hub.Send(userId, ws.StreamEvent{
			Type:      "chat_chunk",
			SessionID: sessionIdStr,
			Content:   chunk,
		})
	}

	res, err := c.chatService.SendChatStream(ctx.Context(), userId, firmId, &req, onChunk)
	if err != nil {
		return err
	}

	c.hub.Send(userId, ws.StreamEvent{
		Type:      "chat_done",
		SessionID: sessionIdStr,
		Data:      res.Reply,
	})

	return ctx.JSON(serverutils.SuccessResponse("Success send chat", res))
}

func (c *chatController) DeleteSession(ctx *fiber.Ctx) error {
	userId, _ := identity(ctx)

	var req dto.DeleteSessionRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}

	if err := c.chatService.DeleteSession(ctx.Context(), userId, &req); err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success delete session", nil))
}

func identity(ctx *fiber.Ctx) (uuid.UUID, uuid.UUID) {
	userId, _ := uuid.Parse(ctx.Locals("user_id").(string))
	firmId, _ := uuid.Parse(ctx.Locals("firm_id").(string))
	return userId, firmId
}
