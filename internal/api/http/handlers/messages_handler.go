package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/collabkit/ticketdesk/internal/api/dto"
	"github.com/collabkit/ticketdesk/internal/auth"
	"github.com/collabkit/ticketdesk/internal/domain"
	"github.com/collabkit/ticketdesk/internal/service"
	apperrors "github.com/collabkit/ticketdesk/pkg/util"
)

// MessagesHandler manages the per-ticket chat thread.
type MessagesHandler struct {
	service *service.MessageService
}

// NewMessagesHandler constructs handler.
func NewMessagesHandler(messageService *service.MessageService) *MessagesHandler {
	return &MessagesHandler{service: messageService}
}

// Send POST /tickets/:id/messages.
func (h *MessagesHandler) Send(c *fiber.Ctx) error {
	user, ok := auth.UserFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("user required")
	}
	var req dto.SendMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	msg, err := h.service.SendMessage(c.UserContext(), user, c.Params("id"), service.MessageInput{
		Body:             req.Body,
		MessageType:      req.MessageType,
		MessageMode:      req.MessageMode,
		ReplyToMessageID: req.ReplyToMessageID,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": messageResponse(msg)})
}

// List GET /tickets/:id/messages. The thread is already trimmed to what the
// viewer may see.
func (h *MessagesHandler) List(c *fiber.Ctx) error {
	user, ok := auth.UserFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("user required")
	}
	msgs, err := h.service.ListMessages(c.UserContext(), user, c.Params("id"))
	if err != nil {
		return err
	}
	items := make([]dto.MessageResponse, 0, len(msgs))
	for i := range msgs {
		items = append(items, messageResponse(&msgs[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// Edit PUT /messages/:id.
func (h *MessagesHandler) Edit(c *fiber.Ctx) error {
	user, ok := auth.UserFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("user required")
	}
	var req dto.EditMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	msg, err := h.service.EditMessage(c.UserContext(), user, c.Params("id"), req.Body)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": messageResponse(msg)})
}

// Delete DELETE /messages/:id.
func (h *MessagesHandler) Delete(c *fiber.Ctx) error {
	user, ok := auth.UserFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("user required")
	}
	if err := h.service.DeleteMessage(c.UserContext(), user, c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// Forward POST /messages/:id/forward.
func (h *MessagesHandler) Forward(c *fiber.Ctx) error {
	user, ok := auth.UserFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("user required")
	}
	var req dto.ForwardMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	msg, err := h.service.ForwardMessage(c.UserContext(), user, c.Params("id"), req.TargetTicketID, req.MessageMode)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": messageResponse(msg)})
}

// MarkSeen POST /messages/:id/seen.
func (h *MessagesHandler) MarkSeen(c *fiber.Ctx) error {
	user, ok := auth.UserFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("user required")
	}
	if err := h.service.MarkSeen(c.UserContext(), user, c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func messageResponse(msg *domain.Message) dto.MessageResponse {
	seen := make([]dto.SeenResponse, 0, len(msg.SeenBy))
	for _, entry := range msg.SeenBy {
		seen = append(seen, dto.SeenResponse{UserID: entry.UserID, SeenAt: entry.SeenAt})
	}
	return dto.MessageResponse{
		ID:                     msg.ID,
		TicketID:               msg.TicketID,
		SenderID:               msg.SenderID,
		Body:                   msg.DisplayBody(),
		MessageType:            msg.MessageType,
		MessageMode:            msg.MessageMode,
		ReplyToMessageID:       msg.ReplyToMessageID,
		ForwardedFromMessageID: msg.ForwardedFromMessageID,
		ForwardedFromTicketID:  msg.ForwardedFromTicketID,
		IsEdited:               msg.IsEdited,
		IsDeleted:              msg.IsDeleted,
		SeenBy:                 seen,
		CreatedAt:              msg.CreatedAt,
	}
}
