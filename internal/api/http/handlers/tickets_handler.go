package handlers

import (
	"io"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/collabkit/ticketdesk/internal/api/dto"
	"github.com/collabkit/ticketdesk/internal/auth"
	"github.com/collabkit/ticketdesk/internal/domain"
	"github.com/collabkit/ticketdesk/internal/service"
	apperrors "github.com/collabkit/ticketdesk/pkg/util"
)

// TicketsHandler manages ticket room endpoints.
type TicketsHandler struct {
	service *service.TicketService
	loader  *service.TicketLoader
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(ticketService *service.TicketService, loader *service.TicketLoader) *TicketsHandler {
	return &TicketsHandler{service: ticketService, loader: loader}
}

// Create POST /tickets.
func (h *TicketsHandler) Create(c *fiber.Ctx) error {
	user, ok := auth.UserFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("user required")
	}
	var req dto.CreateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	ticket, err := h.service.CreateTicket(c.UserContext(), user, ticketCreateInput(req))
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": ticketResponse(ticket)})
}

// List GET /tickets. Returns the requester's full visible set, aggregated.
func (h *TicketsHandler) List(c *fiber.Ctx) error {
	user, ok := auth.UserFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("user required")
	}
	views, err := h.loader.LoadForUser(c.UserContext(), user)
	if err != nil {
		return err
	}
	items := make([]dto.TicketViewResponse, 0, len(views))
	for i := range views {
		items = append(items, ticketViewResponse(&views[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// Get GET /tickets/:id.
func (h *TicketsHandler) Get(c *fiber.Ctx) error {
	user, ok := auth.UserFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("user required")
	}
	ticket, err := h.service.GetTicket(c.UserContext(), user, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponse(ticket)})
}

// ChangeStatus PUT /tickets/:id/status.
func (h *TicketsHandler) ChangeStatus(c *fiber.Ctx) error {
	user, ok := auth.UserFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("user required")
	}
	var req dto.ChangeStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	ticket, err := h.service.ChangeStatus(c.UserContext(), user, c.Params("id"), req.Status)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponse(ticket)})
}

// ChangePriority PUT /tickets/:id/priority.
func (h *TicketsHandler) ChangePriority(c *fiber.Ctx) error {
	user, ok := auth.UserFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("user required")
	}
	var req dto.ChangePriorityRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	ticket, err := h.service.ChangePriority(c.UserContext(), user, c.Params("id"), req.Priority)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponse(ticket)})
}

// UpdatePoints PUT /tickets/:id/points.
func (h *TicketsHandler) UpdatePoints(c *fiber.Ctx) error {
	user, ok := auth.UserFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("user required")
	}
	var req dto.UpdatePointsRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	ticket, err := h.service.UpdatePoints(c.UserContext(), user, c.Params("id"), req.Points)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponse(ticket)})
}

// Delete DELETE /tickets/:id.
func (h *TicketsHandler) Delete(c *fiber.Ctx) error {
	user, ok := auth.UserFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("user required")
	}
	if err := h.service.DeleteTicket(c.UserContext(), user, c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// Star PUT /tickets/:id/star.
func (h *TicketsHandler) Star(c *fiber.Ctx) error {
	user, ok := auth.UserFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("user required")
	}
	var req dto.StarRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := h.service.Star(c.UserContext(), user, c.Params("id"), req.Starred); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"starred": req.Starred}})
}

// UploadFile POST /tickets/:id/files. Multipart form with a "file" field.
func (h *TicketsHandler) UploadFile(c *fiber.Ctx) error {
	user, ok := auth.UserFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("user required")
	}
	header, err := c.FormFile("file")
	if err != nil {
		return apperrors.NewValidationError("a file field is required", nil)
	}
	src, err := header.Open()
	if err != nil {
		return apperrors.NewValidationError("unreadable file", nil)
	}
	defer src.Close()
	data, err := io.ReadAll(src)
	if err != nil {
		return apperrors.NewValidationError("unreadable file", nil)
	}

	file, err := h.service.UploadFile(c.UserContext(), user, c.Params("id"), header.Filename, header.Header.Get("Content-Type"), data)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": fileResponse(*file)})
}

// ListMembers GET /tickets/:id/members.
func (h *TicketsHandler) ListMembers(c *fiber.Ctx) error {
	user, ok := auth.UserFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("user required")
	}
	members, err := h.service.ListMembers(c.UserContext(), user, c.Params("id"))
	if err != nil {
		return err
	}
	items := make([]dto.MemberResponse, 0, len(members))
	for _, member := range members {
		items = append(items, memberResponse(member))
	}
	return c.JSON(fiber.Map{"data": items})
}

// AddMembers POST /tickets/:id/members.
func (h *TicketsHandler) AddMembers(c *fiber.Ctx) error {
	user, ok := auth.UserFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("user required")
	}
	var req dto.AddMembersRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := h.service.AddMembers(c.UserContext(), user, c.Params("id"), req.UserIDs, req.CanMessageClient); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusCreated)
}

// RemoveMember DELETE /tickets/:id/members/:userId.
func (h *TicketsHandler) RemoveMember(c *fiber.Ctx) error {
	user, ok := auth.UserFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("user required")
	}
	if err := h.service.RemoveMember(c.UserContext(), user, c.Params("id"), c.Params("userId")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// SetClientAccess PUT /tickets/:id/members/:userId/client-access.
func (h *TicketsHandler) SetClientAccess(c *fiber.Ctx) error {
	user, ok := auth.UserFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("user required")
	}
	var req dto.SetClientAccessRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := h.service.SetCanMessageClient(c.UserContext(), user, c.Params("id"), c.Params("userId"), req.Allowed); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"allowed": req.Allowed}})
}

func ticketCreateInput(req dto.CreateTicketRequest) service.TicketCreateInput {
	input := service.TicketCreateInput{
		Title:       req.Title,
		Description: req.Description,
		Priority:    req.Priority,
		Points:      req.Points,
		MemberIDs:   req.MemberIDs,
	}
	for _, file := range req.Files {
		input.CreationFiles = append(input.CreationFiles, service.FileInput{
			FileName:   file.FileName,
			FileURL:    file.FileURL,
			ObjectPath: file.ObjectPath,
			MimeType:   file.MimeType,
			SizeBytes:  file.SizeBytes,
		})
	}
	return input
}

func parseInt(val string, def int) int {
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}

func ticketResponse(ticket *domain.Ticket) dto.TicketResponse {
	return dto.TicketResponse{
		ID:           ticket.ID,
		TicketNumber: ticket.TicketNumber,
		UID:          ticket.UID,
		Title:        ticket.Title,
		Description:  ticket.Description,
		Priority:     ticket.Priority,
		Status:       ticket.Status,
		StatusLabel:  ticket.Status.Label(),
		CreatedBy:    ticket.CreatedBy,
		Points:       ticket.Points,
		CreatedAt:    ticket.CreatedAt,
		UpdatedAt:    ticket.UpdatedAt,
	}
}

func memberResponse(view service.MemberView) dto.MemberResponse {
	return dto.MemberResponse{
		UserID:           view.Member.UserID,
		Name:             view.User.Name,
		Role:             string(view.User.Role),
		AddedBy:          view.Member.AddedBy,
		AddedAt:          view.Member.AddedAt,
		CanMessageClient: view.Member.CanMessageClient,
	}
}

func fileResponse(file domain.TicketFile) dto.FileResponse {
	return dto.FileResponse{
		ID:         file.ID,
		FileName:   file.FileName,
		FileURL:    file.FileURL,
		MimeType:   file.MimeType,
		SizeBytes:  file.SizeBytes,
		UploadedBy: file.UploadedBy,
		CreatedAt:  file.CreatedAt,
	}
}

func ticketViewResponse(view *service.TicketView) dto.TicketViewResponse {
	members := make([]dto.MemberResponse, 0, len(view.Members))
	for _, member := range view.Members {
		members = append(members, memberResponse(member))
	}
	files := make([]dto.FileResponse, 0, len(view.Files))
	for _, file := range view.Files {
		files = append(files, fileResponse(file))
	}
	resp := dto.TicketViewResponse{
		Ticket:      ticketResponse(&view.Ticket),
		CreatorName: view.Creator.Name,
		Members:     members,
		Files:       files,
		Starred:     view.Starred,
		Partial:     view.Partial,
	}
	if view.LastMessage != nil {
		msg := messageResponse(&view.LastMessage.Message)
		msg.SenderName = view.LastMessage.Sender.Name
		resp.LastMessage = &msg
	}
	return resp
}
