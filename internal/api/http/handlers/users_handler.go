package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/collabkit/ticketdesk/internal/api/dto"
	"github.com/collabkit/ticketdesk/internal/auth"
	"github.com/collabkit/ticketdesk/internal/domain"
	"github.com/collabkit/ticketdesk/internal/service"
	apperrors "github.com/collabkit/ticketdesk/pkg/util"
)

// UsersHandler manages accounts and per-user settings.
type UsersHandler struct {
	service *service.UserService
}

// NewUsersHandler constructs handler.
func NewUsersHandler(userService *service.UserService) *UsersHandler {
	return &UsersHandler{service: userService}
}

// Me GET /users/me.
func (h *UsersHandler) Me(c *fiber.Ctx) error {
	user, ok := auth.UserFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("user required")
	}
	return c.JSON(fiber.Map{"data": userResponse(user)})
}

// UpdateProfile PATCH /users/me.
func (h *UsersHandler) UpdateProfile(c *fiber.Ctx) error {
	user, ok := auth.UserFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("user required")
	}
	var req dto.UpdateProfileRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	updated, err := h.service.UpdateProfile(c.UserContext(), user, req.Name, req.Phone)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": userResponse(updated)})
}

// List GET /users.
func (h *UsersHandler) List(c *fiber.Ctx) error {
	user, ok := auth.UserFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("user required")
	}
	page := parseInt(c.Query("page"), 1)
	pageSize := parseInt(c.Query("page_size"), 50)
	users, err := h.service.ListUsers(c.UserContext(), user, pageSize, (page-1)*pageSize)
	if err != nil {
		return err
	}
	items := make([]dto.UserResponse, 0, len(users))
	for i := range users {
		items = append(items, userResponse(&users[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// Review POST /users/:id/review.
func (h *UsersHandler) Review(c *fiber.Ctx) error {
	user, ok := auth.UserFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("user required")
	}
	var req dto.ReviewUserRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	reviewed, err := h.service.ReviewUser(c.UserContext(), user, c.Params("id"), req.Approve)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": userResponse(reviewed)})
}

// SetRole PUT /users/:id/role.
func (h *UsersHandler) SetRole(c *fiber.Ctx) error {
	user, ok := auth.UserFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("user required")
	}
	var req dto.SetRoleRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	updated, err := h.service.SetRole(c.UserContext(), user, c.Params("id"), req.Role)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": userResponse(updated)})
}

// GetPreference GET /users/me/preferences.
func (h *UsersHandler) GetPreference(c *fiber.Ctx) error {
	user, ok := auth.UserFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("user required")
	}
	pref, err := h.service.GetPreference(c.UserContext(), user)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": preferenceResponse(pref)})
}

// UpdatePreference PUT /users/me/preferences.
func (h *UsersHandler) UpdatePreference(c *fiber.Ctx) error {
	user, ok := auth.UserFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("user required")
	}
	var req dto.PreferenceRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	pref, err := h.service.UpdatePreference(c.UserContext(), user, domain.NotificationPreference{
		ChatClients:    req.ChatClients,
		ChatInternal:   req.ChatInternal,
		StatusChange:   req.StatusChange,
		TicketCreation: req.TicketCreation,
		TicketAssigned: req.TicketAssigned,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": preferenceResponse(pref)})
}

func userResponse(user *domain.User) dto.UserResponse {
	return dto.UserResponse{
		ID:             user.ID,
		Name:           user.Name,
		Email:          user.Email,
		Phone:          user.Phone,
		Role:           user.Role,
		ApprovalStatus: user.ApprovalStatus,
		CreatedAt:      user.CreatedAt,
	}
}

func preferenceResponse(pref domain.NotificationPreference) dto.PreferenceResponse {
	return dto.PreferenceResponse{
		ChatClients:    pref.ChatClients,
		ChatInternal:   pref.ChatInternal,
		StatusChange:   pref.StatusChange,
		TicketCreation: pref.TicketCreation,
		TicketAssigned: pref.TicketAssigned,
	}
}
