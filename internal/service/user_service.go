package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/collabkit/ticketdesk/internal/auth"
	"github.com/collabkit/ticketdesk/internal/domain"
	"github.com/collabkit/ticketdesk/internal/events"
	"github.com/collabkit/ticketdesk/internal/notify"
	"github.com/collabkit/ticketdesk/internal/repository"
	apperrors "github.com/collabkit/ticketdesk/pkg/util"
)

// UserService handles passwordless sign-in, account review and notification
// preferences.
type UserService struct {
	users       repository.UserRepository
	preferences repository.PreferenceRepository
	otp         *auth.OTPStore
	tokens      *auth.TokenManager
	email       notify.Sender
	dispatcher  events.Dispatcher
	logger      *zap.Logger
}

// UserDependencies bundles what UserService needs.
type UserDependencies struct {
	UserRepo       repository.UserRepository
	PreferenceRepo repository.PreferenceRepository
	OTP            *auth.OTPStore
	Tokens         *auth.TokenManager
	Email          notify.Sender
	Dispatcher     events.Dispatcher
	Logger         *zap.Logger
}

// NewUserService constructs the service.
func NewUserService(deps UserDependencies) *UserService {
	return &UserService{
		users:       deps.UserRepo,
		preferences: deps.PreferenceRepo,
		otp:         deps.OTP,
		tokens:      deps.Tokens,
		email:       deps.Email,
		dispatcher:  deps.Dispatcher,
		logger:      deps.Logger,
	}
}

// AuthResult is what a successful code verification returns.
type AuthResult struct {
	Token     string
	ExpiresAt time.Time
	User      *domain.User
}

// RequestOTP issues a one-time sign-in code for the email. Unknown addresses
// get a pending client account on first sight, so the admin review queue is
// fed by sign-in attempts rather than a separate registration flow. Unlike
// the background side effects, code delivery is the whole point of the call,
// so an email failure is terminal.
func (s *UserService) RequestOTP(ctx context.Context, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || !strings.Contains(email, "@") {
		return apperrors.NewValidationError("a valid email is required", nil)
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if !apperrors.IsNotFound(err) {
			return apperrors.NewDownstreamError("user lookup", err)
		}
		user = &domain.User{
			Name:           email[:strings.Index(email, "@")],
			Email:          email,
			Role:           domain.RoleClient,
			ApprovalStatus: domain.ApprovalPending,
		}
		if err := s.users.Create(ctx, user); err != nil {
			return apperrors.NewDownstreamError("user creation", err)
		}
		s.logger.Info("created pending account from sign-in attempt", zap.String("user_id", user.ID))
	}

	code, err := s.otp.Issue(ctx, email)
	if err != nil {
		return apperrors.NewDownstreamError("code issuance", err)
	}

	body := fmt.Sprintf("Your sign-in code is %s. It expires shortly and can be used once.", code)
	if err := s.email.Send(ctx, email, "Your sign-in code", body); err != nil {
		return apperrors.NewDownstreamError("code delivery", err)
	}
	return nil
}

// VerifyOTP exchanges a valid code for a signed token. Rejected accounts
// cannot sign in at all; pending accounts sign in but the approval gate on
// protected routes keeps them out until reviewed.
func (s *UserService) VerifyOTP(ctx context.Context, email, code string) (*AuthResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || code == "" {
		return nil, apperrors.NewValidationError("email and code are required", nil)
	}

	if err := s.otp.Verify(ctx, email, code); err != nil {
		if err == auth.ErrOTPMismatch {
			return nil, apperrors.NewUnauthorized("invalid or expired code")
		}
		return nil, apperrors.NewDownstreamError("code verification", err)
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, apperrors.NewUnauthorized("invalid or expired code")
		}
		return nil, apperrors.NewDownstreamError("user lookup", err)
	}
	if user.ApprovalStatus == domain.ApprovalRejected {
		return nil, apperrors.NewAuthorizationError("this account has been rejected")
	}

	token, expiresAt, err := s.tokens.GenerateToken(user)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return &AuthResult{Token: token, ExpiresAt: expiresAt, User: user}, nil
}

// ReviewUser approves or rejects a pending account. Admin only.
func (s *UserService) ReviewUser(ctx context.Context, actor *domain.User, userID string, approve bool) (*domain.User, error) {
	if actor.Role != domain.RoleAdmin {
		return nil, apperrors.NewAuthorizationError("only admins can review accounts")
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, apperrors.NewNotFound("user", nil)
		}
		return nil, apperrors.NewDownstreamError("user lookup", err)
	}

	status := domain.ApprovalApproved
	if !approve {
		status = domain.ApprovalRejected
	}
	if user.ApprovalStatus == status {
		return nil, apperrors.NewConflict(fmt.Sprintf("account is already %s", strings.ToLower(string(status))), nil)
	}
	if err := s.users.UpdateApproval(ctx, userID, status); err != nil {
		return nil, apperrors.NewDownstreamError("approval update", err)
	}
	user.ApprovalStatus = status

	s.publish(events.Event{
		Type:    events.EventUserReviewed,
		ActorID: actor.ID,
		Payload: events.UserReviewedPayload{
			UserID:   user.ID,
			Approved: approve,
			Status:   status,
		},
	})
	return user, nil
}

// SetRole changes a user's role. Admin only; admins cannot demote themselves,
// which keeps at least the acting admin in place.
func (s *UserService) SetRole(ctx context.Context, actor *domain.User, userID string, role domain.UserRole) (*domain.User, error) {
	if actor.Role != domain.RoleAdmin {
		return nil, apperrors.NewAuthorizationError("only admins can change roles")
	}
	switch role {
	case domain.RoleAdmin, domain.RoleEmployee, domain.RoleFreelancer, domain.RoleClient:
	default:
		return nil, apperrors.NewValidationError("unknown role", map[string]any{"role": role})
	}
	if actor.ID == userID && role != domain.RoleAdmin {
		return nil, apperrors.NewConflict("admins cannot demote their own account", nil)
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, apperrors.NewNotFound("user", nil)
		}
		return nil, apperrors.NewDownstreamError("user lookup", err)
	}
	if err := s.users.UpdateRole(ctx, userID, role); err != nil {
		return nil, apperrors.NewDownstreamError("role update", err)
	}
	user.Role = role
	return user, nil
}

// UpdateProfile lets a signed-in user change their own display name and
// phone number.
func (s *UserService) UpdateProfile(ctx context.Context, actor *domain.User, name, phone string) (*domain.User, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperrors.NewValidationError("name is required", nil)
	}
	if err := s.users.UpdateProfile(ctx, actor.ID, name, phone); err != nil {
		return nil, apperrors.NewDownstreamError("profile update", err)
	}
	actor.Name = name
	actor.Phone = phone
	return actor, nil
}

// ListUsers pages through accounts. Admin only.
func (s *UserService) ListUsers(ctx context.Context, actor *domain.User, limit, offset int) ([]domain.User, error) {
	if actor.Role != domain.RoleAdmin {
		return nil, apperrors.NewAuthorizationError("only admins can list accounts")
	}
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	users, err := s.users.ListAll(ctx, limit, offset)
	if err != nil {
		return nil, apperrors.NewDownstreamError("user list", err)
	}
	return users, nil
}

// GetPreference returns the user's notification flags, defaulted when unset.
func (s *UserService) GetPreference(ctx context.Context, actor *domain.User) (domain.NotificationPreference, error) {
	pref, err := s.preferences.Get(ctx, actor.ID)
	if err != nil {
		return domain.NotificationPreference{}, apperrors.NewDownstreamError("preference lookup", err)
	}
	return pref, nil
}

// UpdatePreference replaces the user's notification flags.
func (s *UserService) UpdatePreference(ctx context.Context, actor *domain.User, pref domain.NotificationPreference) (domain.NotificationPreference, error) {
	pref.UserID = actor.ID
	if err := s.preferences.Upsert(ctx, &pref); err != nil {
		return domain.NotificationPreference{}, apperrors.NewDownstreamError("preference update", err)
	}
	return pref, nil
}

func (s *UserService) publish(event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	_ = s.dispatcher.Publish(context.Background(), event)
}
