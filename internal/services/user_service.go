package services

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"helpdesk-app/internal/models"
	"helpdesk-app/internal/utils"
)

type UserRepository interface {
	Create(ctx context.Context, u *models.User) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	EmailExists(ctx context.Context, email string, excludeID primitive.ObjectID) (bool, error)
	List(ctx context.Context, role models.Role, search string, page, limit int64) ([]models.User, int64, error)
	UpdateFields(ctx context.Context, id primitive.ObjectID, fields bson.M) error
	Delete(ctx context.Context, id primitive.ObjectID) error
}

type TicketCounter interface {
	CountByCreator(ctx context.Context, userID primitive.ObjectID) (int64, error)
}

// UserService covers the admin-only user management surface.
type UserService struct {
	userRepo   UserRepository
	ticketRepo TicketCounter
}

func NewUserService(userRepo UserRepository, ticketRepo TicketCounter) *UserService {
	return &UserService{userRepo: userRepo, ticketRepo: ticketRepo}
}

func (s *UserService) List(ctx context.Context, role models.Role, search string, page, limit int64) ([]models.User, int64, error) {
	if role != "" && !role.IsValid() {
		return nil, 0, fmt.Errorf("%w: unknown role %q", models.ErrValidation, role)
	}
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	return s.userRepo.List(ctx, role, search, page, limit)
}

func (s *UserService) Create(ctx context.Context, name, email, password string, role models.Role) (*models.User, error) {
	user := &models.User{
		Name:     strings.TrimSpace(name),
		Email:    strings.TrimSpace(email),
		Password: password,
		Role:     role,
		Active:   true,
	}

	if err := utils.GetValidator().Struct(user); err != nil {
		errs := utils.ParseErrors(err)
		return nil, fmt.Errorf("%w: %s", models.ErrValidation, strings.Join(errs, " // "))
	}

	exists, err := s.userRepo.EmailExists(ctx, user.Email, primitive.NilObjectID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, fmt.Errorf("%w: email already registered", models.ErrDuplicate)
	}

	if err := user.HashPassword(); err != nil {
		return nil, err
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// UserUpdate carries the admin-editable fields; nil means leave unchanged.
type UserUpdate struct {
	Name   *string
	Role   *models.Role
	Active *bool
}

func (s *UserService) Update(ctx context.Context, requester models.AuthUser, targetID primitive.ObjectID, update UserUpdate) (*models.User, error) {
	fields := bson.M{}

	if update.Name != nil {
		trimmed := strings.TrimSpace(*update.Name)
		if utf8.RuneCountInString(trimmed) < 2 {
			return nil, fmt.Errorf("%w: Name length must be greater than or equal to 2", models.ErrValidation)
		}
		fields["name"] = trimmed
	}
	if update.Role != nil {
		if !update.Role.IsValid() {
			return nil, fmt.Errorf("%w: unknown role %q", models.ErrValidation, *update.Role)
		}
		fields["role"] = *update.Role
	}
	if update.Active != nil {
		// An admin never deactivates their own account.
		if targetID == requester.ID && !*update.Active {
			return nil, fmt.Errorf("%w: cannot deactivate your own account", models.ErrForbidden)
		}
		fields["active"] = *update.Active
	}

	if len(fields) > 0 {
		if err := s.userRepo.UpdateFields(ctx, targetID, fields); err != nil {
			return nil, err
		}
	}
	return s.userRepo.GetByID(ctx, targetID)
}

// Delete hard-removes a user. Blocked when the target is the requester or has
// authored tickets; deactivation is the alternative.
func (s *UserService) Delete(ctx context.Context, requester models.AuthUser, targetID primitive.ObjectID) error {
	if targetID == requester.ID {
		return fmt.Errorf("%w: cannot delete your own account", models.ErrForbidden)
	}

	if _, err := s.userRepo.GetByID(ctx, targetID); err != nil {
		return err
	}

	count, err := s.ticketRepo.CountByCreator(ctx, targetID)
	if err != nil {
		return err
	}
	if count > 0 {
		return fmt.Errorf("%w: user has created tickets, deactivate instead", models.ErrInUse)
	}

	return s.userRepo.Delete(ctx, targetID)
}
