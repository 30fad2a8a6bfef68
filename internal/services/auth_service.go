package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"helpdesk-app/internal/models"
	"helpdesk-app/internal/utils"
)

var ErrInvalidCredentials = errors.New("invalid credentials")

type AuthUserRepository interface {
	Create(ctx context.Context, u *models.User) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	EmailExists(ctx context.Context, email string, excludeID primitive.ObjectID) (bool, error)
	UpdateFields(ctx context.Context, id primitive.ObjectID, fields bson.M) error
}

type AuthService struct {
	userRepo AuthUserRepository
	jwtUtil  *utils.JWTUtil
	redis    *utils.RedisClient
}

func NewAuthService(userRepo AuthUserRepository, jwtUtil *utils.JWTUtil, redis *utils.RedisClient) *AuthService {
	return &AuthService{userRepo: userRepo, jwtUtil: jwtUtil, redis: redis}
}

func (s *AuthService) Register(ctx context.Context, name, email, password string) (*models.User, string, error) {
	user := &models.User{
		Name:     strings.TrimSpace(name),
		Email:    strings.TrimSpace(email),
		Password: password,
		Role:     models.RoleUser,
		Active:   true,
	}

	if err := utils.GetValidator().Struct(user); err != nil {
		errs := utils.ParseErrors(err)
		return nil, "", fmt.Errorf("%w: %s", models.ErrValidation, strings.Join(errs, " // "))
	}

	exists, err := s.userRepo.EmailExists(ctx, user.Email, primitive.NilObjectID)
	if err != nil {
		return nil, "", err
	}
	if exists {
		return nil, "", fmt.Errorf("%w: email already registered", models.ErrDuplicate)
	}

	if err := user.HashPassword(); err != nil {
		return nil, "", err
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, "", err
	}

	token, err := s.jwtUtil.GenerateToken(user.ID.Hex(), string(user.Role))
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

func (s *AuthService) Login(ctx context.Context, email, password string) (*models.User, string, error) {
	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return nil, "", ErrInvalidCredentials
	}

	if !user.Active {
		return nil, "", errors.New("account deactivated")
	}

	if err := user.ComparePassword(password); err != nil {
		return nil, "", ErrInvalidCredentials
	}

	token, err := s.jwtUtil.GenerateToken(user.ID.Hex(), string(user.Role))
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

func (s *AuthService) Logout(ctx context.Context, token string) error {
	return s.jwtUtil.BlacklistToken(ctx, token, s.redis)
}

// IsActive backs the auth middleware's deactivated-account check.
func (s *AuthService) IsActive(ctx context.Context, userID string) (bool, error) {
	id, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return false, models.ErrInvalidID
	}
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		return false, err
	}
	return user.Active, nil
}

func (s *AuthService) GetProfile(ctx context.Context, userID primitive.ObjectID) (*models.User, error) {
	return s.userRepo.GetByID(ctx, userID)
}

func (s *AuthService) UpdateProfile(ctx context.Context, userID primitive.ObjectID, name, avatar *string) error {
	fields := bson.M{}
	if name != nil {
		trimmed := strings.TrimSpace(*name)
		if utf8.RuneCountInString(trimmed) < 2 {
			return fmt.Errorf("%w: Name length must be greater than or equal to 2", models.ErrValidation)
		}
		fields["name"] = trimmed
	}
	if avatar != nil {
		fields["avatar"] = *avatar
	}
	if len(fields) == 0 {
		return nil
	}
	return s.userRepo.UpdateFields(ctx, userID, fields)
}

func (s *AuthService) ChangePassword(ctx context.Context, userID primitive.ObjectID, oldPassword, newPassword string) error {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if err := user.ComparePassword(oldPassword); err != nil {
		return ErrInvalidCredentials
	}
	if utf8.RuneCountInString(newPassword) < 6 {
		return fmt.Errorf("%w: Password length must be greater than or equal to 6", models.ErrValidation)
	}

	user.Password = newPassword
	if err := user.HashPassword(); err != nil {
		return err
	}
	return s.userRepo.UpdateFields(ctx, userID, bson.M{"password": user.Password})
}
