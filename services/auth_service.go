package services

import (
	"errors"
	"net/mail"
	"strings"
	"time"

	"github.com/duckieducksrgood/winchpoint/entity"
	"github.com/duckieducksrgood/winchpoint/repository"
	"github.com/duckieducksrgood/winchpoint/utils"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const minPasswordLen = 8

// AuthService owns registration, login, token refresh and profiles.
type AuthService struct {
	userRepo   *repository.UserRepository
	jwtSecret  string
	jwtTTL     time.Duration
	refreshTTL time.Duration
}

func NewAuthService(repo *repository.UserRepository, secret string, ttl, refreshTTL time.Duration) *AuthService {
	return &AuthService{
		userRepo:   repo,
		jwtSecret:  secret,
		jwtTTL:     ttl,
		refreshTTL: refreshTTL,
	}
}

type RegisterIn struct {
	Username        string `json:"username" binding:"required"`
	Email           string `json:"email" binding:"required,email"`
	Password        string `json:"password" binding:"required"`
	FirstName       string `json:"firstName" binding:"required"`
	LastName        string `json:"lastName" binding:"required"`
	DeliveryAddress string `json:"deliveryAddress"`
}

type TokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

// Register creates a customer. Username and email must both be unused.
func (s *AuthService) Register(in *RegisterIn) (*entity.User, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	username := strings.TrimSpace(in.Username)
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, Validation("invalid email", "email")
	}
	if username == "" {
		return nil, Validation("username is required", "username")
	}
	if len(in.Password) < minPasswordLen {
		return nil, Validation("password must be at least 8 characters", "password")
	}

	if n, err := s.userRepo.CountByEmail(email); err != nil {
		return nil, err
	} else if n > 0 {
		return nil, Validation("email already registered", "email")
	}
	if n, err := s.userRepo.CountByUsername(username); err != nil {
		return nil, err
	} else if n > 0 {
		return nil, Validation("username already taken", "username")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := &entity.User{
		Username:        username,
		Email:           email,
		Password:        string(hashed),
		FirstName:       strings.TrimSpace(in.FirstName),
		LastName:        strings.TrimSpace(in.LastName),
		DeliveryAddress: strings.TrimSpace(in.DeliveryAddress),
		Role:            entity.RoleCustomer,
	}
	if err := s.userRepo.Create(user); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			// lost a race with a concurrent sign-up
			return nil, Validation("username or email already taken", "username", "email")
		}
		return nil, err
	}
	return user, nil
}

// Login accepts a username or an email as identifier.
func (s *AuthService) Login(identifier, password string) (*TokenPair, *entity.User, error) {
	identifier = strings.TrimSpace(identifier)
	if strings.Contains(identifier, "@") {
		identifier = strings.ToLower(identifier)
	}
	user, err := s.userRepo.FindByLogin(identifier)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, Unauthorized("invalid credentials")
		}
		return nil, nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, nil, Unauthorized("invalid credentials")
	}

	pair, err := s.issue(user)
	if err != nil {
		return nil, nil, err
	}
	return pair, user, nil
}

// Refresh trades a refresh token for a fresh pair. The user is re-read so
// role changes and deletions take effect.
func (s *AuthService) Refresh(refreshToken string) (*TokenPair, error) {
	claims, err := utils.ParseToken(refreshToken, utils.TokenRefresh, s.jwtSecret)
	if err != nil {
		return nil, Unauthorized("invalid refresh token")
	}
	user, err := s.userRepo.FindByID(claims.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, Unauthorized("user no longer exists")
		}
		return nil, err
	}
	return s.issue(user)
}

func (s *AuthService) issue(user *entity.User) (*TokenPair, error) {
	access, err := utils.GenerateToken(user, utils.TokenAccess, s.jwtSecret, s.jwtTTL)
	if err != nil {
		return nil, err
	}
	refresh, err := utils.GenerateToken(user, utils.TokenRefresh, s.jwtSecret, s.refreshTTL)
	if err != nil {
		return nil, err
	}
	return &TokenPair{Access: access, Refresh: refresh}, nil
}

func (s *AuthService) AccessTTL() time.Duration  { return s.jwtTTL }
func (s *AuthService) RefreshTTL() time.Duration { return s.refreshTTL }

func (s *AuthService) GetProfile(userID uint) (*entity.User, error) {
	u, err := s.userRepo.FindByID(userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, NotFound("user")
	}
	return u, err
}

type ProfileIn struct {
	FirstName       *string `json:"firstName"`
	LastName        *string `json:"lastName"`
	Email           *string `json:"email"`
	DeliveryAddress *string `json:"deliveryAddress"`
}

func (s *AuthService) UpdateProfile(userID uint, in *ProfileIn) (*entity.User, error) {
	updates, err := s.profileUpdates(userID, in)
	if err != nil {
		return nil, err
	}
	if len(updates) > 0 {
		if err := s.userRepo.Update(userID, updates); err != nil {
			return nil, err
		}
	}
	return s.GetProfile(userID)
}

func (s *AuthService) profileUpdates(userID uint, in *ProfileIn) (map[string]any, error) {
	updates := map[string]any{}
	if in.FirstName != nil {
		updates["first_name"] = strings.TrimSpace(*in.FirstName)
	}
	if in.LastName != nil {
		updates["last_name"] = strings.TrimSpace(*in.LastName)
	}
	if in.DeliveryAddress != nil {
		updates["delivery_address"] = strings.TrimSpace(*in.DeliveryAddress)
	}
	if in.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*in.Email))
		if _, err := mail.ParseAddress(email); err != nil {
			return nil, Validation("invalid email", "email")
		}
		taken, err := s.userRepo.EmailTakenByOther(email, userID)
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, Validation("email already registered", "email")
		}
		updates["email"] = email
	}
	return updates, nil
}

// ----- Admin user management -----

func (s *AuthService) ListUsers() ([]entity.User, error) {
	return s.userRepo.List()
}

type AdminUserIn struct {
	ProfileIn
	Role *string `json:"role"`
}

func (s *AuthService) AdminUpdateUser(userID uint, in *AdminUserIn) (*entity.User, error) {
	if _, err := s.GetProfile(userID); err != nil {
		return nil, err
	}
	updates, err := s.profileUpdates(userID, &in.ProfileIn)
	if err != nil {
		return nil, err
	}
	if in.Role != nil {
		role, err := entity.ParseRole(*in.Role)
		if err != nil {
			return nil, Validation(err.Error(), "role")
		}
		updates["role"] = role
	}
	if len(updates) > 0 {
		if err := s.userRepo.Update(userID, updates); err != nil {
			return nil, err
		}
	}
	return s.GetProfile(userID)
}

// DeleteUser soft-deletes so the user's order history stays intact.
func (s *AuthService) DeleteUser(actor Actor, userID uint) error {
	if actor.UserID == userID {
		return Validation("you cannot delete your own account")
	}
	n, err := s.userRepo.Delete(userID)
	if err != nil {
		return err
	}
	if n == 0 {
		return NotFound("user")
	}
	return nil
}
