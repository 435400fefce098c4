package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/avvvet/kidzone-services/internal/websvc/models"
	"github.com/avvvet/kidzone-services/internal/websvc/store"
	"github.com/go-chi/jwtauth"
	"golang.org/x/crypto/bcrypt"
)

const (
	TokenTTL          = 7 * 24 * time.Hour
	maxDisplayNameLen = 32
)

var usernameRe = regexp.MustCompile(`^[a-z0-9_]{3,24}$`)

// dummyHash is compared against when the user does not exist so both paths cost the same.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("not-a-real-password"), bcrypt.DefaultCost)

type UserStorer interface {
	CreateUser(ctx context.Context, user models.User) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	GetByID(ctx context.Context, id int64) (*models.User, error)
}

// UserService struct represents the user service layer
type UserService struct {
	userStore UserStorer
	tokenAuth *jwtauth.JWTAuth
}

// NewUserService creates a new UserService instance
func NewUserService(userStore UserStorer, tokenAuth *jwtauth.JWTAuth) *UserService {
	return &UserService{
		userStore: userStore,
		tokenAuth: tokenAuth,
	}
}

func (s *UserService) Signup(ctx context.Context, username, password, displayName string) (*models.User, string, error) {
	username = strings.ToLower(strings.TrimSpace(username))
	if !usernameRe.MatchString(username) {
		return nil, "", fmt.Errorf("%w: username must be 3-24 of a-z, 0-9 or _", ErrInvalidInput)
	}
	if len(password) < 6 || len(password) > 72 {
		return nil, "", fmt.Errorf("%w: password must be 6-72 characters", ErrInvalidInput)
	}
	displayName = strings.TrimSpace(displayName)
	if displayName == "" {
		displayName = username
	}
	if utf8.RuneCountInString(displayName) > maxDisplayNameLen {
		return nil, "", fmt.Errorf("%w: display name longer than %d characters", ErrInvalidInput, maxDisplayNameLen)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, "", fmt.Errorf("hash password: %w", err)
	}

	user, err := s.userStore.CreateUser(ctx, models.User{
		Username:     username,
		PasswordHash: string(hash),
		DisplayName:  displayName,
	})
	if errors.Is(err, store.ErrDuplicate) {
		return nil, "", fmt.Errorf("%w: username already taken", ErrConflict)
	}
	if err != nil {
		return nil, "", err
	}

	token, err := s.IssueToken(user)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

func (s *UserService) Login(ctx context.Context, username, password string) (*models.User, string, error) {
	username = strings.ToLower(strings.TrimSpace(username))
	user, err := s.userStore.GetByUsername(ctx, username)
	if errors.Is(err, store.ErrNotFound) {
		bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
		return nil, "", ErrUnauthorized
	}
	if err != nil {
		return nil, "", err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, "", ErrUnauthorized
	}

	token, err := s.IssueToken(user)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

func (s *UserService) Me(ctx context.Context, id int64) (*models.User, error) {
	return s.userStore.GetByID(ctx, id)
}

// IssueToken signs a JWT carrying the user id, display name and admin flag.
func (s *UserService) IssueToken(user *models.User) (string, error) {
	now := time.Now()
	_, tokenString, err := s.tokenAuth.Encode(map[string]interface{}{
		"sub":   strconv.FormatInt(user.ID, 10),
		"name":  user.DisplayName,
		"admin": user.IsAdmin,
		"iat":   now.Unix(),
		"exp":   now.Add(TokenTTL).Unix(),
	})
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return tokenString, nil
}
