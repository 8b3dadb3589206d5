package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/brandpick/apiserver/config"
	"github.com/brandpick/apiserver/internal/store"
	"github.com/brandpick/apiserver/types"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const (
	refreshTokenTTL = 30 * 24 * time.Hour
	confirmTokenTTL = 30 * 24 * time.Hour

	refreshTokenBytes = 40
	confirmTokenBytes = 64
)

var (
	ErrEmailTaken         = errors.New("email already exists")
	ErrInvalidCredentials = errors.New("incorrect email or password")
	ErrRefreshExpired     = errors.New("refresh token expired")
	ErrRefreshMismatch    = errors.New("incorrect email or refresh token")
	ErrConfirmNotNeeded   = errors.New("email does not need confirmation")
	ErrConfirmExpired     = errors.New("confirm token expired")
	ErrUnauthorized       = errors.New("unauthorized")
)

// TokenRepository persists single-use tokens.
type TokenRepository interface {
	Create(ctx context.Context, token types.Token) error
	FindAndDelete(ctx context.Context, email, token string) (types.Token, error)
}

// TokenResponse is returned to clients after every successful sign-in.
type TokenResponse struct {
	TokenType    string    `json:"tokenType"`
	AccessToken  string    `json:"accessToken"`
	RefreshToken string    `json:"refreshToken"`
	ExpiresIn    time.Time `json:"expiresIn"`
}

// RegisterInput carries the fields of a new account.
type RegisterInput struct {
	Email    string
	Password string
	Role     string
	Name     string
}

// AuthService signs users in and issues their tokens.
type AuthService struct {
	users         UserRepository
	refreshTokens TokenRepository
	confirmTokens TokenRepository
	secret        []byte
	tokenTTL      time.Duration
	bcryptCost    int
	options
}

func NewAuthService(users UserRepository, refreshTokens, confirmTokens TokenRepository, cfg config.AuthConfig, opts ...Option) *AuthService {
	cost := cfg.BcryptRounds
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &AuthService{
		users:         users,
		refreshTokens: refreshTokens,
		confirmTokens: confirmTokens,
		secret:        []byte(cfg.JWTSecret),
		tokenTTL:      cfg.TokenTTL(),
		bcryptCost:    cost,
		options:       newOptions(opts),
	}
}

// Register creates an account, signs it in and issues an email
// confirmation token that is handed to the mail worker.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (types.User, TokenResponse, error) {
	hash, err := s.hashPassword(input.Password)
	if err != nil {
		return types.User{}, TokenResponse{}, err
	}

	user, err := s.users.Create(ctx, types.User{
		Email:        input.Email,
		Name:         input.Name,
		Role:         input.Role,
		PasswordHash: hash,
	})
	if err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return types.User{}, TokenResponse{}, ErrEmailTaken
		}
		return types.User{}, TokenResponse{}, fmt.Errorf("create user: %w", err)
	}

	response, err := s.tokenResponse(ctx, user)
	if err != nil {
		return types.User{}, TokenResponse{}, err
	}

	confirm, err := s.issueConfirmToken(ctx, user)
	if err != nil {
		return types.User{}, TokenResponse{}, err
	}
	s.publish(ctx, types.ChannelUserRegistered, types.UserRegisteredEvent{
		UserID:       user.ID,
		Email:        user.Email,
		Name:         user.Name,
		ConfirmToken: confirm.Token,
		Expires:      confirm.Expires,
	})

	s.logger.Info("user registered", zap.String("user_id", user.ID), zap.String("role", user.Role))
	return user, response, nil
}

// Login checks the password of the account registered with email.
func (s *AuthService) Login(ctx context.Context, email, password string) (types.User, TokenResponse, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.User{}, TokenResponse{}, ErrInvalidCredentials
		}
		return types.User{}, TokenResponse{}, fmt.Errorf("find user: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return types.User{}, TokenResponse{}, ErrInvalidCredentials
	}

	response, err := s.tokenResponse(ctx, user)
	if err != nil {
		return types.User{}, TokenResponse{}, err
	}
	return user, response, nil
}

// Refresh exchanges a refresh token for a new token pair. The presented
// token is consumed even when it turns out to be expired.
func (s *AuthService) Refresh(ctx context.Context, email, refreshToken string) (types.User, TokenResponse, error) {
	token, err := s.refreshTokens.FindAndDelete(ctx, email, refreshToken)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.User{}, TokenResponse{}, ErrRefreshMismatch
		}
		return types.User{}, TokenResponse{}, fmt.Errorf("consume refresh token: %w", err)
	}
	if token.Expired(s.now()) {
		return types.User{}, TokenResponse{}, ErrRefreshExpired
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.User{}, TokenResponse{}, ErrRefreshMismatch
		}
		return types.User{}, TokenResponse{}, fmt.Errorf("find user: %w", err)
	}

	response, err := s.tokenResponse(ctx, user)
	if err != nil {
		return types.User{}, TokenResponse{}, err
	}
	return user, response, nil
}

// Confirm consumes the confirmation token issued to email.
func (s *AuthService) Confirm(ctx context.Context, email, token string) error {
	found, err := s.confirmTokens.FindAndDelete(ctx, email, token)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrConfirmNotNeeded
		}
		return fmt.Errorf("consume confirm token: %w", err)
	}
	if found.Expired(s.now()) {
		return ErrConfirmExpired
	}
	s.logger.Info("email confirmed", zap.String("user_id", found.UserID))
	return nil
}

// OAuthLogin signs in the account linked to the provider profile. An
// account with the same email is linked to the provider on first use.
// When none matches, a shopper account with a random password is created.
// Profiles without an id or an email are rejected.
func (s *AuthService) OAuthLogin(ctx context.Context, profile OAuthProfile) (types.User, TokenResponse, error) {
	if profile.ID == "" || profile.Email == "" {
		return types.User{}, TokenResponse{}, ErrProviderRejected
	}
	user, err := s.users.GetByServiceOrEmail(ctx, profile.Service, profile.ID, profile.Email)
	switch {
	case err == nil:
		if user.Services == nil {
			user.Services = make(map[string]string, 1)
		}
		user.Services[profile.Service] = profile.ID
		if user.Name == "" {
			user.Name = profile.Name
		}
		if user, err = s.users.Update(ctx, user); err != nil {
			return types.User{}, TokenResponse{}, fmt.Errorf("link %s account: %w", profile.Service, err)
		}
	case errors.Is(err, store.ErrNotFound):
		hash, err := s.hashPassword(uuid.NewString())
		if err != nil {
			return types.User{}, TokenResponse{}, err
		}
		user, err = s.users.Create(ctx, types.User{
			Email:        profile.Email,
			Name:         profile.Name,
			Role:         types.RoleShopper,
			PasswordHash: hash,
			Services:     map[string]string{profile.Service: profile.ID},
		})
		if err != nil {
			if errors.Is(err, store.ErrDuplicate) {
				return types.User{}, TokenResponse{}, ErrEmailTaken
			}
			return types.User{}, TokenResponse{}, fmt.Errorf("create user: %w", err)
		}
		s.logger.Info("user registered", zap.String("user_id", user.ID), zap.String("service", profile.Service))
	default:
		return types.User{}, TokenResponse{}, fmt.Errorf("find user: %w", err)
	}

	response, err := s.tokenResponse(ctx, user)
	if err != nil {
		return types.User{}, TokenResponse{}, err
	}
	return user, response, nil
}

// Authenticate resolves the user an access token was issued for.
func (s *AuthService) Authenticate(ctx context.Context, accessToken string) (types.User, error) {
	subject, err := parseTokenSubject(accessToken, s.secret)
	if err != nil {
		return types.User{}, ErrUnauthorized
	}
	user, err := s.users.GetByID(ctx, subject)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.User{}, ErrUnauthorized
		}
		return types.User{}, err
	}
	return user, nil
}

func (s *AuthService) hashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hashed), nil
}

func (s *AuthService) tokenResponse(ctx context.Context, user types.User) (TokenResponse, error) {
	now := s.now()
	accessToken, err := issueToken(user.ID, s.secret, now, s.tokenTTL)
	if err != nil {
		return TokenResponse{}, fmt.Errorf("sign access token: %w", err)
	}

	secret, err := randomHex(refreshTokenBytes)
	if err != nil {
		return TokenResponse{}, err
	}
	refresh := types.Token{
		Token:     user.ID + "." + secret,
		UserID:    user.ID,
		UserEmail: user.Email,
		Expires:   now.Add(refreshTokenTTL),
	}
	if err := s.refreshTokens.Create(ctx, refresh); err != nil {
		return TokenResponse{}, fmt.Errorf("store refresh token: %w", err)
	}

	return TokenResponse{
		TokenType:    "Bearer",
		AccessToken:  accessToken,
		RefreshToken: refresh.Token,
		ExpiresIn:    now.Add(s.tokenTTL),
	}, nil
}

func (s *AuthService) issueConfirmToken(ctx context.Context, user types.User) (types.Token, error) {
	value, err := randomHex(confirmTokenBytes)
	if err != nil {
		return types.Token{}, err
	}
	token := types.Token{
		Token:     value,
		UserID:    user.ID,
		UserEmail: user.Email,
		Expires:   s.now().Add(confirmTokenTTL),
	}
	if err := s.confirmTokens.Create(ctx, token); err != nil {
		return types.Token{}, fmt.Errorf("store confirm token: %w", err)
	}
	return token, nil
}

func randomHex(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
