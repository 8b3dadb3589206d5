package handlers

import (
	"errors"
	"net/http"

	"github.com/brandpick/apiserver/internal/services"
	"github.com/brandpick/apiserver/types"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// AuthHandler provides sign-in endpoints.
type AuthHandler struct {
	auth      *services.AuthService
	providers map[string]services.OAuthProvider
	logger    *zap.Logger
}

func NewAuthHandler(auth *services.AuthService, providers map[string]services.OAuthProvider, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{auth: auth, providers: providers, logger: logger}
}

// AuthRouter registers auth routes on the given router.
func AuthRouter(r chi.Router, handler *AuthHandler) {
	r.Post("/register", handler.Register)
	r.Post("/login", handler.Login)
	r.Post("/refresh-token", handler.Refresh)
	r.Post("/confirm", handler.Confirm)
	r.Post("/facebook", handler.OAuth(services.ProviderFacebook))
	r.Post("/google", handler.OAuth(services.ProviderGoogle))
}

type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6,max=128"`
	Role     string `json:"role" validate:"required,oneof=brand picker shopper admin"`
	Name     string `json:"name" validate:"required"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,max=128"`
}

type RefreshRequest struct {
	Email        string `json:"email" validate:"required,email"`
	RefreshToken string `json:"refreshToken" validate:"required"`
}

type ConfirmRequest struct {
	Email string `json:"email" validate:"required,email"`
	Token string `json:"token" validate:"required,len=128"`
}

type OAuthRequest struct {
	AccessToken string `json:"access_token" validate:"required"`
}

type AuthResponse struct {
	Token services.TokenResponse `json:"token"`
	User  types.User             `json:"user"`
}

// Register creates an account and signs it in.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeRequestError(w, err)
		return
	}

	user, token, err := h.auth.Register(r.Context(), services.RegisterInput{
		Email:    req.Email,
		Password: req.Password,
		Role:     req.Role,
		Name:     req.Name,
	})
	if err != nil {
		if errors.Is(err, services.ErrEmailTaken) {
			writeValidationError(w, http.StatusConflict, []FieldError{{"email": `"email" already exists`}})
			return
		}
		writeInternalError(w, h.logger, "register user", err)
		return
	}

	writeJSON(w, http.StatusCreated, AuthResponse{Token: token, User: user})
}

// Login verifies credentials and signs the user in.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeRequestError(w, err)
		return
	}

	user, token, err := h.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			writeError(w, http.StatusUnauthorized, "Incorrect email or password")
			return
		}
		writeInternalError(w, h.logger, "login", err)
		return
	}

	writeJSON(w, http.StatusOK, AuthResponse{Token: token, User: user})
}

// Refresh exchanges a refresh token for a new token pair.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeRequestError(w, err)
		return
	}

	_, token, err := h.auth.Refresh(r.Context(), req.Email, req.RefreshToken)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrRefreshExpired):
			writeError(w, http.StatusUnauthorized, "Invalid refresh token.")
		case errors.Is(err, services.ErrRefreshMismatch):
			writeError(w, http.StatusUnauthorized, "Incorrect email or refreshToken")
		default:
			writeInternalError(w, h.logger, "refresh token", err)
		}
		return
	}

	writeJSON(w, http.StatusOK, token)
}

// Confirm consumes an email confirmation token.
func (h *AuthHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	var req ConfirmRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeRequestError(w, err)
		return
	}

	if err := h.auth.Confirm(r.Context(), req.Email, req.Token); err != nil {
		switch {
		case errors.Is(err, services.ErrConfirmNotNeeded):
			writeError(w, http.StatusBadRequest, "Email is no need to confirm")
		case errors.Is(err, services.ErrConfirmExpired):
			writeError(w, http.StatusBadRequest, "Confirm token is expired")
		default:
			writeInternalError(w, h.logger, "confirm email", err)
		}
		return
	}

	writeJSON(w, http.StatusOK, "Email confirmed")
}

// OAuth signs in with an access token issued by the named provider.
func (h *AuthHandler) OAuth(provider string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resolver, ok := h.providers[provider]
		if !ok {
			writeError(w, http.StatusNotFound, "Not found")
			return
		}

		var req OAuthRequest
		if err := decodeAndValidate(r, &req); err != nil {
			writeRequestError(w, err)
			return
		}

		profile, err := resolver.Profile(r.Context(), req.AccessToken)
		if err != nil {
			if errors.Is(err, services.ErrProviderRejected) {
				writeError(w, http.StatusUnauthorized, "Unauthorized")
				return
			}
			writeInternalError(w, h.logger, "resolve oauth profile", err)
			return
		}

		user, token, err := h.auth.OAuthLogin(r.Context(), profile)
		if err != nil {
			if errors.Is(err, services.ErrProviderRejected) {
				writeError(w, http.StatusUnauthorized, "Unauthorized")
				return
			}
			if errors.Is(err, services.ErrEmailTaken) {
				writeValidationError(w, http.StatusConflict, []FieldError{{"email": `"email" already exists`}})
				return
			}
			writeInternalError(w, h.logger, "oauth login", err)
			return
		}

		writeJSON(w, http.StatusOK, AuthResponse{Token: token, User: user})
	}
}
