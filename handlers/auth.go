package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/erntsn/todo-app/middleware"
	"github.com/erntsn/todo-app/models"
	"github.com/erntsn/todo-app/store"
	"github.com/erntsn/todo-app/utils"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const minPasswordLength = 6

type AuthRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"displayName"`
}

type ResetConfirmRequest struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

// LoginResponse is returned by a successful login.
type LoginResponse struct {
	Message string      `json:"message"`
	Token   string      `json:"token"`
	User    models.User `json:"user"`
}

type AuthHandler struct {
	Users  UserRepository
	Tokens *utils.TokenIssuer
	Now    func() time.Time
	// bcrypt cost, lowered in tests.
	Cost int
}

func NewAuthHandler(users UserRepository, tokens *utils.TokenIssuer) *AuthHandler {
	return &AuthHandler{Users: users, Tokens: tokens, Now: time.Now, Cost: bcrypt.DefaultCost}
}

// Register handles user registration
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req AuthRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.ResponseWithError(w, http.StatusBadRequest, "Invalid request")
		return
	}
	req.Email = strings.TrimSpace(req.Email)
	if req.Email == "" || !strings.Contains(req.Email, "@") {
		utils.ResponseWithError(w, http.StatusBadRequest, "A valid email is required")
		return
	}
	if len(req.Password) < minPasswordLength {
		utils.ResponseWithError(w, http.StatusBadRequest, "Password must be at least 6 characters")
		return
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), h.Cost)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		utils.ResponseWithError(w, http.StatusBadRequest, "Password must be at most 72 bytes")
		return
	} else if err != nil {
		utils.ResponseWithError(w, http.StatusInternalServerError, "Failed to hash password")
		return
	}

	now := h.Now()
	user := models.User{
		ID:          uuid.New().String(),
		Email:       strings.ToLower(req.Email),
		DisplayName: strings.TrimSpace(req.DisplayName),
		Password:    string(hashedPassword),
		CreatedAt:   now,
		LastLogin:   now,
	}

	if err := h.Users.Create(r.Context(), &user); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			utils.ResponseWithError(w, http.StatusConflict, "User already exists")
			return
		}
		log.Printf("register %s: %v", user.Email, err)
		utils.ResponseWithError(w, http.StatusInternalServerError, "Failed to create user")
		return
	}

	utils.ResponseWithJson(w, http.StatusCreated, map[string]interface{}{
		"message": "User registered successfully",
		"user":    user,
	})
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req AuthRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.ResponseWithError(w, http.StatusBadRequest, "Invalid Request")
		return
	}

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	user, err := h.Users.FindByEmail(r.Context(), req.Email)
	if errors.Is(err, store.ErrNotFound) {
		utils.ResponseWithError(w, http.StatusUnauthorized, "User not found")
		return
	} else if err != nil {
		log.Printf("login %s: %v", req.Email, err)
		utils.ResponseWithError(w, http.StatusInternalServerError, "Database Error")
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		utils.ResponseWithError(w, http.StatusUnauthorized, "Invalid Credentials")
		return
	}

	token, err := h.Tokens.GenerateJwt(user.ID)
	if err != nil {
		utils.ResponseWithError(w, http.StatusInternalServerError, "Failed to generate token")
		return
	}

	// A failed lastLogin update does not fail the login.
	now := h.Now()
	if err := h.Users.UpdateLastLogin(r.Context(), user.ID, now); err != nil {
		log.Printf("update last login for %s: %v", user.ID, err)
	} else {
		user.LastLogin = now
	}

	utils.ResponseWithJson(w, http.StatusOK, LoginResponse{
		Message: "Login Successful",
		Token:   token,
		User:    *user,
	})
}

// Me handles GET /me.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, err := h.Users.FindByID(r.Context(), middleware.UserID(r.Context()))
	if errors.Is(err, store.ErrNotFound) {
		utils.ResponseWithError(w, http.StatusNotFound, "User not found")
		return
	} else if err != nil {
		log.Printf("me: %v", err)
		utils.ResponseWithError(w, http.StatusInternalServerError, "Database Error")
		return
	}
	utils.ResponseWithJson(w, http.StatusOK, user)
}

// RequestPasswordReset handles POST /password/reset. The answer is the same
// whether or not the address is registered; the token is logged for the
// mail relay to pick up.
func (h *AuthHandler) RequestPasswordReset(w http.ResponseWriter, r *http.Request) {
	var req AuthRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.ResponseWithError(w, http.StatusBadRequest, "Invalid request")
		return
	}

	user, err := h.Users.FindByEmail(r.Context(), strings.ToLower(strings.TrimSpace(req.Email)))
	switch {
	case err == nil:
		token, err := h.Tokens.GenerateResetToken(user.ID)
		if err != nil {
			utils.ResponseWithError(w, http.StatusInternalServerError, "Failed to generate token")
			return
		}
		log.Printf("password reset requested for %s: token=%s", user.Email, token)
	case errors.Is(err, store.ErrNotFound):
	default:
		log.Printf("password reset %s: %v", req.Email, err)
		utils.ResponseWithError(w, http.StatusInternalServerError, "Database Error")
		return
	}

	utils.ResponseWithJson(w, http.StatusAccepted, map[string]string{
		"message": "If the address is registered, a reset link has been sent",
	})
}

// ConfirmPasswordReset handles POST /password/confirm.
func (h *AuthHandler) ConfirmPasswordReset(w http.ResponseWriter, r *http.Request) {
	var req ResetConfirmRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.ResponseWithError(w, http.StatusBadRequest, "Invalid request")
		return
	}
	if len(req.Password) < minPasswordLength {
		utils.ResponseWithError(w, http.StatusBadRequest, "Password must be at least 6 characters")
		return
	}

	claims, err := h.Tokens.ParseResetToken(req.Token)
	if err != nil {
		utils.ResponseWithError(w, http.StatusUnauthorized, "Invalid Token")
		return
	}
	user, err := h.Users.FindByID(r.Context(), claims.UserID)
	if errors.Is(err, store.ErrNotFound) {
		utils.ResponseWithError(w, http.StatusNotFound, "User not found")
		return
	} else if err != nil {
		log.Printf("reset password for %s: %v", claims.UserID, err)
		utils.ResponseWithError(w, http.StatusInternalServerError, "Database Error")
		return
	}
	// A reset token is spent once the password it was issued for changes.
	if user.IssuedBeforePasswordChange(claims.IssuedAt) {
		utils.ResponseWithError(w, http.StatusUnauthorized, "Invalid Token")
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), h.Cost)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		utils.ResponseWithError(w, http.StatusBadRequest, "Password must be at most 72 bytes")
		return
	} else if err != nil {
		utils.ResponseWithError(w, http.StatusInternalServerError, "Failed to hash password")
		return
	}
	if err := h.Users.UpdatePassword(r.Context(), user.ID, string(hashed), h.Now()); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			utils.ResponseWithError(w, http.StatusNotFound, "User not found")
			return
		}
		log.Printf("reset password for %s: %v", user.ID, err)
		utils.ResponseWithError(w, http.StatusInternalServerError, "Failed to update password")
		return
	}

	utils.ResponseWithJson(w, http.StatusOK, map[string]string{"message": "Password updated"})
}

// ValidateSession checks a bearer token for AuthMiddleware. Tokens issued
// before the user's last password change, or for a user that no longer
// exists, are rejected.
func (h *AuthHandler) ValidateSession(ctx context.Context, token string) (string, error) {
	claims, err := h.Tokens.ParseJwt(token)
	if err != nil {
		return "", err
	}
	user, err := h.Users.FindByID(ctx, claims.UserID)
	if errors.Is(err, store.ErrNotFound) {
		return "", fmt.Errorf("%w: unknown user %s", utils.ErrInvalidToken, claims.UserID)
	} else if err != nil {
		return "", err
	}
	if user.IssuedBeforePasswordChange(claims.IssuedAt) {
		return "", fmt.Errorf("%w: issued before password change", utils.ErrInvalidToken)
	}
	return user.ID, nil
}
