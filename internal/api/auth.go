package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"vidtube/internal/auth"
	"vidtube/internal/db"
	"vidtube/internal/models"
)

// ObjectUploader stores an uploaded file externally and returns its public URL.
type ObjectUploader interface {
	Upload(ctx context.Context, filename string, contents io.Reader) (string, error)
}

type AuthHandler struct {
	users          *db.UserRepository
	sessions       *auth.Service
	uploader       ObjectUploader
	refreshTTL     time.Duration
	secureCookies  bool
	uploadMaxBytes int64
}

func NewAuthHandler(
	users *db.UserRepository,
	sessions *auth.Service,
	uploader ObjectUploader,
	refreshTTL time.Duration,
	secureCookies bool,
	uploadMaxBytes int64,
) *AuthHandler {
	return &AuthHandler{
		users:          users,
		sessions:       sessions,
		uploader:       uploader,
		refreshTTL:     refreshTTL,
		secureCookies:  secureCookies,
		uploadMaxBytes: uploadMaxBytes,
	}
}

// POST /api/v1/users/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	cleanup, ok := parseMultipart(w, r, h.uploadMaxBytes)
	if !ok {
		return
	}
	defer cleanup()

	fullName := sanitizeFullName(r.FormValue("fullName"))
	email := strings.ToLower(strings.TrimSpace(r.FormValue("email")))
	username := strings.ToLower(strings.TrimSpace(r.FormValue("username")))
	password := strings.TrimSpace(r.FormValue("password"))

	if fullName == "" || email == "" || username == "" || password == "" {
		badRequest(w, "All fields are required")
		return
	}
	if err := requestValidator.Var(email, "email,max=254"); err != nil {
		badRequest(w, "invalid email format")
		return
	}

	exists, err := h.users.ExistsByUsernameOrEmail(r.Context(), username, email)
	if err != nil {
		slog.Error("error checking user existence", "error", err)
		internalError(w)
		return
	}
	if exists {
		conflict(w, "User with email or username already exists")
		return
	}

	avatarFile, avatarHeader, err := r.FormFile("avatar")
	if err != nil {
		badRequest(w, "Avatar file is required")
		return
	}
	defer avatarFile.Close()

	avatarURL, err := h.uploader.Upload(r.Context(), avatarHeader.Filename, avatarFile)
	if err != nil {
		slog.Error("error uploading avatar", "error", err)
		badRequest(w, "Avatar file is required")
		return
	}

	// A failed or absent cover upload is not fatal; the field stays empty.
	var coverImageURL *string
	if coverFile, coverHeader, err := r.FormFile("coverImage"); err == nil {
		defer coverFile.Close()
		url, uploadErr := h.uploader.Upload(r.Context(), coverHeader.Filename, coverFile)
		if uploadErr != nil {
			slog.Warn("error uploading cover image", "error", uploadErr)
		} else {
			coverImageURL = &url
		}
	}

	passwordHash, err := auth.HashPassword(password)
	if err != nil {
		slog.Error("error hashing password", "error", err)
		internalError(w)
		return
	}

	user, err := h.users.Create(r.Context(), db.CreateUserParams{
		Username:      username,
		Email:         email,
		FullName:      fullName,
		PasswordHash:  passwordHash,
		AvatarURL:     avatarURL,
		CoverImageURL: coverImageURL,
	})
	if errors.Is(err, db.ErrDuplicate) {
		conflict(w, "User with email or username already exists")
		return
	}
	if err != nil {
		slog.Error("error creating user", "error", err)
		internalError(w)
		return
	}

	writeData(w, http.StatusCreated, user, "User registered successfully")
}

type LoginRequest struct {
	Username string `json:"username" validate:"required,max=64"`
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required"`
}

type LoginResponse struct {
	User         *models.User `json:"user"`
	AccessToken  string       `json:"accessToken"`
	RefreshToken string       `json:"refreshToken"`
}

// POST /api/v1/users/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decodeAndValidate(r.Body, &req); err != nil {
		badRequest(w, err.Error())
		return
	}

	user, pair, err := h.sessions.Login(r.Context(), req.Username, req.Email, req.Password)
	switch {
	case errors.Is(err, auth.ErrUserNotFound):
		notFound(w, "User not found")
		return
	case errors.Is(err, auth.ErrInvalidCredentials):
		unauthorized(w, "Invalid user credentials")
		return
	case err != nil:
		slog.Error("error logging in", "error", err)
		internalError(w)
		return
	}

	setAuthCookies(w, pair, h.refreshTTL, h.secureCookies)
	writeData(w, http.StatusOK, LoginResponse{
		User:         user,
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	}, "User logged in successfully")
}

// POST /api/v1/users/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	user := CurrentUser(r)
	if user == nil {
		unauthorized(w, "User not found in context")
		return
	}

	if err := h.sessions.Logout(r.Context(), user.ID); err != nil {
		slog.Error("error logging out", "error", err, "user_id", user.ID)
		internalError(w)
		return
	}

	clearAuthCookies(w, h.secureCookies)
	writeData(w, http.StatusOK, struct{}{}, "User logged out")
}

type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// POST /api/v1/users/refresh-token
//
// Every failure is reported as the same generic 401; the distinct causes are
// only visible in logs.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	presented := ""
	if cookie, err := r.Cookie(refreshTokenCookie); err == nil {
		presented = cookie.Value
	}
	if presented == "" {
		var req RefreshRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err == nil {
			presented = req.RefreshToken
		}
	}

	user, pair, err := h.sessions.Rotate(r.Context(), presented)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrMissingToken):
			slog.Info("refresh rejected", "reason", "missing token")
		case errors.Is(err, auth.ErrInvalidToken):
			slog.Info("refresh rejected", "reason", "invalid or expired token")
		case errors.Is(err, auth.ErrUserNotFound):
			slog.Info("refresh rejected", "reason", "user not found")
		case errors.Is(err, auth.ErrTokenReuse):
			slog.Warn("refresh rejected", "reason", "token reuse detected")
		default:
			slog.Error("error rotating refresh token", "error", err)
		}
		unauthorized(w, "Invalid refresh token")
		return
	}

	setAuthCookies(w, pair, h.refreshTTL, h.secureCookies)
	writeData(w, http.StatusOK, LoginResponse{
		User:         user,
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	}, "Access token refreshed successfully")
}

type ChangePasswordRequest struct {
	OldPassword string `json:"oldPassword" validate:"required"`
	NewPassword string `json:"newPassword" validate:"required,min=8,max=128"`
}

// POST /api/v1/users/change-password
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	user := CurrentUser(r)
	if user == nil {
		unauthorized(w, "User not found in context")
		return
	}

	var req ChangePasswordRequest
	if err := decodeAndValidate(r.Body, &req); err != nil {
		badRequest(w, err.Error())
		return
	}

	err := h.sessions.ChangePassword(r.Context(), user.ID, req.OldPassword, req.NewPassword)
	switch {
	case errors.Is(err, auth.ErrInvalidCredentials):
		unauthorized(w, "Invalid old password")
		return
	case err != nil:
		slog.Error("error changing password", "error", err, "user_id", user.ID)
		internalError(w)
		return
	}

	writeData(w, http.StatusOK, struct{}{}, "Password changed successfully")
}
