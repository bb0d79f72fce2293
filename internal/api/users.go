package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"vidtube/internal/db"
)

type UserHandler struct {
	users          *db.UserRepository
	uploader       ObjectUploader
	uploadMaxBytes int64
}

func NewUserHandler(users *db.UserRepository, uploader ObjectUploader, uploadMaxBytes int64) *UserHandler {
	return &UserHandler{users: users, uploader: uploader, uploadMaxBytes: uploadMaxBytes}
}

// GET /api/v1/users/current-user
func (h *UserHandler) GetCurrentUser(w http.ResponseWriter, r *http.Request) {
	user := CurrentUser(r)
	if user == nil {
		unauthorized(w, "User not found in context")
		return
	}

	writeData(w, http.StatusOK, user, "Current user fetched successfully")
}

type UpdateAccountRequest struct {
	FullName string `json:"fullName" validate:"required,max=128"`
	Email    string `json:"email" validate:"required,email,max=254"`
}

// PATCH /api/v1/users/update-account
//
// Both fields are required: this is a full replacement, not a merge.
func (h *UserHandler) UpdateAccount(w http.ResponseWriter, r *http.Request) {
	user := CurrentUser(r)
	if user == nil {
		unauthorized(w, "User not found in context")
		return
	}

	var req UpdateAccountRequest
	if err := decodeAndValidate(r.Body, &req); err != nil {
		badRequest(w, err.Error())
		return
	}

	fullName := sanitizeFullName(req.FullName)
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if fullName == "" || email == "" {
		badRequest(w, "All fields are required")
		return
	}

	err := h.users.UpdateAccount(r.Context(), user.ID, fullName, email)
	switch {
	case errors.Is(err, db.ErrDuplicate):
		conflict(w, "Email already in use")
		return
	case errors.Is(err, db.ErrNotFound):
		notFound(w, "User not found")
		return
	case err != nil:
		slog.Error("error updating account", "error", err, "user_id", user.ID)
		internalError(w)
		return
	}

	h.respondWithUpdatedUser(w, r, user.ID, "Account details updated successfully")
}

// PATCH /api/v1/users/avatar
func (h *UserHandler) UpdateAvatar(w http.ResponseWriter, r *http.Request) {
	h.updateImage(w, r, "avatar", h.users.UpdateAvatarURL, "Avatar updated successfully")
}

// PATCH /api/v1/users/cover-image
func (h *UserHandler) UpdateCoverImage(w http.ResponseWriter, r *http.Request) {
	h.updateImage(w, r, "coverImage", h.users.UpdateCoverImageURL, "Cover image updated successfully")
}

func (h *UserHandler) updateImage(
	w http.ResponseWriter,
	r *http.Request,
	field string,
	persist func(ctx context.Context, id, url string) error,
	message string,
) {
	user := CurrentUser(r)
	if user == nil {
		unauthorized(w, "User not found in context")
		return
	}

	cleanup, ok := parseMultipart(w, r, h.uploadMaxBytes)
	if !ok {
		return
	}
	defer cleanup()

	file, header, ok := requireFormFile(w, r, field)
	if !ok {
		return
	}
	defer file.Close()

	url, err := h.uploader.Upload(r.Context(), header.Filename, file)
	if err != nil {
		slog.Error("error uploading image", "error", err, "field", field, "user_id", user.ID)
		badRequest(w, "Image upload failed")
		return
	}

	if err := persist(r.Context(), user.ID, url); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			notFound(w, "User not found")
			return
		}
		slog.Error("error persisting image url", "error", err, "field", field, "user_id", user.ID)
		internalError(w)
		return
	}

	h.respondWithUpdatedUser(w, r, user.ID, message)
}

func (h *UserHandler) respondWithUpdatedUser(w http.ResponseWriter, r *http.Request, userID, message string) {
	updated, err := h.users.FindByID(r.Context(), userID)
	if err != nil {
		slog.Error("error loading updated user", "error", err, "user_id", userID)
		internalError(w)
		return
	}
	writeData(w, http.StatusOK, updated, message)
}
