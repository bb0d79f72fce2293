package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"vidtube/internal/db"
	"vidtube/internal/models"
)

type ChannelHandler struct {
	users         *db.UserRepository
	subscriptions *db.SubscriptionRepository
}

func NewChannelHandler(users *db.UserRepository, subscriptions *db.SubscriptionRepository) *ChannelHandler {
	return &ChannelHandler{users: users, subscriptions: subscriptions}
}

// GET /api/v1/users/c/{username}
func (h *ChannelHandler) GetChannelProfile(w http.ResponseWriter, r *http.Request) {
	viewer := CurrentUser(r)
	if viewer == nil {
		unauthorized(w, "User not found in context")
		return
	}

	username := strings.ToLower(strings.TrimSpace(chi.URLParam(r, "username")))
	if username == "" {
		badRequest(w, "username is required")
		return
	}

	channel, err := h.users.FindByUsername(r.Context(), username)
	if errors.Is(err, db.ErrNotFound) {
		notFound(w, "Channel does not exist")
		return
	}
	if err != nil {
		slog.Error("error finding channel", "error", err, "username", username)
		internalError(w)
		return
	}

	stats, err := h.subscriptions.StatsForChannel(r.Context(), channel.ID, viewer.ID)
	if err != nil {
		slog.Error("error computing channel stats", "error", err, "channel_id", channel.ID)
		internalError(w)
		return
	}

	profile := models.ChannelProfile{
		ID:                        channel.ID,
		Username:                  channel.Username,
		FullName:                  channel.FullName,
		Email:                     channel.Email,
		AvatarURL:                 channel.AvatarURL,
		CoverImageURL:             channel.CoverImageURL,
		SubscribersCount:          stats.SubscribersCount,
		ChannelsSubscribedToCount: stats.ChannelsSubscribedToCount,
		IsSubscribed:              stats.IsSubscribed,
	}

	writeData(w, http.StatusOK, profile, "Channel profile fetched successfully")
}

type ToggleSubscriptionResponse struct {
	Subscribed bool `json:"subscribed"`
}

// POST /api/v1/subscriptions/c/{username}
func (h *ChannelHandler) ToggleSubscription(w http.ResponseWriter, r *http.Request) {
	viewer := CurrentUser(r)
	if viewer == nil {
		unauthorized(w, "User not found in context")
		return
	}

	username := strings.ToLower(strings.TrimSpace(chi.URLParam(r, "username")))
	if username == "" {
		badRequest(w, "username is required")
		return
	}

	channel, err := h.users.FindByUsername(r.Context(), username)
	if errors.Is(err, db.ErrNotFound) {
		notFound(w, "Channel does not exist")
		return
	}
	if err != nil {
		slog.Error("error finding channel", "error", err, "username", username)
		internalError(w)
		return
	}

	if channel.ID == viewer.ID {
		badRequest(w, "Cannot subscribe to your own channel")
		return
	}

	subscribed, err := h.subscriptions.Toggle(r.Context(), viewer.ID, channel.ID)
	if err != nil {
		slog.Error("error toggling subscription", "error", err, "channel_id", channel.ID, "subscriber_id", viewer.ID)
		internalError(w)
		return
	}

	message := "Subscribed successfully"
	if !subscribed {
		message = "Unsubscribed successfully"
	}
	writeData(w, http.StatusOK, ToggleSubscriptionResponse{Subscribed: subscribed}, message)
}
