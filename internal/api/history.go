package api

import (
	"log/slog"
	"net/http"

	"vidtube/internal/db"
)

type HistoryHandler struct {
	videos *db.VideoRepository
}

func NewHistoryHandler(videos *db.VideoRepository) *HistoryHandler {
	return &HistoryHandler{videos: videos}
}

// GET /api/v1/users/history
func (h *HistoryHandler) GetWatchHistory(w http.ResponseWriter, r *http.Request) {
	user := CurrentUser(r)
	if user == nil {
		unauthorized(w, "User not found in context")
		return
	}

	history, err := h.videos.WatchHistory(r.Context(), user.ID)
	if err != nil {
		slog.Error("error loading watch history", "error", err, "user_id", user.ID)
		internalError(w)
		return
	}

	writeData(w, http.StatusOK, history, "Watch history fetched successfully")
}
