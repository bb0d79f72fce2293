package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"vidtube/internal/db"
)

type VideoHandler struct {
	videos         *db.VideoRepository
	uploader       ObjectUploader
	uploadMaxBytes int64
}

func NewVideoHandler(videos *db.VideoRepository, uploader ObjectUploader, uploadMaxBytes int64) *VideoHandler {
	return &VideoHandler{videos: videos, uploader: uploader, uploadMaxBytes: uploadMaxBytes}
}

// POST /api/v1/videos
func (h *VideoHandler) Publish(w http.ResponseWriter, r *http.Request) {
	owner := CurrentUser(r)
	if owner == nil {
		unauthorized(w, "User not found in context")
		return
	}

	cleanup, ok := parseMultipart(w, r, h.uploadMaxBytes)
	if !ok {
		return
	}
	defer cleanup()

	title := strings.TrimSpace(r.FormValue("title"))
	description := strings.TrimSpace(r.FormValue("description"))
	if title == "" {
		badRequest(w, "title is required")
		return
	}

	duration := 0.0
	if raw := strings.TrimSpace(r.FormValue("duration")); raw != "" {
		parsed, err := strconv.ParseFloat(raw, 64)
		if err != nil || parsed < 0 {
			badRequest(w, "invalid duration")
			return
		}
		duration = parsed
	}

	videoFile, videoHeader, ok := requireFormFile(w, r, "videoFile")
	if !ok {
		return
	}
	defer videoFile.Close()

	thumbnailFile, thumbnailHeader, ok := requireFormFile(w, r, "thumbnail")
	if !ok {
		return
	}
	defer thumbnailFile.Close()

	videoURL, err := h.uploader.Upload(r.Context(), videoHeader.Filename, videoFile)
	if err != nil {
		slog.Error("error uploading video file", "error", err, "owner_id", owner.ID)
		badRequest(w, "Video upload failed")
		return
	}

	thumbnailURL, err := h.uploader.Upload(r.Context(), thumbnailHeader.Filename, thumbnailFile)
	if err != nil {
		slog.Error("error uploading thumbnail", "error", err, "owner_id", owner.ID)
		badRequest(w, "Thumbnail upload failed")
		return
	}

	video, err := h.videos.Create(r.Context(), db.CreateVideoParams{
		OwnerID:      owner.ID,
		Title:        title,
		Description:  description,
		VideoURL:     videoURL,
		ThumbnailURL: thumbnailURL,
		Duration:     duration,
	})
	if err != nil {
		slog.Error("error creating video", "error", err, "owner_id", owner.ID)
		internalError(w)
		return
	}

	writeData(w, http.StatusCreated, video, "Video published successfully")
}

// POST /api/v1/videos/{videoId}/view
//
// Records a watch event: bumps the view counter and appends the video to the
// caller's watch history.
func (h *VideoHandler) RecordView(w http.ResponseWriter, r *http.Request) {
	user := CurrentUser(r)
	if user == nil {
		unauthorized(w, "User not found in context")
		return
	}

	videoID := chi.URLParam(r, "videoId")
	if videoID == "" {
		badRequest(w, "videoId is required")
		return
	}

	if err := h.videos.IncrementViews(r.Context(), videoID); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			notFound(w, "Video does not exist")
			return
		}
		slog.Error("error incrementing views", "error", err, "video_id", videoID)
		internalError(w)
		return
	}

	if err := h.videos.AppendWatchHistory(r.Context(), user.ID, videoID); err != nil {
		slog.Error("error appending watch history", "error", err, "video_id", videoID, "user_id", user.ID)
		internalError(w)
		return
	}

	writeData(w, http.StatusOK, struct{}{}, "View recorded")
}
