package db

import (
	"context"
	"fmt"
	"time"

	"vidtube/internal/models"
)

type VideoRepository struct {
	db *DB
}

func NewVideoRepository(db *DB) *VideoRepository {
	return &VideoRepository{db: db}
}

type CreateVideoParams struct {
	OwnerID      string
	Title        string
	Description  string
	VideoURL     string
	ThumbnailURL string
	Duration     float64
}

func (r *VideoRepository) Create(ctx context.Context, params CreateVideoParams) (*models.Video, error) {
	id, err := generateID("vid")
	if err != nil {
		return nil, fmt.Errorf("generating video ID: %w", err)
	}
	now := time.Now().UTC()

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO videos (id, owner_id, title, description, video_url, thumbnail_url, duration_seconds, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		id, params.OwnerID, params.Title, params.Description,
		params.VideoURL, params.ThumbnailURL, params.Duration, now,
	)
	if err != nil {
		return nil, fmt.Errorf("creating video: %w", err)
	}

	return &models.Video{
		ID:           id,
		OwnerID:      params.OwnerID,
		Title:        params.Title,
		Description:  params.Description,
		VideoURL:     params.VideoURL,
		ThumbnailURL: params.ThumbnailURL,
		Duration:     params.Duration,
		IsPublished:  true,
		CreatedAt:    now,
	}, nil
}

func (r *VideoRepository) IncrementViews(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `UPDATE videos SET views = views + 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("incrementing views: %w", err)
	}
	return checkRowsAffected(result)
}

// AppendWatchHistory appends the video reference at the end of the user's
// ordered history. References are append-only; rewatching adds a new entry.
func (r *VideoRepository) AppendWatchHistory(ctx context.Context, userID, videoID string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO watch_history (user_id, video_id, position, watched_at)
		 SELECT ?, ?, COALESCE(MAX(position) + 1, 0), ?
		   FROM watch_history WHERE user_id = ?`,
		userID, videoID, time.Now().UTC(), userID,
	)
	if err != nil {
		return fmt.Errorf("appending watch history: %w", err)
	}
	return nil
}

// WatchHistory resolves the user's ordered video references into hydrated
// video rows, each carrying its owner's public projection.
func (r *VideoRepository) WatchHistory(ctx context.Context, userID string) ([]*models.VideoWithOwner, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT v.id, v.owner_id, v.title, v.description, v.video_url, v.thumbnail_url,
		        v.duration_seconds, v.views, v.is_published, v.created_at,
		        o.full_name, o.username, o.avatar_url
		   FROM watch_history wh
		   JOIN videos v ON v.id = wh.video_id
		   JOIN users o ON o.id = v.owner_id
		  WHERE wh.user_id = ?
		  ORDER BY wh.position`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("querying watch history: %w", err)
	}
	defer rows.Close()

	history := []*models.VideoWithOwner{}
	for rows.Next() {
		var entry models.VideoWithOwner
		if err := rows.Scan(
			&entry.ID,
			&entry.OwnerID,
			&entry.Title,
			&entry.Description,
			&entry.VideoURL,
			&entry.ThumbnailURL,
			&entry.Duration,
			&entry.Views,
			&entry.IsPublished,
			&entry.CreatedAt,
			&entry.Owner.FullName,
			&entry.Owner.Username,
			&entry.Owner.AvatarURL,
		); err != nil {
			return nil, fmt.Errorf("scanning watch history entry: %w", err)
		}
		history = append(history, &entry)
	}

	return history, rows.Err()
}
