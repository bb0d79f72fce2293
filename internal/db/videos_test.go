package db

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"vidtube/internal/models"
)

func createTestVideo(t *testing.T, repo *VideoRepository, ownerID, title string) *models.Video {
	t.Helper()

	video, err := repo.Create(context.Background(), CreateVideoParams{
		OwnerID:      ownerID,
		Title:        title,
		Description:  "about " + title,
		VideoURL:     fmt.Sprintf("https://cdn.example.com/%s.mp4", title),
		ThumbnailURL: fmt.Sprintf("https://cdn.example.com/%s.png", title),
		Duration:     10,
	})
	if err != nil {
		t.Fatalf("Create(%s) error = %v", title, err)
	}
	return video
}

func TestVideoIncrementViews(t *testing.T) {
	database := newTestDB(t)
	users := NewUserRepository(database)
	videos := NewVideoRepository(database)
	ctx := context.Background()

	owner := createTestUser(t, users, "creator")
	video := createTestVideo(t, videos, owner.ID, "clip")

	for i := 0; i < 3; i++ {
		if err := videos.IncrementViews(ctx, video.ID); err != nil {
			t.Fatalf("IncrementViews() error = %v", err)
		}
	}

	if err := videos.IncrementViews(ctx, "vid_missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("IncrementViews(missing) error = %v, want ErrNotFound", err)
	}
}

func TestWatchHistoryOrder(t *testing.T) {
	database := newTestDB(t)
	users := NewUserRepository(database)
	videos := NewVideoRepository(database)
	ctx := context.Background()

	owner := createTestUser(t, users, "creator")
	watcher := createTestUser(t, users, "watcher")

	v1 := createTestVideo(t, videos, owner.ID, "one")
	v2 := createTestVideo(t, videos, owner.ID, "two")
	v3 := createTestVideo(t, videos, owner.ID, "three")

	for _, id := range []string{v3.ID, v1.ID, v2.ID} {
		if err := videos.AppendWatchHistory(ctx, watcher.ID, id); err != nil {
			t.Fatalf("AppendWatchHistory() error = %v", err)
		}
	}

	history, err := videos.WatchHistory(ctx, watcher.ID)
	if err != nil {
		t.Fatalf("WatchHistory() error = %v", err)
	}
	if len(history) != 3 {
		t.Fatalf("history length = %d, want 3", len(history))
	}

	wantOrder := []string{v3.ID, v1.ID, v2.ID}
	for i, want := range wantOrder {
		if history[i].ID != want {
			t.Errorf("history[%d].ID = %q, want %q", i, history[i].ID, want)
		}
		if history[i].Owner.Username != "creator" {
			t.Errorf("history[%d].Owner.Username = %q, want %q", i, history[i].Owner.Username, "creator")
		}
	}
}

func TestWatchHistoryEmpty(t *testing.T) {
	database := newTestDB(t)
	users := NewUserRepository(database)
	videos := NewVideoRepository(database)

	watcher := createTestUser(t, users, "watcher")

	history, err := videos.WatchHistory(context.Background(), watcher.ID)
	if err != nil {
		t.Fatalf("WatchHistory() error = %v", err)
	}
	if history == nil {
		t.Fatalf("history = nil, want empty slice")
	}
	if len(history) != 0 {
		t.Fatalf("history length = %d, want 0", len(history))
	}
}
