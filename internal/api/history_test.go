package api

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"vidtube/internal/db"
	"vidtube/internal/models"
)

func seedVideo(t *testing.T, env *testEnv, owner *models.User, title string) *models.Video {
	t.Helper()

	video, err := env.videos.Create(context.Background(), db.CreateVideoParams{
		OwnerID:      owner.ID,
		Title:        title,
		Description:  "about " + title,
		VideoURL:     "https://cdn.example.com/" + title + ".mp4",
		ThumbnailURL: "https://cdn.example.com/" + title + ".png",
		Duration:     42.5,
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	return video
}

func TestGetWatchHistoryOrdering(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	owner, _ := env.seedUser(t, "creator")
	watcher, watcherToken := env.seedUser(t, "watcher")

	v1 := seedVideo(t, env, owner, "first")
	v2 := seedVideo(t, env, owner, "second")
	v3 := seedVideo(t, env, owner, "third")

	// Watched out of creation order; the response must follow watch order.
	for _, v := range []*models.Video{v3, v1, v2} {
		if err := env.videos.AppendWatchHistory(ctx, watcher.ID, v.ID); err != nil {
			t.Fatalf("AppendWatchHistory() error = %v", err)
		}
	}

	resp := env.get(t, "/api/v1/users/history", watcherToken)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	var history []struct {
		ID    string `json:"id"`
		Title string `json:"title"`
		Owner struct {
			FullName  string `json:"fullName"`
			Username  string `json:"username"`
			AvatarURL string `json:"avatarUrl"`
		} `json:"owner"`
	}
	decodeEnvelope(t, resp, &history)

	if len(history) != 3 {
		t.Fatalf("history length = %d, want 3", len(history))
	}
	wantOrder := []string{v3.ID, v1.ID, v2.ID}
	for i, want := range wantOrder {
		if history[i].ID != want {
			t.Errorf("history[%d].id = %q, want %q", i, history[i].ID, want)
		}
	}

	for i, entry := range history {
		if entry.Owner.Username != owner.Username {
			t.Errorf("history[%d].owner.username = %q, want %q", i, entry.Owner.Username, owner.Username)
		}
		if entry.Owner.FullName != owner.FullName {
			t.Errorf("history[%d].owner.fullName = %q, want %q", i, entry.Owner.FullName, owner.FullName)
		}
		if entry.Owner.AvatarURL != owner.AvatarURL {
			t.Errorf("history[%d].owner.avatarUrl = %q, want %q", i, entry.Owner.AvatarURL, owner.AvatarURL)
		}
	}
}

func TestGetWatchHistoryRewatchAppends(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	owner, _ := env.seedUser(t, "creator")
	watcher, watcherToken := env.seedUser(t, "watcher")

	video := seedVideo(t, env, owner, "rewatched")
	for i := 0; i < 2; i++ {
		if err := env.videos.AppendWatchHistory(ctx, watcher.ID, video.ID); err != nil {
			t.Fatalf("AppendWatchHistory() error = %v", err)
		}
	}

	resp := env.get(t, "/api/v1/users/history", watcherToken)
	var history []json.RawMessage
	decodeEnvelope(t, resp, &history)
	if len(history) != 2 {
		t.Fatalf("history length = %d, want 2", len(history))
	}
}

func TestGetWatchHistoryEmpty(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.seedUser(t, "watcher")

	resp := env.get(t, "/api/v1/users/history", token)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	wrapper := decodeEnvelope(t, resp, nil)
	if string(wrapper.Data) != "[]" {
		t.Errorf("data = %s, want []", wrapper.Data)
	}
}

func TestGetWatchHistoryRequiresAuth(t *testing.T) {
	env := newTestEnv(t)

	resp := env.get(t, "/api/v1/users/history", "")
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusUnauthorized)
	}
}
