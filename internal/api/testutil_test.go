package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"vidtube/internal/auth"
	"vidtube/internal/config"
	"vidtube/internal/db"
	"vidtube/internal/models"
)

const (
	testAccessSecret  = "test-access-secret-test-access-secret"
	testRefreshSecret = "test-refresh-secret-test-refresh-secret"
)

// fakeUploader satisfies ObjectUploader without talking to object storage.
type fakeUploader struct {
	calls  atomic.Int64
	failed atomic.Bool
}

func (f *fakeUploader) Upload(_ context.Context, filename string, contents io.Reader) (string, error) {
	if f.failed.Load() {
		return "", fmt.Errorf("upload rejected")
	}
	if _, err := io.Copy(io.Discard, contents); err != nil {
		return "", err
	}
	n := f.calls.Add(1)
	return fmt.Sprintf("https://cdn.example.com/%d/%s", n, filename), nil
}

type testEnv struct {
	server   *httptest.Server
	database *db.DB
	uploader *fakeUploader
	tokens   *auth.TokenService
	users    *db.UserRepository
	subs     *db.SubscriptionRepository
	videos   *db.VideoRepository
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	database, err := db.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("db.Open() error = %v", err)
	}
	t.Cleanup(func() { _ = database.Close() })

	cfg := &config.Config{
		Auth: config.AuthConfig{
			AccessTokenSecret:  testAccessSecret,
			RefreshTokenSecret: testRefreshSecret,
			AccessTokenTTL:     time.Hour,
			RefreshTokenTTL:    24 * time.Hour,
			InsecureCookies:    true,
		},
		Storage: config.StorageConfig{
			UploadMaxBytes: 10 << 20,
		},
	}

	uploader := &fakeUploader{}
	server, err := NewServer(cfg, database, uploader)
	if err != nil {
		t.Fatalf("NewServer() error = %v", err)
	}

	ts := httptest.NewServer(server)
	t.Cleanup(ts.Close)

	return &testEnv{
		server:   ts,
		database: database,
		uploader: uploader,
		tokens: auth.NewTokenService(
			testAccessSecret,
			testRefreshSecret,
			cfg.Auth.AccessTokenTTL,
			cfg.Auth.RefreshTokenTTL,
		),
		users:  db.NewUserRepository(database),
		subs:   db.NewSubscriptionRepository(database),
		videos: db.NewVideoRepository(database),
	}
}

// seedUser inserts a user directly and returns it with a valid bearer token.
func (env *testEnv) seedUser(t *testing.T, username string) (*models.User, string) {
	t.Helper()

	hash, err := auth.HashPassword("password-" + username)
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}

	user, err := env.users.Create(context.Background(), db.CreateUserParams{
		Username:     username,
		Email:        username + "@example.com",
		FullName:     "Test " + username,
		PasswordHash: hash,
		AvatarURL:    "https://cdn.example.com/" + username + ".png",
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	pair, _, err := env.tokens.GenerateTokenPair(user)
	if err != nil {
		t.Fatalf("GenerateTokenPair() error = %v", err)
	}

	return user, pair.AccessToken
}

func (env *testEnv) get(t *testing.T, path, accessToken string) *http.Response {
	t.Helper()
	return env.do(t, http.MethodGet, path, accessToken, "", nil)
}

func (env *testEnv) post(t *testing.T, path, accessToken, contentType string, body io.Reader) *http.Response {
	t.Helper()
	return env.do(t, http.MethodPost, path, accessToken, contentType, body)
}

func (env *testEnv) do(t *testing.T, method, path, accessToken, contentType string, body io.Reader) *http.Response {
	t.Helper()

	req, err := http.NewRequest(method, env.server.URL+path, body)
	if err != nil {
		t.Fatalf("http.NewRequest() error = %v", err)
	}
	if accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := env.server.Client().Do(req)
	if err != nil {
		t.Fatalf("request %s %s error = %v", method, path, err)
	}
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

type envelope struct {
	Status  int             `json:"status"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
}

func decodeEnvelope(t *testing.T, resp *http.Response, dst any) envelope {
	t.Helper()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		t.Fatalf("decoding envelope: %v", err)
	}
	if dst != nil {
		if err := json.Unmarshal(env.Data, dst); err != nil {
			t.Fatalf("decoding envelope data: %v", err)
		}
	}
	return env
}

func decodeError(t *testing.T, resp *http.Response) ErrorResponse {
	t.Helper()

	var errResp ErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&errResp); err != nil {
		t.Fatalf("decoding error response: %v", err)
	}
	return errResp
}

// registerForm builds a multipart registration body with an avatar file and,
// optionally, a cover image.
func registerForm(t *testing.T, fullName, email, username, password string, withCover bool) (io.Reader, string) {
	t.Helper()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	fields := map[string]string{
		"fullName": fullName,
		"email":    email,
		"username": username,
		"password": password,
	}
	for name, value := range fields {
		if err := writer.WriteField(name, value); err != nil {
			t.Fatalf("WriteField(%s) error = %v", name, err)
		}
	}

	avatar, err := writer.CreateFormFile("avatar", "avatar.png")
	if err != nil {
		t.Fatalf("CreateFormFile(avatar) error = %v", err)
	}
	if _, err := avatar.Write([]byte("fake png bytes")); err != nil {
		t.Fatalf("writing avatar: %v", err)
	}

	if withCover {
		cover, err := writer.CreateFormFile("coverImage", "cover.jpg")
		if err != nil {
			t.Fatalf("CreateFormFile(coverImage) error = %v", err)
		}
		if _, err := cover.Write([]byte("fake jpg bytes")); err != nil {
			t.Fatalf("writing cover: %v", err)
		}
	}

	if err := writer.Close(); err != nil {
		t.Fatalf("closing multipart writer: %v", err)
	}

	return &buf, writer.FormDataContentType()
}

// registerFormNoAvatar builds a registration body with valid fields but no
// avatar file.
func registerFormNoAvatar(t *testing.T) (io.Reader, string) {
	t.Helper()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	fields := map[string]string{
		"fullName": "Bob Example",
		"email":    "bob@example.com",
		"username": "bob",
		"password": "pw12345678",
	}
	for name, value := range fields {
		if err := writer.WriteField(name, value); err != nil {
			t.Fatalf("WriteField(%s) error = %v", name, err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("closing multipart writer: %v", err)
	}

	return &buf, writer.FormDataContentType()
}

func jsonBody(t *testing.T, v any) io.Reader {
	t.Helper()

	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("json.Marshal() error = %v", err)
	}
	return bytes.NewReader(data)
}

func cookieByName(resp *http.Response, name string) *http.Cookie {
	for _, c := range resp.Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}
