package files

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/skylinehq/skyline/backend/internal/live"
	filesService "github.com/skylinehq/skyline/backend/internal/service/files"
)

func newTestHandler(t *testing.T) (*Handler, *live.UploadTracker) {
	t.Helper()
	reg := live.NewRegistry(zap.NewNop())
	scheduler := live.NewHeartbeatScheduler(reg, time.Hour, time.Hour, zap.NewNop())
	tracker := live.NewUploadTracker(scheduler, zap.NewNop())

	blobs, err := filesService.NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalStore err: %v", err)
	}

	return New(blobs, filesService.PlainTextExtractor{}, tracker, 1<<20, zap.NewNop()), tracker
}

func multipartBody(t *testing.T, chatID, filename, content string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	if chatID != "" {
		if err := writer.WriteField("chatId", chatID); err != nil {
			t.Fatalf("WriteField err: %v", err)
		}
	}
	if filename != "" {
		part, err := writer.CreateFormFile("file", filename)
		if err != nil {
			t.Fatalf("CreateFormFile err: %v", err)
		}
		if _, err := part.Write([]byte(content)); err != nil {
			t.Fatalf("part write err: %v", err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("writer close err: %v", err)
	}
	return &buf, writer.FormDataContentType()
}

func TestUploadStoresFile(t *testing.T) {
	h, _ := newTestHandler(t)
	router := chi.NewRouter()
	h.RegisterRoutes(router)

	body, contentType := multipartBody(t, "c1", "notes.txt", "hello upload")
	req := httptest.NewRequest(http.MethodPost, "/files/upload", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d, body %s", rec.Code, http.StatusOK, rec.Body.String())
	}

	var resp struct {
		URL  string `json:"url"`
		Name string `json:"name"`
		Text string `json:"text"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode err: %v", err)
	}
	if resp.Name != "notes.txt" {
		t.Fatalf("name = %q, want notes.txt", resp.Name)
	}
	if resp.URL == "" {
		t.Fatal("url missing from response")
	}
}

func TestUploadRequiresChatID(t *testing.T) {
	h, _ := newTestHandler(t)
	router := chi.NewRouter()
	h.RegisterRoutes(router)

	body, contentType := multipartBody(t, "", "notes.txt", "hello")
	req := httptest.NewRequest(http.MethodPost, "/files/upload", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestUploadRequiresFile(t *testing.T) {
	h, _ := newTestHandler(t)
	router := chi.NewRouter()
	h.RegisterRoutes(router)

	body, contentType := multipartBody(t, "c1", "", "")
	req := httptest.NewRequest(http.MethodPost, "/files/upload", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestUploadReleasesActivityWhenDone(t *testing.T) {
	h, tracker := newTestHandler(t)
	router := chi.NewRouter()
	h.RegisterRoutes(router)

	body, contentType := multipartBody(t, "c1", "notes.txt", "hello")
	req := httptest.NewRequest(http.MethodPost, "/files/upload", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if n := tracker.Active("c1"); n != 0 {
		t.Fatalf("active uploads = %d, want 0 after completion", n)
	}
}
