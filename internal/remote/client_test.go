// Package remote tests against an httptest sync service.
package remote

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	apperrors "github.com/evchen/snapfolio/internal/errors"
	"github.com/evchen/snapfolio/internal/models"
)

const testToken = "test-token"

// newTestClient starts an httptest server with the given handler and returns
// a client pointed at it, already holding a token.
func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c := NewClient(&Config{BaseURL: srv.URL, AccessKey: "device-key"})
	c.token = testToken
	c.userID = "user-1"
	return c
}

func requireBearer(t *testing.T, r *http.Request) {
	t.Helper()
	if got := r.Header.Get("Authorization"); got != "Bearer "+testToken {
		t.Errorf("Authorization = %q, want bearer token", got)
	}
}

// TestLogin verifies the access-key exchange stores the session.
func TestLogin(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/sync/v1/auth/token", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		var req struct {
			AccessKey string `json:"access_key"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("failed to decode request: %v", err)
		}
		if req.AccessKey != "device-key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		json.NewEncoder(w).Encode(map[string]string{"token": "issued", "user_id": "user-9"})
	})

	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := NewClient(&Config{BaseURL: srv.URL, AccessKey: "device-key"})
	if c.IsAuthenticated() {
		t.Error("fresh client should not be authenticated")
	}
	if err := c.Login(context.Background()); err != nil {
		t.Fatalf("Login() failed: %v", err)
	}
	if !c.IsAuthenticated() {
		t.Error("client should be authenticated after login")
	}
	if c.UserID() != "user-9" {
		t.Errorf("UserID() = %q, want user-9", c.UserID())
	}

	c.Logout()
	if c.IsAuthenticated() || c.UserID() != "" {
		t.Error("logout should clear the session")
	}
}

// TestLoginRejectedKey verifies a 401 maps to the not-authenticated error.
func TestLoginRejectedKey(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/sync/v1/auth/token", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := NewClient(&Config{BaseURL: srv.URL, AccessKey: "wrong"})
	err := c.Login(context.Background())
	if !apperrors.Is(err, apperrors.ErrSyncNotAuthenticated) {
		t.Fatalf("error = %v, want SYNC_NOT_AUTHENTICATED", err)
	}
}

// TestPing verifies the health probe and its failure mapping.
func TestPing(t *testing.T) {
	healthy := true
	mux := http.NewServeMux()
	mux.HandleFunc("/api/sync/v1/healthz", func(w http.ResponseWriter, r *http.Request) {
		if !healthy {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	c := newTestClient(t, mux)

	if err := c.Ping(context.Background()); err != nil {
		t.Fatalf("Ping() failed: %v", err)
	}

	healthy = false
	err := c.Ping(context.Background())
	if !apperrors.Is(err, apperrors.ErrRemoteUnavailable) {
		t.Fatalf("error = %v, want REMOTE_UNAVAILABLE", err)
	}
}

// TestPingUnreachable verifies a refused connection maps to the offline error.
func TestPingUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close() // listener gone before the call

	c := NewClient(&Config{BaseURL: srv.URL, Timeout: time.Second})
	err := c.Ping(context.Background())
	if !apperrors.Is(err, apperrors.ErrRemoteUnavailable) {
		t.Fatalf("error = %v, want REMOTE_UNAVAILABLE", err)
	}
}

// TestEnsureUser verifies the account bootstrap call.
func TestEnsureUser(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/sync/v1/users/ensure", func(w http.ResponseWriter, r *http.Request) {
		requireBearer(t, r)
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		w.WriteHeader(http.StatusCreated)
	})
	c := newTestClient(t, mux)

	if err := c.EnsureUser(context.Background()); err != nil {
		t.Fatalf("EnsureUser() failed: %v", err)
	}
}

// TestCollectionGet verifies record retrieval and the 404 mapping.
func TestCollectionGet(t *testing.T) {
	item := &models.Item{ID: "item-1", Title: "sunset", Source: "photo", UpdatedAt: time.Now().UTC()}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/sync/v1/records/items/", func(w http.ResponseWriter, r *http.Request) {
		requireBearer(t, r)
		if r.URL.Path == "/api/sync/v1/records/items/item-1" {
			json.NewEncoder(w).Encode(item)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	})
	c := newTestClient(t, mux)

	got, err := c.Items().Get(context.Background(), "item-1")
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	if got.Title != "sunset" {
		t.Errorf("title = %q, want sunset", got.Title)
	}

	_, err = c.Items().Get(context.Background(), "missing")
	if !apperrors.Is(err, apperrors.ErrNotFound) {
		t.Fatalf("error = %v, want NOT_FOUND", err)
	}
}

// TestCollectionUpsert verifies the PUT call and the 409 constraint mapping.
func TestCollectionUpsert(t *testing.T) {
	var gotBody models.Tag
	conflict := false

	mux := http.NewServeMux()
	mux.HandleFunc("/api/sync/v1/records/tags/", func(w http.ResponseWriter, r *http.Request) {
		requireBearer(t, r)
		if r.Method != http.MethodPut {
			t.Errorf("method = %s, want PUT", r.Method)
		}
		if conflict {
			w.WriteHeader(http.StatusConflict)
			json.NewEncoder(w).Encode(map[string]string{"code": "unique_constraint_violation"})
			return
		}
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Fatalf("failed to decode body: %v", err)
		}
		w.WriteHeader(http.StatusCreated)
	})
	c := newTestClient(t, mux)

	tag := &models.Tag{ID: "tag-1", Name: "beach", UpdatedAt: time.Now().UTC()}
	if err := c.Tags().Upsert(context.Background(), tag); err != nil {
		t.Fatalf("Upsert() failed: %v", err)
	}
	if gotBody.Name != "beach" {
		t.Errorf("uploaded name = %q, want beach", gotBody.Name)
	}

	conflict = true
	err := c.Tags().Upsert(context.Background(), tag)
	if !apperrors.Is(err, apperrors.ErrConstraint) {
		t.Fatalf("error = %v, want CONSTRAINT", err)
	}
}

// TestCollectionChangedSince verifies the since parameter and list decoding.
func TestCollectionChangedSince(t *testing.T) {
	since := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)
	folders := []*models.Folder{
		{ID: "f-1", Name: "Travel", UpdatedAt: since.Add(time.Hour)},
		{ID: "f-2", Name: "Recipes", UpdatedAt: since.Add(2 * time.Hour)},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/sync/v1/records/folders", func(w http.ResponseWriter, r *http.Request) {
		requireBearer(t, r)
		got := r.URL.Query().Get("since")
		want := since.Format(time.RFC3339Nano)
		if got != want {
			t.Errorf("since = %q, want %q", got, want)
		}
		json.NewEncoder(w).Encode(folders)
	})
	c := newTestClient(t, mux)

	changed, err := c.Folders().ChangedSince(context.Background(), since)
	if err != nil {
		t.Fatalf("ChangedSince() failed: %v", err)
	}
	if len(changed) != 2 {
		t.Fatalf("records = %d, want 2", len(changed))
	}
	if changed[0].Name != "Travel" {
		t.Errorf("first folder = %q, want Travel", changed[0].Name)
	}
}

// TestTagByName verifies the name lookup endpoint and its 404 mapping.
func TestTagByName(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/sync/v1/tags/by-name", func(w http.ResponseWriter, r *http.Request) {
		requireBearer(t, r)
		if r.URL.Query().Get("name") == "sunset" {
			json.NewEncoder(w).Encode(&models.Tag{ID: "tag-1", Name: "sunset"})
			return
		}
		w.WriteHeader(http.StatusNotFound)
	})
	c := newTestClient(t, mux)

	tag, err := c.TagByName(context.Background(), "sunset")
	if err != nil {
		t.Fatalf("TagByName() failed: %v", err)
	}
	if tag.ID != "tag-1" {
		t.Errorf("tag ID = %q, want tag-1", tag.ID)
	}

	_, err = c.TagByName(context.Background(), "nope")
	if !apperrors.Is(err, apperrors.ErrNotFound) {
		t.Fatalf("error = %v, want NOT_FOUND", err)
	}
}

// TestRequestsRequireToken verifies authenticated calls fail fast when
// signed out, without touching the network.
func TestRequestsRequireToken(t *testing.T) {
	c := NewClient(&Config{BaseURL: "http://127.0.0.1:1", AccessKey: "k"})

	if err := c.EnsureUser(context.Background()); !apperrors.Is(err, apperrors.ErrSyncNotAuthenticated) {
		t.Errorf("EnsureUser error = %v, want SYNC_NOT_AUTHENTICATED", err)
	}
	if _, err := c.Items().Get(context.Background(), "x"); !apperrors.Is(err, apperrors.ErrSyncNotAuthenticated) {
		t.Errorf("Get error = %v, want SYNC_NOT_AUTHENTICATED", err)
	}
	if _, err := c.TagByName(context.Background(), "x"); !apperrors.Is(err, apperrors.ErrSyncNotAuthenticated) {
		t.Errorf("TagByName error = %v, want SYNC_NOT_AUTHENTICATED", err)
	}
}
