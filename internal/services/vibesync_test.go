package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/desertthunder/vibesync/internal/models"
	"github.com/desertthunder/vibesync/internal/shared"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*SyncClient, *SessionStore) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	sessions := NewSessionStore("")
	return NewSyncClient(NewAPIService(server.URL, nil, 0), sessions, nil), sessions
}

func TestSyncClientAuth(t *testing.T) {
	t.Run("Login stores session", func(t *testing.T) {
		client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/auth/login" {
				t.Errorf("unexpected path %s", r.URL.Path)
			}
			var creds models.Credentials
			json.NewDecoder(r.Body).Decode(&creds)
			if creds.Email != "a@b.c" || creds.Password != "pw" {
				t.Errorf("unexpected credentials %+v", creds)
			}
			json.NewEncoder(w).Encode(models.AuthResponse{Token: "tok", User: models.User{ID: "u1", Email: "a@b.c"}})
		})

		if client.IsAuthenticated() {
			t.Fatal("expected signed-out client")
		}
		session, err := client.Login(context.Background(), "a@b.c", "pw")
		if err != nil {
			t.Fatalf("login failed: %v", err)
		}
		if session.Token != "tok" || !client.IsAuthenticated() {
			t.Errorf("expected stored session, got %+v", session)
		}

		client.Logout()
		if client.IsAuthenticated() {
			t.Error("expected signed-out client after logout")
		}
	})

	t.Run("Rejected credentials", func(t *testing.T) {
		client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"error":"invalid credentials"}`))
		})

		_, err := client.Register(context.Background(), "a@b.c", "pw")
		if !errors.Is(err, shared.ErrAuthFailed) {
			t.Errorf("expected ErrAuthFailed, got %v", err)
		}
	})

	t.Run("Missing credentials", func(t *testing.T) {
		client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			t.Error("no request expected")
		})

		if _, err := client.Login(context.Background(), "", "pw"); !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}
	})
}

func TestSyncClientSync(t *testing.T) {
	ctx := context.Background()

	t.Run("Requires session", func(t *testing.T) {
		client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			t.Error("no request expected")
		})

		if _, err := client.FetchSnapshot(ctx); !errors.Is(err, shared.ErrNotAuthenticated) {
			t.Errorf("expected ErrNotAuthenticated, got %v", err)
		}
		if err := client.Upload(ctx, &models.SyncPayload{}); !errors.Is(err, shared.ErrNotAuthenticated) {
			t.Errorf("expected ErrNotAuthenticated, got %v", err)
		}
	})

	t.Run("Fetch sends bearer token", func(t *testing.T) {
		client, sessions := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			if got := r.Header.Get("Authorization"); got != "Bearer tok" {
				t.Errorf("expected bearer header, got %q", got)
			}
			json.NewEncoder(w).Encode(models.RemoteSnapshot{
				Albums:     []models.Album{{ID: "a1", Title: "T", Artist: "A"}},
				LastSynced: 42,
			})
		})
		sessions.Save(models.Session{Token: "tok"})

		snapshot, err := client.FetchSnapshot(ctx)
		if err != nil {
			t.Fatalf("fetch failed: %v", err)
		}
		if len(snapshot.Albums) != 1 || snapshot.LastSynced != 42 {
			t.Errorf("unexpected snapshot %+v", snapshot)
		}
	})

	t.Run("Fetch 404 is empty", func(t *testing.T) {
		client, sessions := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"message":"No sync data found"}`))
		})
		sessions.Save(models.Session{Token: "tok"})

		snapshot, err := client.FetchSnapshot(ctx)
		if err != nil {
			t.Fatalf("expected empty snapshot, got %v", err)
		}
		if !snapshot.Empty() || snapshot.Message != models.NoSyncDataMessage {
			t.Errorf("unexpected snapshot %+v", snapshot)
		}
	})

	t.Run("Fetch 401", func(t *testing.T) {
		client, sessions := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		})
		sessions.Save(models.Session{Token: "tok"})

		_, err := client.FetchSnapshot(ctx)
		if !errors.Is(err, shared.ErrNotAuthenticated) || !errors.Is(err, shared.ErrRemote) {
			t.Errorf("expected remote auth error, got %v", err)
		}
		if remote, ok := shared.AsRemoteError(err); !ok || remote.StatusCode != http.StatusUnauthorized {
			t.Errorf("expected RemoteError with 401, got %v", err)
		}
	})

	t.Run("Upload", func(t *testing.T) {
		tc := []struct {
			name    string
			status  int
			message string
			wantErr bool
		}{
			{name: "success", status: http.StatusOK, message: models.SyncSuccessMessage},
			{name: "unexpected message", status: http.StatusOK, message: "Saved", wantErr: true},
			{name: "server error", status: http.StatusInternalServerError, message: "boom", wantErr: true},
		}

		for _, tt := range tc {
			t.Run(tt.name, func(t *testing.T) {
				client, sessions := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
					if r.Method != http.MethodPost || r.URL.Path != "/sync" {
						t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
					}
					var payload models.SyncPayload
					if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
						t.Errorf("bad payload: %v", err)
					}
					w.WriteHeader(tt.status)
					json.NewEncoder(w).Encode(models.MessageResponse{Message: tt.message})
				})
				sessions.Save(models.Session{Token: "tok"})

				err := client.Upload(ctx, &models.SyncPayload{LastSynced: 1})
				if tt.wantErr {
					if !errors.Is(err, shared.ErrRemote) {
						t.Errorf("expected ErrRemote, got %v", err)
					}
					return
				}
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
			})
		}
	})

	t.Run("History and Restore", func(t *testing.T) {
		var restored string
		client, sessions := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			switch r.URL.Path {
			case "/sync/history":
				json.NewEncoder(w).Encode(models.HistoryResponse{Versions: []models.SyncVersion{{ID: "v1"}, {ID: "v2"}}})
			case "/sync/restore/v1":
				restored = "v1"
				json.NewEncoder(w).Encode(models.MessageResponse{Message: "Restored"})
			default:
				w.WriteHeader(http.StatusNotFound)
			}
		})
		sessions.Save(models.Session{Token: "tok"})

		versions, err := client.History(ctx)
		if err != nil || len(versions) != 2 {
			t.Fatalf("unexpected history %v, %v", versions, err)
		}
		if err := client.Restore(ctx, "v1"); err != nil || restored != "v1" {
			t.Errorf("restore failed: %v", err)
		}
		if err := client.Restore(ctx, "missing"); !errors.Is(err, shared.ErrRemote) {
			t.Errorf("expected ErrRemote for unknown version, got %v", err)
		}
	})
}
