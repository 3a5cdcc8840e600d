package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/vibesync/internal/models"
	"github.com/desertthunder/vibesync/internal/shared"
)

// MaxPayloadBytes caps the size of an uploaded library.
const MaxPayloadBytes = 32 << 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, models.MessageResponse{Message: msg})
}

// readJSON decodes a bounded request body into v and returns the number of bytes read.
func readJSON(w http.ResponseWriter, r *http.Request, v any) (int, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxPayloadBytes))
	if err != nil {
		return 0, fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
	}
	if err := json.Unmarshal(body, v); err != nil {
		return 0, fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
	}
	return len(body), nil
}

// authHandler serves account registration and login.
type authHandler struct {
	accounts *Accounts
	tokens   *Tokens
	logger   *log.Logger
}

func (h *authHandler) Routes() []string {
	return []string{"POST /auth/register", "POST /auth/login"}
}

func (h *authHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var creds models.Credentials
	if _, err := readJSON(w, r, &creds); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if creds.Email == "" || creds.Password == "" {
		writeMessage(w, http.StatusBadRequest, "Email and password are required")
		return
	}

	var (
		user   models.User
		err    error
		status = http.StatusOK
	)
	switch r.URL.Path {
	case "/auth/register":
		user, err = h.accounts.Register(creds)
		status = http.StatusCreated
	default:
		user, err = h.accounts.Authenticate(creds)
	}

	switch {
	case err == nil:
	case errors.Is(err, ErrAccountExists):
		writeMessage(w, http.StatusConflict, "Account already exists")
		return
	case errors.Is(err, ErrInvalidCredentials):
		writeMessage(w, http.StatusUnauthorized, "Invalid email or password")
		return
	case errors.Is(err, shared.ErrInvalidInput):
		writeMessage(w, http.StatusBadRequest, err.Error())
		return
	default:
		h.logger.Error("auth failed", "path", r.URL.Path, "error", err)
		writeMessage(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	token, err := h.tokens.Issue(user)
	if err != nil {
		h.logger.Error("failed to issue token", "user", user.ID, "error", err)
		writeMessage(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	h.logger.Info("signed in", "user", user.ID, "path", r.URL.Path)
	writeJSON(w, status, models.AuthResponse{Token: token, User: user})
}

// syncHandler serves the library snapshot and its version history.
type syncHandler struct {
	accounts *Accounts
	logger   *log.Logger
}

func (h *syncHandler) Routes() []string {
	return []string{
		"GET /sync",
		"POST /sync",
		"GET /sync/history",
		"POST /sync/restore/{id}",
	}
}

func (h *syncHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserID(r.Context())
	if !ok {
		writeMessage(w, http.StatusUnauthorized, "Invalid or expired token")
		return
	}

	switch r.Pattern {
	case "GET /sync":
		h.current(w, userID)
	case "POST /sync":
		h.upload(w, r, userID)
	case "GET /sync/history":
		writeJSON(w, http.StatusOK, models.HistoryResponse{Versions: h.accounts.History(userID)})
	case "POST /sync/restore/{id}":
		h.restore(w, r.PathValue("id"), userID)
	default:
		writeMessage(w, http.StatusNotFound, "Not found")
	}
}

func (h *syncHandler) current(w http.ResponseWriter, userID string) {
	snapshot, ok := h.accounts.Current(userID)
	if !ok {
		writeMessage(w, http.StatusOK, models.NoSyncDataMessage)
		return
	}
	writeJSON(w, http.StatusOK, snapshot)
}

func (h *syncHandler) upload(w http.ResponseWriter, r *http.Request, userID string) {
	var payload models.SyncPayload
	size, err := readJSON(w, r, &payload)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid sync payload")
		return
	}

	v, err := h.accounts.Store(userID, payload, size)
	if err != nil {
		h.logger.Error("failed to store sync data", "user", userID, "error", err)
		writeMessage(w, http.StatusInternalServerError, "Failed to store sync data")
		return
	}

	h.logger.Debug("stored version", "user", userID, "version", v.ID, "size", v.Size)
	writeMessage(w, http.StatusOK, models.SyncSuccessMessage)
}

func (h *syncHandler) restore(w http.ResponseWriter, versionID, userID string) {
	v, err := h.accounts.Restore(userID, versionID)
	if errors.Is(err, shared.ErrNotFound) {
		writeMessage(w, http.StatusNotFound, "Version not found")
		return
	} else if err != nil {
		writeMessage(w, http.StatusInternalServerError, "Failed to restore version")
		return
	}

	h.logger.Info("restored version", "user", userID, "from", versionID, "as", v.ID)
	writeMessage(w, http.StatusOK, "Version restored")
}
