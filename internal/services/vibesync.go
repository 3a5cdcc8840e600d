package services

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/vibesync/internal/models"
	"github.com/desertthunder/vibesync/internal/shared"
	"golang.org/x/oauth2"
)

// SyncClient is the typed client for the remote sync account.
type SyncClient struct {
	api      *APIService
	sessions *SessionStore
	logger   *log.Logger
}

// NewSyncClient creates a client over api that authenticates with the session in sessions.
func NewSyncClient(api *APIService, sessions *SessionStore, logger *log.Logger) *SyncClient {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &SyncClient{api: api, sessions: sessions, logger: logger}
}

// Session returns the current session, or nil when signed out.
func (c *SyncClient) Session() *models.Session {
	session, err := c.sessions.Load()
	if err != nil {
		c.logger.Warn("failed to load session", "error", err)
		return nil
	}
	return session
}

// IsAuthenticated reports whether a non-expired session exists.
func (c *SyncClient) IsAuthenticated() bool {
	return c.Session() != nil
}

// Login exchanges credentials for a session token and stores it.
func (c *SyncClient) Login(ctx context.Context, email, password string) (*models.Session, error) {
	return c.authenticate(ctx, "/auth/login", email, password)
}

// Register creates an account and stores the returned session.
func (c *SyncClient) Register(ctx context.Context, email, password string) (*models.Session, error) {
	return c.authenticate(ctx, "/auth/register", email, password)
}

// Logout forgets the stored session.
func (c *SyncClient) Logout() error {
	return c.sessions.Clear()
}

func (c *SyncClient) authenticate(ctx context.Context, path, email, password string) (*models.Session, error) {
	if email == "" || password == "" {
		return nil, fmt.Errorf("%w: email and password are required", shared.ErrMissingArgument)
	}

	resp, err := c.api.PostJSON(ctx, nil, path, models.Credentials{Email: email, Password: password})
	if err != nil {
		return nil, shared.NewRemoteError(0, "", err)
	}
	if !resp.OK() {
		return nil, fmt.Errorf("%w: %s", shared.ErrAuthFailed, resp.Message())
	}

	var body models.AuthResponse
	if err := resp.Decode(&body); err != nil {
		return nil, err
	}
	if body.Token == "" {
		return nil, fmt.Errorf("%w: no token in response", shared.ErrAuthFailed)
	}

	session := models.Session{Token: body.Token, User: body.User}
	if err := c.sessions.Save(session); err != nil {
		return nil, err
	}

	c.logger.Info("signed in", "email", session.User.Email)
	return &session, nil
}

// authorized returns an HTTP client that adds the session's Bearer token.
func (c *SyncClient) authorized() (*http.Client, error) {
	session := c.Session()
	if session == nil {
		return nil, shared.ErrNotAuthenticated
	}

	src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: session.Token, TokenType: "Bearer"})
	base := c.api.httpClient.Transport
	return &http.Client{
		Transport: &oauth2.Transport{Source: src, Base: base},
		Timeout:   c.api.httpClient.Timeout,
	}, nil
}

// check turns failed responses into errors.
func check(resp *APIResponse) error {
	if resp.OK() {
		return nil
	}
	if resp.StatusCode == http.StatusUnauthorized {
		return shared.NewRemoteError(resp.StatusCode, resp.Message(), shared.ErrNotAuthenticated)
	}
	return shared.NewRemoteError(resp.StatusCode, resp.Message(), nil)
}

// FetchSnapshot downloads the account's current library (GET /sync).
//
// Accounts without data yield an empty snapshot, not an error.
func (c *SyncClient) FetchSnapshot(ctx context.Context) (*models.RemoteSnapshot, error) {
	client, err := c.authorized()
	if err != nil {
		return nil, err
	}

	resp, err := c.api.Get(ctx, client, "/sync")
	if err != nil {
		return nil, shared.NewRemoteError(0, "", err)
	}
	if resp.StatusCode == http.StatusNotFound {
		return &models.RemoteSnapshot{Message: resp.Message()}, nil
	}
	if err := check(resp); err != nil {
		return nil, err
	}

	var snapshot models.RemoteSnapshot
	if err := resp.Decode(&snapshot); err != nil {
		return nil, shared.NewRemoteError(resp.StatusCode, "malformed sync data", err)
	}
	return &snapshot, nil
}

// Upload sends the merged library (POST /sync).
//
// Anything but the success message is a [shared.RemoteError].
func (c *SyncClient) Upload(ctx context.Context, payload *models.SyncPayload) error {
	client, err := c.authorized()
	if err != nil {
		return err
	}

	resp, err := c.api.PostJSON(ctx, client, "/sync", payload)
	if err != nil {
		return shared.NewRemoteError(0, "", err)
	}
	if err := check(resp); err != nil {
		return err
	}

	if msg := resp.Message(); msg != models.SyncSuccessMessage {
		return shared.NewRemoteError(resp.StatusCode, msg, nil)
	}
	return nil
}

// History lists the stored versions of the account's library (GET /sync/history).
func (c *SyncClient) History(ctx context.Context) ([]models.SyncVersion, error) {
	client, err := c.authorized()
	if err != nil {
		return nil, err
	}

	resp, err := c.api.Get(ctx, client, "/sync/history")
	if err != nil {
		return nil, shared.NewRemoteError(0, "", err)
	}
	if err := check(resp); err != nil {
		return nil, err
	}

	var body models.HistoryResponse
	if err := resp.Decode(&body); err != nil {
		return nil, err
	}
	return body.Versions, nil
}

// Restore makes a stored version current on the server (POST /sync/restore/{id}).
//
// The next sync merges the restored data into the local library.
func (c *SyncClient) Restore(ctx context.Context, versionID string) error {
	if versionID == "" {
		return fmt.Errorf("%w: version id", shared.ErrMissingArgument)
	}

	client, err := c.authorized()
	if err != nil {
		return err
	}

	resp, err := c.api.Post(ctx, client, "/sync/restore/"+url.PathEscape(versionID), []byte("{}"))
	if err != nil {
		return shared.NewRemoteError(0, "", err)
	}
	return check(resp)
}
