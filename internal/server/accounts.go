package server

import (
	"fmt"
	"net/mail"
	"slices"
	"strings"
	"sync"

	"github.com/desertthunder/vibesync/internal/models"
	"github.com/desertthunder/vibesync/internal/shared"
	"golang.org/x/crypto/bcrypt"
)

// MaxVersions is how many uploads are kept per account.
const MaxVersions = 10

// MinPasswordLength is the shortest password accepted at registration.
const MinPasswordLength = 6

var (
	// ErrAccountExists is returned when registering an email twice.
	ErrAccountExists = fmt.Errorf("account already exists")
	// ErrInvalidCredentials is returned for an unknown email or wrong password.
	ErrInvalidCredentials = fmt.Errorf("invalid email or password")
)

type account struct {
	user     models.User
	hash     []byte
	versions []version // oldest first
}

type version struct {
	meta     models.SyncVersion
	snapshot models.RemoteSnapshot
}

// Accounts is the in-memory account and version store.
type Accounts struct {
	mu      sync.RWMutex
	byEmail map[string]*account
	byID    map[string]*account
	clock   shared.Clock
	cost    int
}

// NewAccounts creates an empty store.
func NewAccounts(clock shared.Clock) *Accounts {
	if clock == nil {
		clock = shared.SystemClock
	}
	return &Accounts{
		byEmail: make(map[string]*account),
		byID:    make(map[string]*account),
		clock:   clock,
		cost:    bcrypt.DefaultCost,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register creates an account for the given credentials.
func (a *Accounts) Register(creds models.Credentials) (models.User, error) {
	email := normalizeEmail(creds.Email)
	if _, err := mail.ParseAddress(email); err != nil {
		return models.User{}, fmt.Errorf("%w: invalid email address", shared.ErrInvalidInput)
	}
	if len(creds.Password) < MinPasswordLength {
		return models.User{}, fmt.Errorf("%w: password must be at least %d characters", shared.ErrInvalidInput, MinPasswordLength)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(creds.Password), a.cost)
	if err != nil {
		return models.User{}, fmt.Errorf("failed to hash password: %w", err)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if _, ok := a.byEmail[email]; ok {
		return models.User{}, ErrAccountExists
	}

	acct := &account{
		user: models.User{
			ID:        shared.PrefixedID("user"),
			Email:     email,
			CreatedAt: shared.Millis(a.clock()),
		},
		hash: hash,
	}
	a.byEmail[email] = acct
	a.byID[acct.user.ID] = acct
	return acct.user, nil
}

// Authenticate checks credentials and returns the matching user.
func (a *Accounts) Authenticate(creds models.Credentials) (models.User, error) {
	a.mu.RLock()
	acct, ok := a.byEmail[normalizeEmail(creds.Email)]
	a.mu.RUnlock()

	if !ok {
		return models.User{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(acct.hash, []byte(creds.Password)); err != nil {
		return models.User{}, ErrInvalidCredentials
	}
	return acct.user, nil
}

// Current returns the newest snapshot for userID, reporting false if there is none.
func (a *Accounts) Current(userID string) (models.RemoteSnapshot, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	acct, ok := a.byID[userID]
	if !ok || len(acct.versions) == 0 {
		return models.RemoteSnapshot{}, false
	}
	return acct.versions[len(acct.versions)-1].snapshot, true
}

// Store appends payload as the newest version, dropping the oldest beyond [MaxVersions].
func (a *Accounts) Store(userID string, payload models.SyncPayload, size int) (models.SyncVersion, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	acct, ok := a.byID[userID]
	if !ok {
		return models.SyncVersion{}, fmt.Errorf("%w: user %s", shared.ErrNotFound, userID)
	}
	return acct.push(models.SnapshotFromPayload(payload), size, a.clock), nil
}

func (acct *account) push(snapshot models.RemoteSnapshot, size int, clock shared.Clock) models.SyncVersion {
	meta := models.SyncVersion{
		ID:        shared.PrefixedID("version"),
		CreatedAt: shared.Millis(clock()),
		Albums:    len(snapshot.Albums),
		Songs:     len(snapshot.Songs),
		Playlists: len(snapshot.Playlists),
		Size:      size,
	}

	acct.versions = append(acct.versions, version{meta: meta, snapshot: snapshot})
	if n := len(acct.versions); n > MaxVersions {
		acct.versions = slices.Clone(acct.versions[n-MaxVersions:])
	}
	return meta
}

// History lists the stored versions for userID, newest first.
func (a *Accounts) History(userID string) []models.SyncVersion {
	a.mu.RLock()
	defer a.mu.RUnlock()

	acct, ok := a.byID[userID]
	if !ok {
		return []models.SyncVersion{}
	}

	out := make([]models.SyncVersion, 0, len(acct.versions))
	for i := len(acct.versions) - 1; i >= 0; i-- {
		out = append(out, acct.versions[i].meta)
	}
	return out
}

// Restore copies the version with versionID to the top of the history.
func (a *Accounts) Restore(userID, versionID string) (models.SyncVersion, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	acct, ok := a.byID[userID]
	if !ok {
		return models.SyncVersion{}, fmt.Errorf("%w: user %s", shared.ErrNotFound, userID)
	}

	for _, v := range acct.versions {
		if v.meta.ID == versionID {
			return acct.push(v.snapshot, v.meta.Size, a.clock), nil
		}
	}
	return models.SyncVersion{}, fmt.Errorf("%w: version %s", shared.ErrNotFound, versionID)
}
