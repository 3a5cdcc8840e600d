package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/vibesync/internal/models"
	"github.com/desertthunder/vibesync/internal/services"
	"github.com/desertthunder/vibesync/internal/shared"
	"github.com/dustin/go-humanize"
	"github.com/golang-jwt/jwt/v5"
	"github.com/urfave/cli/v3"
)

func credentials(cmd *cli.Command) (string, string, error) {
	email, password := cmd.String("email"), cmd.String("password")
	if email == "" || password == "" {
		return "", "", fmt.Errorf("%w: --email and --password (or VIBE_EMAIL and VIBE_PASSWORD) are required", shared.ErrMissingArgument)
	}
	return email, password, nil
}

// AuthLogin signs in to VibeSync and stores the session.
func (r *Runner) AuthLogin(ctx context.Context, cmd *cli.Command) error {
	email, password, err := credentials(cmd)
	if err != nil {
		return err
	}

	session, err := r.Client().Login(ctx, email, password)
	if err != nil {
		return err
	}
	return r.writePlain("✓ Signed in as %s\n", session.User.Email)
}

// AuthRegister creates a VibeSync account and stores the session.
func (r *Runner) AuthRegister(ctx context.Context, cmd *cli.Command) error {
	email, password, err := credentials(cmd)
	if err != nil {
		return err
	}

	session, err := r.Client().Register(ctx, email, password)
	if err != nil {
		return err
	}
	r.writePlain("✓ Account created for %s\n", session.User.Email)
	return r.writePlain("Run 'vibe sync now' to upload your library\n")
}

// AuthLogout forgets the stored session.
func (r *Runner) AuthLogout(ctx context.Context, cmd *cli.Command) error {
	if err := r.Client().Logout(); err != nil {
		return fmt.Errorf("failed to sign out: %w", err)
	}
	return r.writePlain("✓ Signed out\n")
}

// AuthStatus prints the signed-in account and when its session expires.
func (r *Runner) AuthStatus(ctx context.Context, cmd *cli.Command) error {
	session := r.Client().Session()
	if session == nil {
		return r.writePlain("✗ Not signed in\nRun 'vibe auth login' to enable sync\n")
	}

	r.writePlain("✓ Signed in as %s\n", session.User.Email)
	r.writePlain("Server: %s\n", r.config.Sync.APIURL)
	if expires := sessionExpiry(session); expires != "" {
		r.writePlain("Session expires %s\n", expires)
	}
	return nil
}

// sessionExpiry renders the token's exp claim relative to now, or "" when it has none.
func sessionExpiry(session *models.Session) string {
	if services.TokenExpired(session.Token, shared.SystemClock()) {
		return "now"
	}

	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(session.Token, &claims); err != nil || claims.ExpiresAt == nil {
		return ""
	}
	return humanize.Time(claims.ExpiresAt.Time)
}
