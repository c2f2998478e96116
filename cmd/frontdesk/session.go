package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/MrHarsh002/AyurSutra-sub003/internal/desk"
	"github.com/MrHarsh002/AyurSutra-sub003/internal/platform/auth"
	"github.com/MrHarsh002/AyurSutra-sub003/internal/platform/clinicapi"
	"github.com/MrHarsh002/AyurSutra-sub003/internal/platform/session"
)

func (a *app) sessions() (*session.Manager, error) {
	path := a.cfg.SessionFile
	if path == "" {
		var err error
		if path, err = session.DefaultPath(); err != nil {
			return nil, err
		}
	}
	return session.NewManager(session.NewFileStore(path), a.logger), nil
}

// deskFlow resumes the stored session and returns a workflow that talks to
// the backend as that user. A rejected token ends the session.
func (a *app) deskFlow(ctx context.Context) (*desk.Workflow, error) {
	mgr, err := a.sessions()
	if err != nil {
		return nil, err
	}
	if _, err := mgr.Start(ctx); err != nil {
		return nil, fmt.Errorf("%w: sign in with \"frontdesk login --token <jwt>\"", err)
	}

	client, err := clinicapi.New(a.cfg.BackendURL,
		clinicapi.WithHTTPClient(&http.Client{Timeout: a.cfg.BackendTimeout}),
		clinicapi.WithTokenSource(mgr.Token),
		clinicapi.WithLogger(a.logger),
	)
	if err != nil {
		return nil, err
	}
	resolver, err := a.cfg.Resolver()
	if err != nil {
		return nil, err
	}
	flow := desk.New(client, resolver,
		desk.WithSessionGuard(mgr),
		desk.WithSlotStep(a.cfg.ScheduleSlotStep),
		desk.WithLogger(a.logger),
	)
	return flow, nil
}

func loginCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in with a bearer token issued by the clinic",
		RunE: func(cmd *cobra.Command, _ []string) error {
			token, _ := cmd.Flags().GetString("token")
			mgr, err := a.sessions()
			if err != nil {
				return err
			}
			s, err := mgr.Login(cmd.Context(), token)
			if err != nil {
				return fmt.Errorf("login failed: %w", err)
			}
			fmt.Fprintf(a.out, "Signed in as %s (%s).\n", displayName(s), s.Role.Display())
			return nil
		},
	}
	cmd.Flags().String("token", "", "JWT to sign in with")
	_ = cmd.MarkFlagRequired("token")
	return cmd
}

func logoutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session",
		RunE: func(cmd *cobra.Command, _ []string) error {
			mgr, err := a.sessions()
			if err != nil {
				return err
			}
			if err := mgr.Logout(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(a.out, "Signed out.")
			return nil
		},
	}
}

func whoamiCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user and their views",
		RunE: func(cmd *cobra.Command, _ []string) error {
			mgr, err := a.sessions()
			if err != nil {
				return err
			}
			s, err := mgr.Start(cmd.Context())
			if err != nil {
				return err
			}
			views, err := s.Views()
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "%s (%s)\n", displayName(s), s.Role.Display())
			fmt.Fprintf(a.out, "user id: %s\n", s.UserID)
			if !s.ExpiresAt.IsZero() {
				fmt.Fprintf(a.out, "expires: %s\n", s.ExpiresAt.Local().Format(time.RFC1123))
			}
			fmt.Fprintf(a.out, "home:    %s\n", views.Home)
			for _, item := range views.Sidebar {
				fmt.Fprintf(a.out, "  %-20s %s\n", item.Label, item.Path)
			}
			return nil
		},
	}
}

func tokenCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a signed token with the configured key (development)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			roleName, _ := cmd.Flags().GetString("role")
			subject, _ := cmd.Flags().GetString("subject")
			name, _ := cmd.Flags().GetString("name")
			ttl, _ := cmd.Flags().GetDuration("ttl")

			role, err := auth.ParseRole(roleName)
			if err != nil {
				return err
			}
			if a.cfg.IsProduction() {
				return fmt.Errorf("refusing to mint tokens in production")
			}
			tok, err := auth.IssueToken(a.cfg.JWT(), auth.TokenRequest{
				Subject: subject,
				Name:    name,
				Role:    role,
				TTL:     ttl,
			})
			if err != nil {
				return err
			}
			fmt.Fprintln(a.out, tok)
			return nil
		},
	}
	cmd.Flags().String("role", "admin", "admin, doctor, patient or therapist")
	cmd.Flags().String("subject", "", "User id to put in the token")
	cmd.Flags().String("name", "", "Display name")
	cmd.Flags().Duration("ttl", 12*time.Hour, "Token lifetime")
	_ = cmd.MarkFlagRequired("subject")
	return cmd
}

func displayName(s *session.Session) string {
	if s.Name != "" {
		return s.Name
	}
	return s.UserID
}
