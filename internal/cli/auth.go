package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nhle/studytrack/internal/api"
	"github.com/nhle/studytrack/internal/cache"
	"github.com/nhle/studytrack/internal/credential"
	"github.com/nhle/studytrack/internal/logger"
	"github.com/nhle/studytrack/internal/session"
)

func (r *runner) loginCmd() *cobra.Command {
	var in loginInput

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in with a browser session",
		Long: `Sign in by pasting the session and CSRF cookies of a browser that is
logged in to the Study Tracker server. Missing values are prompted for.

Examples:
  studytrack login
  studytrack login --user alice --session 8f2c... --csrf 1b9d...`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("server") {
				in.BaseURL = r.cfg.API.BaseURL
			}
			return r.runLogin(cmd, in)
		},
	}

	cmd.Flags().StringVar(&in.BaseURL, "server", "", "Server URL")
	cmd.Flags().StringVarP(&in.UserID, "user", "u", "", "User name")
	cmd.Flags().StringVar(&in.SessionID, "session", "", "Value of the sessionid cookie")
	cmd.Flags().StringVar(&in.CSRFToken, "csrf", "", "Value of the csrftoken cookie")
	return cmd
}

func (r *runner) runLogin(cmd *cobra.Command, in loginInput) error {
	if err := r.prompt.Login(&in); err != nil {
		return err
	}
	in.BaseURL = strings.TrimRight(strings.TrimSpace(in.BaseURL), "/")
	in.UserID = strings.TrimSpace(in.UserID)
	in.SessionID = strings.TrimSpace(in.SessionID)
	in.CSRFToken = strings.TrimSpace(in.CSRFToken)
	if in.UserID == "" || in.SessionID == "" {
		return fmt.Errorf("user and session cookie are required")
	}

	r.cfg.API.BaseURL = in.BaseURL
	client, err := r.newClient()
	if err != nil {
		return err
	}
	client.SetSession(in.SessionID, in.CSRFToken)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if _, err := client.ListTasks(ctx); err != nil {
		if api.IsAuthError(err) {
			return fmt.Errorf("login failed: the server rejected the session cookie")
		}
		return fmt.Errorf("verifying session: %w", err)
	}

	if err := credential.SaveSession(in.UserID, credential.Session{
		SessionID: in.SessionID,
		CSRFToken: in.CSRFToken,
	}); err != nil {
		return err
	}

	r.cfg.User.ID = in.UserID
	if err := r.saveConfig(); err != nil {
		return err
	}
	logger.Info("Logged in", logger.F("user", in.UserID), logger.F("server", in.BaseURL))

	// Warm the cache so the dashboard starts with data.
	e, err := r.open(ctx)
	if err != nil {
		return err
	}
	defer e.Close()

	printf(cmd.OutOrStdout(), "✓ Logged in as %s (%d tasks)\n", in.UserID, len(e.sess.Tasks.Tasks()))
	return nil
}

func (r *runner) logoutCmd() *cobra.Command {
	var forget bool

	cmd := &cobra.Command{
		Use:   "logout",
		Short: "Sign out and remove stored credentials",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return r.runLogout(cmd, forget)
		},
	}
	cmd.Flags().BoolVar(&forget, "forget", false, "Also delete this user's cached data")
	return cmd
}

func (r *runner) runLogout(cmd *cobra.Command, forget bool) error {
	out := cmd.OutOrStdout()
	userID := r.cfg.User.ID
	if userID == "" {
		printf(out, "Not logged in.\n")
		return nil
	}

	if err := credential.ClearSession(userID); err != nil {
		return err
	}

	if forget {
		if err := r.forget(cmd, userID); err != nil {
			return err
		}
	}

	r.cfg.User.ID = ""
	if err := r.saveConfig(); err != nil {
		return err
	}
	logger.Info("Logged out", logger.F("user", userID), logger.F("forget", forget))

	printf(out, "✓ Logged out %s\n", userID)
	return nil
}

// forget purges userID's cached snapshots.
func (r *runner) forget(cmd *cobra.Command, userID string) error {
	client, err := r.newClient()
	if err != nil {
		return err
	}
	kv, err := r.openCache()
	if err != nil {
		return err
	}
	defer kv.Close()

	sess := session.New(client, cache.New(kv, r.cfg.Cache.Prefix))
	defer sess.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return sess.Forget(ctx, userID)
}
