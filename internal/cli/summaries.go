package cli

import (
	"context"
	"strings"

	"github.com/spf13/cobra"
)

func (r *runner) summariesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "summaries",
		Aliases: []string{"summary", "s"},
		Short:   "Keep study session notes on this device",
	}
	cmd.AddCommand(r.summariesListCmd(), r.summariesAddCmd(), r.summariesRemoveCmd())
	return cmd
}

func (r *runner) summariesListCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List study summaries",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return r.withEnv(cmd, func(ctx context.Context, e *env) error {
				out := cmd.OutOrStdout()
				summaries := e.sess.Summaries.Summaries()
				if len(summaries) == 0 {
					printf(out, "No summaries yet.\n")
					return nil
				}
				for _, s := range summaries {
					printf(out, "%s  %s  %s\n", shortID(s.ID), s.CreatedAt.Local().Format("2006-01-02 15:04"), s.Title)
					if s.Content != "" {
						printf(out, "    %s\n", strings.ReplaceAll(s.Content, "\n", "\n    "))
					}
				}
				return nil
			})
		},
	}
}

func (r *runner) summariesAddCmd() *cobra.Command {
	var content string

	cmd := &cobra.Command{
		Use:   "add [title]",
		Short: "Save a study summary",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return r.withEnv(cmd, func(ctx context.Context, e *env) error {
				s, err := e.sess.Summaries.Add(strings.Join(args, " "), content)
				if err != nil {
					return err
				}
				printf(cmd.OutOrStdout(), "✓ Saved summary %q (%s)\n", s.Title, shortID(s.ID))
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&content, "message", "m", "", "Summary text")
	return cmd
}

func (r *runner) summariesRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "rm [id]",
		Aliases: []string{"delete"},
		Short:   "Delete a study summary by id or id prefix",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return r.withEnv(cmd, func(ctx context.Context, e *env) error {
				id := args[0]
				for _, s := range e.sess.Summaries.Summaries() {
					if strings.HasPrefix(s.ID, id) {
						id = s.ID
						break
					}
				}
				if err := e.sess.Summaries.Delete(id); err != nil {
					return err
				}
				printf(cmd.OutOrStdout(), "✓ Deleted summary %s\n", args[0])
				return nil
			})
		},
	}
}

// shortID abbreviates a summary id for display.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
