package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nhle/studytrack/internal/model"
)

func (r *runner) tasksCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "tasks",
		Aliases: []string{"task", "t"},
		Short:   "List and manage study tasks",
	}
	cmd.AddCommand(
		r.tasksListCmd(),
		r.tasksAddCmd(),
		r.tasksDoneCmd(),
		r.tasksEditCmd(),
		r.tasksRemoveCmd(),
	)
	return cmd
}

// withEnv opens the user's session, runs fn and closes it again.
func (r *runner) withEnv(cmd *cobra.Command, fn func(ctx context.Context, e *env) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	e, err := r.open(ctx)
	if err != nil {
		return err
	}
	defer e.Close()
	return fn(ctx, e)
}

func (r *runner) tasksListCmd() *cobra.Command {
	var (
		category string
		pending  bool
	)

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List tasks by category",
		Long: `List tasks grouped by category, most recent first.

Examples:
  studytrack tasks list
  studytrack tasks list --category dsa --pending`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			categories := model.Categories
			if category != "" {
				c, err := model.ParseCategory(category)
				if err != nil {
					return err
				}
				categories = []model.Category{c}
			}

			return r.withEnv(cmd, func(ctx context.Context, e *env) error {
				out := cmd.OutOrStdout()
				e.warnIfStale(out)
				for _, c := range categories {
					printCategory(out, c, e.sess.Tasks.ByCategory(c), pending)
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&category, "category", "c", "", "Only show this category")
	cmd.Flags().BoolVar(&pending, "pending", false, "Hide completed tasks")
	return cmd
}

func printCategory(w io.Writer, c model.Category, tasks []model.Task, pendingOnly bool) {
	done := 0
	for _, t := range tasks {
		if t.Completed {
			done++
		}
	}
	printf(w, "%s (%d/%d)\n", c.Label(), done, len(tasks))

	shown := 0
	for _, t := range tasks {
		if pendingOnly && t.Completed {
			continue
		}
		mark := " "
		if t.Completed {
			mark = "x"
		}
		printf(w, "  [%s] %-6s %s\n", mark, t.ID, t.Title)
		shown++
	}
	if shown == 0 {
		printf(w, "  (none)\n")
	}
}

func (r *runner) tasksAddCmd() *cobra.Command {
	var category string

	cmd := &cobra.Command{
		Use:   "add [title]",
		Short: "Add a task",
		Long: `Add a task to a category.

Examples:
  studytrack tasks add "Two Sum"
  studytrack tasks add "Design a URL shortener" -c system-design`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := model.ParseCategory(category)
			if err != nil {
				return err
			}
			title := strings.Join(args, " ")

			return r.withEnv(cmd, func(ctx context.Context, e *env) error {
				t, err := e.sess.Tasks.Add(ctx, title, c)
				if err != nil {
					return err
				}
				printf(cmd.OutOrStdout(), "✓ Added to [%s]: %q (id %s)\n", c.Label(), t.Title, t.ID)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&category, "category", "c", string(model.CategoryDSA), "Category (dsa, development, system_design, job_search)")
	return cmd
}

func (r *runner) tasksDoneCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "done [id]",
		Short: "Toggle a task between done and not done",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return r.withEnv(cmd, func(ctx context.Context, e *env) error {
				if err := e.sess.Tasks.Toggle(ctx, args[0]); err != nil {
					return err
				}
				t, _ := e.sess.Tasks.Get(args[0])
				state := "not done"
				if t.Completed {
					state = "done"
				}
				printf(cmd.OutOrStdout(), "✓ %q marked %s\n", t.Title, state)
				return nil
			})
		},
	}
}

func (r *runner) tasksEditCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "edit [id] [title]",
		Short: "Rename a task",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			title := strings.Join(args[1:], " ")
			return r.withEnv(cmd, func(ctx context.Context, e *env) error {
				if err := e.sess.Tasks.Edit(ctx, args[0], title); err != nil {
					return err
				}
				printf(cmd.OutOrStdout(), "✓ Task %s renamed to %q\n", args[0], strings.TrimSpace(title))
				return nil
			})
		},
	}
}

func (r *runner) tasksRemoveCmd() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:     "rm [id]",
		Aliases: []string{"delete"},
		Short:   "Delete a task",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return r.withEnv(cmd, func(ctx context.Context, e *env) error {
				t, ok := e.sess.Tasks.Get(args[0])
				if !ok {
					return fmt.Errorf("task %s not found", args[0])
				}

				if !yes {
					confirmed, err := r.prompt.Confirm(
						fmt.Sprintf("Delete task %q?", t.Title),
						"The task is removed from the server as well.",
					)
					if err != nil {
						return err
					}
					if !confirmed {
						printf(cmd.OutOrStdout(), "Cancelled.\n")
						return nil
					}
				}

				if err := e.sess.Tasks.Delete(ctx, t.ID); err != nil {
					return err
				}
				printf(cmd.OutOrStdout(), "✓ Deleted %q\n", t.Title)
				return nil
			})
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip the confirmation prompt")
	return cmd
}
