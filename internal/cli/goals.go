package cli

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/nhle/studytrack/internal/model"
	"github.com/nhle/studytrack/internal/store"
)

func (r *runner) goalsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "goals",
		Aliases: []string{"goal", "g"},
		Short:   "Show and set daily goals",
	}
	cmd.AddCommand(r.goalsListCmd(), r.goalsSetCmd())
	return cmd
}

func (r *runner) goalsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "Show daily goals, weekly progress and streaks",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return r.withEnv(cmd, func(ctx context.Context, e *env) error {
				out := cmd.OutOrStdout()
				e.warnIfStale(out)
				now := time.Now()
				for _, c := range model.Categories {
					printGoal(out, e, c, now)
				}
				return nil
			})
		},
	}
}

var weekLetters = [7]string{"M", "T", "W", "T", "F", "S", "S"}

func printGoal(w io.Writer, e *env, c model.Category, now time.Time) {
	g := e.sess.Goals.Get(c)
	history := e.sess.Tasks.CompletionHistory(c)
	streak := e.sess.Goals.Streak(c, history, now)

	met := make(map[int]bool, len(streak.DaysCompleted))
	for _, d := range streak.DaysCompleted {
		met[d] = true
	}
	week := make([]string, len(weekLetters))
	for i, l := range weekLetters {
		week[i] = "."
		if met[i] {
			week[i] = l
		}
	}

	source := ""
	if streak.Source == store.StreakPlaceholder {
		source = " (estimated)"
	}

	printf(w, "%-14s %d/day  today %d/%d  week %s  streak %d%s\n",
		c.Label(), g.DailyTarget, history[model.DateOf(now)], g.DailyTarget,
		strings.Join(week, ""), streak.Value, source)
}

func (r *runner) goalsSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set [category] [target]",
		Short: "Set the daily goal of a category",
		Long: `Set how many tasks per day a category asks for. Without a target you
are prompted for one.

Examples:
  studytrack goals set dsa 4
  studytrack goals set system-design`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := model.ParseCategory(args[0])
			if err != nil {
				return err
			}

			target := 0
			if len(args) == 2 {
				target, err = strconv.Atoi(args[1])
				if err != nil || target < 1 {
					return fmt.Errorf("target must be a whole number of at least 1, got %q", args[1])
				}
			}

			return r.withEnv(cmd, func(ctx context.Context, e *env) error {
				if target == 0 {
					target, err = r.prompt.DailyTarget(c.Label(), e.sess.Goals.Get(c).DailyTarget)
					if err != nil {
						return err
					}
				}

				g, err := e.sess.Goals.Update(ctx, c, target)
				if err != nil {
					return err
				}
				printf(cmd.OutOrStdout(), "✓ %s daily goal set to %d tasks\n", c.Label(), g.DailyTarget)
				return nil
			})
		},
	}
}
