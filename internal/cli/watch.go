package cli

import (
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/nhle/studytrack/internal/app"
	"github.com/nhle/studytrack/internal/logger"
	appsync "github.com/nhle/studytrack/internal/sync"
)

func (r *runner) watchCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "watch",
		Aliases: []string{"ui", "dashboard"},
		Short:   "Open the interactive dashboard",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return r.watch(cmd)
		},
	}
}

func (r *runner) watch(cmd *cobra.Command) error {
	ctx := cmd.Context()
	e, err := r.open(ctx)
	if err != nil {
		return err
	}
	defer e.Close()

	return r.launch(e)
}

// runDashboard runs the Bubble Tea dashboard until the user quits, with
// tasks and goals revalidated in the background.
func runDashboard(e *env) error {
	p := appsync.New(time.Duration(e.interval) * time.Second)
	p.Register(appsync.ResourceTasks, e.sess.Tasks)
	p.Register(appsync.ResourceGoals, e.sess.Goals)
	defer p.Stop()

	logger.Info("Launching dashboard", logger.F("user", e.user))
	prog := tea.NewProgram(app.New(e.sess, p), tea.WithAltScreen())
	if _, err := prog.Run(); err != nil {
		logger.Error("Dashboard error", logger.F("error", err.Error()))
		return fmt.Errorf("failed to run dashboard: %w", err)
	}

	logger.Info("Dashboard exited normally")
	return nil
}
