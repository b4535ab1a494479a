package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/nhle/studytrack/internal/logger"
	"github.com/nhle/studytrack/internal/model"
)

// runner carries the state shared by every command of one invocation.
type runner struct {
	configPath string
	logLevel   string
	logConsole bool

	cfg    *model.AppConfig
	prompt Prompter

	// launch runs the dashboard; replaced in tests.
	launch func(e *env) error
}

// Option customizes the root command.
type Option func(*runner)

// WithPrompter replaces the interactive prompts.
func WithPrompter(p Prompter) Option {
	return func(r *runner) { r.prompt = p }
}

// withDashboard replaces the function that runs the dashboard.
func withDashboard(launch func(e *env) error) Option {
	return func(r *runner) { r.launch = launch }
}

// NewRootCmd builds the studytrack command tree.
func NewRootCmd(opts ...Option) *cobra.Command {
	r := &runner{
		prompt: huhPrompter{},
		launch: runDashboard,
	}
	for _, opt := range opts {
		opt(r)
	}

	root := &cobra.Command{
		Use:   "studytrack",
		Short: "Study Tracker - study tasks, daily goals and streaks in your terminal",
		Long: `Study Tracker keeps your study tasks and daily goals in sync with the
Study Tracker server and caches them locally for instant start-up.

Run 'studytrack' without arguments to open the dashboard.`,
		SilenceUsage:      true,
		PersistentPreRunE: r.setup,
		RunE: func(cmd *cobra.Command, args []string) error {
			return r.watch(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			logger.Info("Study Tracker exiting", logger.F("command", cmd.Name()))
			logger.Close()
		},
	}

	root.PersistentFlags().StringVar(&r.configPath, "config", model.DefaultConfigPath(), "Path to config file")
	root.PersistentFlags().StringVar(&r.logLevel, "log-level", "", "Log level (DEBUG, INFO, WARN, ERROR)")
	root.PersistentFlags().BoolVar(&r.logConsole, "log-console", false, "Also log to stderr")

	root.AddCommand(
		r.loginCmd(),
		r.logoutCmd(),
		r.tasksCmd(),
		r.goalsCmd(),
		r.summariesCmd(),
		r.watchCmd(),
	)
	return root
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}

// setup loads the configuration and initializes the logger.
func (r *runner) setup(cmd *cobra.Command, args []string) error {
	cfg, err := model.LoadConfig(r.configPath)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("log-level") {
		cfg.Log.Level = r.logLevel
	}
	if cmd.Flags().Changed("log-console") {
		cfg.Log.Console = r.logConsole
	}
	r.cfg = cfg

	logConfig := logger.Config{
		Level:      logger.ParseLevel(cfg.Log.Level),
		FilePath:   cfg.Log.File,
		MaxSize:    10 * 1024 * 1024, // 10MB
		MaxBackups: 5,
		Console:    cfg.Log.Console,
	}
	if err := logger.Init(logConfig); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	logger.Info("Study Tracker started", logger.F("command", cmd.Name()))
	return nil
}

// saveConfig persists the in-memory configuration.
func (r *runner) saveConfig() error {
	return model.SaveConfig(r.configPath, r.cfg)
}

func printf(w io.Writer, format string, args ...interface{}) {
	fmt.Fprintf(w, format, args...)
}
