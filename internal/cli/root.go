package cli

import (
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/jwulff/codesage/internal/config"
	"github.com/jwulff/codesage/internal/logging"
)

// Version is stamped at build time with -ldflags "-X .../internal/cli.Version=...".
var Version = "dev"

// annotationTUI marks commands that take over the terminal; their logs go to a file.
const annotationTUI = "tui"

// runtime is the state shared by every subcommand once the root pre-run has loaded it.
type runtime struct {
	cfg      *config.Config
	logger   *slog.Logger
	closeLog func() error
}

func NewRootCommand() *cobra.Command {
	rt := &runtime{}
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "codesage",
		Short: "Run realtime coding interviews from the terminal",
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return rt.load(cmd, configPath)
		},
		PersistentPostRunE: func(_ *cobra.Command, _ []string) error {
			return rt.close()
		},
	}

	rootCmd.SilenceUsage = true
	rootCmd.SilenceErrors = true
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default "+config.DefaultPath()+")")
	rootCmd.AddCommand(
		newNewCmd(rt),
		newJoinCmd(rt),
		newListCmd(rt),
		newHistoryCmd(rt),
		newMCPCmd(rt),
		newDevServerCmd(rt),
		newVersionCmd(),
	)

	return rootCmd
}

func (rt *runtime) load(cmd *cobra.Command, configPath string) error {
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file found, using environment variables")
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logFile := cfg.LogFile
	if logFile == "" && cmd.Annotations[annotationTUI] == "true" {
		logFile = filepath.Join(filepath.Dir(cfg.DBPath), "codesage.log")
	}
	logger, closeLog, err := logging.Setup(logFile, cfg.LogLevel)
	if err != nil {
		return err
	}

	rt.cfg = cfg
	rt.logger = logger
	rt.closeLog = closeLog
	return nil
}

func (rt *runtime) close() error {
	if rt.closeLog == nil {
		return nil
	}
	err := rt.closeLog()
	rt.closeLog = nil
	return err
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		// The version command needs no configuration.
		PersistentPreRunE:  func(*cobra.Command, []string) error { return nil },
		PersistentPostRunE: func(*cobra.Command, []string) error { return nil },
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "codesage %s\n", Version)
		},
	}
}
