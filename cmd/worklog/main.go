package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"worklog/internal/app"
	"worklog/internal/browser"
	"worklog/internal/config"
	"worklog/internal/daemon"
	"worklog/internal/database"
	"worklog/internal/fswatch"
	"worklog/internal/gitcommit"
	"worklog/internal/hooks"
	"worklog/internal/track"
	"worklog/internal/window"
)

var dryRun bool

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// newApp reads the config and creates an App. The caller must defer a.Close().
// command identifies the CLI command being run (e.g. "files", "daemon").
func newApp(command string, opts app.Options) (*app.App, error) {
	cfg, err := readConfig()
	if err != nil {
		return nil, err
	}

	opts.DryRun = opts.DryRun || dryRun
	a, err := app.NewApp(cfg, command, opts)
	if err != nil {
		return nil, fmt.Errorf("initializing app: %w", err)
	}
	return a, nil
}

func readConfig() (*config.Config, error) {
	defaults, err := app.GetDefaults()
	if err != nil {
		return nil, fmt.Errorf("getting defaults: %w", err)
	}
	cfg, err := config.ReadFromFile(defaults["config_path"])
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return cfg, nil
}

var rootCmd = &cobra.Command{
	Use:   "worklog",
	Short: "Personal activity tracker",
}

// config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg := config.NewConfig(defaults["base_dir"])
		home, err := os.UserHomeDir()
		if err == nil {
			cfg.WatchRoots = []string{filepath.Join(home, "projects")}
		}

		if err := config.Init(defaults["config_path"], cfg); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		fmt.Printf("Configuration initialized at %s\n", defaults["config_path"])
		fmt.Printf("Data Dir: %s\n", cfg.DataDir)
		fmt.Printf("Edit watch_roots before starting the daemon.\n")
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "View configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg, err := config.ReadFromFile(defaults["config_path"])
		if err != nil {
			return fmt.Errorf("failed to read config: %w", err)
		}

		fmt.Printf("Configuration from %s:\n\n", defaults["config_path"])
		fmt.Printf("Watch Roots:   %v\n", cfg.WatchRoots)
		fmt.Printf("Excludes:      %v\n", cfg.ExcludePatterns)
		fmt.Printf("Data Dir:      %s\n", cfg.DataDir)
		fmt.Printf("Log Dir:       %s\n", cfg.LogDir)
		fmt.Printf("Summary Time:  %s\n", cfg.DailySummaryTime)
		fmt.Printf("Wakapi:        enabled=%v url=%s\n", cfg.Wakapi.Enabled, cfg.Wakapi.URL)
		return nil
	},
}

// init-db command
var initDBCmd = &cobra.Command{
	Use:   "init-db",
	Short: "Create or migrate the event store",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("init-db", app.Options{AutoMigrate: true})
		if err != nil {
			return err
		}
		defer a.Close()

		if s, ok := a.Store.(*database.SQLiteStore); ok {
			fmt.Printf("Event store ready at %s\n", s.Path())
		}
		return nil
	},
}

// daemon command
var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Run all collectors until interrupted",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("daemon", app.Options{AutoMigrate: true})
		if err != nil {
			return err
		}
		defer a.Close()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		d := daemon.New(a.Cfg, a.Store, a.Log, nil, dryRun)
		return d.Run(ctx)
	},
}

// files command
var filesCmd = &cobra.Command{
	Use:   "files",
	Short: "Watch filesystem changes until interrupted",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("files", app.Options{})
		if err != nil {
			return err
		}
		defer a.Close()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		w, err := fswatch.New(a.Cfg.WatchRoots, a.Cfg.ExcludePatterns, a.Store, a.Log, nil)
		if err != nil {
			return err
		}
		if err := w.Start(ctx); err != nil {
			return err
		}
		fmt.Printf("Watching %v. Ctrl-C to stop.\n", a.Cfg.WatchRoots)
		<-ctx.Done()
		w.Stop()
		return nil
	},
}

// window command
var windowCmd = &cobra.Command{
	Use:   "window",
	Short: "Poll the focused window until interrupted",
	RunE: func(cmd *cobra.Command, args []string) error {
		intervalS, _ := cmd.Flags().GetInt("interval")

		a, err := newApp("window", app.Options{})
		if err != nil {
			return err
		}
		defer a.Close()

		prober, err := window.NewProber()
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		p := window.NewPoller(prober, a.Store, a.Log, nil,
			time.Duration(intervalS)*time.Second, a.Cfg.WatchRoots, nil)
		fmt.Println("Tracking focused window. Ctrl-C to stop.")
		p.Run(ctx)
		return nil
	},
}

// browser command
var browserCmd = &cobra.Command{
	Use:   "browser",
	Short: "Sync browser history once",
	RunE: func(cmd *cobra.Command, args []string) error {
		hours, _ := cmd.Flags().GetInt("hours")

		a, err := newApp("browser", app.Options{})
		if err != nil {
			return err
		}
		defer a.Close()

		c := browser.New(a.Cfg.BrowserHistoryPath, a.Cfg.BrowserCursorPath(),
			time.Duration(hours)*time.Hour, a.Store, a.Log, nil)
		n, err := c.Sync(cmd.Context())
		if err != nil {
			return fmt.Errorf("browser sync: %w", err)
		}
		fmt.Printf("Imported %d visit(s)\n", n)
		return nil
	},
}

// commit command, invoked from the git post-commit hook. All output goes
// to stderr so a hooked commit stays quiet on stdout.
var commitCmd = &cobra.Command{
	Use:   "commit",
	Short: "Record the HEAD commit of a repository",
	RunE: func(cmd *cobra.Command, args []string) error {
		repo, _ := cmd.Flags().GetString("repo")

		cfg, err := readConfig()
		if err != nil {
			return err
		}
		if !dryRun && !database.StoreExists(cfg) {
			fmt.Fprintf(os.Stderr, "worklog: event store missing at %s, skipping commit capture\n", cfg.DBPath())
			return nil
		}

		a, err := app.NewApp(cfg, "commit", app.Options{DryRun: dryRun})
		if err != nil {
			return fmt.Errorf("initializing app: %w", err)
		}
		defer a.Close()

		if err := gitcommit.Run(cmd.Context(), repo, a.Cfg.WatchRoots, a.Store, a.Log); err != nil {
			if errors.Is(err, gitcommit.ErrNotRepository) {
				return err
			}
			// Transient capture failures must not fail the user's commit.
			fmt.Fprintf(os.Stderr, "worklog: %v\n", err)
			return nil
		}
		fmt.Fprintf(os.Stderr, "worklog: recorded commit in %s\n", repo)
		return nil
	},
}

// hooks command
var hooksCmd = &cobra.Command{
	Use:   "hooks",
	Short: "Manage git post-commit hooks",
}

var hooksInstallCmd = &cobra.Command{
	Use:   "install",
	Short: "Install the post-commit hook in repositories under the watch roots",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := readConfig()
		if err != nil {
			return err
		}
		n := hooks.InstallAll(cfg.WatchRoots, nil)
		fmt.Printf("Installed hook in %d repositor%s\n", n, pluralY(n))
		return nil
	},
}

var hooksUninstallCmd = &cobra.Command{
	Use:   "uninstall",
	Short: "Remove the post-commit hook from repositories under the watch roots",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := readConfig()
		if err != nil {
			return err
		}
		n := hooks.UninstallAll(cfg.WatchRoots, nil)
		fmt.Printf("Removed hook from %d repositor%s\n", n, pluralY(n))
		return nil
	},
}

// status command
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show today's event counts",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := readConfig()
		if err != nil {
			return err
		}
		if !database.StoreExists(cfg) {
			fmt.Printf("No event store at %s. Run `worklog init-db` or start the daemon.\n", cfg.DBPath())
			return nil
		}

		a, err := app.NewApp(cfg, "status", app.Options{})
		if err != nil {
			return fmt.Errorf("initializing app: %w", err)
		}
		defer a.Close()

		day := time.Now().UTC().Format("2006-01-02")
		total, err := a.Store.CountEventsOn(cmd.Context(), day, "")
		if err != nil {
			return err
		}

		fmt.Printf("Event store: %s\n", cfg.DBPath())
		fmt.Printf("Events today (%s): %d\n", day, total)
		for _, kind := range []string{
			track.EventFileChange, track.EventWindowFocus, track.EventBrowser,
			track.EventGitCommit, track.EventCodingSummary, track.EventCodingActivity,
		} {
			n, err := a.Store.CountEventsOn(cmd.Context(), day, kind)
			if err != nil {
				return err
			}
			fmt.Printf("  %-16s %d\n", kind, n)
		}
		return nil
	},
}

func pluralY(n int) string {
	if n == 1 {
		return "y"
	}
	return "ies"
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&dryRun, "dry-run", false, "Print events instead of writing them")

	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configListCmd)

	hooksCmd.AddCommand(hooksInstallCmd)
	hooksCmd.AddCommand(hooksUninstallCmd)

	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(initDBCmd)
	rootCmd.AddCommand(daemonCmd)
	rootCmd.AddCommand(filesCmd)
	rootCmd.AddCommand(windowCmd)
	windowCmd.Flags().IntP("interval", "i", 30, "Seconds between window samples")
	rootCmd.AddCommand(browserCmd)
	browserCmd.Flags().Int("hours", 24, "How far back to read browser history")
	rootCmd.AddCommand(commitCmd)
	commitCmd.Flags().String("repo", "", "Repository path (required)")
	commitCmd.MarkFlagRequired("repo")
	rootCmd.AddCommand(hooksCmd)
	rootCmd.AddCommand(statusCmd)
}
