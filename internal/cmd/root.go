package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/pbrit/mamba/internal/config"
	"github.com/pbrit/mamba/internal/fsutil"
	"github.com/pbrit/mamba/internal/lockfile"
	"github.com/pbrit/mamba/internal/logging"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var rootCmd = &cobra.Command{
	Use:   "mamba",
	Short: "Prefix locking and trash reclamation for conda environments",
	Long: `Mamba coordinates concurrent access to conda environment prefixes.
It locks prefixes and package caches so parallel operations do not corrupt
each other, quarantines files that cannot be deleted while in use, and
reclaims that quarantined trash later.`,
}

// childExitCode is the exit code of the child launched by "mamba run".
// It becomes the process exit code when the command itself succeeded.
var childExitCode int

// Execute runs the root command and returns the process exit code.
func Execute() int {
	if err := rootCmd.Execute(); err != nil {
		return 1
	}
	return childExitCode
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringP("config", "c", "", "config file (default is $HOME/.mambarc)")
	rootCmd.PersistentFlags().String("log-level", "", "log level: debug, info, warn, or error")
	rootCmd.PersistentFlags().Int("lock-timeout", 0, "seconds to wait for a busy lockfile (0 waits forever)")
	rootCmd.PersistentFlags().Bool("no-lockfiles", false, "do not create lockfiles")
	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
	_ = viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("lock_timeout", rootCmd.PersistentFlags().Lookup("lock-timeout"))
}

func initConfig() {
	// Set defaults first so they're available even without a config file
	config.SetDefaults()

	// The rc file is extensionless YAML, so the type must be forced no
	// matter where the file comes from.
	viper.SetConfigType("yaml")
	if cfgFile := viper.GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else if rc := config.HomeRCFile(); rc != "" && fsutil.Exists(rc) {
		viper.SetConfigFile(rc)
	} else {
		viper.SetConfigFile(config.ConfigFile())
	}

	viper.AutomaticEnv()
	viper.SetEnvPrefix("MAMBA")
	// Replace dots with underscores for nested keys in env vars
	// e.g., MAMBA_LOCK_TIMEOUT for lock_timeout
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Read config file if it exists (ignore error if not found)
	_ = viper.ReadInConfig()
}

// setup loads the configuration, builds the process logger, and feeds the
// lockfile package its process-wide settings. Every subcommand calls it
// first; the caller owns the returned logger and must Close it.
func setup(cmd *cobra.Command) (*config.Config, *logging.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	if noLocks, _ := cmd.Root().PersistentFlags().GetBool("no-lockfiles"); noLocks {
		cfg.UseLockfiles = false
	}

	log, err := logging.NewLogger(cfg.LogFile, cfg.LogLevel)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize logging: %w", err)
	}

	lockfile.SetEnabled(cfg.UseLockfiles)
	lockfile.SetDefaultTimeout(cfg.LockTimeoutDuration())
	lockfile.SetLogger(log)
	fsutil.SetKeepArtifacts(cfg.KeepTempFiles, cfg.KeepTempDirectories)

	return cfg, log, nil
}

// defaultPrefix resolves the prefix commands act on when --prefix is not
// given: the active environment if one is set, the working directory
// otherwise.
func defaultPrefix() (string, error) {
	if p := os.Getenv("CONDA_PREFIX"); p != "" {
		return p, nil
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get current directory: %w", err)
	}
	return cwd, nil
}
