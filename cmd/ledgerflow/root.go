package main

import (
	"io"

	job "github.com/goliatone/go-job"
	"github.com/goliatone/go-ledgerflow/adapters/gologger"
	glog "github.com/goliatone/go-logger/glog"
	"github.com/spf13/cobra"
)

const version = "0.1.0"

type rootOptions struct {
	configPath string
	driver     string
	dsn        string
	verbose    bool

	out    io.Writer
	errOut io.Writer
}

func newRootCmd(out io.Writer, errOut io.Writer) *cobra.Command {
	opts := &rootOptions{out: out, errOut: errOut}

	rootCmd := &cobra.Command{
		Use:   "ledgerflow",
		Short: "Cross-ledger transfer and proposal submission tool",
		Long: `ledgerflow builds, hashes and submits ledger transfers, submits governance
proposals through the proposals bot and relays submissions parked on the
durable retry queue.`,
		DisableAutoGenTag: true,
		Version:           version,
		SilenceUsage:      true,
		SilenceErrors:     true,
	}
	rootCmd.SetOut(out)
	rootCmd.SetErr(errOut)

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&opts.configPath, "config", "c", "", "YAML config file")
	flags.StringVar(&opts.driver, "db-driver", "", "database driver (sqlite3 or postgres), overrides the config file")
	flags.StringVar(&opts.dsn, "dsn", "", "database DSN, overrides the config file")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(newFormatCmd(opts))
	rootCmd.AddCommand(newHashCmd(opts))
	rootCmd.AddCommand(newMigrateCmd(opts))
	rootCmd.AddCommand(newSubmitCmd(opts))
	rootCmd.AddCommand(newRelayCmd(opts))
	rootCmd.AddCommand(newAccountCmd(opts))
	rootCmd.AddCommand(newRetriesCmd(opts))

	return rootCmd
}

func (o *rootOptions) loggerProvider() glog.LoggerProvider {
	level := job.LevelInfo
	if o.verbose {
		level = job.LevelDebug
	}
	return gologger.NewStdProvider(o.errOut, level)
}

// fileConfig loads the config file and applies flag overrides.
func (o *rootOptions) fileConfig() (fileConfig, error) {
	cfg, err := loadFileConfig(o.configPath)
	if err != nil {
		return fileConfig{}, err
	}
	if o.driver != "" {
		cfg.Database.Driver = o.driver
	}
	if o.dsn != "" {
		cfg.Database.DSN = o.dsn
	}
	return cfg, nil
}
