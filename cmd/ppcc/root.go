package main

import (
	"github.com/pkg/errors"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/HayatoShiba/ppcc/config"
	"github.com/HayatoShiba/ppcc/logging"
)

// version is set with -ldflags "-X main.version=..."
var version = "dev"

// globalFlags are the flags shared by subcommands
type globalFlags struct {
	configPath string
	dataDir    string
	fs         afero.Fs
}

// newRootCmd builds the command. the configuration and the data files are accessed through fs.
func newRootCmd(fs afero.Fs) *cobra.Command {
	gf := &globalFlags{fs: fs}
	cmd := &cobra.Command{
		Use:           "ppcc",
		Short:         "buffer pool and lock table of a transactional storage engine",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&gf.configPath, "config", "", "path to the YAML configuration file")
	cmd.PersistentFlags().StringVar(&gf.dataDir, "data-dir", "", "directory of data files (overrides data_dir of the configuration)")

	cmd.AddCommand(
		newBenchCmd(gf),
		newStatusCmd(gf),
		newVersionCmd(),
	)
	return cmd
}

// loadConfig loads the configuration and initializes the logger
func (gf *globalFlags) loadConfig() (*config.Config, error) {
	cfg := config.Default()
	if gf.configPath != "" {
		var err error
		cfg, err = config.Load(gf.fs, gf.configPath)
		if err != nil {
			return nil, errors.Wrap(err, "config.Load failed")
		}
	}
	if gf.dataDir != "" {
		cfg.DataDir = gf.dataDir
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid configuration")
	}
	if err := logging.Init(cfg.LoggingConfig()); err != nil {
		return nil, errors.Wrap(err, "logging.Init failed")
	}
	return cfg, nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Printf("ppcc %s\n", version)
		},
	}
}
