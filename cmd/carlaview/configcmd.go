package main

import (
	"fmt"
	"os"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/vovakirdan/carlaview/internal/config"
)

var configForce bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration",
	Long: `Print the configuration carlaview would use, after the search path
and command line overrides, as YAML.

Examples:
  carlaview config
  carlaview config init`,
	Args: cobra.NoArgs,
	RunE: runConfig,
}

var configInitCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Write the default configuration",
	Long: `Write the default configuration to path, or to
~/.carlaview/carlaview.yaml when no path is given.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runConfigInit,
}

func init() {
	configInitCmd.Flags().BoolVar(&configForce, "force", false, "Overwrite an existing file")
	configCmd.AddCommand(configInitCmd)
}

func runConfig(cmd *cobra.Command, _ []string) error {
	loader := config.NewLoader()
	cfg, source, err := loader.Load(flagConfig)
	if err != nil {
		return err
	}
	applyOverrides(cmd, &cfg)
	data, err := config.Marshal(cfg)
	if err != nil {
		return err
	}
	fmt.Printf("# source: %s\n", source)
	_, err = os.Stdout.Write(data)
	return err
}

func runConfigInit(_ *cobra.Command, args []string) error {
	loader := config.NewLoader()
	path := loader.UserPath(config.FileName)
	if len(args) == 1 {
		path = args[0]
	}
	if path == "" {
		return fmt.Errorf("cannot determine home directory, pass a path")
	}
	if exists, _ := afero.Exists(loader.Fs, path); exists && !configForce {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	}
	if err := loader.Save(path, config.Default()); err != nil {
		return err
	}
	fmt.Printf("Wrote %s\n", path)
	return nil
}
