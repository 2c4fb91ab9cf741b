package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mbeltran/armlex/internal/config"
)

var configForce bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the station file",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the default station file",
	Long: `Config init writes the built-in IRB 120 + 2F-85 defaults to the
per-user config path (or to --config) as a starting point for editing.
An existing file is left alone unless --force is given.`,
	Args: cobra.NoArgs,
	RunE: runConfigInit,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)

	configInitCmd.Flags().BoolVar(&configForce, "force", false,
		"Overwrite an existing file")
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	path := configPath
	if path == "" {
		path = config.DefaultPath()
	}
	if !configForce {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		}
	}
	if err := config.Write(path, config.Default()); err != nil {
		return err
	}
	fmt.Printf("wrote %s\n", path)
	return nil
}
