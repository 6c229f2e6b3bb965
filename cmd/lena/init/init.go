// Package initcmder provides the init command for initializing a local .lena
// directory in the current working directory.
package initcmder

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sheeehy/lena/pkg/cliui"
	"github.com/sheeehy/lena/pkg/config"
)

const (
	dirName = ".lena"
)

const initLongDesc string = `Initialize a new .lena/ directory in the current working directory.

Creates a local .lena/ directory that takes precedence over the default
~/.lena/ directory for configuration, the SQLite database, stored images
and the saved timeline position.

Use --preset to write a starting config.toml:
  local      SQLite database and images on disk (default)
  supabase   Supabase table and storage bucket
  remote     A running "lena serve" API

Use --birth-date to set the earliest date a memory may have.

Examples:
  lena init
  lena init --preset supabase
  lena init --birth-date 1995-07-20`

const initShortDesc string = "Initialize a local .lena/ directory"

type initCommander struct {
	preset    string
	birthDate string
}

func NewInitCmd() *cobra.Command {
	cmder := &initCommander{}

	cmd := &cobra.Command{
		Use:   "init",
		Short: initShortDesc,
		Long:  initLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return cmder.run()
		},
	}

	cmd.Flags().StringVar(&cmder.preset, "preset", "", "Config preset ("+strings.Join(config.ValidPresetNames(), ", ")+")")
	cmd.Flags().StringVar(&cmder.birthDate, "birth-date", "", "Earliest accepted memory date (YYYY-MM-DD)")

	return cmd
}

func (c *initCommander) run() error {
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("getting current directory: %w", err)
	}

	dir := filepath.Join(cwd, dirName)

	info, err := os.Stat(dir)
	exists := err == nil && info.IsDir()
	if exists && c.preset == "" && c.birthDate == "" {
		fmt.Printf("Already initialized: %s\n", dir)
		return nil
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating .lena directory: %w", err)
	}

	if c.preset != "" || c.birthDate != "" {
		if err := c.writeConfig(dir); err != nil {
			return err
		}
	}

	if exists {
		fmt.Printf("Updated .lena directory: %s\n", dir)
	} else {
		fmt.Printf("Initialized .lena directory: %s\n", dir)
	}
	return nil
}

func (c *initCommander) writeConfig(dir string) error {
	cfger, err := config.NewConfiger(dir)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	cfg, err := cfger.LoadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if c.preset != "" {
		cfg, err = config.PresetConfig(c.preset)
		if err != nil {
			return err
		}
	}
	if err := cfger.SaveConfig(cfg); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}

	if c.birthDate != "" {
		if err := cfger.SetConfigValue("profile.birth_date", c.birthDate); err != nil {
			return err
		}
	}

	fmt.Printf("  %s Wrote %s\n", cliui.SuccessMark, cliui.DimStyle.Render(cfger.GetTarget()))
	return nil
}
