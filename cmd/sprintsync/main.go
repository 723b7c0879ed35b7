// Package main implements the sprintsync terminal client.
package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/nhle/sprintsync/internal/app"
	"github.com/nhle/sprintsync/internal/model"
)

// commandTimeout bounds a single non-interactive command.
const commandTimeout = 30 * time.Second

var configPath string

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:          "sprintsync",
	Short:        "SprintSync - a terminal client for your task board",
	Long:         "Run without a subcommand to open the interactive list and board views.",
	Args:         cobra.NoArgs,
	SilenceUsage: true,
	RunE:         runTUI,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", model.DefaultConfigPath(), "Path to the config file")
}

func loadConfig() (*model.AppConfig, error) {
	cfg, err := model.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return cfg, nil
}

// openRuntime loads the config and opens the shared runtime.
func openRuntime() (*app.Runtime, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	rt, err := app.Open(cfg)
	if err != nil {
		return nil, err
	}
	rt.ConfigPath = configPath
	return rt, nil
}

func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return context.WithTimeout(cmd.Context(), commandTimeout)
}

func runTUI(cmd *cobra.Command, args []string) error {
	// Log lines would corrupt the alternate screen.
	if os.Getenv("SPRINTSYNC_DEBUG") != "" {
		f, err := tea.LogToFile(filepath.Join(model.ConfigDir(), "debug.log"), "sprintsync")
		if err != nil {
			return fmt.Errorf("opening debug log: %w", err)
		}
		defer f.Close()
	} else {
		log.SetOutput(io.Discard)
	}

	rt, err := openRuntime()
	if err != nil {
		return err
	}
	defer rt.Close()

	p := tea.NewProgram(app.New(rt), tea.WithAltScreen(), tea.WithMouseCellMotion())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("running TUI: %w", err)
	}
	return nil
}
