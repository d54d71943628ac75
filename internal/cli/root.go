// Package cli implements the engram CLI commands.
package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/rcliao/engram/internal/config"
	"github.com/rcliao/engram/internal/store"
)

const (
	engramDirName = ".engram"
	dbName        = "events.db"
)

var (
	projectFlag string
	formatFlag  string
)

// RootCmd is the top-level command.
var RootCmd = &cobra.Command{
	Use:   "engram",
	Short: "Project memory for AI coding agents",
	Long:  "Engram records discoveries, decisions, warnings, and file changes made by AI coding agents, and reconstitutes them into token-efficient briefings for new sessions. SQLite-backed, single binary.",
}

func init() {
	RootCmd.PersistentFlags().StringVarP(&projectFlag, "project", "p", ".", "Project directory")
	RootCmd.PersistentFlags().StringVarP(&formatFlag, "format", "f", "compact", "Output format: compact or json")
}

func projectDir() string {
	abs, err := filepath.Abs(projectFlag)
	if err != nil {
		exitErr("resolve project dir", err)
	}
	return abs
}

func engramDir() string {
	return filepath.Join(projectDir(), engramDirName)
}

func dbPath() string {
	return filepath.Join(engramDir(), dbName)
}

// openStore opens an already-initialized project store.
func openStore() *store.SQLiteStore {
	s, err := store.Open(dbPath())
	if err != nil {
		exitErr("open store", err)
	}
	return s
}

func loadConfig() config.Config {
	cfg, err := config.Load(projectDir())
	if err != nil {
		exitErr("load config", err)
	}
	return cfg
}

// agentID resolves the acting agent: flag value, then config/env, then "cli".
func agentID(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	return loadConfig().AgentID
}

func exitErr(msg string, err error) {
	fmt.Fprintf(os.Stderr, "error: %s: %v\n", msg, err)
	os.Exit(1)
}

func nowISO() string {
	return time.Now().UTC().Format(time.RFC3339)
}

func projectNameFromDir(dir string) string {
	return filepath.Base(dir)
}
