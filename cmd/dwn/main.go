package main

import (
	"fmt"
	"os"

	"github.com/cuemby/dwn/pkg/config"
	"github.com/cuemby/dwn/pkg/log"
	"github.com/spf13/cobra"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "dwn",
	Short: "dwn - a personal Decentralized Web Node",
	Long: `dwn runs a personal Decentralized Web Node: a single-tenant message
and record store an owner's devices and authorized grantees read and
write through, addressed by content and governed by protocol
definitions and permission grants.`,
	Version: Version,
}

var (
	// Version information (set via ldflags during build)
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"dwn version %s\nCommit: %s\nBuilt: %s\n",
		Version, Commit, BuildTime,
	))

	rootCmd.PersistentFlags().String("data-dir", "./dwn-data", "Data directory for bolt-backed stores")
	rootCmd.PersistentFlags().String("owner", "", "Owner DID this command acts as")
	rootCmd.PersistentFlags().String("config", "", "Path to a YAML config file")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("log-json", false, "Output logs in JSON format")

	cobra.OnInitialize(initLogging)

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(submitCmd)
	rootCmd.AddCommand(eventsCmd)
	rootCmd.AddCommand(protocolCmd)
}

func initLogging() {
	logLevel, _ := rootCmd.PersistentFlags().GetString("log-level")
	logJSON, _ := rootCmd.PersistentFlags().GetBool("log-json")

	log.Init(log.Config{
		Level:      log.Level(logLevel),
		JSONOutput: logJSON,
	})
}

// loadConfig builds a config.Config from the --config file (if any),
// then applies the --data-dir/--owner persistent flag overrides on top.
func loadConfig() (config.Config, error) {
	configPath, _ := rootCmd.PersistentFlags().GetString("config")
	cfg, err := config.Load(configPath)
	if err != nil {
		return cfg, err
	}

	if rootCmd.PersistentFlags().Changed("data-dir") {
		cfg.DataDir, _ = rootCmd.PersistentFlags().GetString("data-dir")
	}
	if owner, _ := rootCmd.PersistentFlags().GetString("owner"); owner != "" {
		cfg.DefaultOwner = owner
	}
	if cfg.DataDir == "" {
		cfg.DataDir = "./dwn-data"
	}
	return cfg, nil
}

// ownerOf returns --owner if set, else cfg.DefaultOwner, erroring if
// neither names an owner.
func ownerOf(cfg config.Config) (string, error) {
	if owner, _ := rootCmd.PersistentFlags().GetString("owner"); owner != "" {
		return owner, nil
	}
	if cfg.DefaultOwner != "" {
		return cfg.DefaultOwner, nil
	}
	return "", fmt.Errorf("an owner DID is required: pass --owner or set defaultOwner in --config")
}
