package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/chatrelay/chatrelay/internal/config"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show chatrelay status",
	RunE:  runStatus,
}

func runStatus(_ *cobra.Command, _ []string) error {
	cfgPath := rootConfigFile
	if cfgPath == "" {
		cfgPath = config.ConfigPath()
	}

	fmt.Println("chatrelay status")
	fmt.Println()

	_, statErr := os.Stat(cfgPath)
	cfgMark := "✗"
	if statErr == nil {
		cfgMark = "✓"
	}
	fmt.Printf("Config:  %s %s\n", cfgPath, cfgMark)

	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Printf("  (could not load config: %v)\n", err)
		return nil
	}

	fmt.Printf("Backend: %s\n", cfg.Server.BaseURL)
	fmt.Printf("Timeout: %s\n", cfg.Server.Timeout())
	if cfg.Redis.Enabled {
		fmt.Printf("Redis:   %s (db %d)\n", cfg.Redis.Addr, cfg.Redis.DB)
	} else {
		fmt.Println("Redis:   disabled")
	}

	fmt.Println()
	fmt.Println("Connections:")
	if len(cfg.Connections) == 0 {
		fmt.Println("  (none configured)")
		return nil
	}
	for i, c := range cfg.Connections {
		state := "enabled"
		if !c.Enabled() {
			state = "disabled"
		}
		extra := ""
		if c.PrefixID != "" {
			extra += fmt.Sprintf("  prefix=%s", c.PrefixID)
		}
		if len(c.ModelIDs) > 0 {
			extra += fmt.Sprintf("  %d pinned models", len(c.ModelIDs))
		}
		fmt.Printf("  %d. %-40s %s%s\n", i, c.BaseURL, state, extra)
	}
	return nil
}
