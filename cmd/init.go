package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/chatrelay/chatrelay/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a starter config file",
	RunE:  runInit,
}

func runInit(_ *cobra.Command, _ []string) error {
	cfgPath := rootConfigFile
	if cfgPath == "" {
		cfgPath = config.ConfigPath()
	}

	if _, err := os.Stat(cfgPath); err == nil {
		return fmt.Errorf("config already exists at %s", cfgPath)
	}

	cfg := config.DefaultConfig()
	if err := config.Save(&cfg, cfgPath); err != nil {
		return err
	}
	fmt.Printf("✓ Created config at %s\n", cfgPath)

	fmt.Println("\nNext steps:")
	fmt.Printf("  1. Set your backend URL and token in %s\n", cfgPath)
	fmt.Println("  2. Check the setup: chatrelay status")
	fmt.Println("  3. List models: chatrelay models")
	return nil
}
