package cmd

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/chatrelay/chatrelay/internal/catalog"
	"github.com/chatrelay/chatrelay/internal/dependency"
	"github.com/chatrelay/chatrelay/internal/shared/cmdutils"
)

var (
	modelsBase bool
	modelsJSON bool
)

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List models from the backend and configured connections",
	RunE:  runModels,
}

func init() {
	modelsCmd.Flags().BoolVar(&modelsBase, "base", false, "Only the backend's base models")
	modelsCmd.Flags().BoolVar(&modelsJSON, "json", false, "Print the catalog as JSON")

	modelsCmd.AddCommand(modelsVerifyCmd)
}

func runModels(_ *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	container, err := dependency.New(cfg)
	if err != nil {
		return err
	}

	models, err := container.CatalogBuilder().Build(
		context.Background(), effectiveToken(cfg), container.Connections(), modelsBase)
	if err != nil {
		return err
	}

	if modelsJSON {
		cmdutils.PrintJSON(models)
		return nil
	}
	if len(models) == 0 {
		fmt.Println("No models.")
		return nil
	}

	fmt.Printf("%-40s %-30s %s\n", "ID", "Name", "Source")
	for _, m := range models {
		fmt.Printf("%-40s %-30s %s\n", m.ID, m.Name, modelSource(m))
	}
	return nil
}

func modelSource(m catalog.Model) string {
	if !m.Direct {
		return "base"
	}
	if m.ConnectionIndex != nil {
		return fmt.Sprintf("connection %d", *m.ConnectionIndex)
	}
	return "direct"
}

// ---- verify ----------------------------------------------------------------

var modelsVerifyCmd = &cobra.Command{
	Use:   "verify <index>",
	Short: "Probe one configured connection",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		index, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid connection index %q", args[0])
		}

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		container, err := dependency.New(cfg)
		if err != nil {
			return err
		}

		conns := container.Connections()
		if index < 0 || index >= len(conns) {
			return fmt.Errorf("connection index %d out of range (%d configured)", index, len(conns))
		}

		if err := container.CatalogBuilder().Verify(context.Background(), conns[index]); err != nil {
			return err
		}
		fmt.Printf("✓ Connection %d (%s) responded\n", index, conns[index].BaseURL)
		return nil
	},
}
