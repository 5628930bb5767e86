package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/chatrelay/chatrelay/internal/dependency"
	"github.com/chatrelay/chatrelay/internal/shared/cmdutils"
)

var toolCmd = &cobra.Command{
	Use:   "tool",
	Short: "Inspect and call OpenAPI tool servers",
}

func init() {
	toolCmd.AddCommand(toolOpsCmd)
	toolCmd.AddCommand(toolCallCmd)
}

// ---- ops -------------------------------------------------------------------

var (
	toolOpsURL  string
	toolOpsDefs bool
)

var toolOpsCmd = &cobra.Command{
	Use:   "ops",
	Short: "List the operations a tool server exposes",
	RunE: func(_ *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		container, err := dependency.New(cfg)
		if err != nil {
			return err
		}

		bundle, err := container.ToolClient().Resolve(context.Background(), toolOpsURL, effectiveToken(cfg))
		if err != nil {
			return err
		}

		if toolOpsDefs {
			cmdutils.PrintJSON(bundle.Definitions())
			return nil
		}

		if bundle.Info.Title != "" {
			fmt.Printf("%s %s\n\n", bundle.Info.Title, bundle.Info.Version)
		}
		if len(bundle.Operations) == 0 {
			fmt.Println("No operations.")
			return nil
		}

		names := make([]string, 0, len(bundle.Operations))
		for name := range bundle.Operations {
			names = append(names, name)
		}
		sort.Strings(names)

		fmt.Printf("%-30s %-7s %s\n", "Operation", "Method", "Path")
		for _, name := range names {
			op := bundle.Operations[name]
			fmt.Printf("%-30s %-7s %s\n", name, op.Method, op.Path)
		}
		return nil
	},
}

func init() {
	toolOpsCmd.Flags().StringVarP(&toolOpsURL, "url", "u", "", "Tool server document URL (required)")
	toolOpsCmd.Flags().BoolVar(&toolOpsDefs, "defs", false, "Print function-calling tool definitions instead")
	_ = toolOpsCmd.MarkFlagRequired("url")
}

// ---- call ------------------------------------------------------------------

var (
	toolCallURL      string
	toolCallOp       string
	toolCallArgs     []string
	toolCallArgsJSON string
)

var toolCallCmd = &cobra.Command{
	Use:   "call",
	Short: "Invoke one operation on a tool server",
	RunE:  runToolCall,
}

func init() {
	toolCallCmd.Flags().StringVarP(&toolCallURL, "url", "u", "", "Tool server document URL (required)")
	toolCallCmd.Flags().StringVar(&toolCallOp, "op", "", "Operation id to invoke (required)")
	toolCallCmd.Flags().StringArrayVar(&toolCallArgs, "arg", nil, "Argument as key=value (repeatable)")
	toolCallCmd.Flags().StringVar(&toolCallArgsJSON, "args-json", "", "Arguments as a JSON object")

	_ = toolCallCmd.MarkFlagRequired("url")
	_ = toolCallCmd.MarkFlagRequired("op")
}

func runToolCall(_ *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	container, err := dependency.New(cfg)
	if err != nil {
		return err
	}

	args, err := parseToolArgs()
	if err != nil {
		return err
	}

	token := effectiveToken(cfg)
	bundle, err := container.ToolClient().Resolve(context.Background(), toolCallURL, token)
	if err != nil {
		return err
	}

	result := container.ToolClient().Invoke(context.Background(), bundle, toolCallOp, args, token)
	cmdutils.PrintJSON(result)
	return nil
}

// parseToolArgs merges --args-json with the repeated --arg pairs; --arg wins
// on key collisions. Values given via --arg stay strings.
func parseToolArgs() (map[string]any, error) {
	args := map[string]any{}
	if toolCallArgsJSON != "" {
		if err := json.Unmarshal([]byte(toolCallArgsJSON), &args); err != nil {
			return nil, fmt.Errorf("invalid --args-json: %w", err)
		}
	}
	for _, pair := range toolCallArgs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, fmt.Errorf("invalid --arg %q (want key=value)", pair)
		}
		args[key] = value
	}
	return args, nil
}
