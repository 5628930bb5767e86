package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/chatrelay/chatrelay/internal/dependency"
	"github.com/chatrelay/chatrelay/internal/shared/cmdutils"
	"github.com/chatrelay/chatrelay/internal/tasks"
	"github.com/chatrelay/chatrelay/internal/tracker"
)

var (
	taskModel    string
	taskPrompt   string
	taskMessages []string
	taskChat     string
)

var taskCmd = &cobra.Command{
	Use:       "task <kind>",
	Short:     "Run one structured task against the backend",
	ValidArgs: []string{"title", "follow-ups", "tags", "queries", "auto", "emoji"},
	Args:      cobra.ExactValidArgs(1),
	RunE:      runTask,
}

func init() {
	taskCmd.Flags().StringVarP(&taskModel, "model", "m", "", "Model id (required)")
	taskCmd.Flags().StringVarP(&taskPrompt, "prompt", "p", "", "Prompt text")
	taskCmd.Flags().StringArrayVar(&taskMessages, "message", nil, `Chat message as "role:content" (repeatable)`)
	taskCmd.Flags().StringVar(&taskChat, "chat", "cli", "Chat id sent with the request")

	_ = taskCmd.MarkFlagRequired("model")
}

func runTask(_ *cobra.Command, args []string) error {
	kind := args[0]

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	container, err := dependency.New(cfg)
	if err != nil {
		return err
	}

	messages, err := parseMessages()
	if err != nil {
		return err
	}

	runs := container.Tracker()
	defer runs.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// The call runs as a tracked task so Ctrl-C aborts the in-flight
	// request through the tracker instead of killing the process.
	var result any
	var runErr error
	done := make(chan struct{})
	id := runs.Launch(ctx, taskChat, func(runCtx context.Context) {
		defer close(done)
		result, runErr = runTaskKind(runCtx, container.TaskClient(), kind, effectiveToken(cfg), messages)
	})

	stopOnSignal(runs, id, done)
	<-done

	if runErr != nil {
		return runErr
	}
	printTaskResult(result)
	return nil
}

func runTaskKind(ctx context.Context, c *tasks.Client, kind, token string, messages []tasks.Message) (any, error) {
	switch kind {
	case "title":
		return c.Title(ctx, token, taskModel, messages, taskChat)
	case "follow-ups":
		return c.FollowUps(ctx, token, taskModel, messages, taskChat)
	case "tags":
		return c.Tags(ctx, token, taskModel, messages, taskChat)
	case "queries":
		return c.Queries(ctx, token, taskModel, messages, taskPrompt)
	case "auto":
		return c.AutoComplete(ctx, token, taskModel, taskPrompt, messages)
	case "emoji":
		return c.Emoji(ctx, token, taskModel, taskPrompt, taskChat)
	default:
		return nil, fmt.Errorf("unknown task kind %q", kind)
	}
}

// parseMessages turns the repeated --message flags into chat messages,
// falling back to a single user message built from --prompt.
func parseMessages() ([]tasks.Message, error) {
	if len(taskMessages) == 0 {
		if taskPrompt == "" {
			return nil, nil
		}
		return []tasks.Message{{Role: "user", Content: taskPrompt}}, nil
	}

	messages := make([]tasks.Message, 0, len(taskMessages))
	for _, raw := range taskMessages {
		role, content, ok := strings.Cut(raw, ":")
		if !ok {
			return nil, fmt.Errorf("invalid --message %q (want \"role:content\")", raw)
		}
		messages = append(messages, tasks.Message{Role: role, Content: content})
	}
	return messages, nil
}

// stopOnSignal stops the tracked run on SIGINT or SIGTERM.
func stopOnSignal(runs tracker.Tracker, id string, done <-chan struct{}) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		defer signal.Stop(sigChan)
		select {
		case <-sigChan:
			fmt.Fprintln(os.Stderr, "\nStopping...")
			runs.Stop(id)
		case <-done:
		}
	}()
}

func printTaskResult(result any) {
	switch v := result.(type) {
	case []string:
		cmdutils.PrintLines(v)
	default:
		fmt.Println(v)
	}
}
