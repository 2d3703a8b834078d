package client

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

// ChatMessage represents a single message in the chat API request.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatAPIRequest represents the chat API request.
type ChatAPIRequest struct {
	Messages []ChatMessage `json:"messages"`
}

// AskCmd creates the ask command.
func AskCmd() *cobra.Command {
	var showOutcome bool

	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Ask the assistant a question",
		Long: `Asks the assistant a question and streams the answer to stdout.

The assistant retrieves relevant knowledge before answering, so
responses are grounded in whatever has been indexed with 'deckhand add'.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			assistantID, err := resolveAssistantID(cmd)
			if err != nil {
				return err
			}
			question := strings.Join(args, " ")
			return runAsk(assistantID, question, showOutcome)
		},
	}

	cmd.Flags().BoolVar(&showOutcome, "show-outcome", false, "Print retrieval outcome and strategy after the answer")
	cmd.Flags().String("assistant", "", "Assistant ID (defaults to the workspace assistant)")

	return cmd
}

func runAsk(assistantID, question string, showOutcome bool) error {
	api, err := NewAPIClient()
	if err != nil {
		return err
	}

	req := ChatAPIRequest{
		Messages: []ChatMessage{{Role: "user", Content: question}},
	}

	stream, headers, err := api.PostStream("/assistants/"+assistantID+"/chat", req)
	if err != nil {
		return fmt.Errorf("chat request failed: %w", err)
	}
	defer stream.Close()

	if _, err := io.Copy(os.Stdout, stream); err != nil {
		return fmt.Errorf("stream interrupted: %w", err)
	}
	fmt.Println()

	if showOutcome {
		fmt.Fprintf(os.Stderr, "\noutcome: %s, strategy: %s\n",
			headers.Get("X-Knowledge-Outcome"), headers.Get("X-Search-Strategy"))
	}

	return nil
}
