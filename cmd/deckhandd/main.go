package main

import (
	"fmt"
	"os"

	"github.com/legacy-decks/deckhand/internal/cli"
	"github.com/legacy-decks/deckhand/internal/cli/admin"
	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "deckhandd",
		Short: "Deckhand daemon and admin CLI",
		Long:  "Deckhand daemon for running the API server and managing assistants",
	}

	cli.AddHelpJSONFlag(rootCmd)
	rootCmd.AddCommand(admin.ServeCmd())
	rootCmd.AddCommand(admin.AssistantCmd())

	if len(os.Args) == 1 {
		os.Args = append(os.Args, "serve")
	}

	cli.CheckHelpJSON(rootCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
