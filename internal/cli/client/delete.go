package client

import (
	"fmt"

	"github.com/spf13/cobra"
)

// DeleteCmd creates the delete command.
func DeleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <chunk_id>",
		Short: "Delete a knowledge chunk",
		Long: `Deletes a knowledge chunk by ID.

If the chunk has an archived source document, the archive copy is
removed as well.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDelete(args[0])
		},
	}

	return cmd
}

func runDelete(chunkID string) error {
	api, err := NewAPIClient()
	if err != nil {
		return err
	}

	if _, err := api.Delete("/knowledge/" + chunkID); err != nil {
		return fmt.Errorf("failed to delete chunk: %w", err)
	}

	fmt.Printf("Deleted chunk: %s\n", chunkID)
	return nil
}
