package client

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
)

// DocumentURLResponse represents the archived document URL response.
type DocumentURLResponse struct {
	URL string `json:"url"`
}

// GetCmd creates the get command.
func GetCmd() *cobra.Command {
	var download string

	cmd := &cobra.Command{
		Use:     "get <chunk_id>",
		Short:   "Get a knowledge chunk by ID",
		Long:    "Retrieves a knowledge chunk by its ID and displays the full content.",
		Aliases: []string{"view"},
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runGet(args[0], download, outputJSON)
		},
	}

	cmd.Flags().StringVar(&download, "download", "", "Download the archived source document to the given directory")

	return cmd
}

func runGet(chunkID, download string, outputJSON bool) error {
	api, err := NewAPIClient()
	if err != nil {
		return err
	}

	resp, err := api.Get("/knowledge/" + chunkID)
	if err != nil {
		return fmt.Errorf("failed to get chunk: %w", err)
	}

	var chunk Chunk
	if err := json.Unmarshal(resp.Data, &chunk); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	if download != "" {
		return runDownload(api, chunk, download)
	}

	if outputJSON {
		output, _ := json.MarshalIndent(chunk, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	fmt.Printf("ID:        %s\n", chunk.ID)
	fmt.Printf("Assistant: %s\n", chunk.AssistantID)
	if chunk.Category != "" {
		fmt.Printf("Category:  %s\n", chunk.Category)
	}
	if chunk.Subcategory != "" {
		fmt.Printf("Subcat:    %s\n", chunk.Subcategory)
	}
	for key, value := range chunk.Metadata {
		fmt.Printf("%-10s %s\n", key+":", value)
	}
	fmt.Printf("Embedded:  %v\n", chunk.HasEmbedding)
	if chunk.CreatedAt != "" {
		fmt.Printf("Created:   %s\n", chunk.CreatedAt)
	}
	fmt.Printf("\n%s\n", chunk.Content)

	return nil
}

func runDownload(api *APIClient, chunk Chunk, dir string) error {
	filename := chunk.Metadata["filename"]
	if filename == "" {
		return fmt.Errorf("chunk has no archived document")
	}

	resp, err := api.Get("/knowledge/" + chunk.ID + "/document")
	if err != nil {
		return fmt.Errorf("failed to get document URL: %w", err)
	}

	var doc DocumentURLResponse
	if err := json.Unmarshal(resp.Data, &doc); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	dest := filepath.Join(dir, filename)
	fmt.Printf("Downloading %s...\n", filename)
	if err := api.DownloadFileWithProgress(doc.URL, dest, terminalProgress(filename)); err != nil {
		return fmt.Errorf("download failed: %w", err)
	}
	fmt.Printf("Saved to %s\n", dest)

	return nil
}

// terminalProgress returns a ProgressFunc printing transfer progress.
func terminalProgress(label string) ProgressFunc {
	return func(transferred, total int64) {
		if total > 0 {
			fmt.Printf("\r%s: %d%% (%d/%d bytes)", label, transferred*100/total, transferred, total)
		} else {
			fmt.Printf("\r%s: %d bytes", label, transferred)
		}
		if total > 0 && transferred >= total {
			fmt.Println()
		}
	}
}
