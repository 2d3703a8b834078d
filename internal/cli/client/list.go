package client

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

// Chunk represents a knowledge chunk as returned by the API.
type Chunk struct {
	ID           string            `json:"id"`
	AssistantID  string            `json:"assistant_id"`
	Category     string            `json:"category,omitempty"`
	Subcategory  string            `json:"subcategory,omitempty"`
	Content      string            `json:"content"`
	Metadata     map[string]string `json:"metadata,omitempty"`
	HasEmbedding bool              `json:"has_embedding"`
	CreatedAt    string            `json:"created_at,omitempty"`
}

// ChunkListResponse represents the paginated list API response.
type ChunkListResponse struct {
	Items   []Chunk `json:"items"`
	Cursor  string  `json:"cursor,omitempty"`
	HasMore bool    `json:"has_more"`
}

// resolveAssistantID returns the assistant ID from the --assistant flag,
// falling back to the workspace config written by deckhand init.
func resolveAssistantID(cmd *cobra.Command) (string, error) {
	if flag := cmd.Flags().Lookup("assistant"); flag != nil && flag.Value.String() != "" {
		return flag.Value.String(), nil
	}
	cfg, err := LoadConfig()
	if err != nil || cfg.AssistantID == "" {
		return "", fmt.Errorf("no assistant configured: run 'deckhand init' or pass --assistant")
	}
	return cfg.AssistantID, nil
}

// ListCmd creates the list command.
func ListCmd() *cobra.Command {
	var (
		limit  int
		cursor string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List knowledge chunks",
		Long:  "Lists knowledge chunks for the workspace assistant with cursor pagination.",
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			assistantID, err := resolveAssistantID(cmd)
			if err != nil {
				return err
			}
			return runList(assistantID, limit, cursor, outputJSON)
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum chunks per page")
	cmd.Flags().StringVar(&cursor, "cursor", "", "Pagination cursor from a previous page")
	cmd.Flags().String("assistant", "", "Assistant ID (defaults to the workspace assistant)")

	return cmd
}

func runList(assistantID string, limit int, cursor string, outputJSON bool) error {
	api, err := NewAPIClient()
	if err != nil {
		return err
	}

	query := url.Values{}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}
	if cursor != "" {
		query.Set("cursor", cursor)
	}

	path := "/assistants/" + assistantID + "/knowledge"
	if len(query) > 0 {
		path += "?" + query.Encode()
	}

	resp, err := api.Get(path)
	if err != nil {
		return fmt.Errorf("failed to list knowledge: %w", err)
	}

	var list ChunkListResponse
	if err := json.Unmarshal(resp.Data, &list); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	if outputJSON {
		output, _ := json.MarshalIndent(list, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	if len(list.Items) == 0 {
		fmt.Println("No knowledge chunks found.")
		return nil
	}

	for _, c := range list.Items {
		embedded := " "
		if c.HasEmbedding {
			embedded = "*"
		}
		label := c.Category
		if c.Subcategory != "" {
			label = c.Category + "/" + c.Subcategory
		}
		if label == "" {
			label = "-"
		}
		fmt.Printf("%s %s  %-24s  %s\n", embedded, c.ID, label, previewContent(c.Content))
	}

	fmt.Printf("\n%d chunks", len(list.Items))
	if list.HasMore {
		fmt.Printf(" (more available, next cursor: %s)", list.Cursor)
	}
	fmt.Println()

	return nil
}

// previewContent collapses whitespace and truncates for single-line display.
func previewContent(content string) string {
	collapsed := strings.Join(strings.Fields(content), " ")
	if len(collapsed) > 72 {
		return collapsed[:69] + "..."
	}
	return collapsed
}
