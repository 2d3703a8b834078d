package client

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// SearchRequest represents the search API request.
type SearchRequest struct {
	Query       string `json:"query"`
	Category    string `json:"category,omitempty"`
	Subcategory string `json:"subcategory,omitempty"`
}

// SearchResult represents a search result.
type SearchResult struct {
	Content     string `json:"content"`
	Similarity  int    `json:"similarity"`
	Source      string `json:"source,omitempty"`
	Category    string `json:"category,omitempty"`
	Subcategory string `json:"subcategory,omitempty"`
}

// SearchResponse represents the search API response.
type SearchResponse struct {
	Results  []SearchResult `json:"results"`
	Strategy string         `json:"strategy"`
}

// SearchCmd creates the search command.
func SearchCmd() *cobra.Command {
	var (
		category    string
		subcategory string
	)

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search the assistant's knowledge base",
		Long: `Searches the assistant's knowledge base.

Uses vector similarity when embeddings are available and falls back
to keyword ranking otherwise.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			assistantID, err := resolveAssistantID(cmd)
			if err != nil {
				return err
			}
			query := strings.Join(args, " ")
			return runSearch(assistantID, query, category, subcategory, outputJSON)
		},
	}

	cmd.Flags().StringVarP(&category, "category", "c", "", "Restrict results to a category")
	cmd.Flags().StringVar(&subcategory, "subcategory", "", "Restrict results to a subcategory")
	cmd.Flags().String("assistant", "", "Assistant ID (defaults to the workspace assistant)")

	return cmd
}

func runSearch(assistantID, query, category, subcategory string, outputJSON bool) error {
	api, err := NewAPIClient()
	if err != nil {
		return err
	}

	req := SearchRequest{
		Query:       query,
		Category:    category,
		Subcategory: subcategory,
	}

	resp, err := api.Post("/assistants/"+assistantID+"/search", req)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	var searchResp SearchResponse
	if err := json.Unmarshal(resp.Data, &searchResp); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	if outputJSON {
		output, _ := json.MarshalIndent(searchResp, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	if len(searchResp.Results) == 0 {
		fmt.Println("No results found.")
		return nil
	}

	fmt.Printf("Found %d results (%s):\n\n", len(searchResp.Results), searchResp.Strategy)
	for i, r := range searchResp.Results {
		fmt.Printf("%d. [%d%%]", i+1, r.Similarity)
		if r.Source != "" {
			fmt.Printf(" %s", r.Source)
		}
		if r.Category != "" {
			fmt.Printf(" (%s", r.Category)
			if r.Subcategory != "" {
				fmt.Printf("/%s", r.Subcategory)
			}
			fmt.Print(")")
		}
		fmt.Println()
		fmt.Printf("   %s\n\n", previewContent(r.Content))
	}

	return nil
}
