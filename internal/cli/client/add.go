package client

import (
	"bufio"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
)

// IndexChunkRequest represents the knowledge indexing API request.
type IndexChunkRequest struct {
	Category       string `json:"category,omitempty"`
	Subcategory    string `json:"subcategory,omitempty"`
	Content        string `json:"content"`
	Filename       string `json:"filename,omitempty"`
	Title          string `json:"title,omitempty"`
	Source         string `json:"source,omitempty"`
	FileType       string `json:"file_type,omitempty"`
	DocumentBase64 string `json:"document_base64,omitempty"`
	Split          bool   `json:"split,omitempty"`
}

// BatchResult represents a single result in a batch operation.
type BatchResult struct {
	ID     string `json:"id,omitempty"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
	Title  string `json:"title,omitempty"`
}

// BatchResponse represents the response for a batch operation.
type BatchResponse struct {
	Results   []BatchResult `json:"results"`
	Total     int           `json:"total"`
	Succeeded int           `json:"succeeded"`
	Failed    int           `json:"failed"`
}

// AddCmd creates the add command.
func AddCmd() *cobra.Command {
	var (
		file        string
		category    string
		subcategory string
		title       string
		source      string
		split       bool
		keepRaw     bool
		batch       bool
	)

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add knowledge from stdin or file",
		Long: `Add a knowledge chunk from text input (stdin or file).

Examples:
  # Add from stdin
  echo 'Composite decking starts at $45/sqft installed.' | deckhand add --category pricing

  # Add a document, splitting long content into chunks
  deckhand add --file warranty.md --category warranty --split

  # Archive the original file alongside the extracted text
  deckhand add --file datasheet.pdf.txt --keep-raw

  # Batch add from JSONL (one JSON object per line)
  cat chunks.jsonl | deckhand add --batch`,
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			assistantID, err := resolveAssistantID(cmd)
			if err != nil {
				return err
			}
			if batch {
				return runBatchAdd(assistantID, file, outputJSON)
			}
			return runAdd(assistantID, file, category, subcategory, title, source, split, keepRaw, outputJSON)
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "Input file (text or markdown)")
	cmd.Flags().StringVarP(&category, "category", "c", "", "Category for retrieval filtering")
	cmd.Flags().StringVar(&subcategory, "subcategory", "", "Subcategory for retrieval filtering")
	cmd.Flags().StringVar(&title, "title", "", "Title stored in chunk metadata")
	cmd.Flags().StringVar(&source, "source", "", "Source label used in citations")
	cmd.Flags().BoolVar(&split, "split", false, "Split long content into overlapping chunks")
	cmd.Flags().BoolVar(&keepRaw, "keep-raw", false, "Archive the original file in object storage")
	cmd.Flags().BoolVar(&batch, "batch", false, "Batch mode: read JSONL input, one chunk per line")
	cmd.Flags().String("assistant", "", "Assistant ID (defaults to the workspace assistant)")

	return cmd
}

func runAdd(assistantID, file, category, subcategory, title, source string, split, keepRaw, outputJSON bool) error {
	api, err := NewAPIClient()
	if err != nil {
		return err
	}

	var input []byte
	if file != "" {
		input, err = os.ReadFile(file)
		if err != nil {
			return fmt.Errorf("failed to read file: %w", err)
		}
	} else {
		input, err = io.ReadAll(os.Stdin)
		if err != nil {
			return fmt.Errorf("failed to read stdin: %w", err)
		}
	}

	if len(strings.TrimSpace(string(input))) == 0 {
		return fmt.Errorf("no input provided")
	}

	req := IndexChunkRequest{
		Category:    category,
		Subcategory: subcategory,
		Content:     string(input),
		Title:       title,
		Source:      source,
		Split:       split,
	}
	if file != "" {
		req.Filename = filepath.Base(file)
	}
	if keepRaw {
		if file == "" {
			return fmt.Errorf("--keep-raw requires --file")
		}
		req.DocumentBase64 = base64.StdEncoding.EncodeToString(input)
	}

	resp, err := api.Post("/assistants/"+assistantID+"/knowledge", req)
	if err != nil {
		return fmt.Errorf("failed to index knowledge: %w", err)
	}

	if split {
		var chunks []Chunk
		if err := json.Unmarshal(resp.Data, &chunks); err != nil {
			return fmt.Errorf("failed to parse response: %w", err)
		}
		if outputJSON {
			output, _ := json.MarshalIndent(chunks, "", "  ")
			fmt.Println(string(output))
		} else {
			fmt.Printf("Indexed %d chunks\n", len(chunks))
			for _, c := range chunks {
				fmt.Printf("  %s\n", c.ID)
			}
		}
		return nil
	}

	var chunk Chunk
	if err := json.Unmarshal(resp.Data, &chunk); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	if outputJSON {
		output, _ := json.MarshalIndent(chunk, "", "  ")
		fmt.Println(string(output))
	} else {
		fmt.Printf("Indexed chunk: %s\n", chunk.ID)
		if !chunk.HasEmbedding {
			fmt.Println("Embedding pending: the backfill worker will pick it up.")
		}
	}

	return nil
}

// runBatchAdd processes JSONL input line by line.
func runBatchAdd(assistantID, file string, outputJSON bool) error {
	api, err := NewAPIClient()
	if err != nil {
		return err
	}

	var reader io.Reader
	if file != "" {
		f, err := os.Open(file)
		if err != nil {
			return fmt.Errorf("failed to open file: %w", err)
		}
		defer f.Close()
		reader = f
	} else {
		reader = os.Stdin
	}

	scanner := bufio.NewScanner(reader)
	const maxScanTokenSize = 5 * 1024 * 1024
	buf := make([]byte, maxScanTokenSize)
	scanner.Buffer(buf, maxScanTokenSize)

	response := BatchResponse{
		Results: make([]BatchResult, 0),
	}

	lineNum := 0
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		lineNum++
		response.Total++

		var item IndexChunkRequest
		if err := json.Unmarshal([]byte(line), &item); err != nil {
			response.Results = append(response.Results, BatchResult{
				Status: "failed",
				Error:  fmt.Sprintf("line %d: failed to parse JSON: %v", lineNum, err),
			})
			response.Failed++
			if !outputJSON {
				fmt.Fprintf(os.Stderr, "Line %d: parse error: %v\n", lineNum, err)
			}
			continue
		}

		if item.Content == "" {
			response.Results = append(response.Results, BatchResult{
				Status: "failed",
				Error:  "content is required",
				Title:  item.Title,
			})
			response.Failed++
			if !outputJSON {
				fmt.Fprintf(os.Stderr, "Line %d: content is required\n", lineNum)
			}
			continue
		}

		resp, err := api.Post("/assistants/"+assistantID+"/knowledge", item)
		if err != nil {
			response.Results = append(response.Results, BatchResult{
				Status: "failed",
				Error:  err.Error(),
				Title:  item.Title,
			})
			response.Failed++
			if !outputJSON {
				fmt.Fprintf(os.Stderr, "Line %d: %v\n", lineNum, err)
			}
			continue
		}

		var chunk Chunk
		if err := json.Unmarshal(resp.Data, &chunk); err != nil {
			response.Results = append(response.Results, BatchResult{
				Status: "failed",
				Error:  fmt.Sprintf("failed to parse response: %v", err),
				Title:  item.Title,
			})
			response.Failed++
			continue
		}

		response.Results = append(response.Results, BatchResult{
			ID:     chunk.ID,
			Status: "created",
			Title:  item.Title,
		})
		response.Succeeded++

		if !outputJSON {
			fmt.Printf("Indexed: %s\n", chunk.ID)
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("error reading input: %w", err)
	}

	if response.Total == 0 {
		return fmt.Errorf("no items provided")
	}

	if outputJSON {
		output, _ := json.MarshalIndent(response, "", "  ")
		fmt.Println(string(output))
	} else {
		fmt.Printf("\nBatch complete: %d succeeded, %d failed out of %d total\n",
			response.Succeeded, response.Failed, response.Total)
	}

	if response.Failed > 0 {
		return fmt.Errorf("batch completed with %d failures", response.Failed)
	}

	return nil
}
