package client

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

const (
	deckhandDir = ".deckhand"
	configFile  = "config.yaml"
	envFile     = ".env"
)

type Config struct {
	AssistantID string `json:"assistant_id" yaml:"assistant_id"`
}

func InitCmd() *cobra.Command {
	var assistantName string
	var assistantID string
	var apiKey string
	var apiURL string

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize a deckhand workspace",
		Long:  "Creates the .deckhand/ directory, config.yaml, and .env with API key.",
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runInit(assistantName, assistantID, apiKey, apiURL, outputJSON)
		},
	}

	cmd.Flags().StringVar(&assistantName, "assistant", "", "Assistant name (auto-generated from directory name if not provided)")
	cmd.Flags().StringVar(&assistantID, "assistant-id", "", "Bind to an existing assistant instead of creating one")
	cmd.Flags().StringVar(&apiKey, "api-key", "", "API key for authentication")
	cmd.Flags().StringVar(&apiURL, "api-url", "", "API base URL (default: http://localhost:8080)")

	return cmd
}

func runInit(assistantName, assistantID, apiKey, apiURL string, outputJSON bool) error {
	if _, err := os.Stat(deckhandDir); err == nil {
		return fmt.Errorf(".deckhand directory already exists")
	}

	_ = godotenv.Load()
	if apiKey == "" {
		apiKey = os.Getenv(envAPIKey)
	}
	if apiKey == "" {
		fmt.Print("Enter API key: ")
		reader := bufio.NewReader(os.Stdin)
		input, err := reader.ReadString('\n')
		if err != nil {
			return fmt.Errorf("failed to read API key: %w", err)
		}
		apiKey = strings.TrimSpace(input)
		if apiKey == "" {
			return fmt.Errorf("API key is required")
		}
	}

	if apiURL == "" {
		apiURL = os.Getenv(envAPIURL)
	}
	if apiURL == "" {
		apiURL = defaultAPIURL
	}

	envData := fmt.Sprintf("%s=%s\n%s=%s\n", envAPIKey, apiKey, envAPIURL, apiURL)
	if err := os.WriteFile(envFile, []byte(envData), 0600); err != nil {
		return fmt.Errorf("failed to create .env: %w", err)
	}

	api, err := NewAPIClientWithConfig(apiKey, apiURL)
	if err != nil {
		os.Remove(envFile)
		return fmt.Errorf("failed to create API client: %w", err)
	}

	var assistant struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}

	if assistantID != "" {
		resp, err := api.Get("/assistants/" + assistantID)
		if err != nil {
			os.Remove(envFile)
			return fmt.Errorf("failed to fetch assistant: %w", err)
		}
		if err := json.Unmarshal(resp.Data, &assistant); err != nil {
			os.Remove(envFile)
			return fmt.Errorf("failed to parse assistant response: %w", err)
		}
	} else {
		if assistantName == "" {
			cwd, _ := os.Getwd()
			assistantName = filepath.Base(cwd)
		}

		resp, err := api.Post("/assistants", map[string]string{"name": assistantName})
		if err != nil {
			os.Remove(envFile)
			return fmt.Errorf("failed to create assistant: %w", err)
		}
		if err := json.Unmarshal(resp.Data, &assistant); err != nil {
			os.Remove(envFile)
			return fmt.Errorf("failed to parse assistant response: %w", err)
		}
	}

	if err := os.MkdirAll(deckhandDir, 0755); err != nil {
		return fmt.Errorf("failed to create .deckhand directory: %w", err)
	}

	configPath := filepath.Join(deckhandDir, configFile)
	configData := fmt.Sprintf("assistant_id: %s\nassistant_name: %s\n", assistant.ID, assistant.Name)
	if err := os.WriteFile(configPath, []byte(configData), 0644); err != nil {
		return fmt.Errorf("failed to create config.yaml: %w", err)
	}

	if outputJSON {
		result := map[string]interface{}{
			"success":        true,
			"assistant_id":   assistant.ID,
			"assistant_name": assistant.Name,
			"config":         configPath,
			"env":            envFile,
		}
		data, _ := json.MarshalIndent(result, "", "  ")
		fmt.Println(string(data))
	} else {
		fmt.Printf("Initialized deckhand workspace for assistant '%s'\n", assistant.Name)
		fmt.Printf("Assistant ID: %s\n", assistant.ID)
		fmt.Printf("Config saved to %s\n", configPath)
	}

	return nil
}

// LoadConfig reads the config from .deckhand/config.yaml.
func LoadConfig() (*Config, error) {
	configPath := filepath.Join(deckhandDir, configFile)
	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("not a deckhand workspace (run 'deckhand init' first)")
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	// Simple YAML parsing for single field
	var config Config
	for _, line := range splitLines(string(data)) {
		if strings.HasPrefix(line, "assistant_id: ") {
			config.AssistantID = strings.TrimPrefix(line, "assistant_id: ")
			break
		}
	}

	if config.AssistantID == "" {
		return nil, fmt.Errorf("invalid config: assistant_id not found")
	}

	return &config, nil
}

func splitLines(s string) []string {
	var lines []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			lines = append(lines, s[start:i])
			start = i + 1
		}
	}
	if start < len(s) {
		lines = append(lines, s[start:])
	}
	return lines
}
