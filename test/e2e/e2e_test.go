//go:build e2e

package e2e

import (
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestE2E_Auth tests API key enforcement
func TestE2E_Auth(t *testing.T) {
	env := SetupE2EEnv(t)
	defer env.Cleanup()

	t.Run("health endpoint is open", func(t *testing.T) {
		resp, err := http.Get(env.ServerURL + "/health")
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("missing API key returns 401", func(t *testing.T) {
		_, err := env.Get("/assistants", "")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "401")
	})

	t.Run("wrong API key returns 401", func(t *testing.T) {
		_, err := env.Get("/assistants", "dk_wrongkey0123456789abcdef012345")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "401")
	})

	t.Run("valid API key works", func(t *testing.T) {
		resp, err := env.Get("/assistants", e2eAPIKey)
		require.NoError(t, err)

		var assistants []interface{}
		require.NoError(t, json.Unmarshal(resp.Data, &assistants))
	})
}

// TestE2E_AssistantLifecycle tests assistant CRUD operations
func TestE2E_AssistantLifecycle(t *testing.T) {
	env := SetupE2EEnv(t)
	defer env.Cleanup()

	var assistantID string

	t.Run("create assistant", func(t *testing.T) {
		resp, err := env.Post("/assistants", map[string]interface{}{
			"name":          "Deck Sales Assistant",
			"description":   "Answers questions about decks",
			"system_prompt": "You are a friendly deck builder.",
			"contact_name":  "Mike",
		}, e2eAPIKey)
		require.NoError(t, err)

		var assistant struct {
			ID               string `json:"id"`
			Name             string `json:"name"`
			ContactName      string `json:"contact_name"`
			KnowledgeEnabled bool   `json:"knowledge_enabled"`
			CreatedAt        string `json:"created_at"`
		}
		require.NoError(t, json.Unmarshal(resp.Data, &assistant))
		assert.NotEmpty(t, assistant.ID)
		assert.Equal(t, "Deck Sales Assistant", assistant.Name)
		assert.Equal(t, "Mike", assistant.ContactName)
		assert.True(t, assistant.KnowledgeEnabled)
		assert.NotEmpty(t, assistant.CreatedAt)

		assistantID = assistant.ID
	})

	t.Run("get assistant by ID", func(t *testing.T) {
		resp, err := env.Get("/assistants/"+assistantID, e2eAPIKey)
		require.NoError(t, err)

		var assistant struct {
			ID   string `json:"id"`
			Name string `json:"name"`
		}
		require.NoError(t, json.Unmarshal(resp.Data, &assistant))
		assert.Equal(t, assistantID, assistant.ID)
		assert.Equal(t, "Deck Sales Assistant", assistant.Name)
	})

	t.Run("list assistants", func(t *testing.T) {
		resp, err := env.Get("/assistants", e2eAPIKey)
		require.NoError(t, err)

		var assistants []struct {
			ID string `json:"id"`
		}
		require.NoError(t, json.Unmarshal(resp.Data, &assistants))
		require.Len(t, assistants, 1)
		assert.Equal(t, assistantID, assistants[0].ID)
	})

	t.Run("update assistant", func(t *testing.T) {
		resp, err := env.Put("/assistants/"+assistantID, map[string]interface{}{
			"name":         "Deck Sales Assistant",
			"contact_name": "Sarah",
		}, e2eAPIKey)
		require.NoError(t, err)

		var assistant struct {
			ContactName string `json:"contact_name"`
		}
		require.NoError(t, json.Unmarshal(resp.Data, &assistant))
		assert.Equal(t, "Sarah", assistant.ContactName)
	})

	t.Run("delete assistant", func(t *testing.T) {
		_, err := env.Delete("/assistants/"+assistantID, e2eAPIKey)
		require.NoError(t, err)

		_, err = env.Get("/assistants/"+assistantID, e2eAPIKey)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "404")
	})
}

// TestE2E_KnowledgeLifecycle tests knowledge chunk CRUD operations
func TestE2E_KnowledgeLifecycle(t *testing.T) {
	env := SetupE2EEnv(t)
	defer env.Cleanup()
	env.Bootstrap()

	var chunkID string

	t.Run("index chunk", func(t *testing.T) {
		resp, err := env.Post("/assistants/"+env.AssistantID+"/knowledge", map[string]interface{}{
			"category":    "pricing",
			"subcategory": "composite",
			"content":     "Composite decking starts at $45 per square foot installed.",
			"source":      "pricing sheet",
		}, e2eAPIKey)
		require.NoError(t, err)

		var chunk struct {
			ID           string `json:"id"`
			AssistantID  string `json:"assistant_id"`
			Category     string `json:"category"`
			HasEmbedding bool   `json:"has_embedding"`
		}
		require.NoError(t, json.Unmarshal(resp.Data, &chunk))
		assert.NotEmpty(t, chunk.ID)
		assert.Equal(t, env.AssistantID, chunk.AssistantID)
		assert.Equal(t, "pricing", chunk.Category)
		// Embeddings are stubbed off, so the chunk stores without a vector.
		assert.False(t, chunk.HasEmbedding)

		chunkID = chunk.ID
	})

	t.Run("get chunk by ID", func(t *testing.T) {
		resp, err := env.Get("/knowledge/"+chunkID, e2eAPIKey)
		require.NoError(t, err)

		var chunk struct {
			ID      string `json:"id"`
			Content string `json:"content"`
		}
		require.NoError(t, json.Unmarshal(resp.Data, &chunk))
		assert.Equal(t, chunkID, chunk.ID)
		assert.Contains(t, chunk.Content, "$45")
	})

	t.Run("list chunks", func(t *testing.T) {
		resp, err := env.Get("/assistants/"+env.AssistantID+"/knowledge", e2eAPIKey)
		require.NoError(t, err)

		var list struct {
			Items   []struct{ ID string } `json:"items"`
			HasMore bool                  `json:"has_more"`
		}
		require.NoError(t, json.Unmarshal(resp.Data, &list))
		require.Len(t, list.Items, 1)
		assert.False(t, list.HasMore)
	})

	t.Run("update chunk", func(t *testing.T) {
		resp, err := env.Put("/knowledge/"+chunkID, map[string]interface{}{
			"content":     "Composite decking starts at $48 per square foot installed.",
			"category":    "pricing",
			"subcategory": "composite",
		}, e2eAPIKey)
		require.NoError(t, err)

		var chunk struct {
			Content string `json:"content"`
		}
		require.NoError(t, json.Unmarshal(resp.Data, &chunk))
		assert.Contains(t, chunk.Content, "$48")
	})

	t.Run("split indexing creates multiple chunks", func(t *testing.T) {
		long := strings.Repeat("Pressure-treated lumber needs sealing every two years. ", 200)
		resp, err := env.Post("/assistants/"+env.AssistantID+"/knowledge", map[string]interface{}{
			"category": "maintenance",
			"content":  long,
			"split":    true,
		}, e2eAPIKey)
		require.NoError(t, err)

		var chunks []struct {
			ID string `json:"id"`
		}
		require.NoError(t, json.Unmarshal(resp.Data, &chunks))
		assert.Greater(t, len(chunks), 1)
	})

	t.Run("delete chunk", func(t *testing.T) {
		_, err := env.Delete("/knowledge/"+chunkID, e2eAPIKey)
		require.NoError(t, err)

		_, err = env.Get("/knowledge/"+chunkID, e2eAPIKey)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "404")
	})
}

// TestE2E_Search tests lexical retrieval over indexed chunks
func TestE2E_Search(t *testing.T) {
	env := SetupE2EEnv(t)
	defer env.Cleanup()
	env.Bootstrap()

	seed := []map[string]interface{}{
		{"category": "pricing", "content": "Composite decking starts at $45 per square foot installed.", "source": "pricing sheet"},
		{"category": "warranty", "content": "All workmanship carries a five year warranty.", "source": "warranty terms"},
		{"category": "maintenance", "content": "Seal pressure-treated lumber every two years.", "source": "care guide"},
	}
	for _, chunk := range seed {
		_, err := env.Post("/assistants/"+env.AssistantID+"/knowledge", chunk, e2eAPIKey)
		require.NoError(t, err)
	}

	t.Run("lexical search finds matching chunk", func(t *testing.T) {
		resp, err := env.Post("/assistants/"+env.AssistantID+"/search", map[string]string{
			"query": "how much does composite decking cost",
		}, e2eAPIKey)
		require.NoError(t, err)

		var search struct {
			Results []struct {
				Content    string `json:"content"`
				Similarity int    `json:"similarity"`
				Source     string `json:"source"`
			} `json:"results"`
			Strategy string `json:"strategy"`
		}
		require.NoError(t, json.Unmarshal(resp.Data, &search))
		assert.Equal(t, "lexical", search.Strategy)
		require.NotEmpty(t, search.Results)
		assert.Contains(t, search.Results[0].Content, "$45")
		assert.GreaterOrEqual(t, search.Results[0].Similarity, 35)
	})

	t.Run("category filter narrows results", func(t *testing.T) {
		resp, err := env.Post("/assistants/"+env.AssistantID+"/search", map[string]string{
			"query":    "warranty",
			"category": "warranty",
		}, e2eAPIKey)
		require.NoError(t, err)

		var search struct {
			Results []struct {
				Source string `json:"source"`
			} `json:"results"`
		}
		require.NoError(t, json.Unmarshal(resp.Data, &search))
		require.NotEmpty(t, search.Results)
		for _, r := range search.Results {
			assert.Equal(t, "warranty terms", r.Source)
		}
	})

	t.Run("no match returns empty results", func(t *testing.T) {
		resp, err := env.Post("/assistants/"+env.AssistantID+"/search", map[string]string{
			"query": "zzzzqqqq xylophone",
		}, e2eAPIKey)
		require.NoError(t, err)

		var search struct {
			Results  []interface{} `json:"results"`
			Strategy string        `json:"strategy"`
		}
		require.NoError(t, json.Unmarshal(resp.Data, &search))
		assert.Empty(t, search.Results)
	})

	t.Run("empty query returns 400", func(t *testing.T) {
		_, err := env.Post("/assistants/"+env.AssistantID+"/search", map[string]string{
			"query": "",
		}, e2eAPIKey)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "400")
	})
}

// TestE2E_Chat tests the streaming chat endpoint with stubbed completions
func TestE2E_Chat(t *testing.T) {
	env := SetupE2EEnv(t)
	defer env.Cleanup()
	env.Bootstrap()

	_, err := env.Post("/assistants/"+env.AssistantID+"/knowledge", map[string]interface{}{
		"category": "pricing",
		"content":  "Composite decking starts at $45 per square foot installed.",
	}, e2eAPIKey)
	require.NoError(t, err)

	t.Run("chat streams completion", func(t *testing.T) {
		resp, err := env.PostStream("/assistants/"+env.AssistantID+"/chat", map[string]interface{}{
			"messages": []map[string]string{
				{"role": "user", "content": "How much is composite decking?"},
			},
		}, e2eAPIKey)
		require.NoError(t, err)
		defer resp.Body.Close()

		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "knowledge_found", resp.Header.Get("X-Knowledge-Outcome"))
		assert.Equal(t, "lexical", resp.Header.Get("X-Search-Strategy"))

		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		assert.Equal(t, "Composite decking starts at $45 per square foot.", string(body))
	})

	t.Run("chat with unknown assistant returns 404", func(t *testing.T) {
		resp, err := env.PostStream("/assistants/00000000-0000-0000-0000-000000000000/chat", map[string]interface{}{
			"messages": []map[string]string{
				{"role": "user", "content": "Hello?"},
			},
		}, e2eAPIKey)
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}

// TestE2E_DocumentArchive tests document archiving and presigned downloads
func TestE2E_DocumentArchive(t *testing.T) {
	env := SetupE2EEnv(t)
	defer env.Cleanup()
	env.Bootstrap()

	original := []byte("raw pdf bytes for the pricing sheet")

	var chunkID string

	t.Run("index chunk with document", func(t *testing.T) {
		resp, err := env.Post("/assistants/"+env.AssistantID+"/knowledge", map[string]interface{}{
			"category":        "pricing",
			"content":         "Composite decking starts at $45 per square foot installed.",
			"filename":        "pricing.pdf",
			"file_type":       "application/pdf",
			"document_base64": base64.StdEncoding.EncodeToString(original),
		}, e2eAPIKey)
		require.NoError(t, err)

		var chunk struct {
			ID       string         `json:"id"`
			Metadata map[string]any `json:"metadata"`
		}
		require.NoError(t, json.Unmarshal(resp.Data, &chunk))
		assert.Equal(t, "pricing.pdf", chunk.Metadata["filename"])
		chunkID = chunk.ID
	})

	t.Run("download archived document", func(t *testing.T) {
		resp, err := env.Get("/knowledge/"+chunkID+"/document", e2eAPIKey)
		require.NoError(t, err)

		var doc struct {
			URL string `json:"url"`
		}
		require.NoError(t, json.Unmarshal(resp.Data, &doc))
		require.NotEmpty(t, doc.URL)

		downloaded, err := env.DownloadFile(doc.URL)
		require.NoError(t, err)
		assert.Equal(t, original, downloaded)
	})

	t.Run("document URL for plain chunk returns 404", func(t *testing.T) {
		resp, err := env.Post("/assistants/"+env.AssistantID+"/knowledge", map[string]interface{}{
			"content": "No document attached here.",
		}, e2eAPIKey)
		require.NoError(t, err)

		var chunk struct {
			ID string `json:"id"`
		}
		require.NoError(t, json.Unmarshal(resp.Data, &chunk))

		_, err = env.Get("/knowledge/"+chunk.ID+"/document", e2eAPIKey)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "404")
	})
}

// TestE2E_CLI tests the deckhand CLI against a running server
func TestE2E_CLI(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping CLI test in short mode")
	}

	env := SetupE2EEnv(t)
	defer env.Cleanup()
	env.BuildBinaries()

	workDir := t.TempDir()

	t.Run("init creates workspace", func(t *testing.T) {
		out, err := env.RunDeckhand(workDir, "init", "--assistant", "CLI Test Assistant")
		require.NoError(t, err, "init output: %s", out)

		assert.FileExists(t, filepath.Join(workDir, ".deckhand", "config.yaml"))
		assert.FileExists(t, filepath.Join(workDir, ".env"))

		data, err := os.ReadFile(filepath.Join(workDir, ".deckhand", "config.yaml"))
		require.NoError(t, err)
		assert.Contains(t, string(data), "assistant_id:")
	})

	t.Run("add from stdin", func(t *testing.T) {
		out, err := env.RunDeckhandWithInput(workDir,
			"Composite decking starts at $45 per square foot installed.",
			"add", "--category", "pricing", "--source", "pricing sheet")
		require.NoError(t, err, "add output: %s", out)
		assert.Contains(t, out, "Indexed chunk:")
	})

	t.Run("list shows the chunk", func(t *testing.T) {
		out, err := env.RunDeckhand(workDir, "list")
		require.NoError(t, err, "list output: %s", out)
		assert.Contains(t, out, "pricing")
		assert.Contains(t, out, "1 chunks")
	})

	t.Run("search finds the chunk", func(t *testing.T) {
		out, err := env.RunDeckhand(workDir, "search", "composite", "decking", "cost")
		require.NoError(t, err, "search output: %s", out)
		assert.Contains(t, out, "pricing sheet")
	})

	t.Run("ask streams an answer", func(t *testing.T) {
		out, err := env.RunDeckhand(workDir, "ask", "How much is composite decking?")
		require.NoError(t, err, "ask output: %s", out)
		assert.Contains(t, out, "Composite decking starts at $45")
	})
}
