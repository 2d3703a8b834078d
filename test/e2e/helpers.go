//go:build e2e

package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/legacy-decks/deckhand/internal/api/handlers"
	"github.com/legacy-decks/deckhand/internal/openai"
	"github.com/legacy-decks/deckhand/internal/repository"
	"github.com/legacy-decks/deckhand/internal/server"
	"github.com/legacy-decks/deckhand/internal/service"
	"github.com/legacy-decks/deckhand/internal/storage"
	"github.com/legacy-decks/deckhand/internal/testutil"
)

const e2eAPIKey = "dk_e2e0123456789abcdef0123456789ab"

// E2ETestEnv holds all resources needed for E2E tests
type E2ETestEnv struct {
	T            *testing.T
	Ctx          context.Context
	PostgresC    *testutil.PostgresContainer
	RustFSC      *testutil.RustFSContainer
	Pool         *pgxpool.Pool
	ServerURL    string
	ServerCloser func()
	S3Client     *storage.S3Client
	BinaryDir    string
	AssistantID  string
	HTTPClient   *http.Client
}

// SetupE2EEnv creates a full E2E test environment with containers and server
func SetupE2EEnv(t *testing.T) *E2ETestEnv {
	ctx := context.Background()

	pgC := testutil.NewPostgresContainer(ctx, t)
	s3C := testutil.NewRustFSContainer(ctx, t)

	pool := testutil.NewTestPool(ctx, t, pgC, "../../migrations")

	s3Client, err := storage.NewS3Client(ctx, storage.S3ClientConfig{
		Endpoint:        s3C.Endpoint(),
		Region:          "us-east-1",
		AccessKeyID:     "rustfsadmin",
		SecretAccessKey: "rustfsadmin",
		Bucket:          "test-documents",
		UsePathStyle:    true,
	})
	if err != nil {
		t.Fatalf("failed to create S3 client: %v", err)
	}

	if err := s3Client.EnsureBucket(ctx); err != nil {
		t.Fatalf("failed to create bucket: %v", err)
	}

	port, err := getFreePort()
	if err != nil {
		t.Fatalf("failed to get free port: %v", err)
	}

	serverURL, serverCloser := startServer(t, pool, s3Client, port)

	return &E2ETestEnv{
		T:            t,
		Ctx:          ctx,
		PostgresC:    pgC,
		RustFSC:      s3C,
		Pool:         pool,
		ServerURL:    serverURL,
		ServerCloser: serverCloser,
		S3Client:     s3Client,
		HTTPClient:   &http.Client{Timeout: 30 * time.Second},
	}
}

// Cleanup releases all resources
func (e *E2ETestEnv) Cleanup() {
	if e.ServerCloser != nil {
		e.ServerCloser()
	}
	if e.Pool != nil {
		e.Pool.Close()
	}
	if e.RustFSC != nil {
		e.RustFSC.Terminate(e.Ctx)
	}
	if e.PostgresC != nil {
		e.PostgresC.Terminate(e.Ctx)
	}
	if e.BinaryDir != "" {
		os.RemoveAll(e.BinaryDir)
	}
}

// Bootstrap creates an assistant for testing
func (e *E2ETestEnv) Bootstrap() {
	resp, err := e.Post("/assistants", map[string]string{"name": "E2E Test Assistant"}, e2eAPIKey)
	if err != nil {
		e.T.Fatalf("failed to create assistant: %v", err)
	}

	var assistant struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(resp.Data, &assistant); err != nil {
		e.T.Fatalf("failed to parse assistant response: %v", err)
	}
	e.AssistantID = assistant.ID
}

// BuildBinaries builds the deckhand and deckhandd binaries
func (e *E2ETestEnv) BuildBinaries() {
	tmpDir, err := os.MkdirTemp("", "deckhand-e2e-*")
	if err != nil {
		e.T.Fatalf("failed to create temp dir: %v", err)
	}
	e.BinaryDir = tmpDir

	cmd := exec.Command("go", "build", "-o", filepath.Join(tmpDir, "deckhandd"), "./cmd/deckhandd")
	cmd.Dir = "../.."
	if out, err := cmd.CombinedOutput(); err != nil {
		e.T.Fatalf("failed to build deckhandd: %v\n%s", err, out)
	}

	cmd = exec.Command("go", "build", "-o", filepath.Join(tmpDir, "deckhand"), "./cmd/deckhand")
	cmd.Dir = "../.."
	if out, err := cmd.CombinedOutput(); err != nil {
		e.T.Fatalf("failed to build deckhand: %v\n%s", err, out)
	}
}

// RunDeckhand runs the deckhand CLI command
func (e *E2ETestEnv) RunDeckhand(workDir string, args ...string) (string, error) {
	cmd := exec.Command(filepath.Join(e.BinaryDir, "deckhand"), args...)
	cmd.Dir = workDir
	cmd.Env = append(os.Environ(),
		fmt.Sprintf("DECKHAND_API_KEY=%s", e2eAPIKey),
		fmt.Sprintf("DECKHAND_API_URL=%s", e.ServerURL),
	)
	out, err := cmd.CombinedOutput()
	return string(out), err
}

// RunDeckhandWithInput runs the deckhand CLI command with stdin input
func (e *E2ETestEnv) RunDeckhandWithInput(workDir string, input string, args ...string) (string, error) {
	cmd := exec.Command(filepath.Join(e.BinaryDir, "deckhand"), args...)
	cmd.Dir = workDir
	cmd.Stdin = bytes.NewReader([]byte(input))
	cmd.Env = append(os.Environ(),
		fmt.Sprintf("DECKHAND_API_KEY=%s", e2eAPIKey),
		fmt.Sprintf("DECKHAND_API_URL=%s", e.ServerURL),
	)
	out, err := cmd.CombinedOutput()
	return string(out), err
}

// APIResponse represents a standard API response
type APIResponse struct {
	Data  json.RawMessage `json:"data"`
	Error string          `json:"error,omitempty"`
}

// Get performs a GET request
func (e *E2ETestEnv) Get(path, apiKey string) (*APIResponse, error) {
	return e.doRequest("GET", path, nil, apiKey)
}

// Post performs a POST request
func (e *E2ETestEnv) Post(path string, body interface{}, apiKey string) (*APIResponse, error) {
	return e.doRequest("POST", path, body, apiKey)
}

// Put performs a PUT request
func (e *E2ETestEnv) Put(path string, body interface{}, apiKey string) (*APIResponse, error) {
	return e.doRequest("PUT", path, body, apiKey)
}

// Delete performs a DELETE request
func (e *E2ETestEnv) Delete(path, apiKey string) (*APIResponse, error) {
	return e.doRequest("DELETE", path, nil, apiKey)
}

func (e *E2ETestEnv) doRequest(method, path string, body interface{}, apiKey string) (*APIResponse, error) {
	url := e.ServerURL + path

	var reqBody io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal body: %w", err)
		}
		reqBody = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequest(method, url, reqBody)
	if err != nil {
		return nil, err
	}

	if apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+apiKey)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode == http.StatusNoContent {
		return &APIResponse{}, nil
	}

	var apiResp APIResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		if resp.StatusCode >= 400 {
			return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(respBody))
		}
		return nil, err
	}

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, apiResp.Error)
	}

	return &apiResp, nil
}

// PostStream performs a POST request and returns the raw response for
// streaming endpoints.
func (e *E2ETestEnv) PostStream(path string, body interface{}, apiKey string) (*http.Response, error) {
	jsonData, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequest("POST", e.ServerURL+path, bytes.NewReader(jsonData))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+apiKey)
	req.Header.Set("Content-Type", "application/json")

	return e.HTTPClient.Do(req)
}

// DownloadFile downloads a file from the presigned URL
func (e *E2ETestEnv) DownloadFile(downloadURL string) ([]byte, error) {
	resp, err := e.HTTPClient.Get(downloadURL)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download failed with status %d", resp.StatusCode)
	}

	return io.ReadAll(resp.Body)
}

// startServer starts the HTTP server with all handlers wired against the
// test containers. AI calls are stubbed: embeddings fail so retrieval runs
// the lexical ranker, and chat streams a canned reply.
func startServer(t *testing.T, pool *pgxpool.Pool, s3Client *storage.S3Client, port int) (string, func()) {
	assistantRepo := repository.NewAssistantRepository(pool)
	chunkRepo := repository.NewChunkRepository(pool)
	searchLogRepo := repository.NewSearchLogRepository(pool)

	ai := &stubAI{}

	assistantSvc := service.NewAssistantService(assistantRepo)
	indexingSvc := service.NewIndexingService(chunkRepo, ai, s3Client)
	retrievalSvc := service.NewRetrievalServiceWithConfig(chunkRepo, ai, searchLogRepo, service.DefaultRetrievalConfig())
	chatSvc := service.NewChatService(assistantRepo, retrievalSvc, ai)

	cfg := server.RouterConfig{
		APIKey:           e2eAPIKey,
		AssistantHandler: handlers.NewAssistantHandler(assistantSvc),
		KnowledgeHandler: handlers.NewKnowledgeHandler(indexingSvc, s3Client),
		SearchHandler:    handlers.NewSearchHandler(retrievalSvc),
		ChatHandler:      handlers.NewChatHandler(chatSvc),
	}

	router := server.NewRouter(cfg)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: router,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			t.Logf("server error: %v", err)
		}
	}()

	serverURL := fmt.Sprintf("http://localhost:%d", port)
	waitForServer(t, serverURL, 10*time.Second)

	return serverURL, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(ctx)
	}
}

func waitForServer(t *testing.T, url string, timeout time.Duration) {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		resp, err := http.Get(url + "/health")
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return
			}
		}
		time.Sleep(100 * time.Millisecond)
	}
	t.Fatalf("server did not start within %v", timeout)
}

func getFreePort() (int, error) {
	addr, err := net.ResolveTCPAddr("tcp", "localhost:0")
	if err != nil {
		return 0, err
	}

	l, err := net.ListenTCP("tcp", addr)
	if err != nil {
		return 0, err
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port, nil
}

// stubAI stands in for the OpenAI client. Embedding calls fail so retrieval
// degrades to the lexical ranker; chat streams a canned completion.
type stubAI struct{}

func (s *stubAI) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	return nil, errors.New("embeddings disabled in e2e")
}

func (s *stubAI) GenerateEmbeddings(ctx context.Context, texts []string) ([]openai.IndexedEmbedding, error) {
	return nil, errors.New("embeddings disabled in e2e")
}

func (s *stubAI) Dimensions() int {
	return openai.DefaultEmbeddingDimensions
}

func (s *stubAI) StreamChat(ctx context.Context, req openai.ChatRequest) (openai.ChatStream, error) {
	return &cannedStream{deltas: []string{"Composite decking ", "starts at $45 per square foot."}}, nil
}

type cannedStream struct {
	deltas []string
	pos    int
}

func (c *cannedStream) Recv() (string, error) {
	if c.pos >= len(c.deltas) {
		return "", io.EOF
	}
	delta := c.deltas[c.pos]
	c.pos++
	return delta, nil
}

func (c *cannedStream) Close() error { return nil }
