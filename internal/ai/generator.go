package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"google.golang.org/genai"
)

// Request is one model call.
type Request struct {
	APIKey string
	Model  string

	// System is the system instruction; empty for none.
	System string
	Prompt string

	// Schema requests JSON output conforming to it. Nil asks for plain text.
	Schema *genai.Schema
}

// Generator runs a model call and returns the text of the response.
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// ErrNoAPIKey is returned when neither the session nor the process has a
// provider key.
var ErrNoAPIKey = errors.New("no API key configured")

// GenAI calls the Gemini API through google.golang.org/genai. Clients are
// created lazily and reused per API key, so a session switching to its own
// key gets its own client.
type GenAI struct {
	httpClient *http.Client

	mu      sync.Mutex
	clients map[string]*genai.Client
}

// NewGenAI returns a Generator for the Gemini API. timeout bounds each
// HTTP request; zero means no limit beyond the call's context.
func NewGenAI(timeout time.Duration) *GenAI {
	return &GenAI{
		httpClient: &http.Client{Timeout: timeout},
		clients:    make(map[string]*genai.Client),
	}
}

func (g *GenAI) client(ctx context.Context, apiKey string) (*genai.Client, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if c, ok := g.clients[apiKey]; ok {
		return c, nil
	}
	c, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:     apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: g.httpClient,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	g.clients[apiKey] = c
	return c, nil
}

// Generate implements Generator.
func (g *GenAI) Generate(ctx context.Context, req Request) (string, error) {
	if req.APIKey == "" {
		return "", ErrNoAPIKey
	}
	c, err := g.client(ctx, req.APIKey)
	if err != nil {
		return "", err
	}

	cfg := &genai.GenerateContentConfig{}
	if req.System != "" {
		cfg.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
	}
	if req.Schema != nil {
		cfg.ResponseMIMEType = "application/json"
		cfg.ResponseSchema = req.Schema
	}

	resp, err := c.Models.GenerateContent(ctx, req.Model, genai.Text(req.Prompt), cfg)
	if err != nil {
		return "", fmt.Errorf("GenAI generate failed: %w", err)
	}
	return resp.Text(), nil
}
