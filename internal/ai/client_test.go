package ai

import (
	"context"
	"strings"
	"testing"
)

// Test Provider constants
func TestProviderConstants(t *testing.T) {
	tests := []struct {
		provider Provider
		expected string
	}{
		{ProviderOpenAI, "openai"},
		{ProviderVertexAI, "vertexai"},
		{ProviderStub, "stub"},
	}

	for _, tt := range tests {
		t.Run(string(tt.provider), func(t *testing.T) {
			if string(tt.provider) != tt.expected {
				t.Errorf("Provider constant mismatch. Expected: %s, Got: %s", tt.expected, string(tt.provider))
			}
		})
	}
}

// Test ClientConfig struct
func TestClientConfig(t *testing.T) {
	config := &ClientConfig{
		APIKey:       "test-api-key",
		EmbedModel:   "test-embed-model",
		SummaryModel: "test-summary-model",
		Dim:          512,
		ProjectID:    "test-project",
		Provider:     ProviderOpenAI,
		Location:     "us-central1",
	}

	if config.APIKey != "test-api-key" {
		t.Errorf("Expected APIKey 'test-api-key', got '%s'", config.APIKey)
	}
	if config.EmbedModel != "test-embed-model" {
		t.Errorf("Expected EmbedModel 'test-embed-model', got '%s'", config.EmbedModel)
	}
	if config.SummaryModel != "test-summary-model" {
		t.Errorf("Expected SummaryModel 'test-summary-model', got '%s'", config.SummaryModel)
	}
	if config.Dim != 512 {
		t.Errorf("Expected Dim 512, got %d", config.Dim)
	}
	if config.ProjectID != "test-project" {
		t.Errorf("Expected ProjectID 'test-project', got '%s'", config.ProjectID)
	}
	if config.Provider != ProviderOpenAI {
		t.Errorf("Expected Provider 'openai', got '%s'", config.Provider)
	}
	if config.Location != "us-central1" {
		t.Errorf("Expected Location 'us-central1', got '%s'", config.Location)
	}
}

// Test NewClient function
func TestNewClient(t *testing.T) {
	tests := []struct {
		name        string
		config      *ClientConfig
		expectError bool
		errorMsg    string
		clientType  string
	}{
		{
			name:        "nil config",
			config:      nil,
			expectError: true,
			errorMsg:    "client config is required",
		},
		{
			name: "openai provider",
			config: &ClientConfig{
				Provider: ProviderOpenAI,
				APIKey:   "test-key",
				Dim:      512,
			},
			expectError: false,
			clientType:  "*ai.OpenAIClient",
		},
		{
			name: "vertexai provider",
			config: &ClientConfig{
				Provider: ProviderVertexAI,
				APIKey:   "test-key",
				Dim:      768,
			},
			expectError: false,
			clientType:  "*ai.VertexAIClient",
		},
		{
			name: "stub provider",
			config: &ClientConfig{
				Provider: ProviderStub,
				Dim:      256,
			},
			expectError: false,
			clientType:  "*ai.StubClient",
		},
		{
			name: "unsupported provider",
			config: &ClientConfig{
				Provider: Provider("unsupported"),
				Dim:      512,
			},
			expectError: true,
			errorMsg:    "unsupported provider: unsupported",
		},
		{
			name: "empty provider",
			config: &ClientConfig{
				Provider: Provider(""),
				Dim:      512,
			},
			expectError: true,
			errorMsg:    "unsupported provider: ",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := NewClient(tt.config)

			if tt.expectError {
				if err == nil {
					t.Errorf("Expected error but got none")
				} else if !strings.Contains(err.Error(), tt.errorMsg) {
					t.Errorf("Expected error containing '%s', got '%s'", tt.errorMsg, err.Error())
				}
				if client != nil {
					t.Errorf("Expected nil client when error occurs, got %v", client)
				}
			} else {
				if err != nil {
					t.Errorf("Expected no error, got: %v", err)
				}
				if client == nil {
					t.Errorf("Expected client instance, got nil")
				}
				// Check client type
				clientTypeName := ""
				switch client.(type) {
				case *OpenAIClient:
					clientTypeName = "*ai.OpenAIClient"
				case *VertexAIClient:
					clientTypeName = "*ai.VertexAIClient"
				case *StubClient:
					clientTypeName = "*ai.StubClient"
				default:
					clientTypeName = "unknown"
				}
				if clientTypeName != tt.clientType {
					t.Errorf("Expected client type '%s', got '%s'", tt.clientType, clientTypeName)
				}
			}
		})
	}
}

// Test StubClient creation
func TestNewStubClient(t *testing.T) {
	tests := []struct {
		name string
		dim  int
	}{
		{"default dimension", 512},
		{"small dimension", 128},
		{"large dimension", 1536},
		{"zero dimension", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := NewStubClient(tt.dim)

			// NewStubClient always returns a valid instance
			if client.dim != tt.dim {
				t.Errorf("Expected dimension %d, got %d", tt.dim, client.dim)
			}
			if client.Dim() != tt.dim {
				t.Errorf("Expected Dim() to return %d, got %d", tt.dim, client.Dim())
			}
		})
	}
}

// Test StubClient Embed method
func TestStubClient_Embed(t *testing.T) {
	tests := []struct {
		name string
		dim  int
		text string
	}{
		{"empty text", 512, ""},
		{"short text", 256, "hello"},
		{"long text", 768, "What is the retrieval threshold used by the answer engine"},
		{"multiline text", 384, "Line 1\nLine 2\nLine 3"},
		{"unicode text", 512, "한국 드라마 순위"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := NewStubClient(tt.dim)
			embedding, err := client.Embed(tt.text)

			if err != nil {
				t.Errorf("Expected no error, got: %v", err)
			}
			if len(embedding) != tt.dim {
				t.Errorf("Expected embedding length %d, got %d", tt.dim, len(embedding))
			}
			// The stub sets a unit spike in the first component so cosine
			// scores between stub vectors are deterministic.
			if tt.dim > 0 && embedding[0] != 1 {
				t.Errorf("Expected first component 1, got %f", embedding[0])
			}
			for i := 1; i < len(embedding); i++ {
				if embedding[i] != 0.0 {
					t.Errorf("Expected zero at index %d, got %f", i, embedding[i])
				}
			}
		})
	}
}

// Test StubClient Summarize method
func TestStubClient_Summarize(t *testing.T) {
	tests := []struct {
		name     string
		prompt   string
		expected string
	}{
		{
			name:     "first long line wins",
			prompt:   "Summarize the material below.\nshort\nThe company expanded into three new markets.",
			expected: "Summarize the material below.",
		},
		{
			name:     "short lines skipped",
			prompt:   "hi\nok\nQuarterly revenue grew by twelve percent.",
			expected: "Quarterly revenue grew by twelve percent.",
		},
		{
			name:     "leading whitespace trimmed",
			prompt:   "\n\n   The procurement notice closes on Friday.\nmore text",
			expected: "The procurement notice closes on Friday.",
		},
		{
			name:     "all lines short falls back to trimmed prompt",
			prompt:   "  hi  ",
			expected: "hi",
		},
		{
			name:     "empty prompt",
			prompt:   "",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := NewStubClient(512)
			ctx := context.Background()

			summary, err := client.Summarize(ctx, tt.prompt)

			if err != nil {
				t.Errorf("Expected no error, got: %v", err)
			}
			if summary != tt.expected {
				t.Errorf("Expected summary '%s', got '%s'", tt.expected, summary)
			}
		})
	}
}

// Test StubClient Summarize with context cancellation
func TestStubClient_SummarizeWithCancelledContext(t *testing.T) {
	client := NewStubClient(512)
	ctx, cancel := context.WithCancel(context.Background())
	cancel() // Cancel immediately

	// Should still work because StubClient doesn't check context
	summary, err := client.Summarize(ctx, "The evidence points to a delayed launch.")

	if err != nil {
		t.Errorf("Expected no error, got: %v", err)
	}
	if summary != "The evidence points to a delayed launch." {
		t.Errorf("Unexpected summary '%s'", summary)
	}
}

// Test Client interface compliance
func TestClientInterfaceCompliance(t *testing.T) {
	// Test that StubClient implements Client interface
	var _ Client = &StubClient{}

	// Test that the interface methods work as expected
	client := NewStubClient(256)

	// Test Embed method
	embedding, err := client.Embed("test")
	if err != nil {
		t.Errorf("Expected no error from Embed, got: %v", err)
	}
	if len(embedding) != 256 {
		t.Errorf("Expected embedding length 256, got %d", len(embedding))
	}

	// Test Summarize method
	ctx := context.Background()
	summary, err := client.Summarize(ctx, "Summarize the notices listed above.")
	if err != nil {
		t.Errorf("Expected no error from Summarize, got: %v", err)
	}
	if summary == "" {
		t.Errorf("Expected non-empty summary")
	}

	// Test Dim method
	if client.Dim() != 256 {
		t.Errorf("Expected Dim() to return 256, got %d", client.Dim())
	}
}

// Benchmark tests
func BenchmarkNewStubClient(b *testing.B) {
	for i := 0; i < b.N; i++ {
		NewStubClient(512)
	}
}

func BenchmarkStubClient_Embed(b *testing.B) {
	client := NewStubClient(512)
	text := "This is a test text for embedding benchmark"

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = client.Embed(text)
	}
}

func BenchmarkStubClient_Summarize(b *testing.B) {
	client := NewStubClient(512)
	ctx := context.Background()
	prompt := "Question: who directed the most chart-topping films?\n\nContexts:\n[1] ranking snapshot\n[2] director biography"

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = client.Summarize(ctx, prompt)
	}
}

func BenchmarkNewClient(b *testing.B) {
	config := &ClientConfig{
		Provider: ProviderStub,
		Dim:      512,
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = NewClient(config)
	}
}

// Test edge cases and error conditions
func TestEdgeCases(t *testing.T) {
	t.Run("StubClient with very large dimension", func(t *testing.T) {
		client := NewStubClient(100000)
		embedding, err := client.Embed("test")
		if err != nil {
			t.Errorf("Expected no error, got: %v", err)
		}
		if len(embedding) != 100000 {
			t.Errorf("Expected embedding length 100000, got %d", len(embedding))
		}
	})

	t.Run("Summarize with very long prompt", func(t *testing.T) {
		client := NewStubClient(512)
		ctx := context.Background()

		longPrompt := "The opening sentence carries the answer.\n" + strings.Repeat("filler line\n", 1000)

		summary, err := client.Summarize(ctx, longPrompt)
		if err != nil {
			t.Errorf("Expected no error, got: %v", err)
		}
		if summary != "The opening sentence carries the answer." {
			t.Errorf("Unexpected summary '%s'", summary)
		}
	})

	t.Run("Provider type conversion", func(t *testing.T) {
		provider := Provider("custom")
		if string(provider) != "custom" {
			t.Errorf("Expected string conversion 'custom', got '%s'", string(provider))
		}
	})
}

// Test concurrent access to StubClient
func TestStubClientConcurrency(t *testing.T) {
	client := NewStubClient(512)
	ctx := context.Background()

	// Test concurrent Embed calls
	t.Run("concurrent embeds", func(t *testing.T) {
		done := make(chan bool, 10)

		for i := 0; i < 10; i++ {
			go func(id int) {
				defer func() { done <- true }()

				embedding, err := client.Embed("test text")
				if err != nil {
					t.Errorf("Goroutine %d: Expected no error, got: %v", id, err)
				}
				if len(embedding) != 512 {
					t.Errorf("Goroutine %d: Expected embedding length 512, got %d", id, len(embedding))
				}
			}(i)
		}

		// Wait for all goroutines to complete
		for i := 0; i < 10; i++ {
			<-done
		}
	})

	// Test concurrent Summarize calls
	t.Run("concurrent summarizes", func(t *testing.T) {
		done := make(chan bool, 10)

		for i := 0; i < 10; i++ {
			go func(id int) {
				defer func() { done <- true }()

				summary, err := client.Summarize(ctx, "The findings are consistent across sources.")
				if err != nil {
					t.Errorf("Goroutine %d: Expected no error, got: %v", id, err)
				}
				if summary != "The findings are consistent across sources." {
					t.Errorf("Goroutine %d: Unexpected summary '%s'", id, summary)
				}
			}(i)
		}

		// Wait for all goroutines to complete
		for i := 0; i < 10; i++ {
			<-done
		}
	})
}
