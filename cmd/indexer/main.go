package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/contentscout/contentscout/internal/ai"
	"github.com/contentscout/contentscout/internal/config"
	"github.com/contentscout/contentscout/internal/corpus"
	"github.com/contentscout/contentscout/internal/embed"
	"github.com/contentscout/contentscout/internal/store"
	"github.com/contentscout/contentscout/pkg/models"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
)

func main() {
	_ = godotenv.Load()

	fs := pflag.NewFlagSet("contentscout-indexer", pflag.ExitOnError)
	fs.StringSlice("source", nil, "Document file or directory to index (repeatable)")
	fs.String("mode", "documents", "Corpus mode (documents|listing)")
	fs.String("listing-file", "", "Scraped ranked-listing file (listing mode)")
	fs.String("country", "KR", "Listing partition country (listing mode)")
	fs.String("category", "film", "Listing partition category (listing mode)")

	cfg, err := config.Load("", fs)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	fs.Usage = cfg.Usage

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.Fatalf("Invalid log level '%s': %v", cfg.LogLevel, err)
	}
	logger := zerolog.New(os.Stdout).Level(level).With().Timestamp().Logger()

	provider := strings.ToLower(cfg.Provider)
	logger.Info().Str("provider", provider).Str("store", cfg.StoreBackend).Msg("starting contentscout indexer")

	var clientConfig *ai.ClientConfig
	switch provider {
	case "openai":
		clientConfig = &ai.ClientConfig{
			APIKey:       cfg.APIKey,
			EmbedModel:   cfg.EmbedModel,
			SummaryModel: cfg.SummaryModel,
			Dim:          cfg.Dim,
			ProjectID:    cfg.ProjectID,
			Provider:     ai.ProviderOpenAI,
		}
	case "vertexai", "google":
		clientConfig = &ai.ClientConfig{
			APIKey:       cfg.APIKey,
			EmbedModel:   cfg.EmbedModel,
			SummaryModel: cfg.SummaryModel,
			Dim:          cfg.Dim,
			ProjectID:    cfg.ProjectID,
			Location:     cfg.Location,
			Provider:     ai.ProviderVertexAI,
		}
	case "stub":
		clientConfig = &ai.ClientConfig{
			Dim:      cfg.Dim,
			Provider: ai.ProviderStub,
		}
	default:
		log.Fatalf("unsupported provider: %s", provider)
	}

	client, err := ai.NewClient(clientConfig)
	if err != nil {
		log.Fatalf("Failed to create AI client: %v", err)
	}
	if client.Dim() == 0 {
		log.Fatal("embedding dimension must be set")
	}
	embedder := embed.New(client)

	mode, _ := fs.GetString("mode")
	chunks, err := buildCorpus(fs, mode)
	if err != nil {
		log.Fatalf("Failed to build corpus: %v", err)
	}
	logger.Info().Str("mode", mode).Int("chunks", len(chunks)).Msg("corpus built")

	ctx := context.Background()

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	vecs, err := embedder.Encode(ctx, texts)
	if err != nil {
		log.Fatalf("Failed to embed corpus: %v", err)
	}

	var st store.VectorStore
	switch cfg.StoreBackend {
	case "postgres":
		pg, err := store.NewPgStore(ctx, cfg.Database, embedder.Dim())
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		defer pg.Close()
		if err := pg.Migrate(ctx); err != nil {
			log.Fatalf("Failed to migrate database: %v", err)
		}
		st = pg
	default:
		st = store.NewFileStore(cfg.IndexDir, embedder.Dim())
	}

	if err := st.Add(ctx, vecs, chunks); err != nil {
		log.Fatalf("Failed to add vectors: %v", err)
	}
	if err := st.Save(ctx); err != nil {
		log.Fatalf("Failed to persist index: %v", err)
	}

	n, err := st.Len(ctx)
	if err != nil {
		log.Fatalf("Failed to read index size: %v", err)
	}
	logger.Info().Int("vectors", n).Int("dim", embedder.Dim()).Msg("index written")
}

func buildCorpus(fs *pflag.FlagSet, mode string) ([]models.Chunk, error) {
	switch mode {
	case "documents":
		sources, _ := fs.GetStringSlice("source")
		return corpus.Build(sources, corpus.DefaultChunkSize, corpus.DefaultChunkOverlap)
	case "listing":
		path, _ := fs.GetString("listing-file")
		country, _ := fs.GetString("country")
		category, _ := fs.GetString("category")
		if path == "" {
			return nil, fmt.Errorf("--listing-file is required in listing mode")
		}
		rows, err := corpus.ListingRowsFromFile(path, country, category)
		if err != nil {
			return nil, err
		}
		return corpus.BuildListing(rows, country, category)
	default:
		return nil, fmt.Errorf("unknown mode %q (want documents or listing)", mode)
	}
}
