package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"
	"github.com/spf13/pflag"

	"github.com/contentscout/contentscout/internal/ai"
	"github.com/contentscout/contentscout/internal/auth"
	"github.com/contentscout/contentscout/internal/config"
	"github.com/contentscout/contentscout/internal/embed"
	"github.com/contentscout/contentscout/internal/finance"
	"github.com/contentscout/contentscout/internal/lookup"
	"github.com/contentscout/contentscout/internal/notices"
	"github.com/contentscout/contentscout/internal/rag"
	"github.com/contentscout/contentscout/internal/render"
	"github.com/contentscout/contentscout/internal/research"
	"github.com/contentscout/contentscout/internal/router"
	"github.com/contentscout/contentscout/internal/store"
	"github.com/contentscout/contentscout/internal/websearch"
	"github.com/contentscout/contentscout/pkg/models"
)

// queryResponse is the JSON shape of /query. Markdown and SavedPath
// are only set when the caller asked for a saved report.
type queryResponse struct {
	Query     string        `json:"query"`
	Kind      string        `json:"kind"`
	Answer    router.Answer `json:"answer"`
	Markdown  string        `json:"markdown,omitempty"`
	SavedPath string        `json:"saved_path,omitempty"`
}

func main() {
	_ = godotenv.Load()

	fs := pflag.NewFlagSet("contentscout-api", pflag.ExitOnError)
	fs.String("director-csv", "", "Director ranking CSV for exact lookups")

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
	logger.Info().
		Str("provider", cfg.Provider).
		Str("store", cfg.StoreBackend).
		Str("log_level", cfg.LogLevel).
		Bool("auth_enabled", cfg.Auth.Enabled).
		Msg("starting contentscout api")

	var clientConfig *ai.ClientConfig
	switch strings.ToLower(cfg.Provider) {
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
		log.Fatalf("unsupported provider: %s", cfg.Provider)
	}

	client, err := ai.NewClient(clientConfig)
	if err != nil {
		log.Fatalf("Failed to create AI client: %v", err)
	}
	embedder := embed.New(client)
	logger.Info().Int("embedding_dim", embedder.Dim()).Str("embed_model", clientConfig.EmbedModel).Msg("AI client initialized")

	ctx := context.Background()

	var (
		st     store.VectorStore
		chunks []models.Chunk
	)
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
		fst, err := store.OpenFileStore(cfg.IndexDir)
		if err != nil {
			logger.Warn().Err(err).Str("dir", cfg.IndexDir).Msg("no index found, retrieval disabled until one is built")
		} else {
			st = fst
			chunks = fst.Chunks()
		}
	}

	var webClient *websearch.Client
	if cfg.WebSearch.APIKey != "" {
		webClient = websearch.NewClient(cfg.WebSearch.APIKey, cfg.WebSearch.BaseURL)
	} else {
		logger.Warn().Msg("web search key missing, fallback and notice sources limited")
	}

	var engine *rag.Engine
	if st != nil {
		var web rag.WebSearcher
		if webClient != nil {
			web = websearch.FallbackSearcher{Client: webClient}
		}
		engine = rag.New(embedder, st, web, client, rag.Options{
			TopK:               cfg.Retrieval.TopK,
			ThresholdHigh:      cfg.Retrieval.ThresholdHigh,
			ThresholdMean:      cfg.Retrieval.ThresholdMean,
			MinCount:           cfg.Retrieval.MinCount,
			WebFallback:        cfg.Retrieval.WebFallback,
			FallbackMax:        cfg.Retrieval.FallbackMax,
			FallbackMaxAugment: cfg.Retrieval.FallbackMaxAugment,
		})
	}

	var directors *lookup.DirectorTable
	if path, _ := fs.GetString("director-csv"); path != "" {
		directors, err = lookup.LoadDirectorCSV(path)
		if err != nil {
			logger.Warn().Err(err).Str("path", path).Msg("director table unavailable")
		}
	}

	rt := router.New(directors, chunks, router.DefaultPartitions, engine)

	var fetcher *notices.Fetcher
	if webClient != nil {
		fetcher = notices.NewFetcher(webClient)
	}
	var proc *notices.ProcurementClient
	if cfg.Procurement.ServiceKey != "" {
		proc = notices.NewProcurementClient(notices.ProcurementConfig{
			BaseURL:    cfg.Procurement.BaseURL,
			Operation:  cfg.Procurement.Operation,
			ServiceKey: cfg.Procurement.ServiceKey,
			PageMax:    cfg.Procurement.PageMax,
			Rows:       cfg.Procurement.Rows,
		})
	}
	noticeSvc := notices.NewService(fetcher, proc)

	researchEngine := research.New(webClient, finance.NewClient(cfg.Finance.BaseURL), client)

	authn, err := auth.New(cfg.Auth.JwtSecret, time.Duration(cfg.Auth.TokenTTLHours)*time.Hour, cfg.Auth.Enabled)
	if err != nil {
		log.Fatalf("Failed to initialize auth: %v", err)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200) })

	mux.HandleFunc("/auth/status", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]bool{"enabled": authn.Enabled()})
	})

	mux.HandleFunc("/auth/me", authn.OptionalAuthMiddleware(func(w http.ResponseWriter, r *http.Request) {
		user := auth.GetUserFromContext(r)
		if user == nil {
			http.Error(w, "No authentication token", http.StatusUnauthorized)
			return
		}
		writeJSON(w, user)
	}))

	mux.HandleFunc("/query", authn.OptionalAuthMiddleware(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		q := strings.TrimSpace(r.URL.Query().Get("q"))
		if q == "" {
			http.Error(w, "missing query parameter q", http.StatusBadRequest)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 60*time.Second)
		defer cancel()

		answer := rt.Dispatch(ctx, q)
		resp := queryResponse{Query: q, Kind: answer.Kind(), Answer: answer}

		if r.URL.Query().Get("save") == "1" {
			path, err := render.SaveMarkdown(cfg.OutputDir, render.Slug(q), render.Enveloped(answer, q, ""))
			if err != nil {
				logger.Warn().Err(err).Msg("failed to save report")
			} else {
				resp.SavedPath = path
			}
			resp.Markdown = render.Enveloped(answer, q, resp.SavedPath)
		}

		writeJSON(w, resp)
		hlog.FromRequest(r).Info().Str("path", "/query").Str("q", q).Str("kind", answer.Kind()).Dur("dur", time.Since(start)).Msg("served")
	}))

	mux.HandleFunc("/notices", authn.OptionalAuthMiddleware(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		q := strings.TrimSpace(r.URL.Query().Get("q"))
		if q == "" {
			http.Error(w, "missing query parameter q", http.StatusBadRequest)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 60*time.Second)
		defer cancel()

		payload := noticeSvc.Find(ctx, q, notices.Options{
			NIPATopK:       cfg.Notices.NIPATopK,
			BizInfoTopK:    cfg.Notices.BizInfoTopK,
			WebTopK:        cfg.Notices.WebTopK,
			UseProcurement: cfg.Procurement.Enabled,
			SourcePriority: cfg.Notices.SourcePriority,
			TrustedDomains: cfg.Notices.TrustedDomains,
		})
		writeJSON(w, router.NoticesAnswer{Payload: payload})
		hlog.FromRequest(r).Info().Str("path", "/notices").Str("q", q).Int("items", len(payload.Items)).Dur("dur", time.Since(start)).Msg("served")
	}))

	mux.HandleFunc("/research", authn.OptionalAuthMiddleware(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		q := strings.TrimSpace(r.URL.Query().Get("q"))
		if q == "" {
			http.Error(w, "missing query parameter q", http.StatusBadRequest)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 90*time.Second)
		defer cancel()

		tickers := research.ExtractTickers(q)
		payload := researchEngine.Handle(ctx, q, research.Plan{
			DoWeb:    true,
			DoStocks: len(tickers) > 0,
			DoRisk:   r.URL.Query().Get("risk") == "1",
			Tickers:  tickers,
		})
		writeJSON(w, router.ResearchAnswer{Payload: payload})
		hlog.FromRequest(r).Info().Str("path", "/research").Str("q", q).Dur("dur", time.Since(start)).Msg("served")
	}))

	mux.HandleFunc("/search", authn.OptionalAuthMiddleware(func(w http.ResponseWriter, r *http.Request) {
		q := strings.TrimSpace(r.URL.Query().Get("q"))
		if q == "" {
			http.Error(w, "missing query parameter q", http.StatusBadRequest)
			return
		}
		if engine == nil {
			http.Error(w, "retrieval engine unavailable", http.StatusServiceUnavailable)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
		defer cancel()

		payload, err := engine.Handle(ctx, q)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, payload)
	}))

	handler := hlog.NewHandler(logger)(
		hlog.AccessHandler(func(r *http.Request, status, size int, dur time.Duration) {
			logger.Info().Str("method", r.Method).Str("path", r.URL.Path).Int("status", status).Int("size", size).Dur("dur", dur).Msg("http")
		})(mux),
	)

	address := fmt.Sprintf(":%d", cfg.Port)
	s := &http.Server{Addr: address, Handler: handler}
	logger.Info().Str("addr", s.Addr).Msg("api server listening")
	log.Fatal(s.ListenAndServe())
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}
