package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/sweetpotato0/bookaudit/config"
	"github.com/sweetpotato0/bookaudit/middleware"
	"github.com/sweetpotato0/bookaudit/pkg/logging"
	"github.com/sweetpotato0/bookaudit/pkg/telemetry"
	"github.com/sweetpotato0/bookaudit/policy"
	"github.com/sweetpotato0/bookaudit/prompt"
	"github.com/sweetpotato0/bookaudit/provider"
	"github.com/sweetpotato0/bookaudit/provider/claude"
	"github.com/sweetpotato0/bookaudit/provider/gemini"
	"github.com/sweetpotato0/bookaudit/provider/groq"
	"github.com/sweetpotato0/bookaudit/provider/openai"
	"github.com/sweetpotato0/bookaudit/report"
	"github.com/sweetpotato0/bookaudit/review"
	"github.com/sweetpotato0/bookaudit/store"
)

func main() {
	var (
		docID      = flag.String("doc", "", "review only chunks of this document (default: all documents)")
		reportPath = flag.String("report", "review_report.html", "path of the HTML report to write")
		seed       = flag.Bool("seed", false, "seed the builtin agents into an empty agents collection")
		printText  = flag.Bool("print-summary", false, "print the plain-text summary of every chunk")
	)
	flag.Parse()

	logger := logging.WithComponent("main")
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName: "bookaudit",
		Environment: os.Getenv("BOOKAUDIT_ENV"),
		Disable:     os.Getenv("BOOKAUDIT_TRACING") == "off",
	})
	if err != nil {
		logger.Error("telemetry init failed", "error", err)
		os.Exit(1)
	}
	defer shutdownTracing(context.Background())

	reviewCfg := config.ReviewFromEnv()
	if err := reviewCfg.Validate(); err != nil {
		logger.Error("invalid review configuration", "error", err)
		os.Exit(1)
	}

	// The document store is the one hard dependency; without it there is
	// nothing to review.
	db, err := store.NewMongo(ctx, store.MongoConfigFromEnv())
	if err != nil {
		logger.Error("MongoDB unavailable", "error", err)
		os.Exit(1)
	}
	defer db.Close(context.Background())

	var cache *store.StatusCache
	if addr := os.Getenv("BOOKAUDIT_REDIS_ADDR"); addr != "" {
		cache, err = store.NewStatusCache(store.RedisConfigFromEnv())
		if err == nil {
			err = cache.Ping(ctx)
		}
		if err != nil {
			logger.Warn("Redis unavailable, continuing without status cache", "error", err)
			cache = nil
		}
	}
	status := store.NewLayeredStatus(db, cache)

	agents, err := loadAgents(ctx, db, *seed)
	if err != nil {
		logger.Error("load agents failed", "error", err)
		os.Exit(1)
	}
	logger.Info("agents loaded", "count", len(agents))

	orch, err := buildOrchestrator(agents, reviewCfg, db, status, logger)
	if err != nil {
		logger.Error("build orchestrator failed", "error", err)
		os.Exit(1)
	}

	chunks, err := db.PendingChunks(ctx, *docID)
	if err != nil {
		logger.Error("load pending chunks failed", "error", err)
		os.Exit(1)
	}
	logger.Info("pending chunks loaded", "count", len(chunks), "doc", *docID)

	agentNames := make([]string, 0, len(agents))
	for _, a := range agents {
		agentNames = append(agentNames, a.Name)
	}

	var entries []report.Entry
	for _, chunk := range chunks {
		if ctx.Err() != nil {
			logger.Warn("interrupted, stopping after current chunk")
			break
		}
		rep, err := orch.ReviewChunk(ctx, chunk)
		if err != nil {
			logger.Error("persistence incomplete for chunk", "chunk_id", chunk.ID, "error", err)
		}
		if rep.Skipped {
			continue
		}
		entries = append(entries, report.Entry{Chunk: chunk, Report: rep})
		if *printText {
			fmt.Println(report.Summary(agentNames, rep))
		}
	}

	if len(entries) == 0 {
		logger.Info("no chunks reviewed, skipping report")
		return
	}
	if err := writeHTMLReport(*reportPath, entries); err != nil {
		logger.Error("write report failed", "error", err)
		os.Exit(1)
	}
	logger.Info("review complete", "chunks", len(entries), "report", *reportPath)
}

// loadAgents fetches analysis agents, seeding the builtin personas first when
// asked and the collection is empty.
func loadAgents(ctx context.Context, db *store.Mongo, seed bool) ([]policy.Agent, error) {
	agents, err := db.LoadAgents(ctx)
	if err != nil {
		return nil, err
	}
	if len(agents) == 0 && seed {
		if err := db.SeedAgents(ctx, policy.BuiltinAgents()); err != nil {
			return nil, err
		}
		agents, err = db.LoadAgents(ctx)
		if err != nil {
			return nil, err
		}
	}
	if len(agents) == 0 {
		return nil, fmt.Errorf("no analysis agents configured (run with -seed to install the builtin set)")
	}
	return agents, nil
}

func buildOrchestrator(agents []policy.Agent, reviewCfg config.Review, db *store.Mongo, status review.StatusStore, logger *slog.Logger) (*review.Orchestrator, error) {
	judgeClient, err := newProviderClient("BOOKAUDIT_JUDGE")
	if err != nil {
		return nil, fmt.Errorf("judge provider: %w", err)
	}
	evalClient, err := newProviderClient("BOOKAUDIT_EVAL")
	if err != nil {
		return nil, fmt.Errorf("evaluator provider: %w", err)
	}

	chain := middleware.NewChain(middleware.NewPromptAudit(nil))
	judge := review.NewClientInvoker(judgeClient,
		review.WithSystemPrompt(review.JudgeSystemPrompt),
		review.WithMiddleware(chain),
	)
	evalInvoker := review.NewClientInvoker(evalClient, review.WithMiddleware(chain))
	evaluator := review.NewEvaluator(evalInvoker, reviewCfg)

	var libOpts []prompt.LibraryOption
	if tok, err := prompt.NewTokenizer(); err != nil {
		logger.Warn("tokenizer unavailable, neighbour context not trimmed", "error", err)
	} else {
		libOpts = append(libOpts, prompt.WithTokenizer(tok, reviewCfg.ContextTokenBudget))
	}
	prompts := prompt.NewLibrary(agents, libOpts...)

	runners := make([]*review.AgentRunner, 0, len(agents))
	for _, agent := range agents {
		runners = append(runners, review.NewAgentRunner(agent, prompts, judge, evaluator, reviewCfg))
	}

	return review.NewOrchestrator(runners,
		review.WithConcurrency(reviewCfg.Concurrency),
		review.WithResultSink(db),
		review.WithStatusStore(status),
	)
}

// newProviderClient builds an LLM client from <prefix>_PROVIDER and friends,
// e.g. BOOKAUDIT_JUDGE_PROVIDER=openai BOOKAUDIT_JUDGE_MODEL=gpt-4o-mini.
func newProviderClient(prefix string) (provider.Client, error) {
	name := strings.ToLower(envOr(prefix+"_PROVIDER", "openai"))
	apiKey := os.Getenv(prefix + "_API_KEY")
	model := os.Getenv(prefix + "_MODEL")
	baseURL := os.Getenv(prefix + "_BASE_URL")

	switch name {
	case "openai":
		cfg := openai.DefaultConfig().WithAPIKey(apiKey)
		if baseURL != "" {
			cfg.WithBaseURL(baseURL)
		}
		if model != "" {
			cfg.WithModel(model)
		}
		return openai.New(cfg), nil
	case "claude":
		cfg := claude.DefaultConfig(apiKey, baseURL)
		if model != "" {
			cfg.Model = model
		}
		return claude.New(cfg), nil
	case "groq":
		cfg := groq.DefaultConfig(apiKey)
		if model != "" {
			cfg.Model = model
		}
		return groq.New(cfg), nil
	case "gemini":
		cfg := gemini.DefaultConfig(apiKey)
		if model != "" {
			cfg.Model = model
		}
		return gemini.New(cfg), nil
	}
	return nil, fmt.Errorf("unknown provider %q", name)
}

func writeHTMLReport(path string, entries []report.Entry) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	h := report.HTMLReport{Title: "LLM Review Report"}
	return h.Write(f, entries)
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
