package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/toondesk/toondesk/ai/core/embedding"
	"github.com/toondesk/toondesk/ai/core/llm"
	"github.com/toondesk/toondesk/ai/core/reranker"
	"github.com/toondesk/toondesk/ai/criteria"
	"github.com/toondesk/toondesk/ai/intent"
	"github.com/toondesk/toondesk/ai/memory"
	"github.com/toondesk/toondesk/ai/metrics"
	"github.com/toondesk/toondesk/ai/retrieval"
	"github.com/toondesk/toondesk/auditlog"
	"github.com/toondesk/toondesk/catalog"
	"github.com/toondesk/toondesk/chat"
	"github.com/toondesk/toondesk/internal/profile"
	"github.com/toondesk/toondesk/internal/version"
	"github.com/toondesk/toondesk/server"
	"github.com/toondesk/toondesk/store"
	"github.com/toondesk/toondesk/store/db/postgres"
)

var rootCmd = &cobra.Command{
	Use:   "toondesk",
	Short: `A webtoon catalog Q&A service. Classifies questions by intent and answers from the catalog and legal knowledge base.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Systemd units carry their environment via EnvironmentFile,
		// so skip .env loading there.
		if !isRunningAsSystemdService() {
			_ = godotenv.Load()
		}
		return nil
	},
	Run: func(_ *cobra.Command, _ []string) {
		instanceProfile := &profile.Profile{
			Mode:    viper.GetString("mode"),
			Addr:    viper.GetString("addr"),
			Port:    viper.GetInt("port"),
			Data:    viper.GetString("data"),
			DSN:     viper.GetString("dsn"),
			Version: version.GetCurrentVersion(viper.GetString("mode")),
		}
		instanceProfile.FromEnv()
		if err := instanceProfile.Validate(); err != nil {
			panic(err)
		}

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		dbDriver, err := postgres.NewDB(instanceProfile.DSN, instanceProfile.EmbeddingDimensions)
		if err != nil {
			printDatabaseError(err)
			slog.Error("failed to create db driver", "error", err)
			return
		}
		storeInstance := store.New(dbDriver)
		defer storeInstance.Close()
		if err := storeInstance.Migrate(ctx); err != nil {
			slog.Error("failed to migrate", "error", err)
			return
		}

		table, err := catalog.LoadCSV(instanceProfile.CatalogPath)
		if err != nil {
			slog.Error("failed to load catalog", "path", instanceProfile.CatalogPath, "error", err)
			return
		}
		slog.Info("catalog loaded", "path", instanceProfile.CatalogPath, "rows", table.Len())

		llmService, err := llm.NewService(&llm.Config{
			Provider:      instanceProfile.LLMProvider,
			Model:         instanceProfile.LLMModel,
			APIKey:        instanceProfile.LLMAPIKey,
			BaseURL:       instanceProfile.LLMBaseURL,
			Timeout:       instanceProfile.LLMTimeout,
			RatePerSecond: instanceProfile.LLMRate,
		})
		if err != nil {
			slog.Error("failed to create llm service", "error", err)
			return
		}
		// Warmup is best-effort and must not delay startup.
		go func() {
			warmupCtx, warmupCancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer warmupCancel()
			llmService.Warmup(warmupCtx)
		}()

		embedder, err := embedding.NewProvider(&embedding.Config{
			Provider:   instanceProfile.EmbeddingProvider,
			Model:      instanceProfile.EmbeddingModel,
			APIKey:     instanceProfile.EmbeddingAPIKey,
			BaseURL:    instanceProfile.EmbeddingBaseURL,
			Dimensions: instanceProfile.EmbeddingDimensions,
		})
		if err != nil {
			slog.Error("failed to create embedding provider", "error", err)
			return
		}

		indexer := retrieval.NewIndexer(storeInstance, embedder)
		if err := indexer.EnsureCatalogIndex(ctx, table); err != nil {
			slog.Error("failed to index catalog", "error", err)
			return
		}

		exporter := metrics.NewExporter()
		audit := auditlog.New(instanceProfile.AuditLogPath)
		classifier := intent.NewClassifier(llmService, audit, exporter).
			WithThreshold(instanceProfile.ConfidenceThreshold)
		extractor := criteria.NewExtractor(llmService)
		ranker := catalog.NewRanker(table, extractor)

		rerankService := reranker.NewService(&reranker.Config{
			Enabled: instanceProfile.RerankEnabled,
			Model:   instanceProfile.RerankModel,
			APIKey:  instanceProfile.RerankAPIKey,
			BaseURL: instanceProfile.RerankBaseURL,
		})
		legalRetriever := retrieval.NewRetriever(storeInstance, embedder, store.IndexLegal).
			WithReranker(rerankService)
		infoRetriever := retrieval.NewRetriever(storeInstance, embedder, store.IndexInfo).
			WithReranker(rerankService)
		answerer := retrieval.NewAnswerer(legalRetriever, llmService)
		sessions := memory.NewInMemoryStore()

		dispatcher := chat.NewDispatcher(
			classifier, ranker, answerer, legalRetriever, infoRetriever,
			llmService, sessions, exporter,
		)
		s := server.NewServer(instanceProfile, dispatcher, exporter)

		c := make(chan os.Signal, 1)
		// SIGTERM is the graceful shutdown signal used by most process
		// managers (systemd, kubernetes).
		signal.Notify(c, terminationSignals...)
		go func() {
			<-c
			s.Shutdown(ctx)
			cancel()
		}()

		printGreetings(instanceProfile)
		if err := s.Start(ctx); err != nil {
			if !errors.Is(err, http.ErrServerClosed) {
				slog.Error("failed to start server", "error", err)
				return
			}
		}
		<-ctx.Done()
	},
}

func init() {
	viper.SetDefault("mode", "dev")
	viper.SetDefault("port", 8000)

	rootCmd.PersistentFlags().String("mode", "dev", `mode of server, can be "prod" or "dev" or "demo"`)
	rootCmd.PersistentFlags().String("addr", "", "address of server")
	rootCmd.PersistentFlags().Int("port", 8000, "port of server")
	rootCmd.PersistentFlags().String("data", "", "data directory")
	rootCmd.PersistentFlags().String("dsn", "", "database source name(aka. DSN)")

	for _, flag := range []string{"mode", "addr", "port", "data", "dsn"} {
		if err := viper.BindPFlag(flag, rootCmd.PersistentFlags().Lookup(flag)); err != nil {
			panic(err)
		}
	}

	viper.SetEnvPrefix("toondesk")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
}

func printGreetings(profile *profile.Profile) {
	fmt.Printf("ToonDesk %s started successfully!\n", profile.Version)

	if profile.IsDev() {
		fmt.Fprint(os.Stderr, "Development mode is enabled\n")
	}

	fmt.Printf("Data directory: %s\n", profile.Data)
	fmt.Printf("Mode: %s\n", profile.Mode)
	if len(profile.Addr) == 0 {
		fmt.Printf("Server running on port %d\n", profile.Port)
	} else {
		fmt.Printf("Server running on %s:%d\n", profile.Addr, profile.Port)
	}
}

// isRunningAsSystemdService detects if the process is running under systemd.
func isRunningAsSystemdService() bool {
	return os.Getenv("INVOCATION_ID") != "" || os.Getenv("WATCHDOG_USEC") != ""
}

// printDatabaseError provides user-friendly hints for database connection issues.
func printDatabaseError(err error) {
	fmt.Fprintln(os.Stderr, "\nDatabase connection failed")

	errMsg := err.Error()
	switch {
	case strings.Contains(errMsg, "connection refused") || strings.Contains(errMsg, "no such host"):
		fmt.Fprintln(os.Stderr, "PostgreSQL is not reachable. Check that the server is running and TOONDESK_DSN points at it.")
	case strings.Contains(errMsg, "SSL is not enabled") || strings.Contains(errMsg, "sslmode"):
		fmt.Fprintln(os.Stderr, "SSL configuration mismatch. Add ?sslmode=disable to the DSN for local setups.")
	case strings.Contains(errMsg, "password authentication failed"):
		fmt.Fprintln(os.Stderr, "Authentication failed. Check the credentials in the DSN or .env file.")
	case strings.Contains(errMsg, "does not exist"):
		fmt.Fprintln(os.Stderr, "Database does not exist. Create it before starting the service.")
	default:
		fmt.Fprintln(os.Stderr, "Error:", errMsg)
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		panic(err)
	}
}
