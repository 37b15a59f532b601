package cmd

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/kulmaganbetov/overbot123/app/build"
	"github.com/kulmaganbetov/overbot123/app/catalog"
	"github.com/kulmaganbetov/overbot123/app/categories"
	"github.com/kulmaganbetov/overbot123/app/chat"
	searchapi "github.com/kulmaganbetov/overbot123/app/search"
	"github.com/kulmaganbetov/overbot123/assembly"
	"github.com/kulmaganbetov/overbot123/assistant"
	"github.com/kulmaganbetov/overbot123/config"
	"github.com/kulmaganbetov/overbot123/inventory"
	"github.com/kulmaganbetov/overbot123/llm"
	"github.com/kulmaganbetov/overbot123/models"
	"github.com/kulmaganbetov/overbot123/search"
	"github.com/kulmaganbetov/overbot123/server"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long: `Starts the catalog, search, build and chat API. The catalog is loaded
at startup and refreshed periodically, on file changes (catalog.watch) or on
Postgres notifications (catalog.notify_channel).`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig(true)
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("port") {
			cfg.Server.Port = servePort
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return serve(ctx, cfg, logger)
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 8080, "port to listen on (overrides server.port)")
	rootCmd.AddCommand(serveCmd)
}

func serve(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	db, err := models.Open(cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return err
	}
	defer closeDatabase(db, logger)

	source, err := catalogSource(cfg, db)
	if err != nil {
		return err
	}
	store := inventory.NewStore()
	refresher := inventory.NewRefresher(source, store, logger)
	// the API answers 503 until a snapshot is loaded
	if err := refresher.Refresh(ctx); err != nil {
		logger.Warn("starting without a catalog", "error", err)
	}

	opts, err := assemblyOptions(cfg)
	if err != nil {
		return err
	}
	engine := search.NewEngine(store, logger)
	assembler := assembly.New(engine, models.NewBuildsRepository(db), opts, logger)
	history := models.NewMessagesRepository(db)

	var (
		classifier assistant.Classifier = llm.KeywordClassifier{}
		writer     assistant.Writer     = llm.Passthrough{}
	)
	if cfg.LLM.Enabled {
		client := llm.NewClient(llm.Config{
			APIKey:            cfg.LLM.APIKey,
			BaseURL:           cfg.LLM.BaseURL,
			Model:             cfg.LLM.Model,
			MaxTokens:         cfg.LLM.MaxTokens,
			Timeout:           cfg.LLM.Timeout,
			RequestsPerMinute: cfg.LLM.RequestsPerMinute,
			Burst:             cfg.LLM.Burst,
		}, logger)
		classifier, writer = client, client
	} else {
		logger.Info("llm disabled, using keyword intents and plain drafts")
	}
	bot := assistant.New(classifier, writer, engine, assembler, history, logger)

	labels := make(map[models.Slot]string, len(models.Slots))
	for _, s := range models.Slots {
		labels[s] = assembler.Label(s)
	}
	products := inventory.NewCatalog(store, labels)

	srv := server.New(server.Config{
		Port:           cfg.Server.Port,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		RequestTimeout: cfg.Server.RequestTimeout,
	}, server.Handlers{
		Catalog:    catalog.NewCatalogHandler(products),
		Categories: categories.NewCategoryHandler(products),
		Search:     searchapi.NewSearchHandler(engine),
		Build:      build.NewBuildHandler(assembler),
		Chat:       chat.NewChatHandler(bot, history, logger),
	}, logger)

	watcher, err := catalogWatcher(cfg, logger)
	if err != nil {
		return err
	}
	if watcher != nil {
		defer watcher.Stop()
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		refresher.Run(ctx, cfg.Catalog.RefreshInterval)
		return nil
	})

	if watcher != nil {
		g.Go(func() error {
			return watcher.Watch(ctx, refresher.Trigger)
		})
	}

	if cfg.Catalog.NotifyChannel != "" {
		notifier := inventory.NewPGNotifier(cfg.Database.DSN, cfg.Catalog.NotifyChannel, logger)
		g.Go(func() error {
			return notifier.Listen(ctx, refresher.Trigger)
		})
	}

	g.Go(srv.Start)

	g.Go(func() error {
		<-ctx.Done()
		logger.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
