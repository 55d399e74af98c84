package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
	"github.com/urfave/cli/v2"

	"newsroom/web/internal/config"
	"newsroom/web/internal/content"
	"newsroom/web/internal/database"
	"newsroom/web/internal/feed"
	importnews "newsroom/web/internal/import"
	"newsroom/web/internal/models"
	"newsroom/web/internal/server"
	"newsroom/web/internal/view"
)

func dbFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "db-driver",
			Usage: "Feed database driver, sqlite3 or postgres (env: " + config.EnvDBDriver + ")",
		},
		&cli.StringFlag{
			Name:  "db-dsn",
			Usage: "SQLite file path or PostgreSQL connection string (env: " + config.EnvDBDSN + ")",
		},
	}
}

func contentFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "content-backend",
			Usage: "Content store, sanity or local (env: " + config.EnvContentBackend + ")",
		},
		&cli.StringFlag{
			Name:  "dataset",
			Usage: "NDJSON dataset export for the local backend (env: " + config.EnvDatasetFile + ")",
		},
	}
}

// loadConfig reads the environment and applies any flags that were set.
func loadConfig(ctx *cli.Context) *config.Config {
	cfg := config.FromEnv()

	if ctx.IsSet("db-driver") {
		cfg.DBDriver = ctx.String("db-driver")
	}
	if ctx.IsSet("db-dsn") {
		cfg.DBDSN = ctx.String("db-dsn")
	}
	if ctx.IsSet("content-backend") {
		cfg.ContentBackend = ctx.String("content-backend")
	}
	if ctx.IsSet("dataset") {
		cfg.DatasetFile = ctx.String("dataset")
	}
	if ctx.IsSet("host") {
		cfg.ServerHost = ctx.String("host")
	}
	if ctx.IsSet("port") {
		cfg.ServerPort = ctx.Int("port")
	}
	if ctx.IsSet("site-url") {
		cfg.SiteURL = ctx.String("site-url")
	}
	if ctx.IsSet("visual-editing") {
		cfg.VisualEditing = ctx.Bool("visual-editing")
	}
	return cfg
}

func newGateway(cfg *config.Config) (*content.Gateway, error) {
	var backend content.Backend
	switch cfg.ContentBackend {
	case config.BackendLocal:
		local, err := content.OpenLocalBackend(cfg.DatasetFile)
		if err != nil {
			return nil, err
		}
		backend = local
	default:
		backend = content.NewSanityBackend(content.SanityConfig{
			ProjectID:  cfg.SanityProjectID,
			Dataset:    cfg.SanityDataset,
			APIVersion: cfg.SanityAPIVersion,
			Token:      cfg.SanityToken,
			UseCDN:     cfg.SanityUseCDN,
		})
	}

	opts := []content.GatewayOption{content.WithTimeout(cfg.FetchTimeout)}
	if cfg.VisualEditing {
		opts = append(opts, content.WithVisualEditing(cfg.SanityStudioURL))
	}
	return content.NewGateway(backend, opts...), nil
}

func openDB(cfg *config.Config, readOnly bool) (*database.DB, error) {
	dbCfg := database.NewConfig(cfg.DBDriver, cfg.DBDSN)
	dbCfg.ReadOnly = readOnly

	db, err := database.NewDB(dbCfg)
	if err != nil {
		log.Error().Err(err).Str("driver", cfg.DBDriver).Msg("Failed to initialize database")
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	return db, nil
}

func serveCmd() *cli.Command {
	flags := []cli.Flag{
		&cli.StringFlag{
			Name:  "host",
			Usage: "Host to bind the server to (env: " + config.EnvHost + ")",
		},
		&cli.IntFlag{
			Name:  "port",
			Usage: "Port to listen on (env: " + config.EnvPort + ")",
		},
		&cli.StringFlag{
			Name:  "site-url",
			Usage: "Public base URL used in metadata and the sitemap (env: " + config.EnvSiteURL + ")",
		},
		&cli.BoolFlag{
			Name:  "visual-editing",
			Usage: "Serve drafts with edit overlays for the studio (env: " + config.EnvVisualEditing + ")",
		},
		&cli.BoolFlag{
			Name:  "db-read-only",
			Usage: "Open the feed database read-only and skip migrations",
		},
	}
	flags = append(flags, contentFlags()...)
	flags = append(flags, dbFlags()...)

	return &cli.Command{
		Name:  "serve",
		Usage: "Run the web server",
		Description: `Starts the HTTP server. The /news ticker is refreshed in the
background on the configured revalidation interval.`,
		Flags: flags,
		Action: func(ctx *cli.Context) error {
			cfg := loadConfig(ctx)
			if err := cfg.Validate(); err != nil {
				return err
			}
			return runServe(cfg, ctx.Bool("db-read-only"))
		},
	}
}

func runServe(cfg *config.Config, readOnly bool) error {
	log.Debug().Msg("Starting server with debug logging enabled")

	gw, err := newGateway(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize content gateway: %w", err)
	}

	db, err := openDB(cfg, readOnly)
	if err != nil {
		return err
	}
	defer db.Close()

	agg := feed.NewAggregator(feed.NewRepository(db), feed.WithTimeout(cfg.FetchTimeout))
	news := feed.NewRevalidator(agg, cfg.NewsRevalidate)
	if err := news.Start(context.Background()); err != nil {
		return err
	}
	defer news.Stop()

	projectID, dataset := cfg.ImageProject()
	srv, err := server.New(server.Options{
		Content:        gw,
		Feed:           agg,
		News:           news,
		DB:             db,
		Images:         view.NewImageBuilder(projectID, dataset),
		SiteURL:        cfg.SiteURL,
		VisualEditing:  cfg.VisualEditing,
		NewsRevalidate: cfg.NewsRevalidate,
	})
	if err != nil {
		return err
	}

	return server.RunServer(srv, cfg.ListenAddr(), log.Logger)
}

func migrateCmd() *cli.Command {
	return &cli.Command{
		Name:        "migrate",
		Usage:       "Run database migrations",
		Description: `Runs database migrations on the configured feed database. Will create the database if it does not exist.`,
		Flags:       dbFlags(),
		Action: func(ctx *cli.Context) error {
			cfg := loadConfig(ctx)
			fmt.Printf("Database configured: %s %s\n", cfg.DBDriver, cfg.DBDSN)

			// NewDB migrates read-write connections on open.
			db, err := openDB(cfg, false)
			if err != nil {
				return err
			}
			defer db.Close()

			versions, err := db.SchemaVersions(ctx.Context)
			if err != nil {
				return err
			}
			fmt.Printf("Schema versions applied: %v\n", versions)
			return nil
		},
	}
}

func rollbackCmd() *cli.Command {
	return &cli.Command{
		Name:        "rollback",
		Usage:       "Rollback database migrations",
		Description: `Rolls back the last N database migrations`,
		Flags: append(dbFlags(), &cli.IntFlag{
			Name:  "steps",
			Usage: "Number of migrations to roll back",
			Value: 1,
		}),
		Action: func(ctx *cli.Context) error {
			cfg := loadConfig(ctx)
			fmt.Printf("Database configured: %s %s\n", cfg.DBDriver, cfg.DBDSN)

			dbCfg := database.NewConfig(cfg.DBDriver, cfg.DBDSN)
			dbCfg.SkipMigrations = true
			db, err := database.NewDB(dbCfg)
			if err != nil {
				return fmt.Errorf("failed to initialize database: %w", err)
			}
			defer db.Close()
			if err := db.Rollback(ctx.Context, ctx.Int("steps")); err != nil {
				return err
			}
			versions, err := db.SchemaVersions(ctx.Context)
			if err != nil {
				return err
			}
			fmt.Printf("Schema versions now applied: %v\n", versions)
			return nil
		},
	}
}

func importCmd() *cli.Command {
	return &cli.Command{
		Name:      "import",
		Usage:     "Load news rows from a CSV file into the feed database",
		ArgsUsage: "<file.csv>",
		Description: `Imports rows with the columns id, title, link, pub_date and topic
(nation or world), plus optional description and source. Rows whose id or
link already exist are skipped.`,
		Flags: dbFlags(),
		Action: func(ctx *cli.Context) error {
			if ctx.NArg() != 1 {
				return cli.Exit("expected exactly one CSV file", 2)
			}
			cfg := loadConfig(ctx)

			db, err := openDB(cfg, false)
			if err != nil {
				return err
			}
			defer db.Close()

			summary, err := importnews.NewImporter(db).ImportFile(ctx.Context, ctx.Args().First())
			if err != nil {
				return err
			}

			fmt.Printf("Imported %d of %d rows\n", summary.Imported, summary.Total)
			if len(summary.Errors) > 0 {
				fmt.Printf("Encountered %d errors:\n", len(summary.Errors))
				for _, e := range summary.Errors {
					fmt.Printf("  - %s\n", e)
				}
			}
			return nil
		},
	}
}

func routesCmd() *cli.Command {
	return &cli.Command{
		Name:  "routes",
		Usage: "List every routable path from published content",
		Description: `Prints the paths a static build or cache warmer should visit: the
category listings, every published article under its category, the /posts/
alias of every article slug and every CMS page. Drafts are never listed.`,
		Flags: contentFlags(),
		Action: func(ctx *cli.Context) error {
			cfg := loadConfig(ctx)
			// Route enumeration never needs the studio overlay.
			cfg.VisualEditing = false
			if err := cfg.Validate(); err != nil {
				return err
			}

			gw, err := newGateway(cfg)
			if err != nil {
				return err
			}

			sigCtx, stop := signal.NotifyContext(ctx.Context, os.Interrupt, syscall.SIGTERM)
			defer stop()

			paths, err := publishedRoutes(sigCtx, gw)
			if err != nil {
				return err
			}
			for _, p := range paths {
				fmt.Println(p)
			}
			return nil
		},
	}
}

// publishedRoutes enumerates routes from published-only data.
func publishedRoutes(ctx context.Context, gw *content.Gateway) ([]string, error) {
	published := []content.Option{
		content.WithPerspective(content.PerspectivePublished),
		content.WithStega(false),
	}

	posts, err := gw.Articles(ctx, content.AllPosts, nil, published...)
	if err != nil {
		return nil, fmt.Errorf("failed to list posts: %w", err)
	}
	postSlugs, err := gw.Slugs(ctx, content.PostSlugs, published...)
	if err != nil {
		return nil, fmt.Errorf("failed to list post slugs: %w", err)
	}
	pages, err := gw.Slugs(ctx, content.PageSlugs, published...)
	if err != nil {
		return nil, fmt.Errorf("failed to list pages: %w", err)
	}

	paths := []string{"/", "/news"}
	paths = append(paths, lo.Map(models.Categories, func(c models.Category, _ int) string {
		return view.CategoryPath(c)
	})...)

	routable := lo.Filter(posts, func(a models.Article, _ int) bool {
		return a.Category != nil && a.Category.Valid()
	})
	paths = append(paths, lo.Map(routable, func(a models.Article, _ int) string {
		return view.ArticlePath(&a)
	})...)
	paths = append(paths, lo.Map(postSlugs, func(slug string, _ int) string {
		return "/posts/" + slug
	})...)
	paths = append(paths, lo.Map(pages, func(slug string, _ int) string {
		return "/" + slug
	})...)
	return paths, nil
}
