// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package main

import (
	"cmp"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"os"
	"strings"
	"time"

	"go.astrophena.name/tinkerbot/internal/botconfig"
	"go.astrophena.name/tinkerbot/internal/catalog"
	"go.astrophena.name/tinkerbot/internal/cli"
	"go.astrophena.name/tinkerbot/internal/github"
	"go.astrophena.name/tinkerbot/internal/httplogger"
	"go.astrophena.name/tinkerbot/internal/logger"
	"go.astrophena.name/tinkerbot/internal/news"
	"go.astrophena.name/tinkerbot/internal/request"
	"go.astrophena.name/tinkerbot/internal/search"
	"go.astrophena.name/tinkerbot/internal/session"
	"go.astrophena.name/tinkerbot/internal/store"
	"go.astrophena.name/tinkerbot/internal/syncx"
	"go.astrophena.name/tinkerbot/internal/systemd"
	"go.astrophena.name/tinkerbot/internal/telegram"
	"go.astrophena.name/tinkerbot/internal/web"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"
)

func main() { cli.Main(new(engine)) }

const (
	defaultPort          = "10000"
	defaultWebhookPath   = "/webhook"
	defaultWebhookSecret = "secret123"
	defaultCatalogPath   = "projects.json"

	logLineLimit    = 300
	rawCacheTTL     = time.Hour
	searchTimeout   = 30 * time.Second
	spinnerInterval = 2 * time.Second
)

func (e *engine) Flags(fs *flag.FlagSet) {
	fs.StringVar(&e.addr, "addr", "", "Listen on `host:port`. Overrides PORT.")
	fs.StringVar(&e.catalogPath, "catalog", "", "Load the project catalog from `path`. Overrides DB_PATH.")
	fs.StringVar(&e.configPath, "config", "", "Load Starlark configuration from `path`. Overrides CONFIG_PATH.")
	fs.StringVar(&e.envFile, "env-file", ".env", "Read missing environment variables from `path`, if it exists.")
	fs.BoolVar(&e.poll, "poll", false, "Poll for updates instead of using a webhook.")
	fs.BoolVar(&e.verbose, "verbose", false, "Enable debug logging.")
}

func (e *engine) Run(ctx context.Context) error {
	env := cli.GetEnv(ctx)

	getenv, err := withDotenv(env.Getenv, e.envFile)
	if err != nil {
		return err
	}

	// Load configuration from environment variables.
	e.tgToken = cmp.Or(e.tgToken, getenv("BOT_TOKEN"), getenv("TELEGRAM_BOT_TOKEN"))
	e.ghToken = cmp.Or(e.ghToken, getenv("GITHUB_TOKEN"))
	e.publicURL = strings.TrimSuffix(cmp.Or(e.publicURL, getenv("PUBLIC_URL")), "/")
	e.webhookPath = cmp.Or(e.webhookPath, getenv("WEBHOOK_PATH"), defaultWebhookPath)
	if !strings.HasPrefix(e.webhookPath, "/") {
		e.webhookPath = "/" + e.webhookPath
	}
	e.webhookSecret = cmp.Or(e.webhookSecret, getenv("WEBHOOK_SECRET"), defaultWebhookSecret)
	e.addr = cmp.Or(e.addr, ":"+cmp.Or(getenv("PORT"), defaultPort))
	e.catalogPath = cmp.Or(e.catalogPath, getenv("DB_PATH"), defaultCatalogPath)
	e.configPath = cmp.Or(e.configPath, getenv("CONFIG_PATH"))
	e.logLevel = cmp.Or(e.logLevel, getenv("LOG_LEVEL"))

	if e.tgToken == "" {
		return fmt.Errorf("%w: BOT_TOKEN or TELEGRAM_BOT_TOKEN must be set", cli.ErrInvalidArgs)
	}

	e.stderr = env.Stderr

	// Initialize internal state.
	if err := e.init.Get(func() error {
		return e.doInit(ctx)
	}); err != nil {
		return err
	}

	// Used in tests.
	if e.noServerStart {
		return nil
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return e.srv.ListenAndServe(ctx) })
	g.Go(func() error {
		systemd.WatchdogLoop(ctx, e.log)
		return nil
	})

	// Update delivery runs in the group so a setup failure also stops the
	// server.
	g.Go(func() error {
		if e.poll || e.publicURL == "" {
			if !e.poll {
				e.log.Warn("PUBLIC_URL is not set, polling for updates")
			}
			if err := e.tg.DeleteWebhook(ctx); err != nil {
				return fmt.Errorf("deleting webhook: %w", err)
			}
			return e.tg.Poll(ctx, e.handle)
		}
		target := e.publicURL + e.webhookPath
		if err := e.tg.SetWebhook(ctx, target, e.webhookSecret); err != nil {
			return fmt.Errorf("setting webhook: %w", err)
		}
		e.log.Info("webhook set", "url", target)
		return nil
	})

	err = g.Wait()
	systemd.Notify(ctx, e.log, systemd.Stopping)
	return err
}

// withDotenv returns a getenv function that falls back to variables from the
// dotenv file at path. A missing file is not an error.
func withDotenv(getenv func(string) string, path string) (func(string) string, error) {
	if path == "" {
		return getenv, nil
	}
	vars, err := godotenv.Read(path)
	if errors.Is(err, fs.ErrNotExist) {
		return getenv, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return func(key string) string { return cmp.Or(getenv(key), vars[key]) }, nil
}

type engine struct {
	init syncx.Lazy[error] // main initialization

	// initialized by doInit
	catalog   *catalog.Catalog
	config    *botconfig.Config
	gh        *github.Client
	level     *slog.LevelVar
	log       *slog.Logger
	logStream *logger.Streamer
	mux       *http.ServeMux
	news      *news.Fetcher
	rawCache  *store.MemStore
	scrubber  *strings.Replacer
	search    *search.Executor
	sessions  *session.Store
	srv       *web.Server
	tg        *telegram.Client
	me        *telegram.User // obtained from Telegram Bot API

	// configuration, read-only after initialization
	addr          string
	catalogPath   string
	configPath    string
	envFile       string
	ghToken       string
	httpc         *http.Client
	logLevel      string
	poll          bool
	publicURL     string
	stderr        io.Writer
	tgToken       string
	verbose       bool
	webhookPath   string
	webhookSecret string

	// for tests
	noServerStart   bool
	noSearchPacing  bool
	ready           func() // see web.Server.Ready
	randIntN        func(n int) int
	searchTimeout   time.Duration
	spinnerInterval time.Duration
}

func (e *engine) doInit(ctx context.Context) error {
	if e.httpc == nil {
		e.httpc = request.DefaultClient
	}
	if e.stderr == nil {
		e.stderr = os.Stderr
	}
	if e.randIntN == nil {
		e.randIntN = rand.IntN
	}
	e.searchTimeout = cmp.Or(e.searchTimeout, searchTimeout)
	e.spinnerInterval = cmp.Or(e.spinnerInterval, spinnerInterval)

	e.level = new(slog.LevelVar)
	e.level.Set(logger.ParseLevel(e.logLevel))
	if e.verbose {
		e.level.Set(slog.LevelDebug)
	}
	e.logStream = logger.NewStreamer(logLineLimit)
	e.log = logger.New(io.MultiWriter(e.stderr, e.logStream), e.level)

	var scrubPairs []string
	for _, val := range []string{
		e.tgToken,
		e.ghToken,
		e.webhookSecret,
	} {
		if val != "" {
			scrubPairs = append(scrubPairs, val, "[EXPUNGED]")
		}
	}
	if len(scrubPairs) > 0 {
		e.scrubber = strings.NewReplacer(scrubPairs...)
	}
	e.httpc = &http.Client{
		Timeout:   e.httpc.Timeout,
		Transport: httplogger.New(e.httpc.Transport, e.log, e.scrubber),
	}

	var err error
	e.catalog, err = catalog.Load(e.catalogPath)
	if err != nil {
		// Run with an empty catalog; GitHub search still works.
		e.log.Warn("failed to load catalog, using an empty one", "path", e.catalogPath, "error", err)
		e.catalog = new(catalog.Catalog)
	} else {
		e.log.Info("loaded catalog", "path", e.catalogPath, "stats", e.catalog.Stats())
	}

	e.config, err = botconfig.Load(e.configPath, e.log)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	e.tg = telegram.New(telegram.Config{
		Token:      e.tgToken,
		HTTPClient: e.httpc,
		Scrubber:   e.scrubber,
		Logger:     e.log,
	})
	e.gh = &github.Client{
		Token:      e.ghToken,
		HTTPClient: e.httpc,
		Scrubber:   e.scrubber,
	}
	opts := []search.Option{search.WithLogger(e.log)}
	if e.noSearchPacing {
		opts = append(opts, search.WithLimiter(nil))
	}
	e.search = search.NewExecutor(e.gh, opts...)
	e.news = &news.Fetcher{HTTPClient: e.httpc, Logger: e.log}
	e.sessions = session.New(session.DefaultSize)
	e.rawCache = store.NewMemStore(ctx, rawCacheTTL)

	e.me, err = e.tg.GetMe(ctx)
	if err != nil {
		return fmt.Errorf("getMe: %w", err)
	}
	e.log.Info("authorized", "bot", e.me.Username)

	e.initRoutes()
	e.srv = &web.Server{
		Addr:   e.addr,
		Mux:    e.mux,
		Logger: e.log,
		Ready: func() {
			systemd.Notify(ctx, e.log, systemd.Ready)
			if e.ready != nil {
				e.ready()
			}
		},
	}

	return nil
}
