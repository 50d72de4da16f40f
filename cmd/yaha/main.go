package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/yahahealth/yaha/internal/api"
	"github.com/yahahealth/yaha/internal/flow"
	"github.com/yahahealth/yaha/internal/genai"
	"github.com/yahahealth/yaha/internal/lockfile"
	"github.com/yahahealth/yaha/internal/parser"
	"github.com/yahahealth/yaha/internal/session"
	"github.com/yahahealth/yaha/internal/store"
	"github.com/yahahealth/yaha/internal/telegram"
	"github.com/yahahealth/yaha/internal/util"
)

// Default configuration constants
const (
	// DefaultStateDir is the default directory for YAHA state data
	DefaultStateDir = "/var/lib/yaha"
	// DefaultDBFileName is the default SQLite database filename
	DefaultDBFileName = "yaha.db"
)

func main() {
	initializeLogger()

	config := loadEnvironmentConfig()
	flags := parseCommandLineFlags(config)

	if err := ensureDirectoriesExist(flags); err != nil {
		slog.Error("Failed to create required directories", "error", err)
		os.Exit(1)
	}

	slog.Info("Bootstrapping YAHA with configured modules")
	if err := run(flags); err != nil {
		slog.Error("YAHA failed to run", "error", err)
		os.Exit(1)
	}
	slog.Info("YAHA exited successfully")
}

// Config holds environment configuration
type Config struct {
	BotToken    string
	OpenAIKey   string
	DatabaseURL string
	StateDir    string
	RedisAddr   string
	APIAddr     string
	Debug       bool
}

// Flags holds command line flag values
type Flags struct {
	botToken  *string
	openaiKey *string
	dbDSN     *string
	stateDir  *string
	redisAddr *string
	apiAddr   *string
	debug     *bool
}

// initializeLogger sets up structured logging
func initializeLogger() {
	level := slog.LevelInfo
	if util.ParseBoolEnv("YAHA_DEBUG", false) {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
}

// loadEnvironmentConfig loads configuration from environment variables and .env file
func loadEnvironmentConfig() Config {
	if err := godotenv.Load(); err != nil {
		slog.Debug("failed to load .env file", "error", err)
	} else {
		slog.Debug("successfully loaded .env file")
	}

	config := Config{
		BotToken:    os.Getenv("TELEGRAM_BOT_TOKEN"),
		OpenAIKey:   os.Getenv("OPENAI_API_KEY"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		StateDir:    os.Getenv("YAHA_STATE_DIR"),
		RedisAddr:   os.Getenv("REDIS_ADDR"),
		APIAddr:     os.Getenv("API_ADDR"),
		Debug:       util.ParseBoolEnv("YAHA_DEBUG", false),
	}

	if config.StateDir == "" {
		config.StateDir = DefaultStateDir
		slog.Debug("No YAHA_STATE_DIR set, using default", "default_state_dir", config.StateDir)
	}

	// If no database URL is provided, default to SQLite in the state directory
	if config.DatabaseURL == "" {
		config.DatabaseURL = filepath.Join(config.StateDir, DefaultDBFileName)
		slog.Debug("No database DSN provided, defaulting to SQLite", "sqlite_path", config.DatabaseURL)
	}

	slog.Debug("environment variables loaded",
		"TELEGRAM_BOT_TOKEN_SET", config.BotToken != "",
		"OPENAI_API_KEY_SET", config.OpenAIKey != "",
		"DATABASE_URL_SET", config.DatabaseURL != "",
		"YAHA_STATE_DIR", config.StateDir,
		"REDIS_ADDR", config.RedisAddr,
		"API_ADDR", config.APIAddr)

	return config
}

// parseCommandLineFlags parses command line arguments with environment defaults
func parseCommandLineFlags(config Config) Flags {
	flags := Flags{
		botToken:  flag.String("bot-token", config.BotToken, "Telegram bot token (overrides $TELEGRAM_BOT_TOKEN)"),
		openaiKey: flag.String("openai-api-key", config.OpenAIKey, "OpenAI API key (overrides $OPENAI_API_KEY)"),
		dbDSN:     flag.String("db-dsn", config.DatabaseURL, "database DSN (overrides $DATABASE_URL)"),
		stateDir:  flag.String("state-dir", config.StateDir, "state directory for YAHA data (overrides $YAHA_STATE_DIR)"),
		redisAddr: flag.String("redis-addr", config.RedisAddr, "Redis address for session storage (overrides $REDIS_ADDR)"),
		apiAddr:   flag.String("api-addr", config.APIAddr, "API server address (overrides $API_ADDR)"),
		debug:     flag.Bool("debug", config.Debug, "enable debug logging and Telegram API tracing (overrides $YAHA_DEBUG)"),
	}

	flag.Parse()

	slog.Debug("flags parsed",
		"botTokenSet", *flags.botToken != "",
		"openaiKeySet", *flags.openaiKey != "",
		"dbDSN_set", *flags.dbDSN != "",
		"stateDir", *flags.stateDir,
		"redisAddr", *flags.redisAddr,
		"apiAddr", *flags.apiAddr)

	// Follow a moved state directory when the DSN was left at its default.
	defaultDSN := filepath.Join(config.StateDir, DefaultDBFileName)
	if *flags.dbDSN == defaultDSN && *flags.stateDir != config.StateDir {
		*flags.dbDSN = filepath.Join(*flags.stateDir, DefaultDBFileName)
		slog.Debug("Updated dbDSN based on state directory", "new_state_dir", *flags.stateDir)
	}

	return flags
}

// ensureDirectoriesExist creates necessary directories for file-based storage
func ensureDirectoriesExist(flags Flags) error {
	if store.DetectDSNType(*flags.dbDSN) == "sqlite" {
		stateDir := filepath.Dir(*flags.dbDSN)
		slog.Debug("Creating state directory for file-based database", "state_dir", stateDir)
		if err := os.MkdirAll(stateDir, 0755); err != nil {
			slog.Error("Failed to create state directory", "error", err, "state_dir", stateDir)
			return err
		}
	}
	return nil
}

// buildStoreOptions constructs store configuration options
func buildStoreOptions(flags Flags) []store.Option {
	var storeOpts []store.Option
	if store.DetectDSNType(*flags.dbDSN) == "postgres" {
		slog.Debug("Detected PostgreSQL DSN, configuring PostgreSQL store", "dsn_type", "postgresql")
		storeOpts = append(storeOpts, store.WithPostgresDSN(*flags.dbDSN))
	} else {
		slog.Debug("Detected SQLite DSN, configuring SQLite store", "dsn_type", "sqlite", "db_path", *flags.dbDSN)
		storeOpts = append(storeOpts, store.WithSQLiteDSN(*flags.dbDSN))
	}
	return storeOpts
}

// buildRecordStore creates the record store matching the DSN type.
func buildRecordStore(flags Flags) (store.Store, error) {
	opts := buildStoreOptions(flags)
	if store.DetectDSNType(*flags.dbDSN) == "postgres" {
		return store.NewPostgresStore(opts...)
	}
	return store.NewSQLiteStore(opts...)
}

// buildSessionStore creates the session backend: Redis when configured,
// otherwise an in-process map.
func buildSessionStore(flags Flags) (session.Store, error) {
	if *flags.redisAddr != "" {
		ttl := util.ParseDurationEnv("YAHA_SESSION_TTL", session.DefaultSessionTTL)
		slog.Debug("Configuring Redis session store", "addr", *flags.redisAddr, "ttl", ttl)
		return session.NewRedisStore(session.WithAddr(*flags.redisAddr), session.WithTTL(ttl))
	}
	slog.Debug("No REDIS_ADDR set, using in-memory session store")
	return session.NewMemoryStore(), nil
}

// buildGenAIClient creates the OpenAI client, or nil when no key is set so
// the bot degrades to naive parsing.
func buildGenAIClient(flags Flags) (*genai.Client, error) {
	if *flags.openaiKey == "" {
		slog.Warn("No OpenAI API key configured; free-text parsing and normalization are disabled")
		return nil, nil
	}
	return genai.NewClient(genai.WithAPIKey(*flags.openaiKey))
}

// run wires every module and serves until interrupted.
func run(flags Flags) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Two instances sharing a state dir would double-handle updates and
	// corrupt the SQLite file.
	lock, err := lockfile.AcquireLock(*flags.stateDir)
	if err != nil {
		return err
	}
	defer lock.Release()

	records, err := buildRecordStore(flags)
	if err != nil {
		return err
	}
	defer records.Close()

	sessions, err := buildSessionStore(flags)
	if err != nil {
		return err
	}

	msgOpts := []telegram.Option{telegram.WithToken(*flags.botToken)}
	if *flags.debug {
		msgOpts = append(msgOpts, telegram.WithDebug(true))
	}
	msg, err := telegram.NewBotService(msgOpts...)
	if err != nil {
		return err
	}

	client, err := buildGenAIClient(flags)
	if err != nil {
		return err
	}
	var norm *flow.Normalizer
	var classifier *parser.Parser
	if client != nil {
		norm = flow.NewNormalizer(client)
		classifier = parser.New(client)
	} else {
		norm = flow.NewNormalizer(nil)
	}

	dispatcher := flow.NewDispatcher(sessions, records, msg, classifier, []flow.Handler{
		flow.NewFoodFlow(norm),
		flow.NewSleepFlow(norm),
		flow.NewExerciseFlow(norm),
	})

	var apiOpts []api.Option
	if *flags.apiAddr != "" {
		apiOpts = append(apiOpts, api.WithAddr(*flags.apiAddr))
	}
	server := api.NewServer(dispatcher, apiOpts...)
	return server.Run(ctx)
}
