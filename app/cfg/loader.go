package cfg

import (
	"cmp"
	"fmt"
	"time"

	"github.com/jessevdk/go-flags"
)

// Version is set at build time via -ldflags
var Version = "dev"

func GetVersion() string {
	return cmp.Or(Version, "unknown")
}

type rawCfg struct {
	// Database configuration
	DBDriver   string `long:"db-driver" env:"DB_DRIVER" default:"sqlite" choice:"sqlite" choice:"postgres" description:"Database driver"`
	DBPath     string `long:"db-path" env:"DB_PATH" default:"./data/keepit.db" description:"SQLite database file (sqlite driver only)"`
	DBHost     string `long:"db-host" env:"DB_HOST" default:"localhost" description:"Database host"`
	DBPort     string `long:"db-port" env:"DB_PORT" default:"5432" description:"Database port"`
	DBUser     string `long:"db-user" env:"DB_USER" default:"keepit" description:"Database user"`
	DBPassword string `long:"db-password" env:"DB_PASSWORD" description:"Database password (postgres driver only)"`
	DBName     string `long:"db-name" env:"DB_NAME" default:"keepit" description:"Database name"`

	// Application configuration
	Port              string `long:"port" env:"PORT" default:"8080" description:"HTTP server port"`
	BaseUrl           string `long:"base-url" env:"BASE_URL" description:"Public base URL for the service (e.g., https://keepit.example.com)"`
	TaxonomyFile      string `long:"taxonomy-file" env:"TAXONOMY_FILE" default:"./config/taxonomy.yml" description:"YAML file with categories and the analysis prompt"`
	SearchIndexPath   string `long:"search-index" env:"SEARCH_INDEX_PATH" description:"Bleve index directory (in-memory index when empty)"`
	WorkerCount       int    `long:"worker-count" env:"WORKER_COUNT" default:"2" description:"Number of background workers"`
	SchedulerInterval int    `long:"scheduler-interval" env:"SCHEDULER_INTERVAL" default:"3600" description:"Search reindex interval in seconds"`
	JWTSecret         string `long:"jwt-secret" env:"JWT_SECRET" description:"HS256 secret for bearer tokens (auth disabled when empty)"`
	RedisAddr         string `long:"redis-addr" env:"REDIS_ADDR" description:"Redis address for cross-instance events (optional)"`

	// Enrichment configuration
	AIBaseURL     string `long:"ai-base-url" env:"AI_BASE_URL" default:"https://api.openai.com/v1" description:"OpenAI-compatible API base URL"`
	AIAPIKey      string `long:"ai-api-key" env:"AI_API_KEY" description:"API key for the analysis service"`
	AIModel       string `long:"ai-model" env:"AI_MODEL" default:"gpt-4o-mini" description:"Vision-capable model used for analysis"`
	AITimeout     int    `long:"ai-timeout" env:"AI_TIMEOUT" default:"60" description:"Analysis call timeout in seconds (0 disables)"`
	ScrapeTimeout int    `long:"scrape-timeout" env:"SCRAPE_TIMEOUT" default:"30" description:"Scrape call timeout in seconds (0 disables)"`

	// Application metadata
	UserAgent string `long:"user-agent" env:"USER_AGENT" default:"keepit/1.0" description:"User agent string for HTTP requests"`
	Timezone  string `long:"timezone" env:"TZ" default:"UTC" description:"Timezone for timestamps (e.g., UTC, America/New_York)"`
	Debug     bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`
}

var globalCfg *Cfg

func Load() (*Cfg, error) {
	return LoadArgs(nil)
}

// LoadArgs parses the given arguments instead of os.Args when args is non-nil.
func LoadArgs(args []string) (*Cfg, error) {
	var raw rawCfg

	parser := flags.NewParser(&raw, flags.Default)

	var err error
	if args == nil {
		_, err = parser.Parse()
	} else {
		_, err = parser.ParseArgs(args)
	}
	if err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				return nil, nil
			}
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	cfg := &Cfg{
		DBDriver:          raw.DBDriver,
		DBPath:            raw.DBPath,
		DBHost:            raw.DBHost,
		DBPort:            raw.DBPort,
		DBUser:            raw.DBUser,
		DBPassword:        raw.DBPassword,
		DBName:            raw.DBName,
		Port:              raw.Port,
		BaseUrl:           raw.BaseUrl,
		TaxonomyFile:      raw.TaxonomyFile,
		SearchIndexPath:   raw.SearchIndexPath,
		WorkerCount:       raw.WorkerCount,
		SchedulerInterval: raw.SchedulerInterval,
		JWTSecret:         raw.JWTSecret,
		RedisAddr:         raw.RedisAddr,
		AIBaseURL:         raw.AIBaseURL,
		AIAPIKey:          raw.AIAPIKey,
		AIModel:           raw.AIModel,
		AITimeout:         time.Duration(raw.AITimeout) * time.Second,
		ScrapeTimeout:     time.Duration(raw.ScrapeTimeout) * time.Second,
		UserAgent:         raw.UserAgent,
		Timezone:          raw.Timezone,
		Debug:             raw.Debug,
		Version:           GetVersion(),
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}

	if err := applyTimezone(cfg.Timezone); err != nil {
		fmt.Printf("Warning: Invalid timezone '%s', using system default: %v\n", cfg.Timezone, err)
	}

	globalCfg = cfg

	return cfg, nil
}

func Get() *Cfg {
	if globalCfg == nil {
		panic("configuration not loaded - call cfg.Load() first")
	}
	return globalCfg
}

func validate(cfg *Cfg) error {
	if cfg.DBDriver == "postgres" && cfg.DBPassword == "" {
		return fmt.Errorf("db-password is required for the postgres driver")
	}

	nonNegativeFields := map[string]int{
		"worker count":       cfg.WorkerCount,
		"scheduler interval": cfg.SchedulerInterval,
	}
	for fieldName, fieldValue := range nonNegativeFields {
		if fieldValue < 0 {
			return fmt.Errorf("%s must be non-negative", fieldName)
		}
	}

	if cfg.AITimeout < 0 || cfg.ScrapeTimeout < 0 {
		return fmt.Errorf("timeouts must be non-negative")
	}

	return nil
}

func applyTimezone(timezone string) error {
	if timezone != "" {
		if loc, err := time.LoadLocation(timezone); err != nil {
			return err
		} else {
			time.Local = loc
		}
	}
	return nil
}
