package cfg

import "time"

type Cfg struct {
	// Database configuration
	DBDriver   string
	DBPath     string
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	// Application configuration
	Port              string
	BaseUrl           string
	TaxonomyFile      string
	SearchIndexPath   string
	WorkerCount       int
	SchedulerInterval int
	JWTSecret         string
	RedisAddr         string

	// Enrichment configuration
	AIBaseURL     string
	AIAPIKey      string
	AIModel       string
	AITimeout     time.Duration
	ScrapeTimeout time.Duration

	// Application metadata
	UserAgent string
	Timezone  string
	Debug     bool
	Version   string
}

// PostgresDSN builds a lib/pq connection string from the DB* fields.
func (c *Cfg) PostgresDSN() string {
	return "host=" + c.DBHost +
		" port=" + c.DBPort +
		" user=" + c.DBUser +
		" password=" + c.DBPassword +
		" dbname=" + c.DBName +
		" sslmode=disable"
}
