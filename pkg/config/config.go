package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database  DatabaseConfig
	Redis     RedisConfig
	JWT       JWTConfig
	CORS      CORSConfig
	Log       LogConfig
	Interview InterviewConfig
	Friday    FridayConfig
	Scheduler SchedulerConfig
	Dashboard DashboardConfig
	Contacts  ContactsConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type JWTConfig struct {
	Secret     string
	Expiration time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// InterviewConfig drives the interview slot allocator: which weekdays are
// eligible, the ordered slot labels within a day, the per-slot capacity and
// how far ahead the search may look.
type InterviewConfig struct {
	Days         []time.Weekday
	Slots        []string
	SlotCapacity int
	HorizonWeeks int
}

// FridayConfig lists the ordered time blocks the recreational program fills,
// one per education stage.
type FridayConfig struct {
	TimeBlocks []string
}

// SchedulerConfig toggles the cron jobs that materialize sessions.
type SchedulerConfig struct {
	Enabled       bool
	DailySpec     string
	FridaySpec    string
	StartupFriday bool
}

// DashboardConfig governs the cached dashboard snapshot.
type DashboardConfig struct {
	Enabled  bool
	CacheTTL time.Duration
}

// ContactsConfig sizes the guardian contact dispatch queue.
type ContactsConfig struct {
	Workers    int
	MaxRetries int
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{
		Secret:     v.GetString("JWT_SECRET"),
		Expiration: parseDuration(v.GetString("JWT_EXPIRATION"), 24*time.Hour),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Interview = InterviewConfig{
		Days:         parseWeekdays(splitAndTrim(v.GetString("INTERVIEW_DAYS"))),
		Slots:        splitAndTrim(v.GetString("INTERVIEW_SLOTS")),
		SlotCapacity: v.GetInt("INTERVIEW_SLOT_CAPACITY"),
		HorizonWeeks: v.GetInt("INTERVIEW_HORIZON_WEEKS"),
	}

	cfg.Friday = FridayConfig{
		TimeBlocks: splitAndTrim(v.GetString("FRIDAY_TIME_BLOCKS")),
	}

	cfg.Scheduler = SchedulerConfig{
		Enabled:       v.GetBool("ENABLE_SCHEDULER"),
		DailySpec:     v.GetString("SCHEDULER_DAILY_SPEC"),
		FridaySpec:    v.GetString("SCHEDULER_FRIDAY_SPEC"),
		StartupFriday: v.GetBool("SCHEDULER_FRIDAY_ON_STARTUP"),
	}

	cfg.Dashboard = DashboardConfig{
		Enabled:  v.GetBool("ENABLE_DASHBOARD"),
		CacheTTL: parseDuration(v.GetString("DASHBOARD_CACHE_TTL"), 5*time.Minute),
	}

	cfg.Contacts = ContactsConfig{
		Workers:    v.GetInt("CONTACTS_WORKERS"),
		MaxRetries: v.GetInt("CONTACTS_MAX_RETRIES"),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "madarij")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_EXPIRATION", "24h")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	// The center interviews on Saturdays and Tuesdays, four slots per day.
	v.SetDefault("INTERVIEW_DAYS", "saturday,tuesday")
	v.SetDefault("INTERVIEW_SLOTS", "بعد العصر ١,بعد العصر ٢,بعد المغرب ١,بعد المغرب ٢")
	v.SetDefault("INTERVIEW_SLOT_CAPACITY", 1)
	v.SetDefault("INTERVIEW_HORIZON_WEEKS", 8)

	v.SetDefault("FRIDAY_TIME_BLOCKS", "بعد الفجر,بعد الجمعة,بعد العصر,بعد المغرب")

	v.SetDefault("ENABLE_SCHEDULER", false)
	v.SetDefault("SCHEDULER_DAILY_SPEC", "0 5 * * *")
	v.SetDefault("SCHEDULER_FRIDAY_SPEC", "30 5 * * 5")
	v.SetDefault("SCHEDULER_FRIDAY_ON_STARTUP", false)

	v.SetDefault("ENABLE_DASHBOARD", true)
	v.SetDefault("DASHBOARD_CACHE_TTL", "5m")

	v.SetDefault("CONTACTS_WORKERS", 1)
	v.SetDefault("CONTACTS_MAX_RETRIES", 3)
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}

var weekdayNames = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

func parseWeekdays(raw []string) []time.Weekday {
	days := make([]time.Weekday, 0, len(raw))
	for _, name := range raw {
		if d, ok := weekdayNames[strings.ToLower(name)]; ok {
			days = append(days, d)
		}
	}
	return days
}
