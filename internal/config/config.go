package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/jwalitptl/scheduling-api/internal/scheduling"
	redisbroker "github.com/jwalitptl/scheduling-api/pkg/messaging/redis"
)

type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Redis      RedisConfig      `mapstructure:"redis"`
	JWT        JWTConfig        `mapstructure:"jwt"`
	SMTP       SMTPConfig       `mapstructure:"smtp"`
	Calendar   CalendarConfig   `mapstructure:"calendar"`
	Scheduling SchedulingConfig `mapstructure:"scheduling"`
	Outbox     OutboxConfig     `mapstructure:"outbox"`
}

type ServerConfig struct {
	Port           int `mapstructure:"port"`
	TimeoutSeconds int `mapstructure:"timeout_seconds"`
	RateLimitRPS   int `mapstructure:"rate_limit_rps"`
	RateLimitBurst int `mapstructure:"rate_limit_burst"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
}

type RedisConfig struct {
	URL          string `mapstructure:"url"`
	MaxRetries   int    `mapstructure:"max_retries"`
	PoolSize     int    `mapstructure:"pool_size"`
	MinIdleConns int    `mapstructure:"min_idle_conns"`
}

func (c RedisConfig) ToBrokerConfig() redisbroker.Config {
	return redisbroker.Config{
		URL:          c.URL,
		MaxRetries:   c.MaxRetries,
		RetryBackoff: 100 * time.Millisecond,
		PoolSize:     c.PoolSize,
		MinIdleConns: c.MinIdleConns,
	}
}

type JWTConfig struct {
	Secret string `mapstructure:"secret"`
}

type SMTPConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
}

type CalendarConfig struct {
	Enabled         bool   `mapstructure:"enabled"`
	CalendarID      string `mapstructure:"calendar_id"`
	CredentialsFile string `mapstructure:"credentials_file"`
}

// PolicyConfig is the YAML shape of a business-hours policy.
type PolicyConfig struct {
	Weekdays    []string `mapstructure:"weekdays"`
	Windows     []string `mapstructure:"windows"`
	SlotMinutes int      `mapstructure:"slot_minutes"`
}

// SchedulingConfig hoists every business-hours decision into one place.
// Both observed call paths (REST and voice agent) select a named policy
// from the same table instead of hardcoding their own hours.
type SchedulingConfig struct {
	Policies               map[string]PolicyConfig `mapstructure:"policies"`
	DefaultPolicy          string                  `mapstructure:"default_policy"`
	VoicePolicy            string                  `mapstructure:"voice_policy"`
	DefaultDurationMinutes int                     `mapstructure:"default_duration_minutes"`
	VoiceDurationMinutes   int                     `mapstructure:"voice_duration_minutes"`
	SearchDays             int                     `mapstructure:"search_days"`
	MaxAlternatives        int                     `mapstructure:"max_alternatives"`
	MaxAlternativesPerDay  int                     `mapstructure:"max_alternatives_per_day"`
	CacheTTLSeconds        int                     `mapstructure:"cache_ttl_seconds"`
}

// BuildPolicies materializes the configured policies. When none are
// configured, the two built-in policies are used.
func (c SchedulingConfig) BuildPolicies() (map[string]scheduling.Policy, error) {
	if len(c.Policies) == 0 {
		office := scheduling.OfficeHours()
		extended := scheduling.ExtendedHours()
		return map[string]scheduling.Policy{
			office.Name:   office,
			extended.Name: extended,
		}, nil
	}

	policies := make(map[string]scheduling.Policy, len(c.Policies))
	for name, pc := range c.Policies {
		p := scheduling.Policy{Name: name}
		for _, day := range pc.Weekdays {
			wd, err := scheduling.ParseWeekday(day)
			if err != nil {
				return nil, fmt.Errorf("policy %s: %w", name, err)
			}
			p.Weekdays = append(p.Weekdays, wd)
		}
		for _, window := range pc.Windows {
			w, err := scheduling.ParseWindow(window)
			if err != nil {
				return nil, fmt.Errorf("policy %s: %w", name, err)
			}
			p.Windows = append(p.Windows, w)
		}
		if pc.SlotMinutes > 0 {
			p.Granularity = time.Duration(pc.SlotMinutes) * time.Minute
		}
		policies[name] = p
	}
	return policies, nil
}

type OutboxConfig struct {
	BatchSize         int `mapstructure:"batch_size"`
	PollSeconds       int `mapstructure:"poll_seconds"`
	MaxRetries        int `mapstructure:"max_retries"`
	RetryDelaySeconds int `mapstructure:"retry_delay_seconds"`
	RetentionDays     int `mapstructure:"retention_days"`
}

func LoadConfig() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	viper.AutomaticEnv()

	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.timeout_seconds", 30)
	viper.SetDefault("server.rate_limit_rps", 50)
	viper.SetDefault("server.rate_limit_burst", 100)
	viper.SetDefault("scheduling.default_policy", "office")
	viper.SetDefault("scheduling.voice_policy", "extended")
	viper.SetDefault("scheduling.default_duration_minutes", 30)
	viper.SetDefault("scheduling.voice_duration_minutes", 60)
	viper.SetDefault("scheduling.search_days", 7)
	viper.SetDefault("scheduling.max_alternatives", 5)
	viper.SetDefault("scheduling.max_alternatives_per_day", 3)
	viper.SetDefault("scheduling.cache_ttl_seconds", 30)
	viper.SetDefault("outbox.batch_size", 100)
	viper.SetDefault("outbox.poll_seconds", 5)
	viper.SetDefault("outbox.max_retries", 3)
	viper.SetDefault("outbox.retry_delay_seconds", 30)
	viper.SetDefault("outbox.retention_days", 14)

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &config, nil
}
