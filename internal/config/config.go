package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type Config struct {
	Prices    PricesConfig
	Server    ServerConfig
	Redis     RedisConfig
	RateLimit RateLimitConfig
}

type PricesConfig struct {
	Dir        string `validate:"required"`
	Pattern    string `validate:"required"`
	ReportFile string `validate:"required"`
}

type ServerConfig struct {
	Serve          bool
	Port           string `validate:"required,numeric"`
	Env            string `validate:"oneof=development production test"`
	AllowedOrigins []string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int `validate:"gte=0"`
}

type RateLimitConfig struct {
	Requests int           `validate:"gt=0"`
	Window   time.Duration `validate:"gt=0"`
}

// Load reads configuration from .env, the environment and command line flags,
// in increasing order of precedence
func Load(args []string) (*Config, error) {
	// .env is optional
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: Could not read .env file: %v", err)
	}

	v := viper.New()
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))

	// Set defaults
	v.SetDefault("PRICES_DIR", ".")
	v.SetDefault("PRICES_PATTERN", "price")
	v.SetDefault("REPORT_FILE", "output.html")
	v.SetDefault("SERVE", false)
	v.SetDefault("SERVER_PORT", "8080")
	v.SetDefault("SERVER_ENV", "development")
	v.SetDefault("CORS_ALLOWED_ORIGINS", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("RATE_LIMIT_REQUESTS", 60)
	v.SetDefault("RATE_LIMIT_WINDOW", time.Minute)

	flags := pflag.NewFlagSet("pricemachine", pflag.ContinueOnError)
	flags.String("prices-dir", "", "directory to scan for price lists")
	flags.String("prices-pattern", "", "substring a price list file name must contain")
	flags.String("report-file", "", "HTML report path")
	flags.Bool("serve", false, "serve the catalog over HTTP instead of the interactive prompt")
	flags.String("server-port", "", "HTTP port for --serve")
	if err := flags.Parse(args); err != nil {
		return nil, fmt.Errorf("failed to parse flags: %w", err)
	}

	// Only flags given on the command line override the environment
	var bindErr error
	flags.Visit(func(f *pflag.Flag) {
		key := strings.ToUpper(strings.ReplaceAll(f.Name, "-", "_"))
		if err := v.BindPFlag(key, f); err != nil && bindErr == nil {
			bindErr = err
		}
	})
	if bindErr != nil {
		return nil, fmt.Errorf("failed to bind flags: %w", bindErr)
	}

	// A positional argument names the prices directory
	if rest := flags.Args(); len(rest) > 0 && !flags.Changed("prices-dir") {
		v.Set("PRICES_DIR", rest[0])
	}

	cfg := &Config{
		Prices: PricesConfig{
			Dir:        v.GetString("PRICES_DIR"),
			Pattern:    v.GetString("PRICES_PATTERN"),
			ReportFile: v.GetString("REPORT_FILE"),
		},
		Server: ServerConfig{
			Serve:          v.GetBool("SERVE"),
			Port:           v.GetString("SERVER_PORT"),
			Env:            v.GetString("SERVER_ENV"),
			AllowedOrigins: splitList(v.GetString("CORS_ALLOWED_ORIGINS")),
		},
		Redis: RedisConfig{
			Addr:     v.GetString("REDIS_ADDR"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
		},
		RateLimit: RateLimitConfig{
			Requests: v.GetInt("RATE_LIMIT_REQUESTS"),
			Window:   v.GetDuration("RATE_LIMIT_WINDOW"),
		},
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// IsDevelopment reports whether the server runs in development mode
func (c *Config) IsDevelopment() bool {
	return c.Server.Env == "development"
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
