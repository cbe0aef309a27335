package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type Config struct {
	Mode             string        `mapstructure:"mode"`
	Port             int           `mapstructure:"port"`
	LogLevel         string        `mapstructure:"log_level"`
	ReadLimit        int64         `mapstructure:"read_limit"`
	PingPeriod       time.Duration `mapstructure:"ping_period"`
	SendBuffer       int           `mapstructure:"send_buffer"`
	Secret           string        `mapstructure:"secret"`
	JoinCodeLength   int           `mapstructure:"join_code_length"`
	JoinRateLimit    int           `mapstructure:"join_rate_limit"`
	JoinRateInterval time.Duration `mapstructure:"join_rate_interval"`
	Journal          JournalConfig `mapstructure:"journal"`
}

// JournalConfig enables the Redis event journal when RedisAddr is set.
type JournalConfig struct {
	RedisAddr string `mapstructure:"redis_addr"`
	RedisDB   int    `mapstructure:"redis_db"`
	Queue     string `mapstructure:"queue"`
	MaxLen    int64  `mapstructure:"max_len"`
}

const envPrefix = "ROOMS"

func setDefaults(v *viper.Viper) {
	v.SetDefault("mode", "release")
	v.SetDefault("port", 8080)
	v.SetDefault("log_level", "info")
	v.SetDefault("read_limit", 65536)
	v.SetDefault("ping_period", "54s")
	v.SetDefault("send_buffer", 4096)
	v.SetDefault("secret", "rooms-dev-secret")
	v.SetDefault("join_code_length", 4)
	v.SetDefault("join_rate_limit", 10)
	v.SetDefault("join_rate_interval", "10s")
	v.SetDefault("journal.redis_addr", "")
	v.SetDefault("journal.redis_db", 0)
	v.SetDefault("journal.queue", "rooms_events")
	v.SetDefault("journal.max_len", 10000)
}

// RegisterFlags adds the command-line overrides Load understands.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("mode", "release", "gin mode: debug or release")
	fs.Int("port", 8080, "listen port")
	fs.String("log_level", "info", "zerolog level")
	fs.String("journal.redis_addr", "", "redis address for the event journal, empty disables it")
}

// Load reads config/config.$CONFIG_ENV.yaml, then ROOMS_* environment
// variables, then flags that were set explicitly on fs. fs may be nil.
func Load(fs *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	env := os.Getenv("CONFIG_ENV")
	if env == "" {
		env = "dev"
	}
	fileName := fmt.Sprintf("config/config.%s.yaml", env)

	v.SetConfigFile(fileName)
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if fs != nil {
		if err := v.BindPFlags(fs); err != nil {
			return nil, fmt.Errorf("bind flags: %w", err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		log.Warn().Str("module", "config").Str("file", fileName).Msg("config file not found, using defaults")
	} else {
		log.Info().Str("module", "config").Str("file", fileName).Msg("loaded config")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	log.Info().Str("module", "config").Str("mode", cfg.Mode).Int("port", cfg.Port).Bool("journal", cfg.Journal.RedisAddr != "").Msg("config ready")
	return &cfg, nil
}

// Default returns the built-in configuration.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		panic(err)
	}
	return &cfg
}
