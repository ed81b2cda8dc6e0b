package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	Port           string   `env:"PORT" envDefault:"5000"`
	AllowedOrigins []string `env:"ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:3000"`

	JWTKey   string        `env:"JWT_KEY,required,notEmpty"`
	TokenTTL time.Duration `env:"TOKEN_TTL" envDefault:"6h"`

	// argon2id hash of the secret that authorizes room administration calls
	AdminSecretHash string `env:"ADMIN_SECRET_HASH"`

	// empty means in-memory metadata
	PostgresURL string `env:"POSTGRES_URL"`

	OpenAIKey   string `env:"OPENAI_API_KEY"`
	OpenAIModel string `env:"OPENAI_MODEL" envDefault:"gpt-4o-mini"`

	ParticipantLimit  int           `env:"PARTICIPANT_LIMIT" envDefault:"12"`
	GuessCacheSize    int           `env:"GUESS_CACHE_SIZE" envDefault:"1000"`
	JudgeInterval     time.Duration `env:"JUDGE_INTERVAL" envDefault:"1s"`
	KickGrace         time.Duration `env:"KICK_GRACE" envDefault:"100ms"`
	KickNotifyTimeout time.Duration `env:"KICK_NOTIFY_TIMEOUT" envDefault:"2s"`
	RPCTimeout        time.Duration `env:"RPC_TIMEOUT" envDefault:"10s"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogPretty bool   `env:"LOG_PRETTY" envDefault:"false"`
}

// Load reads an optional .env file, then the environment.
func Load() (Config, error) {
	_ = godotenv.Load()
	return Parse()
}

func Parse() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.ParticipantLimit < 1 {
		return fmt.Errorf("PARTICIPANT_LIMIT must be at least 1")
	}
	if c.GuessCacheSize < 1 {
		return fmt.Errorf("GUESS_CACHE_SIZE must be at least 1")
	}
	if c.JudgeInterval <= 0 {
		return fmt.Errorf("JUDGE_INTERVAL must be positive")
	}
	return nil
}
