package config

import (
	"log"
	"os"

	"github.com/spf13/viper"
)

// Extraction failure policies: substitute the fixed fallback record, or
// surface the failure to the caller. Either way a record without
// coordinates never reaches the optimizer.
const (
	ExtractionPolicyFallback = "fallback"
	ExtractionPolicyError    = "error"
)

// Chat transport modes: call the Anthropic API directly, or go through a
// same-origin proxy that accepts the same {system, messages} shape.
const (
	AIModeAnthropic = "anthropic"
	AIModeProxy     = "proxy"
)

type Config struct {
	ServerPort   string `mapstructure:"SERVER_PORT"`
	ClientOrigin string `mapstructure:"CLIENT_ORIGIN"`
	JWTSecret    string `mapstructure:"JWT_SECRET"`

	AIMode          string `mapstructure:"AI_MODE"`
	AnthropicModel  string `mapstructure:"ANTHROPIC_MODEL"`
	ChatProxyURL    string `mapstructure:"CHAT_PROXY_URL"`
	OptimizerURL    string `mapstructure:"OPTIMIZER_URL"`
	VerifyURL       string `mapstructure:"VERIFY_URL"`
	AnthropicAPIKey string

	ExtractionFailurePolicy string `mapstructure:"EXTRACTION_FAILURE_POLICY"`

	ChatTimeoutSeconds     int `mapstructure:"CHAT_TIMEOUT_SECONDS"`
	OptimizeTimeoutSeconds int `mapstructure:"OPTIMIZE_TIMEOUT_SECONDS"`
	SessionTTLMinutes      int `mapstructure:"SESSION_TTL_MINUTES"`
	// Add other configurations as needed
}

func LoadConfig(path string) (*Config, error) {
	viper.AddConfigPath(path)
	viper.SetConfigName(".env") // Name of config file (without extension)
	viper.SetConfigType("env")  // Or "dotenv" or "json", "yaml" etc.

	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("CLIENT_ORIGIN", "http://localhost:5173")
	viper.SetDefault("AI_MODE", AIModeAnthropic)
	viper.SetDefault("ANTHROPIC_MODEL", "claude-sonnet-4-20250514")
	viper.SetDefault("CHAT_PROXY_URL", "http://localhost:8000/api/chat")
	viper.SetDefault("OPTIMIZER_URL", "https://testfastapi-production-325b.up.railway.app/optimum_ef_route")
	viper.SetDefault("VERIFY_URL", "http://localhost:8001/api/verifyRoute")
	viper.SetDefault("EXTRACTION_FAILURE_POLICY", ExtractionPolicyFallback)
	viper.SetDefault("CHAT_TIMEOUT_SECONDS", 30)
	viper.SetDefault("OPTIMIZE_TIMEOUT_SECONDS", 120)
	viper.SetDefault("SESSION_TTL_MINUTES", 120)

	viper.AutomaticEnv() // Read in environment variables that match

	err := viper.ReadInConfig() // Find and read the config file
	if err != nil {
		// Handle errors reading the config file, but allow it if it's just "not found"
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			log.Println("No .env file found.")
		} else {
			return nil, err
		}
	}

	var cfg Config
	err = viper.Unmarshal(&cfg)
	if err != nil {
		return nil, err
	}

	cfg.AnthropicAPIKey = os.Getenv("ANTHROPIC_API_KEY")

	return &cfg, nil
}
