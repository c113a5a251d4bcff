package config

import "time"

// ServerConfig represents the configuration of the HTTP API
type ServerConfig struct {
	Enabled         bool
	ListenAddress   string
	Mode            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// AuthConfig represents the bearer credential settings
type AuthConfig struct {
	Enabled bool
}

// RateLimitConfig represents the per-client request budget
type RateLimitConfig struct {
	Enabled     bool
	Type        string
	MaxRequests int
	Window      time.Duration
}

// RedisConfig represents the connection settings for Redis
type RedisConfig struct {
	Address   string
	Password  string
	DB        int
	KeyPrefix string
}

// AIConfig represents the configuration for the toxicity oracle
type AIConfig struct {
	Provider string
	Timeout  time.Duration
}

// HuggingFaceConfig represents the configuration for the Hugging Face inference API
type HuggingFaceConfig struct {
	APIKey   string
	Endpoint string
	Model    string
}

// BedrockConfig represents the configuration for Amazon Bedrock
type BedrockConfig struct {
	Region      string
	ModelID     string
	MaxTokens   int
	Temperature float32
	TopP        float32
}

// GeminiConfig represents the configuration for Google Gemini
type GeminiConfig struct {
	APIKey      string
	ModelName   string
	MaxTokens   int
	Temperature float32
	TopP        float32
}

// OpenAIConfig represents the configuration for OpenAI
type OpenAIConfig struct {
	APIKey      string
	ModelName   string
	MaxTokens   int
	Temperature float32
	TopP        float32
}

// StoreConfig represents the configuration of the scan record store
type StoreConfig struct {
	Type           string
	WriteTimeout   time.Duration
	SQLitePath     string
	MySQLDSN       string
	PostgresURL    string
	ConnectRetries int
}

// SMTPConfig represents the configuration of the SMTP content filter
type SMTPConfig struct {
	Enabled              bool
	ListenAddress        string
	RelayEnabled         bool
	RelayAddress         string
	RelayPort            int
	RejectHighRisk       bool
	WhitelistedDomains   []string
	ClassificationHeader string
	ConfidenceHeader     string
	RiskHeader           string
	ScanIDHeader         string
}

// durationOr parses a duration key, falling back when the value is malformed
func (c *Config) durationOr(key string, fallback time.Duration) time.Duration {
	d, err := c.GetDuration(key)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

// GetServer returns the HTTP server configuration
func (c *Config) GetServer() ServerConfig {
	return ServerConfig{
		Enabled:         c.GetBool("server.enabled"),
		ListenAddress:   c.GetString("server.listen_address"),
		Mode:            c.GetString("server.mode"),
		ReadTimeout:     c.durationOr("server.read_timeout", 15*time.Second),
		WriteTimeout:    c.durationOr("server.write_timeout", 30*time.Second),
		ShutdownTimeout: c.durationOr("server.shutdown_timeout", 10*time.Second),
	}
}

// GetAuth returns the auth configuration
func (c *Config) GetAuth() AuthConfig {
	return AuthConfig{
		Enabled: c.GetBool("auth.enabled"),
	}
}

// GetRateLimit returns the rate limit configuration
func (c *Config) GetRateLimit() RateLimitConfig {
	return RateLimitConfig{
		Enabled:     c.GetBool("ratelimit.enabled"),
		Type:        c.GetString("ratelimit.type"),
		MaxRequests: c.GetInt("ratelimit.max_requests"),
		Window:      c.durationOr("ratelimit.window", time.Hour),
	}
}

// GetRedis returns the Redis configuration
func (c *Config) GetRedis() RedisConfig {
	return RedisConfig{
		Address:   c.GetString("redis.address"),
		Password:  c.GetString("redis.password"),
		DB:        c.GetInt("redis.db"),
		KeyPrefix: c.GetString("redis.key_prefix"),
	}
}

// GetAI returns the oracle configuration
func (c *Config) GetAI() AIConfig {
	return AIConfig{
		Provider: c.GetString("ai.provider"),
		Timeout:  c.durationOr("ai.timeout", 3*time.Second),
	}
}

// GetHuggingFace returns the Hugging Face configuration
func (c *Config) GetHuggingFace() HuggingFaceConfig {
	return HuggingFaceConfig{
		APIKey:   c.GetString("huggingface.api_key"),
		Endpoint: c.GetString("huggingface.endpoint"),
		Model:    c.GetString("huggingface.model"),
	}
}

// GetBedrock returns the Bedrock configuration
func (c *Config) GetBedrock() BedrockConfig {
	return BedrockConfig{
		Region:      c.GetString("bedrock.region"),
		ModelID:     c.GetString("bedrock.model_id"),
		MaxTokens:   c.GetInt("bedrock.max_tokens"),
		Temperature: float32(c.GetFloat64("bedrock.temperature")),
		TopP:        float32(c.GetFloat64("bedrock.top_p")),
	}
}

// GetGemini returns the Gemini configuration
func (c *Config) GetGemini() GeminiConfig {
	return GeminiConfig{
		APIKey:      c.GetString("gemini.api_key"),
		ModelName:   c.GetString("gemini.model_name"),
		MaxTokens:   c.GetInt("gemini.max_tokens"),
		Temperature: float32(c.GetFloat64("gemini.temperature")),
		TopP:        float32(c.GetFloat64("gemini.top_p")),
	}
}

// GetOpenAI returns the OpenAI configuration
func (c *Config) GetOpenAI() OpenAIConfig {
	return OpenAIConfig{
		APIKey:      c.GetString("openai.api_key"),
		ModelName:   c.GetString("openai.model_name"),
		MaxTokens:   c.GetInt("openai.max_tokens"),
		Temperature: float32(c.GetFloat64("openai.temperature")),
		TopP:        float32(c.GetFloat64("openai.top_p")),
	}
}

// GetStore returns the store configuration
func (c *Config) GetStore() StoreConfig {
	return StoreConfig{
		Type:           c.GetString("store.type"),
		WriteTimeout:   c.durationOr("store.write_timeout", 5*time.Second),
		SQLitePath:     c.GetString("store.sqlite_path"),
		MySQLDSN:       c.GetString("store.mysql_dsn"),
		PostgresURL:    c.GetString("store.postgres_url"),
		ConnectRetries: c.GetInt("store.connect_retries"),
	}
}

// GetSMTP returns the SMTP content filter configuration
func (c *Config) GetSMTP() SMTPConfig {
	return SMTPConfig{
		Enabled:              c.GetBool("smtp.enabled"),
		ListenAddress:        c.GetString("smtp.listen_address"),
		RelayEnabled:         c.GetBool("smtp.relay_enabled"),
		RelayAddress:         c.GetString("smtp.relay_address"),
		RelayPort:            c.GetInt("smtp.relay_port"),
		RejectHighRisk:       c.GetBool("smtp.reject_high_risk"),
		WhitelistedDomains:   c.GetStringSlice("smtp.whitelisted_domains"),
		ClassificationHeader: c.GetString("smtp.headers.classification"),
		ConfidenceHeader:     c.GetString("smtp.headers.confidence"),
		RiskHeader:           c.GetString("smtp.headers.risk"),
		ScanIDHeader:         c.GetString("smtp.headers.scan_id"),
	}
}
