// Package config provides configuration types and loading for nwpiagent.
package config

import "time"

// Config is the root configuration struct.
// Top-level groups: Paths, VManage, Model, Providers, Gateway, Slack, Alerts, Agent.
type Config struct {
	Paths     PathsConfig     `json:"paths"`
	VManage   VManageConfig   `json:"vmanage"`
	Model     ModelConfig     `json:"model"`
	Providers ProvidersConfig `json:"providers"`
	Gateway   GatewayConfig   `json:"gateway"`
	Slack     SlackConfig     `json:"slack"`
	Alerts    AlertsConfig    `json:"alerts"`
	Agent     AgentConfig     `json:"agent"`
	Log       LogConfig       `json:"log"`
}

// ---------------------------------------------------------------------------
// Paths – filesystem locations
// ---------------------------------------------------------------------------

// PathsConfig groups all filesystem path settings.
type PathsConfig struct {
	StateDir    string `json:"stateDir" envconfig:"STATE_DIR"`
	SessionsDir string `json:"sessionsDir" envconfig:"SESSIONS_DIR"`
	TimelineDB  string `json:"timelineDb" envconfig:"TIMELINE_DB"`
}

// ---------------------------------------------------------------------------
// VManage – SD-WAN controller
// ---------------------------------------------------------------------------

// VManageConfig locates and authenticates against the controller. The
// untagged fields read NWPIAGENT_VMANAGE_<FIELD> without falling back to
// generic variables such as USER or PORT.
type VManageConfig struct {
	Host          string        `json:"host"`
	Port          string        `json:"port"`
	Username      string        `json:"username"`
	Password      string        `json:"password"`
	Insecure      bool          `json:"insecure" envconfig:"INSECURE"`
	Timeout       time.Duration `json:"timeout" envconfig:"TIMEOUT"`
	FlowCacheSize int           `json:"flowCacheSize" envconfig:"FLOW_CACHE_SIZE"`
	FlowCacheTTL  time.Duration `json:"flowCacheTtl" envconfig:"FLOW_CACHE_TTL"`
}

// ---------------------------------------------------------------------------
// Model – LLM behaviour
// ---------------------------------------------------------------------------

// ModelConfig groups LLM model settings.
type ModelConfig struct {
	Name        string  `json:"name" envconfig:"MODEL"`
	MaxTokens   int     `json:"maxTokens" envconfig:"MAX_TOKENS"`
	Temperature float64 `json:"temperature" envconfig:"TEMPERATURE"`
}

// ---------------------------------------------------------------------------
// Providers – LLM API keys & endpoints
// ---------------------------------------------------------------------------

// ProvidersConfig contains LLM provider configurations.
type ProvidersConfig struct {
	OpenAI ProviderConfig `json:"openai"`
}

// ProviderConfig contains settings for a single LLM provider.
type ProviderConfig struct {
	APIKey  string `json:"apiKey" envconfig:"API_KEY"`
	APIBase string `json:"apiBase,omitempty" envconfig:"API_BASE"`
}

// ---------------------------------------------------------------------------
// Gateway – HTTP server networking
// ---------------------------------------------------------------------------

// GatewayConfig contains gateway server settings.
type GatewayConfig struct {
	Host      string `json:"host"`
	Port      int    `json:"port"`
	AuthToken string `json:"authToken" envconfig:"AUTH_TOKEN"`
}

// ---------------------------------------------------------------------------
// Slack – bot channel
// ---------------------------------------------------------------------------

// SlackConfig configures the Slack bot. NotifyChannel receives alert
// notifications.
type SlackConfig struct {
	Enabled       bool     `json:"enabled" envconfig:"ENABLED"`
	BotToken      string   `json:"botToken" envconfig:"BOT_TOKEN"`
	AppToken      string   `json:"appToken" envconfig:"APP_TOKEN"`
	NotifyChannel string   `json:"notifyChannel" envconfig:"NOTIFY_CHANNEL"`
	AllowFrom     []string `json:"allowFrom" envconfig:"ALLOW_FROM"`
}

// ---------------------------------------------------------------------------
// Alerts – Kafka alert source
// ---------------------------------------------------------------------------

// AlertsConfig configures the optional Kafka alert consumer.
type AlertsConfig struct {
	Enabled       bool   `json:"enabled" envconfig:"ENABLED"`
	KafkaBrokers  string `json:"kafkaBrokers" envconfig:"KAFKA_BROKERS"`
	Topic         string `json:"topic" envconfig:"TOPIC"`
	ConsumerGroup string `json:"consumerGroup" envconfig:"CONSUMER_GROUP"`
}

// ---------------------------------------------------------------------------
// Agent – graph and tool behaviour
// ---------------------------------------------------------------------------

// AgentConfig bounds the supervisor graph and its workers.
type AgentConfig struct {
	MaxToolIterations int           `json:"maxToolIterations" envconfig:"MAX_TOOL_ITERATIONS"`
	MaxSteps          int           `json:"maxSteps" envconfig:"MAX_STEPS"`
	HistoryLimit      int           `json:"historyLimit" envconfig:"HISTORY_LIMIT"`
	TracerWait        time.Duration `json:"tracerWait" envconfig:"TRACER_WAIT"`
	ReviewerWait      time.Duration `json:"reviewerWait" envconfig:"REVIEWER_WAIT"`
}

// LogConfig selects the slog handler.
type LogConfig struct {
	Level string `json:"level" envconfig:"LEVEL"`
	JSON  bool   `json:"json" envconfig:"JSON"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Paths: PathsConfig{
			StateDir: "~/.nwpiagent",
		},
		VManage: VManageConfig{
			Port:          "443",
			Insecure:      true,
			Timeout:       60 * time.Second,
			FlowCacheSize: 256,
			FlowCacheTTL:  30 * time.Second,
		},
		Model: ModelConfig{
			Name:        "gpt-4o-mini",
			Temperature: 0,
		},
		Gateway: GatewayConfig{
			Host: "127.0.0.1",
			Port: 5001,
		},
		Alerts: AlertsConfig{
			Topic:         "sdwan.alerts",
			ConsumerGroup: "nwpiagent",
		},
		Agent: AgentConfig{
			MaxToolIterations: 20,
			MaxSteps:          12,
			HistoryLimit:      40,
			TracerWait:        60 * time.Second,
			ReviewerWait:      5 * time.Second,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}
