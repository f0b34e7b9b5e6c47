package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Anthropic AnthropicConfig `yaml:"anthropic" mapstructure:"anthropic"`
	SendGrid  SendGridConfig  `yaml:"sendgrid" mapstructure:"sendgrid"`
	Notion    NotionConfig    `yaml:"notion" mapstructure:"notion"`
	Admin     AdminConfig     `yaml:"admin" mapstructure:"admin"`
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Notify    NotifyConfig    `yaml:"notify" mapstructure:"notify"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// AnthropicConfig holds Anthropic API settings for the analyzer.
type AnthropicConfig struct {
	Key         string `yaml:"key" mapstructure:"key"`
	Model       string `yaml:"model" mapstructure:"model"`
	MaxTokens   int64  `yaml:"max_tokens" mapstructure:"max_tokens"`
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// SendGridConfig holds the transactional email provider settings.
// An empty key disables sending entirely.
type SendGridConfig struct {
	Key          string `yaml:"key" mapstructure:"key"`
	FromName     string `yaml:"from_name" mapstructure:"from_name"`
	FromEmail    string `yaml:"from_email" mapstructure:"from_email"`
	OperatorName string `yaml:"operator_name" mapstructure:"operator_name"`
	OperatorTo   string `yaml:"operator_to" mapstructure:"operator_to"`
}

// NotionConfig holds the CRM sync settings. An empty token disables sync.
type NotionConfig struct {
	Token   string `yaml:"token" mapstructure:"token"`
	LeadsDB string `yaml:"leads_db" mapstructure:"leads_db"`
}

// AdminConfig holds the admin auth secret.
type AdminConfig struct {
	Password string `yaml:"password" mapstructure:"password"`
}

// StoreConfig configures the persistence backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`       // sqlite | postgres | file
	Path        string `yaml:"path" mapstructure:"path"`           // sqlite database file
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	FilePath    string `yaml:"file_path" mapstructure:"file_path"` // legacy JSON-array store
	Ephemeral   bool   `yaml:"ephemeral" mapstructure:"ephemeral"` // file driver: use the volatile temp dir
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	Env            string   `yaml:"env" mapstructure:"env"` // gates the Secure cookie flag
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
	SubmitRPS      float64  `yaml:"submit_rps" mapstructure:"submit_rps"`
	SubmitBurst    int      `yaml:"submit_burst" mapstructure:"submit_burst"`
}

// NotifyConfig configures the per-key email rate limit.
type NotifyConfig struct {
	WindowSecs   int `yaml:"window_secs" mapstructure:"window_secs"`
	MaxPerWindow int `yaml:"max_per_window" mapstructure:"max_per_window"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("INTAKE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults. Secrets default to empty so AutomaticEnv can see the keys at
	// Unmarshal time.
	v.SetDefault("anthropic.key", "")
	v.SetDefault("sendgrid.key", "")
	v.SetDefault("notion.token", "")
	v.SetDefault("notion.leads_db", "")
	v.SetDefault("store.database_url", "")
	v.SetDefault("store.ephemeral", false)
	v.SetDefault("anthropic.model", "claude-sonnet-4-5-20250929")
	v.SetDefault("anthropic.max_tokens", 2048)
	v.SetDefault("anthropic.timeout_secs", 45)
	v.SetDefault("sendgrid.from_name", "Sells Advisors")
	v.SetDefault("sendgrid.from_email", "noreply@sellsadvisors.com")
	v.SetDefault("sendgrid.operator_name", "Intake")
	v.SetDefault("sendgrid.operator_to", "briefs@sellsadvisors.com")
	v.SetDefault("admin.password", "admin123") // known weak default, override in prod
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.path", "data/briefs.db")
	v.SetDefault("store.file_path", "data/briefs.json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.env", "development")
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("server.submit_rps", 2)
	v.SetDefault("server.submit_burst", 5)
	v.SetDefault("notify.window_secs", 60)
	v.SetDefault("notify.max_per_window", 10)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
