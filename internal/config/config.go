package config

import (
	"errors"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

const defaultExternalHTTPTimeout = 90 * time.Second
const defaultExternalHTTPTimeoutSeconds = int(defaultExternalHTTPTimeout / time.Second)

const (
	DefaultOpenAIAPIURL   = "https://api.openai.com/v1/chat/completions"
	DefaultReportFilename = "kitchen_orders.xlsx"
	DefaultReportTitle    = "Your Order Requests Report"
	DefaultSlashCommand   = "/shopping-list"
)

type Config struct {
	SlackBotToken      string `yaml:"slack_bot_token"`
	SlackSigningSecret string `yaml:"slack_signing_secret"`
	SlackChannelID     string `yaml:"slack_channel_id"`
	SlashCommand       string `yaml:"slash_command"`

	LLMProvider          string  `yaml:"llm_provider"`
	LLMModel             string  `yaml:"llm_model"`
	LLMTemperature       float64 `yaml:"llm_temperature"`
	LLMRequestsPerSecond float64 `yaml:"llm_requests_per_second"`
	LLMConcurrency       int     `yaml:"llm_concurrency"`
	OpenAIAPIKey         string  `yaml:"openai_api_key"`
	OpenAIAPIURL         string  `yaml:"openai_api_url"`
	AnthropicAPIKey      string  `yaml:"anthropic_api_key"`

	ListenAddr                 string `yaml:"listen_addr"`
	CommandPath                string `yaml:"command_path"`
	ExternalHTTPTimeoutSeconds int    `yaml:"external_http_timeout_seconds"`

	MaxLookbackDays int    `yaml:"max_lookback_days"`
	Timezone        string `yaml:"timezone"`
	ReportFilename  string `yaml:"report_filename"`
	ReportTitle     string `yaml:"report_title"`

	WorkerCount       int `yaml:"worker_count"`
	WorkerQueueSize   int `yaml:"worker_queue_size"`
	JobTimeoutSeconds int `yaml:"job_timeout_seconds"`

	ReportSchedule             string   `yaml:"report_schedule"`
	ReportRecipients           []string `yaml:"report_recipients"`
	ReportScheduleLookbackDays int      `yaml:"report_schedule_lookback_days"`

	Location *time.Location `yaml:"-"` // computed from Timezone, not from YAML
}

func LoadConfig() Config {
	// Set before decoding so an explicit 0 from yaml or env survives.
	cfg := Config{LLMTemperature: 0.1}

	dotenvPath := ".env"
	if envPath := os.Getenv("DOTENV_PATH"); envPath != "" {
		dotenvPath = envPath
	}
	if err := godotenv.Load(dotenvPath); err == nil {
		log.Printf("Loaded environment from %s", dotenvPath)
	}

	configPath := "config.yaml"
	if envPath := os.Getenv("CONFIG_PATH"); envPath != "" {
		configPath = envPath
	}
	if data, err := os.ReadFile(configPath); err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			log.Fatalf("Error parsing %s: %v", configPath, err)
		}
		log.Printf("Loaded config from %s", configPath)
	}

	envOverride(&cfg.SlackBotToken, "SLACK_BOT_TOKEN")
	envOverride(&cfg.SlackSigningSecret, "SLACK_SIGNING_SECRET")
	envOverride(&cfg.SlackChannelID, "SLACK_CHANNEL_ID")
	envOverride(&cfg.SlashCommand, "SLASH_COMMAND")
	envOverride(&cfg.LLMProvider, "LLM_PROVIDER")
	envOverride(&cfg.LLMModel, "LLM_MODEL")
	envOverrideFloat(&cfg.LLMTemperature, "LLM_TEMPERATURE")
	envOverrideFloat(&cfg.LLMRequestsPerSecond, "LLM_REQUESTS_PER_SECOND")
	envOverrideInt(&cfg.LLMConcurrency, "LLM_CONCURRENCY")
	envOverride(&cfg.OpenAIAPIKey, "OPENAI_API_KEY")
	envOverride(&cfg.OpenAIAPIURL, "OPENAI_API_URL")
	envOverride(&cfg.AnthropicAPIKey, "ANTHROPIC_API_KEY")
	envOverride(&cfg.ListenAddr, "LISTEN_ADDR")
	if port := os.Getenv("PORT"); port != "" && os.Getenv("LISTEN_ADDR") == "" {
		cfg.ListenAddr = ":" + port
	}
	envOverride(&cfg.CommandPath, "COMMAND_PATH")
	envOverrideInt(&cfg.ExternalHTTPTimeoutSeconds, "EXTERNAL_HTTP_TIMEOUT_SECONDS")
	envOverrideInt(&cfg.MaxLookbackDays, "MAX_LOOKBACK_DAYS")
	envOverride(&cfg.Timezone, "TIMEZONE")
	envOverride(&cfg.ReportFilename, "REPORT_FILENAME")
	envOverride(&cfg.ReportTitle, "REPORT_TITLE")
	envOverrideInt(&cfg.WorkerCount, "WORKER_COUNT")
	envOverrideInt(&cfg.WorkerQueueSize, "WORKER_QUEUE_SIZE")
	envOverrideInt(&cfg.JobTimeoutSeconds, "JOB_TIMEOUT_SECONDS")
	envOverrideAllowEmpty(&cfg.ReportSchedule, "REPORT_SCHEDULE")
	envOverrideInt(&cfg.ReportScheduleLookbackDays, "REPORT_SCHEDULE_LOOKBACK_DAYS")

	if ids := os.Getenv("REPORT_RECIPIENTS"); ids != "" {
		cfg.ReportRecipients = nil
		for _, id := range strings.Split(ids, ",") {
			id = strings.TrimSpace(id)
			if id != "" {
				cfg.ReportRecipients = append(cfg.ReportRecipients, id)
			}
		}
	}

	if cfg.SlashCommand == "" {
		cfg.SlashCommand = DefaultSlashCommand
	}
	if cfg.LLMProvider == "" {
		cfg.LLMProvider = "openai"
	}
	if cfg.LLMRequestsPerSecond == 0 {
		cfg.LLMRequestsPerSecond = 5
	}
	if cfg.LLMConcurrency == 0 {
		cfg.LLMConcurrency = 4
	}
	if cfg.OpenAIAPIURL == "" {
		cfg.OpenAIAPIURL = DefaultOpenAIAPIURL
	}
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = ":3000"
	}
	if cfg.CommandPath == "" {
		cfg.CommandPath = "/slack/command"
	}
	if cfg.ExternalHTTPTimeoutSeconds == 0 {
		cfg.ExternalHTTPTimeoutSeconds = defaultExternalHTTPTimeoutSeconds
	}
	if cfg.MaxLookbackDays == 0 {
		cfg.MaxLookbackDays = 30
	}
	if cfg.Timezone == "" {
		cfg.Timezone = "Local"
	}
	if cfg.ReportFilename == "" {
		cfg.ReportFilename = DefaultReportFilename
	}
	if cfg.ReportTitle == "" {
		cfg.ReportTitle = DefaultReportTitle
	}
	if cfg.WorkerCount == 0 {
		cfg.WorkerCount = 4
	}
	if cfg.WorkerQueueSize == 0 {
		cfg.WorkerQueueSize = 64
	}
	if cfg.JobTimeoutSeconds == 0 {
		cfg.JobTimeoutSeconds = 600
	}
	if cfg.ReportScheduleLookbackDays == 0 {
		cfg.ReportScheduleLookbackDays = 7
	}

	required := map[string]string{
		"slack_bot_token":      cfg.SlackBotToken,
		"slack_signing_secret": cfg.SlackSigningSecret,
		"slack_channel_id":     cfg.SlackChannelID,
	}
	for name, val := range required {
		if val == "" {
			log.Fatalf("Required config '%s' is not set (via config.yaml or env var)", name)
		}
	}

	switch cfg.LLMProvider {
	case "anthropic":
		if cfg.AnthropicAPIKey == "" {
			log.Fatalf("anthropic_api_key is required when llm_provider=anthropic")
		}
	case "openai":
		if cfg.OpenAIAPIKey == "" {
			log.Fatalf("openai_api_key is required when llm_provider=openai")
		}
	default:
		log.Fatalf("llm_provider must be 'anthropic' or 'openai', got '%s'", cfg.LLMProvider)
	}

	if strings.EqualFold(cfg.Timezone, "Local") {
		cfg.Location = time.Local
	} else {
		loc, err := time.LoadLocation(cfg.Timezone)
		if err != nil {
			log.Fatalf("invalid timezone '%s': %v", cfg.Timezone, err)
		}
		cfg.Location = loc
	}

	if cfg.LLMTemperature < 0 || cfg.LLMTemperature > 2 {
		log.Fatalf("invalid llm_temperature '%f': must be between 0 and 2", cfg.LLMTemperature)
	}
	if cfg.LLMRequestsPerSecond < 0 {
		log.Fatalf("invalid llm_requests_per_second '%f': must be >= 0", cfg.LLMRequestsPerSecond)
	}
	if cfg.LLMConcurrency < 1 {
		log.Fatalf("invalid llm_concurrency '%d': must be >= 1", cfg.LLMConcurrency)
	}
	if cfg.ExternalHTTPTimeoutSeconds < 5 {
		log.Fatalf("invalid external_http_timeout_seconds '%d': must be >= 5", cfg.ExternalHTTPTimeoutSeconds)
	}
	if cfg.MaxLookbackDays < 1 {
		log.Fatalf("invalid max_lookback_days '%d': must be >= 1", cfg.MaxLookbackDays)
	}
	if cfg.WorkerCount < 1 {
		log.Fatalf("invalid worker_count '%d': must be >= 1", cfg.WorkerCount)
	}
	if cfg.WorkerQueueSize < 1 {
		log.Fatalf("invalid worker_queue_size '%d': must be >= 1", cfg.WorkerQueueSize)
	}
	if cfg.JobTimeoutSeconds < 10 {
		log.Fatalf("invalid job_timeout_seconds '%d': must be >= 10", cfg.JobTimeoutSeconds)
	}
	if !strings.HasPrefix(cfg.CommandPath, "/") {
		log.Fatalf("invalid command_path '%s': must start with /", cfg.CommandPath)
	}
	if s := strings.TrimSpace(cfg.ReportSchedule); s != "" {
		if _, err := ParseSchedule(s); err != nil {
			log.Fatalf("invalid report_schedule '%s': %v", s, err)
		}
		if len(cfg.ReportRecipients) == 0 {
			log.Printf("WARNING: report_schedule is set but report_recipients is empty; scheduled reports will not be sent.")
		}
		if cfg.ReportScheduleLookbackDays > cfg.MaxLookbackDays {
			log.Fatalf("invalid report_schedule_lookback_days '%d': must be <= max_lookback_days (%d)", cfg.ReportScheduleLookbackDays, cfg.MaxLookbackDays)
		}
	}

	return cfg
}

// ErrScheduleNeverFires is returned for expressions such as "0 9 30 2 *"
// that parse but match no calendar date.
var ErrScheduleNeverFires = errors.New("schedule never fires")

// ParseSchedule parses a standard 5-field cron expression
// (minute hour day-of-month month day-of-week).
func ParseSchedule(spec string) (cron.Schedule, error) {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	sched, err := parser.Parse(spec)
	if err != nil {
		return nil, err
	}
	if sched.Next(time.Now()).IsZero() {
		return nil, ErrScheduleNeverFires
	}
	return sched, nil
}

func (c Config) ExternalHTTPTimeout() time.Duration {
	return time.Duration(c.ExternalHTTPTimeoutSeconds) * time.Second
}

func (c Config) JobTimeout() time.Duration {
	return time.Duration(c.JobTimeoutSeconds) * time.Second
}

func (c Config) ScheduleEnabled() bool {
	return strings.TrimSpace(c.ReportSchedule) != "" && len(c.ReportRecipients) > 0
}

func envOverride(field *string, envKey string) {
	if val := os.Getenv(envKey); val != "" {
		*field = val
	}
}

func envOverrideAllowEmpty(field *string, envKey string) {
	if val, ok := os.LookupEnv(envKey); ok {
		*field = val
	}
}

func envOverrideInt(field *int, envKey string) {
	if val := os.Getenv(envKey); val != "" {
		parsed, err := strconv.Atoi(val)
		if err != nil {
			log.Fatalf("invalid %s '%s': %v", envKey, val, err)
		}
		*field = parsed
	}
}

func envOverrideFloat(field *float64, envKey string) {
	if val := os.Getenv(envKey); val != "" {
		parsed, err := strconv.ParseFloat(val, 64)
		if err != nil {
			log.Fatalf("invalid %s '%s': %v", envKey, val, err)
		}
		*field = parsed
	}
}
