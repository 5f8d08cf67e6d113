package config

import (
	"log"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"ResearchPosts/internal/classifier"
	"ResearchPosts/internal/resolver"
)

const (
	defaultTimezone   = "UTC"
	configPathEnv     = "RESEARCH_POSTS_CONFIG"
	keywordsEnv       = "RESEARCH_POSTS_KEYWORDS"
	logLevelEnv       = "LOG_LEVEL"
	databaseDriverEnv = "DATABASE_DRIVER"
	databaseDSNEnv    = "DATABASE_DSN"
	openAIAPIKeyEnv   = "OPENAI_API_KEY"
	openAIModelEnv    = "OPENAI_MODEL"
	telegramTokenEnv  = "TELEGRAM_BOT_TOKEN"
	telegramChatIDEnv = "TELEGRAM_CHAT_ID"
)

// Scheduler modes.
const (
	ModeOnce     = "once"
	ModeInterval = "interval"
	ModeWatch    = "watch"
)

// Source kinds understood by the parser package.
const (
	SourceKindJSON = "json"
	SourceKindHTML = "html"
)

// Config holds high-level settings required across the application.
type Config struct {
	Logging       LoggingConfig      `yaml:"logging"`
	Classifier    ClassifierConfig   `yaml:"classifier"`
	Sources       []SourceConfig     `yaml:"sources"`
	Store         StoreConfig        `yaml:"store"`
	Database      DatabaseConfig     `yaml:"database"`
	Redirects     RedirectConfig     `yaml:"redirects"`
	ChatGPT       ChatGPTConfig      `yaml:"chatgpt"`
	Notifications NotificationConfig `yaml:"notifications"`
	Scheduler     SchedulerConfig    `yaml:"scheduler"`
}

// LoggingConfig controls the slog level.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// ClassifierConfig feeds the relevance classifier and the link resolver.
type ClassifierConfig struct {
	Keywords         []string `yaml:"keywords"`
	ExtraPatterns    []string `yaml:"extraPatterns"`
	ResearchDomains  []string `yaml:"researchDomains"`
	ResearchFileExts []string `yaml:"researchFileExts"`
}

// SourceConfig describes one scraper output to ingest.
type SourceConfig struct {
	Name    string            `yaml:"name"`
	Kind    string            `yaml:"kind"`
	Path    string            `yaml:"path"`
	Options map[string]string `yaml:"options"`
}

// StoreConfig points at the merged result file and the summaries output.
type StoreConfig struct {
	Path          string `yaml:"path"`
	SummariesPath string `yaml:"summariesPath"`
	RelevantOnly  *bool  `yaml:"relevantOnly"`
}

// KeepRelevantOnly reports whether posts the classifier rejects are dropped. Unset means true.
func (s StoreConfig) KeepRelevantOnly() bool {
	return s.RelevantOnly == nil || *s.RelevantOnly
}

// DatabaseConfig describes the optional processed-post history database.
type DatabaseConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

// RedirectConfig controls expansion of shortened links before classification.
type RedirectConfig struct {
	Enabled           bool          `yaml:"enabled"`
	RequestsPerSecond float64       `yaml:"requestsPerSecond"`
	Burst             int           `yaml:"burst"`
	Timeout           time.Duration `yaml:"timeout"`
	ShortenerHosts    []string      `yaml:"shortenerHosts"`
}

// ChatGPTConfig defines how to contact the ChatGPT API.
type ChatGPTConfig struct {
	Endpoint      string `yaml:"endpoint"`
	Model         string `yaml:"model"`
	APIKey        string `yaml:"apiKey"`
	SummaryPrompt string `yaml:"summaryPrompt"`
	TagPrompt     string `yaml:"tagPrompt"`
}

// NotificationConfig encapsulates outbound channels (Telegram, etc.).
type NotificationConfig struct {
	Telegram TelegramConfig `yaml:"telegram"`
}

// TelegramConfig wires all data required to send messages.
type TelegramConfig struct {
	BotToken string `yaml:"botToken"`
	ChatID   string `yaml:"chatId"`
}

// SchedulerConfig defines when the pipeline should run.
type SchedulerConfig struct {
	Mode     string         `yaml:"mode"`
	Interval time.Duration  `yaml:"interval"`
	Timezone string         `yaml:"timezone"`
	location *time.Location `yaml:"-"`
}

// Location resolves the scheduler timezone string to a time.Location.
func (s SchedulerConfig) Location() *time.Location {
	if s.location != nil {
		return s.location
	}
	loc, _ := time.LoadLocation(defaultTimezone)
	return loc
}

// Load reads YAML configuration (if present) and applies environment overrides.
func Load() Config {
	cfg := defaultConfig()

	if path := os.Getenv(configPathEnv); path != "" {
		if raw, err := os.ReadFile(path); err != nil {
			log.Printf("config: cannot read %s: %v (falling back to defaults)", path, err)
		} else if fileCfg, err := Parse(raw); err != nil {
			log.Printf("config: cannot parse %s: %v (falling back to defaults)", path, err)
		} else {
			cfg = mergeConfig(cfg, fileCfg)
		}
	}

	cfg.applyEnvOverrides()
	cfg.bindTimezone()

	return cfg
}

// Parse decodes a YAML document without applying defaults.
func Parse(raw []byte) (Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(keywordsEnv); v != "" {
		c.Classifier.Keywords = splitList(v)
	}

	if v := os.Getenv(logLevelEnv); v != "" {
		c.Logging.Level = v
	}

	if v := os.Getenv(databaseDriverEnv); v != "" {
		c.Database.Driver = v
	}

	if v := os.Getenv(databaseDSNEnv); v != "" {
		c.Database.DSN = v
	}

	if v := os.Getenv(telegramTokenEnv); v != "" {
		c.Notifications.Telegram.BotToken = v
	}

	if v := os.Getenv(telegramChatIDEnv); v != "" {
		c.Notifications.Telegram.ChatID = v
	}

	if v := os.Getenv(openAIAPIKeyEnv); v != "" {
		c.ChatGPT.APIKey = v
	}

	if v := os.Getenv(openAIModelEnv); v != "" {
		c.ChatGPT.Model = v
	}
}

func (c *Config) bindTimezone() {
	tz := c.Scheduler.Timezone
	if tz == "" {
		tz = defaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		log.Printf("config: unknown timezone %s, reverting to %s", tz, defaultTimezone)
		loc, _ = time.LoadLocation(defaultTimezone)
	}
	c.Scheduler.location = loc
}

func mergeConfig(base, override Config) Config {
	if override.Logging.Level != "" {
		base.Logging.Level = override.Logging.Level
	}

	if len(override.Classifier.Keywords) > 0 {
		base.Classifier.Keywords = override.Classifier.Keywords
	}
	if len(override.Classifier.ExtraPatterns) > 0 {
		base.Classifier.ExtraPatterns = override.Classifier.ExtraPatterns
	}
	if len(override.Classifier.ResearchDomains) > 0 {
		base.Classifier.ResearchDomains = override.Classifier.ResearchDomains
	}
	if len(override.Classifier.ResearchFileExts) > 0 {
		base.Classifier.ResearchFileExts = override.Classifier.ResearchFileExts
	}

	if len(override.Sources) > 0 {
		base.Sources = override.Sources
	}

	if override.Store.Path != "" {
		base.Store.Path = override.Store.Path
	}
	if override.Store.SummariesPath != "" {
		base.Store.SummariesPath = override.Store.SummariesPath
	}
	if override.Store.RelevantOnly != nil {
		relevantOnly := *override.Store.RelevantOnly
		base.Store.RelevantOnly = &relevantOnly
	}

	if override.Database.DSN != "" {
		base.Database = override.Database
	}

	if override.Redirects.Enabled {
		base.Redirects.Enabled = true
	}
	if override.Redirects.RequestsPerSecond > 0 {
		base.Redirects.RequestsPerSecond = override.Redirects.RequestsPerSecond
	}
	if override.Redirects.Burst > 0 {
		base.Redirects.Burst = override.Redirects.Burst
	}
	if override.Redirects.Timeout > 0 {
		base.Redirects.Timeout = override.Redirects.Timeout
	}
	if len(override.Redirects.ShortenerHosts) > 0 {
		base.Redirects.ShortenerHosts = override.Redirects.ShortenerHosts
	}

	if override.ChatGPT.Endpoint != "" {
		base.ChatGPT.Endpoint = override.ChatGPT.Endpoint
	}
	if override.ChatGPT.Model != "" {
		base.ChatGPT.Model = override.ChatGPT.Model
	}
	if override.ChatGPT.APIKey != "" {
		base.ChatGPT.APIKey = override.ChatGPT.APIKey
	}
	if override.ChatGPT.SummaryPrompt != "" {
		base.ChatGPT.SummaryPrompt = override.ChatGPT.SummaryPrompt
	}
	if override.ChatGPT.TagPrompt != "" {
		base.ChatGPT.TagPrompt = override.ChatGPT.TagPrompt
	}

	if override.Notifications.Telegram.BotToken != "" {
		base.Notifications.Telegram.BotToken = override.Notifications.Telegram.BotToken
	}
	if override.Notifications.Telegram.ChatID != "" {
		base.Notifications.Telegram.ChatID = override.Notifications.Telegram.ChatID
	}

	if override.Scheduler.Mode != "" {
		base.Scheduler.Mode = override.Scheduler.Mode
	}
	if override.Scheduler.Interval > 0 {
		base.Scheduler.Interval = override.Scheduler.Interval
	}
	if override.Scheduler.Timezone != "" {
		base.Scheduler.Timezone = override.Scheduler.Timezone
	}

	return base
}

func splitList(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func defaultConfig() Config {
	tz, _ := time.LoadLocation(defaultTimezone)
	return Config{
		Logging: LoggingConfig{Level: "info"},
		Classifier: ClassifierConfig{
			Keywords:         append([]string(nil), classifier.DefaultKeywords...),
			ResearchDomains:  append([]string(nil), resolver.DefaultResearchDomains...),
			ResearchFileExts: append([]string(nil), resolver.DefaultResearchFileExts...),
		},
		Sources: []SourceConfig{
			{Name: "scraper-export", Kind: SourceKindJSON, Path: "data/research_posts.json"},
		},
		Store: StoreConfig{
			Path:          "data/research_posts_merged.json",
			SummariesPath: "data/research_summaries.json",
		},
		Redirects: RedirectConfig{
			RequestsPerSecond: 2,
			Burst:             2,
			Timeout:           10 * time.Second,
			ShortenerHosts:    []string{"lnkd.in", "bit.ly", "t.co", "tinyurl.com", "buff.ly"},
		},
		ChatGPT: ChatGPTConfig{
			Endpoint: "https://api.openai.com/v1/chat/completions",
			Model:    "gpt-4o",
			SummaryPrompt: "You are an expert research analyst. When given a LinkedIn post that talks about a research paper, " +
				"technical concept, or industry trend, you generate a concise, professional, single-paragraph summary in 4-6 sentences. " +
				"Do not use bullet points. Do not copy text. Use your own words.",
			TagPrompt: "You are a tagging assistant. Given a summary of a research-related post, return 1-3 short, relevant tags " +
				"(like RAG, LLMOps, Evaluation, Startup Strategy, etc.). Return them as a comma-separated list.",
		},
		Scheduler: SchedulerConfig{Mode: ModeOnce, Interval: 24 * time.Hour, Timezone: defaultTimezone, location: tz},
	}
}
