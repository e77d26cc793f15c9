package config

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"golang.org/x/text/language"
)

// Engines accepted by STT_ENGINE.
const (
	EngineDeepgram = "deepgram"
	EngineOpenAI   = "openai"
)

// Store drivers accepted by STORE_DRIVER.
const (
	StoreSQLite = "sqlite"
	StoreFile   = "file"
)

// Config holds the configuration for the daemon and the CLI client.
type Config struct {
	// Control surface
	ListenAddr string
	DaemonURL  string

	// Speech recognition
	STTEngine      string
	Language       string
	DeepgramAPIKey string
	DeepgramModel  string
	DeepgramURL    string
	OpenAIAPIKey   string
	OpenAIModel    string
	OpenAIBaseURL  string
	OpenAIWindow   time.Duration

	// Audio capture
	AudioSource string
	SampleRate  int
	Channels    int

	// Recorder
	Speaker        string
	SettleDelay    time.Duration
	Locale         string
	RecoverOnStart bool

	// Persistence and export
	StoreDriver string
	StorePath   string
	SaveDir     string

	LogLevel  string
	LogFormat string
}

// Default returns the configuration used when nothing is overridden.
func Default() *Config {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return &Config{
		ListenAddr:     "127.0.0.1:3000",
		DaemonURL:      "http://127.0.0.1:3000",
		STTEngine:      EngineDeepgram,
		Language:       "en-US",
		DeepgramModel:  "nova-2-meeting",
		DeepgramURL:    "wss://api.deepgram.com/v1/listen",
		OpenAIModel:    "whisper-1",
		OpenAIWindow:   5 * time.Second,
		AudioSource:    "microphone",
		SampleRate:     16000,
		Channels:       1,
		Speaker:        "Speaker 1",
		SettleDelay:    time.Second,
		Locale:         "en-US",
		RecoverOnStart: true,
		StoreDriver:    StoreSQLite,
		StorePath:      filepath.Join(home, ".meetrec", "state.db"),
		SaveDir:        filepath.Join(home, "Downloads"),
		LogLevel:       "info",
		LogFormat:      "text",
	}
}

// Load builds the configuration from defaults, a .env file, the environment
// and finally args (flags), in increasing order of precedence.
func Load(args []string) (*Config, error) {
	cfg := Default()

	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to load .env file: %w", err)
		}
	}

	cfg.ListenAddr = getEnv("LISTEN_ADDR", cfg.ListenAddr)
	cfg.DaemonURL = getEnv("DAEMON_URL", cfg.DaemonURL)
	cfg.STTEngine = strings.ToLower(getEnv("STT_ENGINE", cfg.STTEngine))
	cfg.Language = getEnv("LANGUAGE", cfg.Language)
	cfg.DeepgramAPIKey = getEnv("DEEPGRAM_API_KEY", cfg.DeepgramAPIKey)
	cfg.DeepgramModel = getEnv("DEEPGRAM_MODEL", cfg.DeepgramModel)
	cfg.DeepgramURL = getEnv("DEEPGRAM_URL", cfg.DeepgramURL)
	cfg.OpenAIAPIKey = getEnv("OPEN_AI_API_KEY", cfg.OpenAIAPIKey)
	cfg.OpenAIModel = getEnv("OPENAI_MODEL", cfg.OpenAIModel)
	cfg.OpenAIBaseURL = getEnv("OPENAI_BASE_URL", cfg.OpenAIBaseURL)
	cfg.AudioSource = getEnv("AUDIO_SOURCE", cfg.AudioSource)
	cfg.Speaker = getEnv("SPEAKER", cfg.Speaker)
	cfg.Locale = getEnv("LOCALE", cfg.Locale)
	cfg.StoreDriver = strings.ToLower(getEnv("STORE_DRIVER", cfg.StoreDriver))
	cfg.StorePath = getEnv("STORE_PATH", cfg.StorePath)
	cfg.SaveDir = getEnv("SAVE_DIR", cfg.SaveDir)
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)
	cfg.LogFormat = getEnv("LOG_FORMAT", cfg.LogFormat)

	if v := getEnv("OPENAI_WINDOW", ""); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.OpenAIWindow = d
		}
	}
	if v := getEnv("SETTLE_DELAY", ""); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.SettleDelay = d
		}
	}
	if v := getEnv("SAMPLE_RATE", ""); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.SampleRate = n
		}
	}
	if v := getEnv("RECOVER_ON_START", ""); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.RecoverOnStart = b
		}
	}

	// Override with flags
	fs := flag.NewFlagSet("meetrec", flag.ContinueOnError)
	fs.StringVar(&cfg.ListenAddr, "listen", cfg.ListenAddr, "Daemon listen address")
	fs.StringVar(&cfg.DaemonURL, "daemon", cfg.DaemonURL, "Daemon base URL used by client commands")
	fs.StringVar(&cfg.STTEngine, "engine", cfg.STTEngine, "Speech engine: deepgram|openai")
	fs.StringVar(&cfg.Language, "lang", cfg.Language, "Recognition language (BCP-47)")
	fs.StringVar(&cfg.AudioSource, "source", cfg.AudioSource, "Audio source: microphone|file:<path.wav>")
	fs.StringVar(&cfg.Speaker, "speaker", cfg.Speaker, "Speaker label attached to entries")
	fs.StringVar(&cfg.Locale, "locale", cfg.Locale, "Locale used to render dates and times")
	fs.DurationVar(&cfg.SettleDelay, "settle-delay", cfg.SettleDelay, "Grace period for trailing results after stop")
	fs.StringVar(&cfg.StoreDriver, "store", cfg.StoreDriver, "Store driver: sqlite|file")
	fs.StringVar(&cfg.StorePath, "store-path", cfg.StorePath, "Store database file or directory")
	fs.StringVar(&cfg.SaveDir, "save-dir", cfg.SaveDir, "Directory transcripts are downloaded to")
	fs.BoolVar(&cfg.RecoverOnStart, "recover", cfg.RecoverOnStart, "Export a transcript left over from a terminated session")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level")
	fs.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "Log format: text|json")
	if err := fs.Parse(args); err != nil {
		return nil, errors.Wrap(err, "parse flags")
	}

	return cfg, nil
}

// Validate checks the settings the daemon needs to record.
func (c *Config) Validate() error {
	if _, err := language.Parse(c.Language); err != nil {
		return errors.Wrapf(err, "invalid LANGUAGE %q", c.Language)
	}
	if _, err := language.Parse(c.Locale); err != nil {
		return errors.Wrapf(err, "invalid LOCALE %q", c.Locale)
	}
	switch c.STTEngine {
	case EngineDeepgram:
		if c.DeepgramAPIKey == "" {
			return errors.New("DEEPGRAM_API_KEY is required for the deepgram engine")
		}
	case EngineOpenAI:
		if c.OpenAIAPIKey == "" {
			return errors.New("OPEN_AI_API_KEY is required for the openai engine")
		}
		if c.OpenAIWindow <= 0 {
			return errors.New("OPENAI_WINDOW must be positive")
		}
	default:
		return errors.Errorf("unknown STT_ENGINE %q (must be deepgram or openai)", c.STTEngine)
	}
	switch c.StoreDriver {
	case StoreSQLite, StoreFile:
	default:
		return errors.Errorf("unknown STORE_DRIVER %q (must be sqlite or file)", c.StoreDriver)
	}
	if c.SettleDelay < 0 {
		return errors.New("SETTLE_DELAY must not be negative")
	}
	if c.SaveDir == "" {
		return errors.New("SAVE_DIR is required")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
