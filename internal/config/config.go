package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	AppConfig        *AppConfig
	AIConfig         *AIConfig
	BrowserConfig    *BrowserConfig
	AutomationConfig *AutomationConfig
	RelayConfig      *RelayConfig
}

type AppConfig struct {
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
	LogFile  string `envconfig:"LOG_FILE"`
	Debug    bool   `envconfig:"DEBUG" default:"false"`
	Tracing  bool   `envconfig:"TRACING" default:"false"`
}

// AIConfig configures the prompt generator. An empty APIKey is allowed at
// startup; prompt generation then fails with a missing-credential error.
type AIConfig struct {
	APIKey string `envconfig:"AI_API_KEY"`
	Model  string `envconfig:"AI_MODEL" default:"gemini-2.0-flash"`
}

type BrowserConfig struct {
	Driver      string `envconfig:"BROWSER_DRIVER" default:"playwright"`
	Headless    bool   `envconfig:"BROWSER_HEADLESS" default:"false"`
	SlowMo      int    `envconfig:"BROWSER_SLOW_MO" default:"0"`
	Timeout     int    `envconfig:"BROWSER_TIMEOUT" default:"30000"`
	UserDataDir string `envconfig:"BROWSER_USER_DATA_DIR" default:"./browser-data"`
	TargetURL   string `envconfig:"BROWSER_TARGET_URL" default:"https://labs.google/fx/tools/flow"`
	TargetHost  string `envconfig:"BROWSER_TARGET_HOST" default:"labs.google"`
}

// AutomationConfig holds the timing knobs of a storyboard run.
type AutomationConfig struct {
	PollInterval          time.Duration `envconfig:"POLL_INTERVAL" default:"1s"`
	GenerationTimeout     time.Duration `envconfig:"GENERATION_TIMEOUT" default:"300s"`
	DownloadTimeout       time.Duration `envconfig:"DOWNLOAD_TIMEOUT" default:"240s"`
	DownloadPollInterval  time.Duration `envconfig:"DOWNLOAD_POLL_INTERVAL" default:"2s"`
	GenerateEnableTimeout time.Duration `envconfig:"GENERATE_ENABLE_TIMEOUT" default:"10s"`
	ExtendConfirmTimeout  time.Duration `envconfig:"EXTEND_CONFIRM_TIMEOUT" default:"10s"`
	SettleShort           time.Duration `envconfig:"SETTLE_SHORT" default:"300ms"`
	SettleMedium          time.Duration `envconfig:"SETTLE_MEDIUM" default:"1s"`
	SettleLong            time.Duration `envconfig:"SETTLE_LONG" default:"3s"`
	UploadSettle          time.Duration `envconfig:"UPLOAD_SETTLE" default:"8s"`
	DownloadQuality       string        `envconfig:"DOWNLOAD_QUALITY" default:"1080"`
}

type RelayConfig struct {
	Addr           string        `envconfig:"RELAY_ADDR" default:"127.0.0.1:8787"`
	URL            string        `envconfig:"RELAY_URL" default:"http://127.0.0.1:8787"`
	RequestTimeout time.Duration `envconfig:"RELAY_REQUEST_TIMEOUT" default:"30m"`
	NatsURL        string        `envconfig:"NATS_URL"`
	ReadySubject   string        `envconfig:"NATS_READY_SUBJECT" default:"storyboard.engine.ready"`
}

func GetConfig() (*Config, error) {
	_ = godotenv.Load()

	var conf Config

	if err := envconfig.Process("", &conf); err != nil {
		return nil, fmt.Errorf("read config from env vars: %w", err)
	}

	return &conf, nil
}

// DefaultAutomationConfig returns the automation timings with their default
// values, without reading the environment.
func DefaultAutomationConfig() *AutomationConfig {
	return &AutomationConfig{
		PollInterval:          time.Second,
		GenerationTimeout:     300 * time.Second,
		DownloadTimeout:       240 * time.Second,
		DownloadPollInterval:  2 * time.Second,
		GenerateEnableTimeout: 10 * time.Second,
		ExtendConfirmTimeout:  10 * time.Second,
		SettleShort:           300 * time.Millisecond,
		SettleMedium:          time.Second,
		SettleLong:            3 * time.Second,
		UploadSettle:          8 * time.Second,
		DownloadQuality:       "1080",
	}
}
