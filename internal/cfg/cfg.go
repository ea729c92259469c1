package cfg

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"housing-predictor/internal/common"
	"housing-predictor/internal/format"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

type Settings struct {
	Port             int
	ModelPath        string
	ModelWaitTimeout time.Duration
	PriceMultiplier  float64
	ExchangeRate     float64
	TargetTransform  format.Transform
	DataPath         string
	LogLevel         zerolog.Level
	RequestTimeout   time.Duration
	Relay            RelaySettings
}

// RelaySettings configures the chat relay binary.
type RelaySettings struct {
	BotToken     string
	APIURL       string
	PollTimeout  time.Duration
	PredictorURL string
	MetricsPort  int // 0 disables the relay metrics listener
}

type ConfigFile struct {
	Server struct {
		Port           int    `yaml:"port"`
		RequestTimeout string `yaml:"requestTimeout"`
		LogLevel       string `yaml:"logLevel"`
	} `yaml:"server"`

	Model struct {
		Path            string  `yaml:"path"`
		WaitTimeout     string  `yaml:"waitTimeout"`
		PriceMultiplier float64 `yaml:"priceMultiplier"`
		EURToUSD        float64 `yaml:"eurToUsd"`
		TargetTransform string  `yaml:"targetTransform"`
	} `yaml:"model"`

	Storage struct {
		DataPath string `yaml:"dataPath"`
	} `yaml:"storage"`

	Relay struct {
		TelegramToken  string `yaml:"telegramToken"`
		TelegramAPIURL string `yaml:"telegramAPIURL"`
		PollTimeout    string `yaml:"pollTimeout"`
		PredictorURL   string `yaml:"predictorURL"`
		MetricsPort    int    `yaml:"metricsPort"`
	} `yaml:"relay"`
}

// Load reads settings from an optional .env file, then either the YAML file
// named by CONFIG_FILE or the environment alone. Environment variables always
// win over YAML values.
func Load() (Settings, error) {
	if err := loadDotEnv(); err != nil {
		return Settings{}, err
	}

	if configPath := os.Getenv(common.EnvConfigFile); configPath != "" {
		return loadFromYAML(configPath)
	}
	return loadFromEnv()
}

// loadDotEnv loads ENV_FILE (default .env) if it exists. Variables already in
// the environment are not overwritten.
func loadDotEnv() error {
	path := getEnvOrDefault(common.EnvDotEnvFile, common.DefaultDotEnvFile)
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load env file %s: %w", path, err)
	}
	return nil
}

func loadFromYAML(path string) (Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var config ConfigFile
	if err := yaml.Unmarshal(data, &config); err != nil {
		return Settings{}, fmt.Errorf("failed to parse config file: %w", err)
	}

	p := &parser{}
	settings := Settings{
		Port:             p.intValue(common.EnvPort, config.Server.Port, common.DefaultPort),
		ModelPath:        firstNonEmpty(os.Getenv(common.EnvModelPath), config.Model.Path, common.DefaultModelPath),
		ModelWaitTimeout: p.seconds(common.EnvModelWaitTimeout, config.Model.WaitTimeout, common.DefaultModelWaitTimeout),
		PriceMultiplier:  p.floatValue(common.EnvPriceMultiplier, config.Model.PriceMultiplier, common.DefaultPriceMultiplier),
		ExchangeRate:     p.floatValue(common.EnvEURToUSD, config.Model.EURToUSD, common.DefaultEURToUSD),
		TargetTransform:  p.transform(firstNonEmpty(os.Getenv(common.EnvTargetTransform), config.Model.TargetTransform)),
		DataPath:         firstNonEmpty(os.Getenv(common.EnvDataPath), config.Storage.DataPath),
		LogLevel:         p.level(firstNonEmpty(os.Getenv(common.EnvLogLevel), config.Server.LogLevel, common.DefaultLogLevel)),
		RequestTimeout:   p.seconds(common.EnvRequestTimeout, config.Server.RequestTimeout, common.DefaultRequestTimeout),
		Relay: RelaySettings{
			BotToken:     firstNonEmpty(os.Getenv(common.EnvTelegramBotToken), config.Relay.TelegramToken),
			APIURL:       firstNonEmpty(os.Getenv(common.EnvTelegramAPIURL), config.Relay.TelegramAPIURL, common.DefaultTelegramAPIURL),
			PollTimeout:  p.seconds(common.EnvTelegramPollTimeout, config.Relay.PollTimeout, common.DefaultTelegramPollTimeout),
			PredictorURL: firstNonEmpty(os.Getenv(common.EnvPredictorURL), config.Relay.PredictorURL, common.DefaultPredictorURL),
			MetricsPort:  p.intValue(common.EnvRelayMetricsPort, config.Relay.MetricsPort, 0),
		},
	}
	if err := p.err(); err != nil {
		return Settings{}, err
	}

	if err := validateSettings(&settings); err != nil {
		return Settings{}, fmt.Errorf("configuration validation failed: %w", err)
	}
	return settings, nil
}

func loadFromEnv() (Settings, error) {
	p := &parser{}
	settings := Settings{
		Port:             p.intValue(common.EnvPort, 0, common.DefaultPort),
		ModelPath:        getEnvOrDefault(common.EnvModelPath, common.DefaultModelPath),
		ModelWaitTimeout: p.seconds(common.EnvModelWaitTimeout, "", common.DefaultModelWaitTimeout),
		PriceMultiplier:  p.floatValue(common.EnvPriceMultiplier, 0, common.DefaultPriceMultiplier),
		ExchangeRate:     p.floatValue(common.EnvEURToUSD, 0, common.DefaultEURToUSD),
		TargetTransform:  p.transform(os.Getenv(common.EnvTargetTransform)),
		DataPath:         os.Getenv(common.EnvDataPath), // optional
		LogLevel:         p.level(getEnvOrDefault(common.EnvLogLevel, common.DefaultLogLevel)),
		RequestTimeout:   p.seconds(common.EnvRequestTimeout, "", common.DefaultRequestTimeout),
		Relay: RelaySettings{
			BotToken:     os.Getenv(common.EnvTelegramBotToken),
			APIURL:       getEnvOrDefault(common.EnvTelegramAPIURL, common.DefaultTelegramAPIURL),
			PollTimeout:  p.seconds(common.EnvTelegramPollTimeout, "", common.DefaultTelegramPollTimeout),
			PredictorURL: getEnvOrDefault(common.EnvPredictorURL, common.DefaultPredictorURL),
			MetricsPort:  p.intValue(common.EnvRelayMetricsPort, 0, 0),
		},
	}
	if err := p.err(); err != nil {
		return Settings{}, err
	}

	if err := validateSettings(&settings); err != nil {
		return Settings{}, fmt.Errorf("configuration validation failed: %w", err)
	}
	return settings, nil
}

// parser collects malformed values so Load can report them all.
type parser struct {
	errs []error
}

func (p *parser) fail(key, value string, err error) {
	p.errs = append(p.errs, fmt.Errorf("invalid %s %q: %w", key, value, err))
}

func (p *parser) err() error {
	return errors.Join(p.errs...)
}

func (p *parser) intValue(key string, configValue, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.Atoi(v)
		if err != nil {
			p.fail(key, v, err)
			return defaultValue
		}
		return i
	}
	if configValue != 0 {
		return configValue
	}
	return defaultValue
}

func (p *parser) floatValue(key string, configValue, defaultValue float64) float64 {
	if v := os.Getenv(key); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			p.fail(key, v, err)
			return defaultValue
		}
		return f
	}
	if configValue != 0 {
		return configValue
	}
	return defaultValue
}

// seconds accepts either a bare integer number of seconds or a Go duration
// such as "90s".
func (p *parser) seconds(key, configValue string, defaultSeconds int) time.Duration {
	v := firstNonEmpty(os.Getenv(key), configValue)
	if v == "" {
		return time.Duration(defaultSeconds) * time.Second
	}
	d, err := parseSeconds(v)
	if err != nil {
		p.fail(key, v, err)
		return time.Duration(defaultSeconds) * time.Second
	}
	return d
}

func (p *parser) transform(v string) format.Transform {
	t, err := format.ParseTransform(strings.ToLower(v))
	if err != nil {
		p.fail(common.EnvTargetTransform, v, err)
		return format.TransformNone
	}
	return t
}

func (p *parser) level(v string) zerolog.Level {
	l, err := zerolog.ParseLevel(strings.ToLower(v))
	if err != nil {
		p.fail(common.EnvLogLevel, v, err)
		return zerolog.InfoLevel
	}
	return l
}

func parseSeconds(v string) (time.Duration, error) {
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Second, nil
	}
	return time.ParseDuration(v)
}

func getEnvOrDefault(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// validateSettings checks the values every binary needs.
func validateSettings(settings *Settings) error {
	if settings.Port < common.MinPort || settings.Port > common.MaxPort {
		return fmt.Errorf("port must be between %d and %d, got %d", common.MinPort, common.MaxPort, settings.Port)
	}

	if settings.ModelPath == "" {
		return fmt.Errorf("model path cannot be empty")
	}
	if settings.ModelWaitTimeout <= 0 || settings.ModelWaitTimeout > common.MaxModelWaitTimeout*time.Second {
		return fmt.Errorf("model wait timeout must be between 1s and %ds, got %v", common.MaxModelWaitTimeout, settings.ModelWaitTimeout)
	}
	if settings.RequestTimeout < time.Second || settings.RequestTimeout > 5*time.Minute {
		return fmt.Errorf("request timeout must be between 1s and 5m, got %v", settings.RequestTimeout)
	}

	if !positiveFinite(settings.PriceMultiplier) {
		return fmt.Errorf("price multiplier must be a positive number, got %f", settings.PriceMultiplier)
	}
	if !positiveFinite(settings.ExchangeRate) {
		return fmt.Errorf("exchange rate must be a positive number, got %f", settings.ExchangeRate)
	}

	if settings.Relay.MetricsPort != 0 && (settings.Relay.MetricsPort < common.MinPort || settings.Relay.MetricsPort > common.MaxPort) {
		return fmt.Errorf("relay metrics port must be between %d and %d, got %d", common.MinPort, common.MaxPort, settings.Relay.MetricsPort)
	}
	if settings.Relay.PollTimeout < time.Second || settings.Relay.PollTimeout > common.MaxPollTimeout*time.Second {
		return fmt.Errorf("telegram poll timeout must be between 1s and %ds, got %v", common.MaxPollTimeout, settings.Relay.PollTimeout)
	}
	return nil
}

// ValidateRelay checks the settings only the relay binary needs.
func (s *Settings) ValidateRelay() error {
	if s.Relay.BotToken == "" {
		return errors.New(common.ErrMsgTelegramTokenRequired)
	}
	if s.Relay.PredictorURL == "" {
		return errors.New(common.ErrMsgPredictorURLRequired)
	}
	return nil
}

// Addr returns the listen address for the HTTP server.
func (s *Settings) Addr() string {
	return fmt.Sprintf(":%d", s.Port)
}

func positiveFinite(v float64) bool {
	return v > 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}
