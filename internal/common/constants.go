package common

// Environment variable keys
const (
	EnvConfigFile          = "CONFIG_FILE"
	EnvDotEnvFile          = "ENV_FILE"
	EnvPort                = "PORT"
	EnvModelPath           = "MODEL_PATH"
	EnvModelWaitTimeout    = "MODEL_WAIT_TIMEOUT"
	EnvPriceMultiplier     = "PRICE_MULTIPLIER"
	EnvEURToUSD            = "EUR_TO_USD"
	EnvTargetTransform     = "TARGET_TRANSFORM"
	EnvDataPath            = "DATA_PATH"
	EnvLogLevel            = "LOG_LEVEL"
	EnvTelegramBotToken    = "TELEGRAM_BOT_TOKEN"
	EnvTelegramAPIURL      = "TELEGRAM_API_URL"
	EnvTelegramPollTimeout = "TELEGRAM_POLL_TIMEOUT"
	EnvPredictorURL        = "PREDICTOR_URL"
	EnvRequestTimeout      = "REQUEST_TIMEOUT"
	EnvRelayMetricsPort    = "RELAY_METRICS_PORT"
)

// Configuration defaults
const (
	DefaultPort                = 8000
	DefaultModelPath           = "model/model.yaml"
	DefaultModelWaitTimeout    = 60 // seconds
	DefaultPriceMultiplier     = 100000.0
	DefaultEURToUSD            = 1.10
	DefaultTargetTransform     = "none"
	DefaultLogLevel            = "info"
	DefaultTelegramAPIURL      = "https://api.telegram.org"
	DefaultTelegramPollTimeout = 30 // seconds
	DefaultPredictorURL        = "http://localhost:8000"
	DefaultRequestTimeout      = 10 // seconds
	DefaultDotEnvFile          = ".env"
)

// Validation constants
const (
	MinPort             = 1
	MaxPort             = 65535
	MaxModelWaitTimeout = 3600 // seconds
	MaxPollTimeout      = 120  // seconds
)

// Common error messages
const (
	ErrMsgTelegramTokenRequired = "TELEGRAM_BOT_TOKEN is required for the relay"
	ErrMsgPredictorURLRequired  = "PREDICTOR_URL is required for the relay"
)
