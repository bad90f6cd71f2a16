package twap

import (
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Duration is a time.Duration that decodes from TOML strings such as "30s"
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler
func (d *Duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// DefaultClientConfig returns the configuration NewClient falls back to
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		ChainID:         ChainIDEthereum,
		PollInterval:    Duration{DefaultPollInterval},
		IndexerRPS:      5,
		PriceCacheTTL:   Duration{DefaultPriceCacheTTL},
		MaxFetchRetries: DefaultMaxFetchRetries,
		LogLevel:        "info",
	}
}

// LoadClientConfig reads a TOML file at path over DefaultClientConfig and
// applies TWAP_* environment overrides. An empty path skips the file. A .env
// file in the working directory is loaded first when present.
func LoadClientConfig(path string) (ClientConfig, error) {
	cfg := DefaultClientConfig()

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return ClientConfig{}, &InvalidParamError{Message: "failed to decode config " + path + ": " + err.Error()}
		}
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return cfg, nil
}

func applyEnvOverrides(cfg *ClientConfig) {
	setChainID(&cfg.ChainID, "TWAP_CHAIN_ID")
	setStr(&cfg.IndexerHost, "TWAP_INDEXER_HOST")
	setStr(&cfg.APIKey, "TWAP_API_KEY")
	setStr(&cfg.RPCURL, "TWAP_RPC_URL")
	setStr(&cfg.WSEndpoint, "TWAP_WS_ENDPOINT")
	setStr(&cfg.RedisAddr, "TWAP_REDIS_ADDR")
	setStr(&cfg.RedisPassword, "TWAP_REDIS_PASSWORD")
	setInt(&cfg.RedisDB, "TWAP_REDIS_DB")
	setDuration(&cfg.PollInterval, "TWAP_POLL_INTERVAL")
	setFloat64(&cfg.IndexerRPS, "TWAP_INDEXER_RPS")
	setDuration(&cfg.PriceCacheTTL, "TWAP_PRICE_CACHE_TTL")
	setInt(&cfg.MaxFetchRetries, "TWAP_MAX_FETCH_RETRIES")
	setStr(&cfg.MinChunkSizeUsd, "TWAP_MIN_CHUNK_SIZE_USD")
	setStr(&cfg.LogLevel, "TWAP_LOG_LEVEL")
	setBool(&cfg.LogJSON, "TWAP_LOG_JSON")
}

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setChainID(dst *ChainID, key string) {
	n := int(*dst)
	setInt(&n, key)
	*dst = ChainID(n)
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}
