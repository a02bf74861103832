package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all server settings in correct types
type Config struct {
	Port           string
	AllowedOrigins []string

	// Bilibili platform
	APIBase string
	Cookie  string

	// ASR provider chain, tried in order
	ASRPrimary   string // "bcut" or "whisper"
	ASRSecondary string // may be empty for a single-tier chain
	BcutEnabled  bool
	BcutAPIBase  string
	WhisperBin   string
	WhisperModel string

	// Audio acquisition
	YtDlpBin      string
	ConverterURL  string
	ConverterWait time.Duration
	TempDir       string

	// Limits
	MaxVideoDuration int // seconds, 0 = unlimited
	JobTimeout       time.Duration
	MaxRetry         int
	CleanupAfter     time.Duration // 0 disables the janitor

	// Summarization
	DeepSeekAPIKey string
	DeepSeekAPIURL string
	DeepSeekModel  string
}

// Load: The only way to get config in the app
func Load() *Config {
	cfg := &Config{
		Port:           getEnv("PORT", ":8080"),
		AllowedOrigins: splitList(getEnv("ALLOWED_ORIGINS", "*")),

		APIBase: getEnv("BILIBILI_API_BASE", "https://api.bilibili.com"),
		Cookie:  getEnv("BILIBILI_COOKIE", ""),

		ASRPrimary:   getEnv("ASR_PROVIDER", "bcut"),
		ASRSecondary: getEnv("ASR_FALLBACK", "whisper"),
		BcutEnabled:  getEnvAsBool("BCUT_ENABLED", true),
		BcutAPIBase:  getEnv("BCUT_API_BASE", "https://member.bilibili.com/x/bcut/rubick-interface"),
		WhisperBin:   getEnv("WHISPER_BIN", "whisper.cpp"),
		WhisperModel: getEnv("WHISPER_MODEL", ""),

		YtDlpBin:      getEnv("YTDLP_BIN", "yt-dlp"),
		ConverterURL:  getEnv("CONVERTER_URL", "https://snapany.com/zh/bilibili"),
		ConverterWait: time.Duration(getEnvAsInt("CONVERTER_WAIT_SECONDS", 120)) * time.Second,
		TempDir:       getEnv("TEMP_DIR", "data/temp"),

		MaxVideoDuration: getEnvAsInt("MAX_VIDEO_DURATION", 7200),
		JobTimeout:       time.Duration(getEnvAsInt("REQUEST_TIMEOUT_SECONDS", 1800)) * time.Second,
		MaxRetry:         getEnvAsInt("MAX_RETRY", 3),
		CleanupAfter:     time.Duration(getEnvAsInt("CLEAN_UP_AFTER_MINUTES", 0)) * time.Minute,

		DeepSeekAPIKey: getEnv("DEEPSEEK_API_KEY", ""),
		DeepSeekAPIURL: getEnv("DEEPSEEK_API_URL", "https://api.deepseek.com/v1"),
		DeepSeekModel:  getEnv("DEEPSEEK_MODEL", "deepseek-chat"),
	}

	// 🛡️ Post-load Validation
	validate(cfg)

	return cfg
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	str := getEnv(key, "")
	if val, err := strconv.Atoi(str); err == nil {
		return val
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	str := getEnv(key, "")
	if val, err := strconv.ParseBool(str); err == nil {
		return val
	}
	return fallback
}

func splitList(raw string) []string {
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// validate ensures the server won't crash due to misconfiguration
func validate(cfg *Config) {
	if !strings.HasPrefix(cfg.Port, ":") {
		cfg.Port = ":" + cfg.Port
	}
	if cfg.MaxRetry < 1 {
		slog.Warn("MAX_RETRY must be at least 1, resetting", "fallback", 3)
		cfg.MaxRetry = 3
	}
	if cfg.JobTimeout <= 0 {
		slog.Warn("REQUEST_TIMEOUT_SECONDS must be positive, resetting", "fallback", "30m")
		cfg.JobTimeout = 30 * time.Minute
	}
	if cfg.ASRPrimary != "" && cfg.ASRPrimary == cfg.ASRSecondary {
		// A chain of two identical tiers degrades to one.
		cfg.ASRSecondary = ""
	}
}
