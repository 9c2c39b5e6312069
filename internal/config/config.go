// Package config provides application configuration management with support for environment variables, command-line flags, and .env files.
package config

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Config holds the application configuration.
type Config struct {
	App       AppConfig
	Logger    LoggerConfig
	Data      DataConfig
	Artifacts ArtifactsConfig
	Server    ServerConfig
	Sync      SyncConfig
}

// AppConfig holds application-level configuration.
type AppConfig struct {
	Environment string
	// Name is the instance name advertised on the local network.
	Name string
}

// LoggerConfig holds logging configuration.
type LoggerConfig struct {
	Level string
}

// DataConfig holds server data storage configuration.
// The database and search index live under BasePath.
type DataConfig struct {
	BasePath string
}

// ArtifactsConfig holds timing artifact configuration.
type ArtifactsConfig struct {
	// Path is the directory holding per-content artifact directories.
	// Empty disables the artifact watcher and startup import.
	Path string
	// Watch enables automatic import when artifact files change on disk.
	Watch bool
}

// ServerConfig holds server configuration.
type ServerConfig struct {
	Port         string        // Server port (default: 8080)
	ReadTimeout  time.Duration // HTTP read timeout (default: 15s)
	WriteTimeout time.Duration // HTTP write timeout (default: 15s)
	IdleTimeout  time.Duration // HTTP idle timeout (default: 60s)
	MDNS         bool          // Advertise the server via mDNS (default: true)
}

// SyncConfig holds playback synchronization configuration.
type SyncConfig struct {
	// GapThresholdMs is the silence gap used for sentence boundary detection.
	GapThresholdMs int64
	// EmitInterval is the minimum spacing between highlight emissions per content.
	EmitInterval time.Duration
	// PositionRPS limits inbound position updates per client IP.
	PositionRPS float64
	// PositionBurst is the burst size for the position rate limiter.
	PositionBurst int
}

// LoadConfig loads configuration from multiple sources with precedence:
// 1. Command-line flags (highest priority).
// 2. Environment variables.
// 3. .env file.
// 4. Default values (lowest priority).
func LoadConfig() (*Config, error) {
	env := flag.String("env", "", "Environment (development, staging, production)")
	logLevel := flag.String("log-level", "", "Log level (debug, info, warn, error)")
	dataPath := flag.String("data-path", "", "Base path for server data storage")
	artifactsPath := flag.String("artifacts-path", "", "Path to timing artifact directory")
	watchArtifacts := flag.String("watch-artifacts", "", "Watch artifact directory for changes (default: true)")

	serverPort := flag.String("port", "", "Server port (default: 8080)")
	mdnsEnabled := flag.String("mdns", "", "Advertise the server via mDNS (default: true)")
	readTimeout := flag.String("read-timeout", "", "HTTP read timeout (default: 15s)")
	writeTimeout := flag.String("write-timeout", "", "HTTP write timeout (default: 15s)")
	idleTimeout := flag.String("idle-timeout", "", "HTTP idle timeout (default: 60s)")

	gapThreshold := flag.String("gap-threshold", "", "Sentence gap threshold in ms (default: 350)")
	emitInterval := flag.String("emit-interval", "", "Highlight emit interval (default: 100ms)")

	envFile := flag.String("env-file", ".env", "Path to .env file")

	flag.Parse()

	// Load .env file if it exists (silently ignore if not found).
	_ = loadEnvFile(*envFile)

	cfg := &Config{
		App: AppConfig{
			Environment: getConfigValue(*env, "ENV", "development"),
			Name:        getConfigValue("", "APP_NAME", "ReadAlong"),
		},
		Logger: LoggerConfig{
			Level: getConfigValue(*logLevel, "LOG_LEVEL", "info"),
		},
		Data: DataConfig{
			BasePath: getConfigValue(*dataPath, "DATA_PATH", ""),
		},
		Artifacts: ArtifactsConfig{
			Path:  getConfigValue(*artifactsPath, "ARTIFACTS_PATH", ""),
			Watch: getBoolConfigValue(*watchArtifacts, "WATCH_ARTIFACTS", true),
		},
		Server: ServerConfig{
			Port: getConfigValue(*serverPort, "SERVER_PORT", "8080"),
			MDNS: getBoolConfigValue(*mdnsEnabled, "SERVER_MDNS", true),
		},
		Sync: SyncConfig{
			GapThresholdMs: int64(getIntConfigValue(*gapThreshold, "SYNC_GAP_THRESHOLD_MS", 350)),
			PositionRPS:    float64(getIntConfigValue("", "SYNC_POSITION_RPS", 20)),
			PositionBurst:  getIntConfigValue("", "SYNC_POSITION_BURST", 40),
		},
	}

	// Parse server timeouts.
	readTimeoutStr := getConfigValue(*readTimeout, "SERVER_READ_TIMEOUT", "15s")
	readTimeoutDuration, err := time.ParseDuration(readTimeoutStr)
	if err != nil {
		return nil, fmt.Errorf("invalid read timeout %q: %w", readTimeoutStr, err)
	}
	cfg.Server.ReadTimeout = readTimeoutDuration

	writeTimeoutStr := getConfigValue(*writeTimeout, "SERVER_WRITE_TIMEOUT", "15s")
	writeTimeoutDuration, err := time.ParseDuration(writeTimeoutStr)
	if err != nil {
		return nil, fmt.Errorf("invalid write timeout %q: %w", writeTimeoutStr, err)
	}
	cfg.Server.WriteTimeout = writeTimeoutDuration

	idleTimeoutStr := getConfigValue(*idleTimeout, "SERVER_IDLE_TIMEOUT", "60s")
	idleTimeoutDuration, err := time.ParseDuration(idleTimeoutStr)
	if err != nil {
		return nil, fmt.Errorf("invalid idle timeout %q: %w", idleTimeoutStr, err)
	}
	cfg.Server.IdleTimeout = idleTimeoutDuration

	// Parse emit interval.
	emitIntervalStr := getConfigValue(*emitInterval, "SYNC_EMIT_INTERVAL", "100ms")
	emitIntervalDuration, err := time.ParseDuration(emitIntervalStr)
	if err != nil {
		return nil, fmt.Errorf("invalid emit interval %q: %w", emitIntervalStr, err)
	}
	cfg.Sync.EmitInterval = emitIntervalDuration

	// Expand and validate data path.
	if err := cfg.expandDataPath(); err != nil {
		return nil, fmt.Errorf("invalid data path: %w", err)
	}

	// Expand artifacts path (may stay empty).
	if err := cfg.expandArtifactsPath(); err != nil {
		return nil, fmt.Errorf("invalid artifacts path: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required config values are present and valid.
func (c *Config) Validate() error {
	if c.App.Environment == "" {
		return errors.New("ENV is required")
	}

	validEnvs := map[string]bool{
		"development": true,
		"staging":     true,
		"production":  true,
	}
	if !validEnvs[c.App.Environment] {
		return fmt.Errorf("invalid environment: %s (must be development, staging, or production)", c.App.Environment)
	}

	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[strings.ToLower(c.Logger.Level)] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logger.Level)
	}

	if c.Data.BasePath == "" {
		return errors.New("data base path cannot be empty after expansion")
	}

	if c.Sync.GapThresholdMs <= 0 {
		return fmt.Errorf("gap threshold must be positive, got %d", c.Sync.GapThresholdMs)
	}

	if c.Sync.EmitInterval <= 0 {
		return fmt.Errorf("emit interval must be positive, got %s", c.Sync.EmitInterval)
	}

	return nil
}

// expandPath expands ~ and makes the path absolute.
// If path is empty and defaultPath is provided, uses the default.
func expandPath(path, defaultPath string) (string, error) {
	if path == "" {
		return defaultPath, nil
	}

	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(homeDir, path[2:])
	}

	if !filepath.IsAbs(path) {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return "", fmt.Errorf("failed to get absolute path: %w", err)
		}
		path = absPath
	}

	return filepath.Clean(path), nil
}

// expandDataPath expands ~ and makes the path absolute.
func (c *Config) expandDataPath() error {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get home directory: %w", err)
	}
	defaultPath := filepath.Join(homeDir, "ReadAlong", "data")

	expanded, err := expandPath(c.Data.BasePath, defaultPath)
	if err != nil {
		return err
	}
	c.Data.BasePath = expanded
	return nil
}

// expandArtifactsPath expands ~ and makes the path absolute.
// If empty, leaves it empty to disable the watcher and startup import.
func (c *Config) expandArtifactsPath() error {
	if c.Artifacts.Path == "" {
		return nil
	}

	expanded, err := expandPath(c.Artifacts.Path, "")
	if err != nil {
		return err
	}
	c.Artifacts.Path = expanded
	return nil
}

// getConfigValue returns a value with precedence: flag > env var > default.
func getConfigValue(flagValue, envKey, defaultValue string) string {
	if flagValue != "" {
		return flagValue
	}

	if envValue := os.Getenv(envKey); envValue != "" {
		return envValue
	}

	return defaultValue
}

// getBoolConfigValue returns a bool from flag, env var, or default.
// Accepts: "true", "1", "yes" (case-insensitive) as true; anything else is false.
func getBoolConfigValue(flagValue, envKey string, defaultValue bool) bool {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	strValue = strings.ToLower(strValue)
	return strValue == "true" || strValue == "1" || strValue == "yes"
}

// getIntConfigValue returns an int from flag, env var, or default.
func getIntConfigValue(flagValue, envKey string, defaultValue int) int {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	var result int
	if _, err := fmt.Sscanf(strValue, "%d", &result); err != nil {
		return defaultValue
	}
	return result
}

// loadEnvFile loads environment variables from a .env file.
// Format: KEY=value (one per line, # for comments).
func loadEnvFile(path string) error {
	file, err := os.Open(path) //#nosec G304 -- Config file path from user input is expected
	if err != nil {
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return fmt.Errorf("invalid format at line %d: %s", lineNum, line)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])
		value = strings.Trim(value, `"'`)

		// Env vars take precedence over .env file.
		if os.Getenv(key) == "" {
			if err := os.Setenv(key, value); err != nil {
				return fmt.Errorf("failed to set env var %s: %w", key, err)
			}
		}
	}

	return scanner.Err()
}
