package config

import (
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"strconv"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"
)

var envVarPattern = regexp.MustCompile(`\$\{([^}:]+)(?::([^}]*))?\}`)

// expandEnvVars replaces ${VAR} and ${VAR:default} patterns in a string.
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		submatch := envVarPattern.FindStringSubmatch(match)
		if len(submatch) < 2 {
			return match
		}
		varName := submatch[1]
		defaultVal := ""
		if len(submatch) >= 3 {
			defaultVal = submatch[2]
		}
		if val, ok := os.LookupEnv(varName); ok {
			return val
		}
		return defaultVal
	})
}

// LoadFile reads a YAML file, expands env vars, and unmarshals into dest.
func LoadFile(path string, dest interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file %s: %w", path, err)
	}
	expanded := expandEnvVars(string(data))
	if err := yaml.Unmarshal([]byte(expanded), dest); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

// applyEnvOverrides applies the named environment variables over cfg, per
// the precedence "explicit env var > config file value > built-in default".
// Unlike expandEnvVars's ${VAR} substitution inside the YAML text itself,
// these are recognized directly by name regardless of what the file says.
func applyEnvOverrides(cfg *Config) {
	if v, ok := os.LookupEnv("SERVER_API_KEY"); ok {
		cfg.Auth.ServerAPIKey = v
	}
	if v, ok := os.LookupEnv("OPENAI_API_KEY"); ok {
		cfg.OpenAI.APIKey = v
	}
	if v, ok := os.LookupEnv("REGION"); ok {
		cfg.AWS.Region = v
	}
	if v, ok := os.LookupEnv("FILES_BUCKET"); ok {
		cfg.Files.Bucket = v
	}
	if v, ok := os.LookupEnv("DEFAULT_MAX_TOKENS_ANTHROPIC"); ok {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.MaxTokens.Anthropic = n
		}
	}
	if v, ok := os.LookupEnv("DEFAULT_MAX_TOKENS_TITAN"); ok {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.MaxTokens.Titan = n
		}
	}
	if v, ok := os.LookupEnv("DEFAULT_MAX_TOKENS_PLUGGABLE"); ok {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.MaxTokens.Pluggable = n
		}
	}
	if v, ok := os.LookupEnv("RETRY_MAX_ATTEMPTS"); ok {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Retry.MaxAttempts = n
		}
	}
	if v, ok := os.LookupEnv("RETRY_WAIT_MIN_SECONDS"); ok {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Retry.WaitMinSeconds = time.Duration(n) * time.Second
		}
	}
	if v, ok := os.LookupEnv("RETRY_WAIT_MAX_SECONDS"); ok {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Retry.WaitMaxSeconds = time.Duration(n) * time.Second
		}
	}
	if v, ok := os.LookupEnv("LOG_LEVEL"); ok {
		cfg.Telemetry.LogLevel = v
	}
}

// Loader manages configuration loading and hot-reload via fsnotify.
type Loader struct {
	configPath string
	mu         sync.RWMutex
	cfg        *Config
	watchers   []func()
	logger     *slog.Logger
}

func NewLoader(configPath string, logger *slog.Logger) *Loader {
	return &Loader{
		configPath: configPath,
		logger:     logger,
	}
}

func (l *Loader) Load() error {
	cfg := DefaultConfig()
	if _, err := os.Stat(l.configPath); err == nil {
		if err := LoadFile(l.configPath, cfg); err != nil {
			return fmt.Errorf("load config: %w", err)
		}
	}
	applyEnvOverrides(cfg)

	l.mu.Lock()
	l.cfg = cfg
	l.mu.Unlock()

	l.logger.Info("configuration loaded", "path", l.configPath)
	return nil
}

func (l *Loader) Config() *Config {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.cfg
}

// OnReload registers a callback that fires after config is reloaded.
func (l *Loader) OnReload(fn func()) {
	l.watchers = append(l.watchers, fn)
}

// Watch starts watching the config file's directory for changes and
// reloads on modification (fsnotify doesn't reliably watch single files
// across editors that replace-on-save, so the directory is watched and
// events are filtered by name).
func (l *Loader) Watch() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create fsnotify watcher: %w", err)
	}
	dir := dirOf(l.configPath)
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return fmt.Errorf("watch config dir %s: %w", dir, err)
	}

	go func() {
		defer watcher.Close()
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if (event.Has(fsnotify.Write) || event.Has(fsnotify.Create)) && event.Name == l.configPath {
					l.logger.Info("config file changed, reloading", "file", event.Name)
					if err := l.Load(); err != nil {
						l.logger.Error("failed to reload config", "error", err)
						continue
					}
					for _, fn := range l.watchers {
						fn()
					}
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				l.logger.Error("fsnotify error", "error", err)
			}
		}
	}()

	return nil
}

func dirOf(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' {
			return path[:i]
		}
	}
	return "."
}
