/*
Package config manages TOML config for recipeserve.
*/
package config

import (
	"os"
	"path/filepath"

	"github.com/bastiangx/recipeserve/internal/utils"
	"github.com/bastiangx/recipeserve/pkg/fuzzy"
	"github.com/bastiangx/recipeserve/pkg/rank"
	"github.com/bastiangx/recipeserve/pkg/suggest"
	"github.com/charmbracelet/log"
)

// Config holds the entire config structure
type Config struct {
	Engine EngineConfig `toml:"engine"`
	Server ServerConfig `toml:"server"`
	CLI    CliConfig    `toml:"cli"`
	Store  StoreConfig  `toml:"store"`
}

// EngineConfig holds search and ranking options.
type EngineConfig struct {
	SearchMode           string  `toml:"search_mode"`
	MinDistanceThreshold int     `toml:"min_distance_threshold"`
	Quota                int     `toml:"quota"`
	LearningRate         float64 `toml:"learning_rate"`
	MaxIterations        int     `toml:"max_iterations"`
	InitialWidth         float64 `toml:"initial_width"`
	MaxFieldLength       int     `toml:"max_field_length"`
	Workers              int     `toml:"workers"`
	NameWeight           float64 `toml:"name_weight"`
	IngredientWeight     float64 `toml:"ingredient_weight"`
	Threshold            float64 `toml:"threshold"`
	CacheSize            int     `toml:"cache_size"`
	CorrectQueries       bool    `toml:"correct_queries"`
}

// ServerConfig has server related options.
type ServerConfig struct {
	MaxLimit    int    `toml:"max_limit"`
	MinQuery    int    `toml:"min_query"`
	MaxQuery    int    `toml:"max_query"`
	MetricsAddr string `toml:"metrics_addr"`
}

// CliConfig holds cli interface options.
type CliConfig struct {
	DefaultLimit int    `toml:"default_limit"`
	DefaultMode  string `toml:"default_mode"`
}

// StoreConfig holds corpus and history locations.
type StoreConfig struct {
	CorpusPath  string `toml:"corpus_path"`
	HistoryPath string `toml:"history_path"`
	DefaultUser string `toml:"default_user"`
}

// GetConfigDir returns the config directory with fallback priority:
// 1. ~/.config/
// 2. ~/Library/Application Support/ (macOS)
// 3. Current executable dir
func GetConfigDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		log.Errorf("Failed to get home directory: %v", err)
		return utils.GetExecutableDir()
	}
	primaryPath := filepath.Join(homeDir, ".config", utils.AppName)
	if result := utils.CheckDirStatus(primaryPath); result.Writable {
		return primaryPath, nil
	}
	// Not conventional, fallback from ~/.config if not writable
	macOSPath := filepath.Join(homeDir, "Library", "Application Support", utils.AppName)
	if result := utils.CheckDirStatus(macOSPath); result.Writable {
		return macOSPath, nil
	}
	execDir, err := utils.GetExecutableDir()
	if err != nil {
		log.Errorf("Failed to get executable directory: %v", err)
		return "", err
	}
	return execDir, nil
}

// GetDefaultConfigPath returns the default path for config.toml
func GetDefaultConfigPath() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "config.toml"), nil
}

// LoadConfigWithPriority loads config with priority:
// 1. Custom path from -c flag
// 2. Default path: [UserConfigDir]/recipeserve/config.toml
// 3. Builtin defaults
func LoadConfigWithPriority(customConfigPath string) (*Config, string, error) {
	if customConfigPath != "" {
		if _, statErr := os.Stat(customConfigPath); statErr == nil {
			config, err := LoadConfig(customConfigPath)
			if err != nil {
				log.Warnf("Failed to load custom config from %s: %v. Trying default path...", customConfigPath, err)
			} else {
				log.Debugf("Loaded config from custom path: %s", customConfigPath)
				return config, customConfigPath, nil
			}
		} else {
			log.Warnf("Custom config file not found at %s: %v. Trying default path...", customConfigPath, statErr)
		}
	}
	defaultPath, err := GetDefaultConfigPath()
	if err != nil {
		log.Warnf("Failed to determine default config path: %v. Using built-in defaults...", err)
		return DefaultConfig(), "", nil
	}

	config, err := InitConfig(defaultPath)
	if err != nil {
		log.Warnf("Failed to load/create config at default path %s: %v. Using builtin defaults...", defaultPath, err)
		return DefaultConfig(), "", nil
	}
	log.Debugf("Loaded config from default path: %s", defaultPath)
	return config, defaultPath, nil
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		Engine: EngineConfig{
			SearchMode:           string(suggest.ModePrefix),
			MinDistanceThreshold: 2,
			Quota:                10,
			LearningRate:         0.1,
			MaxIterations:        100,
			InitialWidth:         0.05,
			MaxFieldLength:       64,
			Workers:              0,
			NameWeight:           0.6,
			IngredientWeight:     0.4,
			Threshold:            0.4,
			CacheSize:            1024,
			CorrectQueries:       true,
		},
		Server: ServerConfig{
			MaxLimit:    64,
			MinQuery:    1,
			MaxQuery:    120,
			MetricsAddr: "",
		},
		CLI: CliConfig{
			DefaultLimit: 10,
			DefaultMode:  string(suggest.ModePrefix),
		},
		Store: StoreConfig{
			CorpusPath:  "recipes.json",
			HistoryPath: "history.db",
			DefaultUser: "local",
		},
	}
}

// InitConfig loads config from file or creates default if missing
func InitConfig(configPath string) (*Config, error) {
	configDir := filepath.Dir(configPath)

	if err := utils.EnsureDir(configDir); err != nil {
		log.Warnf("Failed to create config directory %s: %v. Using built-in defaults...", configDir, err)
		return DefaultConfig(), nil
	}

	if !utils.FileExists(configPath) {
		config := DefaultConfig()
		if err := SaveConfig(config, configPath); err != nil {
			log.Warnf("Failed to create default config file at %s: %v. Using built-in defaults...", configPath, err)
			return DefaultConfig(), nil
		}
		log.Debugf("Created default config file at: %s", configPath)
		return config, nil
	}

	config, err := LoadConfig(configPath)
	if err != nil {
		log.Warnf("Failed to load config from %s: %v. Using built-in defaults...", configPath, err)
		return DefaultConfig(), nil
	}
	return config, nil
}

// LoadConfig loads from a TOML file
func LoadConfig(configPath string) (*Config, error) {
	config := DefaultConfig()

	if err := utils.LoadTOMLFile(configPath, config); err != nil {
		return tryPartialParse(configPath)
	}
	return config, nil
}

// tryPartialParse keeps every well-typed value of a file that failed strict decoding
func tryPartialParse(configPath string) (*Config, error) {
	config := DefaultConfig()

	tempConfig, err := utils.ParseTOMLWithRecovery(configPath)
	if err != nil {
		log.Warnf("Could not parse any valid configuration from %s: %v. Using all defaults.", configPath, err)
		return config, nil
	}

	if section, ok := utils.ExtractSection(tempConfig, "engine"); ok {
		extractEngineConfig(section, &config.Engine)
	}
	if section, ok := utils.ExtractSection(tempConfig, "server"); ok {
		extractServerConfig(section, &config.Server)
	}
	if section, ok := utils.ExtractSection(tempConfig, "cli"); ok {
		extractCliConfig(section, &config.CLI)
	}
	if section, ok := utils.ExtractSection(tempConfig, "store"); ok {
		extractStoreConfig(section, &config.Store)
	}
	return config, nil
}

// extractEngineConfig extracts engine configuration from a map
func extractEngineConfig(data map[string]any, engine *EngineConfig) {
	if val, ok := utils.ExtractString(data, "search_mode"); ok {
		engine.SearchMode = val
	}
	if val, ok := utils.ExtractInt64(data, "min_distance_threshold"); ok {
		engine.MinDistanceThreshold = val
	}
	if val, ok := utils.ExtractInt64(data, "quota"); ok {
		engine.Quota = val
	}
	if val, ok := utils.ExtractFloat64(data, "learning_rate"); ok {
		engine.LearningRate = val
	}
	if val, ok := utils.ExtractInt64(data, "max_iterations"); ok {
		engine.MaxIterations = val
	}
	if val, ok := utils.ExtractFloat64(data, "initial_width"); ok {
		engine.InitialWidth = val
	}
	if val, ok := utils.ExtractInt64(data, "max_field_length"); ok {
		engine.MaxFieldLength = val
	}
	if val, ok := utils.ExtractInt64(data, "workers"); ok {
		engine.Workers = val
	}
	if val, ok := utils.ExtractFloat64(data, "name_weight"); ok {
		engine.NameWeight = val
	}
	if val, ok := utils.ExtractFloat64(data, "ingredient_weight"); ok {
		engine.IngredientWeight = val
	}
	if val, ok := utils.ExtractFloat64(data, "threshold"); ok {
		engine.Threshold = val
	}
	if val, ok := utils.ExtractInt64(data, "cache_size"); ok {
		engine.CacheSize = val
	}
	if val, ok := utils.ExtractBool(data, "correct_queries"); ok {
		engine.CorrectQueries = val
	}
}

// extractServerConfig extracts server configuration from a map
func extractServerConfig(data map[string]any, server *ServerConfig) {
	if val, ok := utils.ExtractInt64(data, "max_limit"); ok {
		server.MaxLimit = val
	}
	if val, ok := utils.ExtractInt64(data, "min_query"); ok {
		server.MinQuery = val
	}
	if val, ok := utils.ExtractInt64(data, "max_query"); ok {
		server.MaxQuery = val
	}
	if val, ok := utils.ExtractString(data, "metrics_addr"); ok {
		server.MetricsAddr = val
	}
}

// extractCliConfig extracts CLI config from a map
func extractCliConfig(data map[string]any, cli *CliConfig) {
	if val, ok := utils.ExtractInt64(data, "default_limit"); ok {
		cli.DefaultLimit = val
	}
	if val, ok := utils.ExtractString(data, "default_mode"); ok {
		cli.DefaultMode = val
	}
}

// extractStoreConfig extracts store config from a map
func extractStoreConfig(data map[string]any, store *StoreConfig) {
	if val, ok := utils.ExtractString(data, "corpus_path"); ok {
		store.CorpusPath = val
	}
	if val, ok := utils.ExtractString(data, "history_path"); ok {
		store.HistoryPath = val
	}
	if val, ok := utils.ExtractString(data, "default_user"); ok {
		store.DefaultUser = val
	}
}

// Options maps the engine section to engine options. Unknown search modes
// fall back to prefix search.
func (e EngineConfig) Options() suggest.Options {
	opts := suggest.DefaultOptions()

	if mode, ok := suggest.ParseMode(e.SearchMode); ok {
		opts.Mode = mode
	} else {
		log.Warnf("Unknown search mode %q, using %s", e.SearchMode, opts.Mode)
	}
	opts.Workers = e.Workers
	opts.MaxFieldLength = e.MaxFieldLength
	opts.CacheSize = e.CacheSize
	opts.Correct = e.CorrectQueries
	opts.Fuzzy = fuzzy.Options{
		NameWeight:       e.NameWeight,
		IngredientWeight: e.IngredientWeight,
		Threshold:        e.Threshold,
		MaxDistance:      e.MinDistanceThreshold,
	}
	opts.Rank = rank.Options{
		Quota:         e.Quota,
		InitialWidth:  e.InitialWidth,
		LearningRate:  e.LearningRate,
		MaxIterations: e.MaxIterations,
	}
	return opts
}

// RebuildConfigFile force creates a new config.toml at default
func RebuildConfigFile() error {
	defaultPath, err := GetDefaultConfigPath()
	if err != nil {
		return err
	}
	if err := utils.EnsureDir(filepath.Dir(defaultPath)); err != nil {
		return err
	}
	return utils.SaveTOMLFile(DefaultConfig(), defaultPath)
}

// GetActiveConfigPath returns the absolute path of loaded config file
func GetActiveConfigPath(configPath string) string {
	if configPath == "" {
		if defaultPath, err := GetDefaultConfigPath(); err == nil {
			return defaultPath
		}
		return "unknown"
	}
	return utils.GetAbsolutePath(configPath)
}

// SaveConfig saves into a TOML file
func SaveConfig(config *Config, configPath string) error {
	return utils.SaveTOMLFile(config, configPath)
}

// Update changes the engine tuning values and saves to file
func (c *Config) Update(configPath string, searchMode *string, quota, maxDistance *int, correct *bool) error {
	engine := &c.Engine
	if searchMode != nil {
		engine.SearchMode = *searchMode
	}
	if quota != nil {
		engine.Quota = *quota
	}
	if maxDistance != nil {
		engine.MinDistanceThreshold = *maxDistance
	}
	if correct != nil {
		engine.CorrectQueries = *correct
	}
	return SaveConfig(c, configPath)
}
