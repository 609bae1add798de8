package utils

import (
	"os"
	"path/filepath"
	"runtime"

	"github.com/charmbracelet/log"
)

// AppName is used for config and data directory names.
const AppName = "recipeserve"

// CorpusExtensions lists the file types a recipe corpus can be loaded from.
var CorpusExtensions = []string{".json", ".yaml", ".yml"}

// PathResolver locates the config directory and recipe data for the binary
type PathResolver struct {
	executableDir string
	homeDir       string
	configDir     string
}

// NewPathResolver creates a new path resolver that determines the executable location
func NewPathResolver() (*PathResolver, error) {
	execPath, err := os.Executable()
	if err != nil {
		return nil, err
	}
	// Resolve any symlinks to get the actual binary location
	execPath, err = filepath.EvalSymlinks(execPath)
	if err != nil {
		return nil, err
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		log.Warnf("Could not determine home directory: %v", err)
		homeDir = os.TempDir()
	}

	pr := &PathResolver{
		executableDir: filepath.Dir(execPath),
		homeDir:       homeDir,
		configDir:     configDirFor(runtime.GOOS, homeDir),
	}
	log.Debugf("PathResolver initialized: execDir=%s, configDir=%s", pr.executableDir, pr.configDir)
	return pr, nil
}

// configDirFor returns the platform config directory
func configDirFor(goos, homeDir string) string {
	switch goos {
	case "linux":
		if configHome := os.Getenv("XDG_CONFIG_HOME"); configHome != "" {
			return filepath.Join(configHome, AppName)
		}
		return filepath.Join(homeDir, ".config", AppName)
	case "windows":
		if appData := os.Getenv("APPDATA"); appData != "" {
			return filepath.Join(appData, AppName)
		}
		return filepath.Join(homeDir, "AppData", "Roaming", AppName)
	default:
		return filepath.Join(homeDir, ".config", AppName)
	}
}

// ConfigDir returns the config directory
func (pr *PathResolver) ConfigDir() string {
	return pr.configDir
}

// ResolveCorpus finds the recipe corpus. An absolute path is used as given;
// a relative one is tried against the working directory, the executable
// directory and the config directory, in that order. The path may name a
// single file or a directory of corpus files.
func (pr *PathResolver) ResolveCorpus(path string) (string, bool) {
	if path == "" {
		return "", false
	}
	if filepath.IsAbs(path) {
		return path, isCorpus(path)
	}

	var candidates []string
	if cwd, err := os.Getwd(); err == nil {
		candidates = append(candidates, filepath.Join(cwd, path))
	}
	candidates = append(candidates,
		filepath.Join(pr.executableDir, path),
		filepath.Join(pr.configDir, path),
	)

	for _, candidate := range candidates {
		if isCorpus(candidate) {
			log.Debugf("Found corpus at %s", candidate)
			return candidate, true
		}
		log.Debugf("Corpus candidate not valid: %s", candidate)
	}
	return candidates[0], false
}

// ResolveDataFile places a relative data file (such as the history database)
// in the config directory.
func (pr *PathResolver) ResolveDataFile(path string) string {
	if path == "" || filepath.IsAbs(path) || path == ":memory:" {
		return path
	}
	return filepath.Join(pr.configDir, path)
}

// isCorpus reports whether path is a corpus file or a directory holding one
func isCorpus(path string) bool {
	stat, err := os.Stat(path)
	if err != nil {
		return false
	}
	if !stat.IsDir() {
		return true
	}
	files, err := ListFiles(path, CorpusExtensions...)
	return err == nil && len(files) > 0
}
