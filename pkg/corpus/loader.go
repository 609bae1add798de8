package corpus

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"github.com/bastiangx/recipeserve/internal/utils"
	"github.com/bastiangx/recipeserve/pkg/recipe"
	"github.com/charmbracelet/log"
	"github.com/goccy/go-json"
	"gopkg.in/yaml.v3"
)

// envelope is the alternative file layout: {"recipes": [...]}.
type envelope struct {
	Recipes []*recipe.Recipe `json:"recipes" yaml:"recipes"`
}

// LoaderStats describes the last load.
type LoaderStats struct {
	Files    int
	Recipes  int
	Duration time.Duration
}

// Load reads a corpus from a single file or from every corpus file in a
// directory, in file name order.
func Load(path string) ([]*recipe.Recipe, LoaderStats, error) {
	start := time.Now()
	var stats LoaderStats

	info, err := os.Stat(path)
	if err != nil {
		return nil, stats, fmt.Errorf("failed to open corpus %s: %w", path, err)
	}

	files := []string{path}
	if info.IsDir() {
		files, err = utils.ListFiles(path, utils.CorpusExtensions...)
		if err != nil {
			return nil, stats, fmt.Errorf("failed to scan for corpus files: %w", err)
		}
		if len(files) == 0 {
			return nil, stats, fmt.Errorf("no corpus files found in %s", path)
		}
	}

	var recipes []*recipe.Recipe
	for _, file := range files {
		part, err := LoadFile(file)
		if err != nil {
			return nil, stats, err
		}
		recipes = append(recipes, part...)
		stats.Files++
	}

	stats.Recipes = len(recipes)
	stats.Duration = time.Since(start)
	log.Debugf("Loaded %d recipes from %d files in %v", stats.Recipes, stats.Files, stats.Duration)
	return recipes, stats, nil
}

// LoadFile reads one corpus file.
func LoadFile(filename string) ([]*recipe.Recipe, error) {
	format, err := ValidateFile(filename)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read corpus file %s: %w", filename, err)
	}

	recipes, err := Decode(data, format)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", filename, err)
	}
	return recipes, nil
}

// Decode parses a recipe list, either bare or wrapped in a "recipes" key.
// Nil entries are dropped.
func Decode(data []byte, format FileFormat) ([]*recipe.Recipe, error) {
	var recipes []*recipe.Recipe

	switch format {
	case FormatJSON:
		trimmed := bytes.TrimSpace(data)
		if len(trimmed) > 0 && trimmed[0] == '{' {
			var env envelope
			if err := json.Unmarshal(trimmed, &env); err != nil {
				return nil, err
			}
			recipes = env.Recipes
		} else if err := json.Unmarshal(trimmed, &recipes); err != nil {
			return nil, err
		}
	case FormatYAML:
		var node yaml.Node
		if err := yaml.Unmarshal(data, &node); err != nil {
			return nil, err
		}
		if len(node.Content) > 0 && node.Content[0].Kind == yaml.MappingNode {
			var env envelope
			if err := node.Decode(&env); err != nil {
				return nil, err
			}
			recipes = env.Recipes
		} else if err := node.Decode(&recipes); err != nil {
			return nil, err
		}
	default:
		return nil, ErrUnknownFormat
	}

	out := recipes[:0]
	for _, r := range recipes {
		if r != nil {
			out = append(out, r)
		}
	}
	return out, nil
}
