// Package corpus loads recipe collections from JSON and YAML files.
package corpus

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrUnknownFormat is returned for files whose extension is not a corpus format.
var ErrUnknownFormat = errors.New("unknown corpus format")

// FileFormat represents the supported corpus file formats
type FileFormat int

const (
	FormatUnknown FileFormat = iota
	FormatJSON
	FormatYAML
)

// FormatInfo contains metadata about a corpus file format
type FormatInfo struct {
	Format      FileFormat
	Description string
	Extensions  []string
	MinSize     int64 // Minimum expected file size in bytes
}

var supportedFormats = map[FileFormat]FormatInfo{
	FormatJSON: {
		Format:      FormatJSON,
		Description: "JSON recipe list",
		Extensions:  []string{".json"},
		MinSize:     2, // []
	},
	FormatYAML: {
		Format:      FormatYAML,
		Description: "YAML recipe list",
		Extensions:  []string{".yaml", ".yml"},
		MinSize:     2, // []
	},
}

func (f FileFormat) String() string {
	if info, ok := supportedFormats[f]; ok {
		return info.Description
	}
	return "unknown"
}

// DetectFormat picks the format from the file extension.
func DetectFormat(filename string) FileFormat {
	ext := strings.ToLower(filepath.Ext(filename))
	for format, info := range supportedFormats {
		for _, e := range info.Extensions {
			if e == ext {
				return format
			}
		}
	}
	return FormatUnknown
}

// ValidateFile checks that a file exists, has a corpus extension and is not
// too small to hold a recipe list.
func ValidateFile(filename string) (FileFormat, error) {
	format := DetectFormat(filename)
	if format == FormatUnknown {
		return format, fmt.Errorf("%s: %w", filename, ErrUnknownFormat)
	}

	fileInfo, err := os.Stat(filename)
	if err != nil {
		return format, fmt.Errorf("failed to stat file %s: %w", filename, err)
	}
	if fileInfo.IsDir() {
		return format, fmt.Errorf("%s is a directory", filename)
	}

	info := supportedFormats[format]
	if fileInfo.Size() < info.MinSize {
		return format, fmt.Errorf("file %s is too small (%d bytes) for format %s (minimum: %d bytes)",
			filename, fileInfo.Size(), info.Description, info.MinSize)
	}
	return format, nil
}
