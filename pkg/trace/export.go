package trace

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	dataframe "github.com/rocketlaunchr/dataframe-go"
	"github.com/rocketlaunchr/dataframe-go/exports"
)

// ErrUnknownFormat is returned for trace formats other than csv, json and
// parquet.
var ErrUnknownFormat = errors.New("unknown trace format")

// Format is a frame file encoding.
type Format string

const (
	FormatCSV     Format = "csv"
	FormatJSON    Format = "json"
	FormatParquet Format = "parquet"
)

// ParseFormat parses a format name as used in flags and config files.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatCSV, FormatJSON, FormatParquet:
		return f, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
}

// FormatFromPath picks the format from a file extension.
func FormatFromPath(path string) (Format, error) {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	if ext == "jsonl" {
		ext = string(FormatJSON)
	}
	return ParseFormat(ext)
}

// Write exports a frame in the given format.
func Write(ctx context.Context, w io.Writer, df *dataframe.DataFrame, format Format) error {
	switch format {
	case FormatCSV:
		return exports.ExportToCSV(ctx, w, df)
	case FormatJSON:
		return exports.ExportToJSON(ctx, w, df)
	case FormatParquet:
		return exports.ExportToParquet(ctx, w, df)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

// WriteFile exports a frame to path, choosing the format from the
// extension.
func WriteFile(ctx context.Context, path string, df *dataframe.DataFrame) error {
	format, err := FormatFromPath(path)
	if err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := Write(ctx, f, df, format); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}
