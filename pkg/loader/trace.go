package loader

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	dataframe "github.com/rocketlaunchr/dataframe-go"
	"github.com/rocketlaunchr/dataframe-go/imports"
	"github.com/xitongsys/parquet-go-source/local"
)

// ErrEmptyTrace is returned for trace files without rows or columns.
var ErrEmptyTrace = errors.New("empty trace file")

// LoadTrace reads a step trace written by the trace package. The format is
// chosen from the extension: .parquet, .csv or .json/.jsonl.
func LoadTrace(ctx context.Context, path string) (*dataframe.DataFrame, error) {
	var (
		df  *dataframe.DataFrame
		err error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".parquet":
		df, err = loadTraceParquet(ctx, path)
	case ".csv":
		df, err = loadTraceCSV(ctx, path)
	case ".json", ".jsonl":
		df, err = loadTraceJSON(ctx, path)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownFormat, path)
	}
	if err != nil {
		return nil, err
	}

	if df == nil || len(df.Series) == 0 || df.NRows() == 0 {
		return nil, ErrEmptyTrace
	}
	return df, nil
}

func loadTraceParquet(ctx context.Context, path string) (*dataframe.DataFrame, error) {
	fr, err := local.NewLocalFileReader(path)
	if err != nil {
		return nil, err
	}
	defer fr.Close()

	return imports.LoadFromParquet(ctx, fr)
}

func loadTraceCSV(ctx context.Context, path string) (*dataframe.DataFrame, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return imports.LoadFromCSV(ctx, file, imports.CSVLoadOptions{
		InferDataTypes: true,
	})
}

func loadTraceJSON(ctx context.Context, path string) (*dataframe.DataFrame, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return imports.LoadFromJSON(ctx, file)
}
