package loader

import (
	"context"
	"errors"
	"fmt"
	"os"

	dataframe "github.com/rocketlaunchr/dataframe-go"
	"github.com/rocketlaunchr/dataframe-go/imports"
)

// Tape CSV column names.
const (
	TapeIndexColumn = "index"
	TapeValueColumn = "value"
)

// Tape CSV errors
var (
	ErrEmptyTape     = errors.New("empty tape CSV file")
	ErrMissingColumn = errors.New("tape CSV is missing a column")
	ErrMissingCell   = errors.New("tape CSV has an empty cell")
)

// LoadTapeCSV reads initial tape contents from a CSV file with an index
// and a value column:
//
//	index,value
//	1,111
//	113,-1
//
// Both columns are read as int64. Other columns are ignored.
func LoadTapeCSV(path string) (map[int]int64, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	ctx := context.Background()
	df, err := imports.LoadFromCSV(ctx, file, imports.CSVLoadOptions{
		DictateDataType: map[string]interface{}{
			TapeIndexColumn: int64(0),
			TapeValueColumn: int64(0),
		},
	})
	if err != nil {
		return nil, err
	}
	if df == nil || len(df.Series) == 0 {
		return nil, ErrEmptyTape
	}
	return TapeFromFrame(df)
}

// TapeFromFrame converts an index/value frame into initial tape contents.
func TapeFromFrame(df *dataframe.DataFrame) (map[int]int64, error) {
	idxCol, err := df.NameToColumn(TapeIndexColumn)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumn, TapeIndexColumn)
	}
	valCol, err := df.NameToColumn(TapeValueColumn)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumn, TapeValueColumn)
	}

	tape := make(map[int]int64, df.NRows())
	for row := 0; row < df.NRows(); row++ {
		idx := df.Series[idxCol].Value(row)
		val := df.Series[valCol].Value(row)
		if idx == nil || val == nil {
			return nil, fmt.Errorf("%w: row %d", ErrMissingCell, row+1)
		}
		i, err := tapeIndex(idx)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", row+1, err)
		}
		v, err := tapeValue(val)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", row+1, err)
		}
		tape[i] = v
	}
	return tape, nil
}
