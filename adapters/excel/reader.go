package excel

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"gocausal/domain/core"
	"gocausal/domain/dataset"
	"gocausal/internal"
	"gocausal/ports"

	"github.com/xuri/excelize/v2"
)

// DefaultSheet is read when no sheet is named
const DefaultSheet = "Sheet1"

// DataReader reads a dataset from an Excel or CSV file.
// The first row holds column names; every other row one observation.
type DataReader struct {
	filePath string
	fileType string // "xlsx" or "csv"
	sheet    string
	logger   *internal.Logger
}

var _ ports.DatasetReader = (*DataReader)(nil)

// NewDataReader creates a reader, choosing the format from the extension
func NewDataReader(filePath, sheet string, logger *internal.Logger) *DataReader {
	fileType := "xlsx"
	if strings.ToLower(filepath.Ext(filePath)) == ".csv" {
		fileType = "csv"
	}
	if sheet == "" {
		sheet = DefaultSheet
	}
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &DataReader{filePath: filePath, fileType: fileType, sheet: sheet, logger: logger.With("DataReader")}
}

// ReadDataset loads the file. Columns in types are parsed as declared; the
// rest are continuous when every cell is numeric, categorical otherwise.
func (r *DataReader) ReadDataset(ctx context.Context, types dataset.VariableTypes) (*dataset.Dataset, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if _, err := os.Stat(r.filePath); os.IsNotExist(err) {
		return nil, fmt.Errorf("%s file not found: %s", strings.ToUpper(r.fileType), r.filePath)
	}

	start := time.Now()
	var rows [][]string
	var err error
	switch r.fileType {
	case "csv":
		rows, err = r.readCSV()
	default:
		rows, err = r.readExcel()
	}
	if err != nil {
		return nil, err
	}
	r.logger.Debug("%s read in %.2fms (%d rows)", r.filePath, float64(time.Since(start).Nanoseconds())/1e6, len(rows))

	return ParseRows(rows, types)
}

func (r *DataReader) readExcel() ([][]string, error) {
	f, err := excelize.OpenFile(r.filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	// raw values keep full float precision; formatted ones round to 15 digits
	rows, err := f.GetRows(r.sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", r.sheet, err)
	}
	return rows, nil
}

func (r *DataReader) readCSV() ([][]string, error) {
	file, err := os.Open(r.filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer file.Close()

	rows, err := csv.NewReader(file).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV file: %w", err)
	}
	return rows, nil
}

// ParseRows converts a header row plus string cells into a dataset
func ParseRows(rows [][]string, types dataset.VariableTypes) (*dataset.Dataset, error) {
	if len(rows) < 2 {
		return nil, fmt.Errorf("%w: need a header row and at least one data row", core.ErrInsufficientData)
	}

	headers := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		headers[i] = strings.TrimSpace(h)
	}
	for name := range types {
		if !contains(headers, name) {
			return nil, core.NewColumnNotFoundError("declared", name)
		}
	}

	ds := dataset.New()
	for j, name := range headers {
		if name == "" {
			return nil, core.NewConfigurationError("header", fmt.Sprintf("column %d has no name", j+1))
		}
		cells := make([]string, len(rows)-1)
		for i := 1; i < len(rows); i++ {
			// excelize trims trailing empty cells
			if j < len(rows[i]) {
				cells[i-1] = strings.TrimSpace(rows[i][j])
			}
			if cells[i-1] == "" {
				return nil, core.NewTypeMismatchError(name, fmt.Sprintf("row %d is empty", i+1))
			}
		}

		typ, declared := types[name]
		if !declared {
			typ = inferType(cells)
		}
		values, levels, err := parseColumn(typ, cells)
		if err != nil {
			return nil, core.NewTypeMismatchError(name, err.Error())
		}
		if err := ds.AddColumn(name, typ, values, levels...); err != nil {
			return nil, err
		}
	}
	return ds, nil
}

func inferType(cells []string) dataset.VariableType {
	for _, c := range cells {
		if _, err := strconv.ParseFloat(c, 64); err != nil {
			return dataset.TypeCategorical
		}
	}
	return dataset.TypeContinuous
}

func parseColumn(typ dataset.VariableType, cells []string) ([]float64, []string, error) {
	values := make([]float64, len(cells))
	switch typ {
	case dataset.TypeBinary:
		for i, c := range cells {
			v, err := parseBinary(c)
			if err != nil {
				return nil, nil, fmt.Errorf("row %d: %w", i+2, err)
			}
			values[i] = v
		}
		return values, nil, nil

	case dataset.TypeCategorical:
		numeric := true
		for i, c := range cells {
			v, err := strconv.ParseFloat(c, 64)
			if err != nil {
				numeric = false
				break
			}
			values[i] = v
		}
		if numeric {
			return values, nil, nil
		}
		// labels become codes in sorted label order
		seen := make(map[string]bool)
		for _, c := range cells {
			seen[c] = true
		}
		levels := make([]string, 0, len(seen))
		for l := range seen {
			levels = append(levels, l)
		}
		sort.Strings(levels)
		code := make(map[string]float64, len(levels))
		for i, l := range levels {
			code[l] = float64(i)
		}
		for i, c := range cells {
			values[i] = code[c]
		}
		return values, levels, nil

	default:
		for i, c := range cells {
			v, err := strconv.ParseFloat(c, 64)
			if err != nil {
				return nil, nil, fmt.Errorf("row %d: %q is not a number", i+2, c)
			}
			values[i] = v
		}
		return values, nil, nil
	}
}

func parseBinary(cell string) (float64, error) {
	switch strings.ToLower(cell) {
	case "1", "1.0", "true", "yes", "y", "t":
		return 1, nil
	case "0", "0.0", "false", "no", "n", "f":
		return 0, nil
	}
	return 0, fmt.Errorf("%q is not a binary value", cell)
}

func contains(names []string, name string) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}
