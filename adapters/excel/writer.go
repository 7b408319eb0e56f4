package excel

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gocausal/domain/dataset"
	"gocausal/ports"

	"github.com/xuri/excelize/v2"
)

// DataWriter writes a dataset to an Excel or CSV file
type DataWriter struct {
	filePath string
	sheet    string
}

var _ ports.DatasetWriter = (*DataWriter)(nil)

// NewDataWriter creates a writer, choosing the format from the extension
func NewDataWriter(filePath, sheet string) *DataWriter {
	if sheet == "" {
		sheet = DefaultSheet
	}
	return &DataWriter{filePath: filePath, sheet: sheet}
}

// WriteDataset writes a header row then one row per observation.
// Labelled categorical columns are written as their labels.
func (w *DataWriter) WriteDataset(ctx context.Context, ds *dataset.Dataset) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	rows := FormatRows(ds)
	if strings.ToLower(filepath.Ext(w.filePath)) == ".csv" {
		file, err := os.Create(w.filePath)
		if err != nil {
			return fmt.Errorf("failed to create CSV file: %w", err)
		}
		if err := WriteCSV(file, rows); err != nil {
			file.Close()
			return err
		}
		return file.Close()
	}
	return w.writeExcel(rows)
}

func (w *DataWriter) writeExcel(rows [][]string) error {
	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetSheetName(DefaultSheet, w.sheet); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		values := make([]interface{}, len(row))
		for j, v := range row {
			if i > 0 {
				if num, err := strconv.ParseFloat(v, 64); err == nil {
					values[j] = num
					continue
				}
			}
			values[j] = v
		}
		if err := f.SetSheetRow(w.sheet, cell, &values); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+1, err)
		}
	}
	if err := f.SaveAs(w.filePath); err != nil {
		return fmt.Errorf("failed to save Excel file: %w", err)
	}
	return nil
}

// WriteCSV writes rows as CSV
func WriteCSV(out io.Writer, rows [][]string) error {
	cw := csv.NewWriter(out)
	if err := cw.WriteAll(rows); err != nil {
		return fmt.Errorf("failed to write CSV: %w", err)
	}
	return nil
}

// FormatRows renders the dataset as a header row plus string cells
func FormatRows(ds *dataset.Dataset) [][]string {
	names := ds.Names()
	rows := make([][]string, 0, ds.RowCount()+1)
	rows = append(rows, names)

	columns := make([][]float64, len(names))
	labels := make([][]string, len(names))
	for j, name := range names {
		columns[j], _ = ds.Column(name)
		labels[j] = ds.Levels(name)
	}
	for i := 0; i < ds.RowCount(); i++ {
		row := make([]string, len(names))
		for j := range names {
			v := columns[j][i]
			if k := int(v); len(labels[j]) > 0 && float64(k) == v && k >= 0 && k < len(labels[j]) {
				row[j] = labels[j][k]
			} else {
				row[j] = strconv.FormatFloat(v, 'g', -1, 64)
			}
		}
		rows = append(rows, row)
	}
	return rows
}
