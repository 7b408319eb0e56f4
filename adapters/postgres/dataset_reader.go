package postgres

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"gocausal/adapters/excel"
	"gocausal/domain/core"
	"gocausal/domain/dataset"
	"gocausal/internal"
	"gocausal/ports"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// Open connects to a PostgreSQL database
func Open(ctx context.Context, databaseURL string) (*sqlx.DB, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

// datasetReader turns the result of one query into a dataset
type datasetReader struct {
	db     *sqlx.DB
	query  string
	args   []interface{}
	logger *internal.Logger
}

// NewQueryReader reads the rows returned by query. Column names become
// variable names; NULL cells are rejected.
func NewQueryReader(db *sqlx.DB, query string, logger *internal.Logger, args ...interface{}) ports.DatasetReader {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &datasetReader{db: db, query: query, args: args, logger: logger.With("QueryReader")}
}

// NewTableReader selects the named columns (all when empty) from table
func NewTableReader(db *sqlx.DB, table string, columns []string, logger *internal.Logger) (ports.DatasetReader, error) {
	if strings.TrimSpace(table) == "" {
		return nil, core.NewConfigurationError("table", "must not be empty")
	}
	selectList := "*"
	if len(columns) > 0 {
		quoted := make([]string, len(columns))
		for i, c := range columns {
			quoted[i] = pq.QuoteIdentifier(c)
		}
		selectList = strings.Join(quoted, ", ")
	}
	query := fmt.Sprintf("SELECT %s FROM %s", selectList, quoteQualified(table))
	return NewQueryReader(db, query, logger), nil
}

// ReadDataset runs the query and parses the result like a spreadsheet:
// declared types are honored, numeric columns become continuous and text
// columns categorical.
func (r *datasetReader) ReadDataset(ctx context.Context, types dataset.VariableTypes) (*dataset.Dataset, error) {
	start := time.Now()
	rows, err := r.db.QueryxContext(ctx, r.query, r.args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query dataset: %w", err)
	}
	defer rows.Close()

	header, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read columns: %w", err)
	}
	table := [][]string{header}
	for rows.Next() {
		values, err := rows.SliceScan()
		if err != nil {
			return nil, fmt.Errorf("failed to scan row %d: %w", len(table), err)
		}
		record := make([]string, len(values))
		for j, v := range values {
			cell, err := formatCell(v)
			if err != nil {
				return nil, core.NewTypeMismatchError(header[j], fmt.Sprintf("row %d: %v", len(table), err))
			}
			record[j] = cell
		}
		table = append(table, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate rows: %w", err)
	}
	r.logger.Debug("query returned %d rows x %d columns in %s", len(table)-1, len(header), time.Since(start))

	return excel.ParseRows(table, types)
}

func formatCell(v interface{}) (string, error) {
	switch x := v.(type) {
	case nil:
		return "", fmt.Errorf("NULL value")
	case int64:
		return strconv.FormatInt(x, 10), nil
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64), nil
	case bool:
		return strconv.FormatBool(x), nil
	case []byte:
		return string(x), nil
	case string:
		return x, nil
	case time.Time:
		return x.Format(time.RFC3339), nil
	}
	return fmt.Sprint(v), nil
}

// quoteQualified quotes schema.table as two identifiers
func quoteQualified(name string) string {
	parts := strings.Split(name, ".")
	for i, p := range parts {
		parts[i] = pq.QuoteIdentifier(p)
	}
	return strings.Join(parts, ".")
}
