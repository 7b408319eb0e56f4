package dataset

import (
	"fmt"

	"gocausal/domain/core"
)

// Dataset is the canonical tabular object flowing through the samplers.
// Storage is column-oriented; Row gives the row-as-mapping view.
type Dataset struct {
	columns []Column
	index   map[string]int
	rows    int
}

// New creates an empty dataset
func New() *Dataset {
	return &Dataset{index: make(map[string]int)}
}

// FromColumns builds a dataset from typed columns, validating each one
func FromColumns(columns ...Column) (*Dataset, error) {
	ds := New()
	for _, c := range columns {
		if err := ds.AddColumn(c.Name, c.Type, c.Values, c.Levels...); err != nil {
			return nil, err
		}
	}
	return ds, nil
}

// AddColumn appends a typed column. The values slice is copied.
func (d *Dataset) AddColumn(name string, typ VariableType, values []float64, levels ...string) error {
	if name == "" {
		return core.NewConfigurationError("column", "name cannot be empty")
	}
	if _, exists := d.index[name]; exists {
		return core.NewConfigurationError("column", fmt.Sprintf("duplicate column %q", name))
	}
	if !typ.Valid() {
		return core.NewTypeMismatchError(name, fmt.Sprintf("unknown type %q", typ))
	}
	if len(d.columns) > 0 && len(values) != d.rows {
		return core.NewConfigurationError("column", fmt.Sprintf("column %q has %d rows, expected %d", name, len(values), d.rows))
	}
	if err := checkValues(typ, values); err != nil {
		return core.NewTypeMismatchError(name, err.Error())
	}

	col := Column{
		Name:   name,
		Type:   typ,
		Values: append([]float64(nil), values...),
	}
	if len(levels) > 0 {
		col.Levels = append([]string(nil), levels...)
	}

	if len(d.columns) == 0 {
		d.rows = len(values)
	}
	d.index[name] = len(d.columns)
	d.columns = append(d.columns, col)
	return nil
}

// RowCount returns the number of rows
func (d *Dataset) RowCount() int {
	return d.rows
}

// ColumnCount returns the number of columns
func (d *Dataset) ColumnCount() int {
	return len(d.columns)
}

// Names returns column names in insertion order
func (d *Dataset) Names() []string {
	names := make([]string, len(d.columns))
	for i, c := range d.columns {
		names[i] = c.Name
	}
	return names
}

// Has reports whether the named column exists
func (d *Dataset) Has(name string) bool {
	_, ok := d.index[name]
	return ok
}

// Type returns the declared type of a column
func (d *Dataset) Type(name string) (VariableType, bool) {
	i, ok := d.index[name]
	if !ok {
		return "", false
	}
	return d.columns[i].Type, true
}

// Levels returns the categorical labels of a column, if any
func (d *Dataset) Levels(name string) []string {
	i, ok := d.index[name]
	if !ok {
		return nil
	}
	return append([]string(nil), d.columns[i].Levels...)
}

// Column returns a copy of the column's values
func (d *Dataset) Column(name string) ([]float64, bool) {
	i, ok := d.index[name]
	if !ok {
		return nil, false
	}
	return append([]float64(nil), d.columns[i].Values...), true
}

// Value returns a single cell
func (d *Dataset) Value(row int, name string) (float64, bool) {
	i, ok := d.index[name]
	if !ok || row < 0 || row >= d.rows {
		return 0, false
	}
	return d.columns[i].Values[row], true
}

// Row returns row i as a mapping from column name to value
func (d *Dataset) Row(i int) map[string]float64 {
	if i < 0 || i >= d.rows {
		return nil
	}
	row := make(map[string]float64, len(d.columns))
	for _, c := range d.columns {
		row[c.Name] = c.Values[i]
	}
	return row
}

// VariableTypes returns the declared type of every column
func (d *Dataset) VariableTypes() VariableTypes {
	vt := make(VariableTypes, len(d.columns))
	for _, c := range d.columns {
		vt[c.Name] = c.Type
	}
	return vt
}

// SetValues replaces a column's values, keeping its declared type.
// Only sampler working copies call this; it fails if the values break the type.
func (d *Dataset) SetValues(name string, values []float64) error {
	i, ok := d.index[name]
	if !ok {
		return core.NewColumnNotFoundError("target", name)
	}
	if len(values) != d.rows {
		return core.NewConfigurationError("column", fmt.Sprintf("column %q has %d rows, expected %d", name, len(values), d.rows))
	}
	if err := checkValues(d.columns[i].Type, values); err != nil {
		return core.NewTypeMismatchError(name, err.Error())
	}
	copy(d.columns[i].Values, values)
	return nil
}

// Clone returns a deep copy
func (d *Dataset) Clone() *Dataset {
	out := &Dataset{
		columns: make([]Column, len(d.columns)),
		index:   make(map[string]int, len(d.index)),
		rows:    d.rows,
	}
	for i, c := range d.columns {
		out.columns[i] = Column{
			Name:   c.Name,
			Type:   c.Type,
			Values: append([]float64(nil), c.Values...),
			Levels: append([]string(nil), c.Levels...),
		}
		out.index[c.Name] = i
	}
	return out
}

// Take returns a new dataset holding the given rows in order. Indices may repeat.
func (d *Dataset) Take(indices []int) (*Dataset, error) {
	out := &Dataset{
		columns: make([]Column, len(d.columns)),
		index:   make(map[string]int, len(d.index)),
		rows:    len(indices),
	}
	for _, idx := range indices {
		if idx < 0 || idx >= d.rows {
			return nil, fmt.Errorf("row index %d out of range [0,%d)", idx, d.rows)
		}
	}
	for i, c := range d.columns {
		values := make([]float64, len(indices))
		for j, idx := range indices {
			values[j] = c.Values[idx]
		}
		out.columns[i] = Column{
			Name:   c.Name,
			Type:   c.Type,
			Values: values,
			Levels: append([]string(nil), c.Levels...),
		}
		out.index[c.Name] = i
	}
	return out, nil
}

// Validate ensures the dataset is internally consistent
func (d *Dataset) Validate() error {
	if d.rows == 0 || len(d.columns) == 0 {
		return core.ErrInsufficientData
	}
	for _, c := range d.columns {
		if len(c.Values) != d.rows {
			return core.NewConfigurationError("column",
				fmt.Sprintf("column %q has %d rows, expected %d", c.Name, len(c.Values), d.rows))
		}
		if err := checkValues(c.Type, c.Values); err != nil {
			return core.NewTypeMismatchError(c.Name, err.Error())
		}
	}
	return nil
}

// CheckType verifies a declared type against the column's observed values
func (d *Dataset) CheckType(name string, typ VariableType) error {
	i, ok := d.index[name]
	if !ok {
		return core.NewColumnNotFoundError("declared", name)
	}
	if !typ.Valid() {
		return core.NewTypeMismatchError(name, fmt.Sprintf("unknown type %q", typ))
	}
	if err := checkValues(typ, d.columns[i].Values); err != nil {
		return core.NewTypeMismatchError(name, err.Error())
	}
	return nil
}

// Fingerprint hashes names, types and values bit-exactly
func (d *Dataset) Fingerprint() core.Hash {
	var h core.Hasher
	for _, c := range d.columns {
		h.WriteString(c.Name)
		h.WriteString(string(c.Type))
		h.WriteFloats(c.Values)
	}
	return h.Sum()
}

// DistinctValues returns the distinct values of a column, sorted ascending
func (d *Dataset) DistinctValues(name string) []float64 {
	i, ok := d.index[name]
	if !ok {
		return nil
	}
	return distinctSorted(d.columns[i].Values)
}
