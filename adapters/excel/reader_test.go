package excel

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"gocausal/domain/core"
	"gocausal/domain/dataset"
	"gocausal/internal/testkit"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRows_TypesAndLabels(t *testing.T) {
	rows := [][]string{
		{"age", "smoker", "region", "y"},
		{"31.5", "yes", "north", "1"},
		{"40", "no", "south", "2.5"},
		{"22", "1", "north", "0"},
	}
	ds, err := ParseRows(rows, dataset.VariableTypes{"smoker": dataset.TypeBinary})
	require.NoError(t, err)

	typ, _ := ds.Type("age")
	assert.Equal(t, dataset.TypeContinuous, typ)
	typ, _ = ds.Type("region")
	assert.Equal(t, dataset.TypeCategorical, typ)
	assert.Equal(t, []string{"north", "south"}, ds.Levels("region"))

	smoker, _ := ds.Column("smoker")
	assert.Equal(t, []float64{1, 0, 1}, smoker)
	region, _ := ds.Column("region")
	assert.Equal(t, []float64{0, 1, 0}, region)
}

func TestParseRows_Errors(t *testing.T) {
	_, err := ParseRows([][]string{{"a"}}, nil)
	assert.ErrorIs(t, err, core.ErrInsufficientData)

	_, err = ParseRows([][]string{{"a", "b"}, {"1", "2"}}, dataset.VariableTypes{"c": dataset.TypeBinary})
	assert.ErrorIs(t, err, core.ErrColumnNotFound)

	_, err = ParseRows([][]string{{"a", "b"}, {"1", "2"}}, dataset.VariableTypes{"b": dataset.TypeBinary})
	assert.ErrorIs(t, err, core.ErrTypeMismatch)

	_, err = ParseRows([][]string{{"a", "b"}, {"1"}}, nil)
	assert.ErrorIs(t, err, core.ErrTypeMismatch, "missing cell")

	_, err = ParseRows([][]string{{"a", "b"}, {"x", "1"}}, dataset.VariableTypes{"a": dataset.TypeContinuous})
	assert.ErrorIs(t, err, core.ErrTypeMismatch)
}

func TestRoundTrip(t *testing.T) {
	ds := testkit.ConfoundedScenario(50, 3)
	types := ds.VariableTypes()

	for _, name := range []string{"out.csv", "out.xlsx"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), name)
			require.NoError(t, NewDataWriter(path, "").WriteDataset(context.Background(), ds))

			back, err := NewDataReader(path, "", nil).ReadDataset(context.Background(), types)
			require.NoError(t, err)
			assert.Equal(t, ds.Fingerprint(), back.Fingerprint())
		})
	}
}

func TestRoundTrip_LabelledCategorical(t *testing.T) {
	ds := dataset.New()
	require.NoError(t, ds.AddColumn("g", dataset.TypeCategorical, []float64{1, 0, 1}, "a", "b"))

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, FormatRows(ds)))
	assert.Equal(t, "g\nb\na\nb\n", buf.String())
}

func TestReadDataset_NamedSheet(t *testing.T) {
	ds := testkit.ConfoundedScenario(10, 1)
	path := filepath.Join(t.TempDir(), "obs.xlsx")
	require.NoError(t, NewDataWriter(path, "observations").WriteDataset(context.Background(), ds))

	_, err := NewDataReader(path, "", nil).ReadDataset(context.Background(), nil)
	assert.Error(t, err, "Sheet1 was renamed")

	back, err := NewDataReader(path, "observations", nil).ReadDataset(context.Background(), ds.VariableTypes())
	require.NoError(t, err)
	assert.Equal(t, 10, back.RowCount())
}

func TestReadDataset_MissingFile(t *testing.T) {
	_, err := NewDataReader(filepath.Join(os.TempDir(), "does-not-exist.csv"), "", nil).ReadDataset(context.Background(), nil)
	assert.Error(t, err)
}
