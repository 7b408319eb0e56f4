package ports

import (
	"context"

	"gocausal/domain/dataset"
)

// DatasetReader loads a typed dataset from some source (file, database)
type DatasetReader interface {
	ReadDataset(ctx context.Context, types dataset.VariableTypes) (*dataset.Dataset, error)
}

// DatasetWriter persists a dataset, typically a do-sample
type DatasetWriter interface {
	WriteDataset(ctx context.Context, ds *dataset.Dataset) error
}
