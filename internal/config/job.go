package config

import (
	"fmt"
	"os"

	"gocausal/domain/causal"
	"gocausal/domain/dataset"
	"gocausal/internal/errors"

	"gopkg.in/yaml.v3"
)

// Job is a do-sampling request read from a YAML file
type Job struct {
	Dataset     DatasetSource     `yaml:"dataset" validate:"required"`
	Types       map[string]string `yaml:"types" validate:"required,min=1"`
	Treatments  []string          `yaml:"treatments" validate:"required,min=1,dive,required"`
	Outcomes    []string          `yaml:"outcomes" validate:"required,min=1,dive,required"`
	Confounders []string          `yaml:"confounders" validate:"excluded_with=Graph,dive,required"`
	// Graph is a DOT digraph; when set the backdoor set is identified from it
	Graph                     string `yaml:"graph"`
	ProceedWhenUnidentifiable bool   `yaml:"proceed_when_unidentifiable"`

	KeepOriginalTreatment bool               `yaml:"keep_original_treatment"`
	Intervention          map[string]float64 `yaml:"intervention"`

	SampleSize    int     `yaml:"sample_size" validate:"gte=0"`
	Seed          *uint64 `yaml:"seed"`
	ExtremePolicy string  `yaml:"extreme_policy" validate:"omitempty,oneof=clip drop fail"`
}

// DatasetSource names where the observational data comes from: a csv/xlsx
// file, or a SQL query against DATABASE_URL
type DatasetSource struct {
	Path  string `yaml:"path" validate:"required_without=Query"`
	Sheet string `yaml:"sheet"`
	Query string `yaml:"query" validate:"required_without=Path,excluded_with=Path"`
}

// LoadJob reads and validates a YAML job file
func LoadJob(path string) (*Job, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(errors.InvalidInput(err.Error()), "read job %s", path)
	}
	return ParseJob(data)
}

// ParseJob decodes and validates a YAML job
func ParseJob(data []byte) (*Job, error) {
	var job Job
	if err := yaml.Unmarshal(data, &job); err != nil {
		return nil, errors.InvalidInput(fmt.Sprintf("parse job yaml: %v", err))
	}
	if err := validatorInstance().Struct(&job); err != nil {
		return nil, errors.InvalidInput(err.Error())
	}
	if _, err := job.VariableTypes(); err != nil {
		return nil, errors.InvalidInput(err.Error())
	}
	if !job.KeepOriginalTreatment && len(job.Intervention) == 0 {
		return nil, errors.InvalidInput("job needs an intervention or keep_original_treatment")
	}
	return &job, nil
}

// VariableTypes parses the declared column types
func (j *Job) VariableTypes() (dataset.VariableTypes, error) {
	types := make(dataset.VariableTypes, len(j.Types))
	for name, raw := range j.Types {
		typ, err := dataset.ParseVariableType(raw)
		if err != nil {
			return nil, err
		}
		types[name] = typ
	}
	return types, nil
}

// InterventionValue returns the job's intervention
func (j *Job) InterventionValue() causal.Intervention {
	if j.KeepOriginalTreatment {
		return causal.KeepOriginal()
	}
	if len(j.Intervention) == 0 {
		return causal.Intervention{}
	}
	return causal.AssignEach(j.Intervention)
}

// SeedOr returns the job's seed, or fallback when the job has none
func (j *Job) SeedOr(fallback uint64) uint64 {
	if j.Seed == nil {
		return fallback
	}
	return *j.Seed
}
