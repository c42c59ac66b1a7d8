package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"

	apperrors "nomcli/internal/errors"
)

// PeriodDefinition maps one legislative period to its vote matrix file.
type PeriodDefinition struct {
	Period int    `yaml:"period"`
	Label  string `yaml:"label"`
	Matrix string `yaml:"matrix"`
	// Metadata is optional; later periods without one reuse the last
	// definition that has it.
	Metadata string `yaml:"metadata"`
}

// PeriodsFile is the on-disk layout of a multi-period run definition.
type PeriodsFile struct {
	Periods []PeriodDefinition `yaml:"periods"`
}

// LoadPeriods reads and validates a period definition file. Periods must be
// unique and strictly increasing so that the centered time index is
// well-defined.
func LoadPeriods(path string) ([]PeriodDefinition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read periods file: %w", err)
	}

	var pf PeriodsFile
	if err := yaml.Unmarshal(data, &pf); err != nil {
		return nil, fmt.Errorf("parse periods file %s: %w", path, err)
	}
	if len(pf.Periods) == 0 {
		return nil, apperrors.Input("periods file %s defines no periods", path)
	}

	for i, def := range pf.Periods {
		if def.Matrix == "" {
			return nil, apperrors.Input("period %d has no matrix path", def.Period)
		}
		if i > 0 && def.Period <= pf.Periods[i-1].Period {
			return nil, apperrors.Input(
				"periods must be strictly increasing: %d after %d", def.Period, pf.Periods[i-1].Period)
		}
	}
	return pf.Periods, nil
}
