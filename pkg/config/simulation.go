// Package config loads journey simulation files used by the command line.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/dukex/journey/pkg/models"
	"gopkg.in/yaml.v3"
)

var ErrNoSteps = errors.New("simulation file has no steps")

// SimulationFile is a journey, a test contact and an optional policy, evaluated
// without touching storage.
type SimulationFile struct {
	OrganizationID string                     `yaml:"organization_id"`
	Name           string                     `yaml:"name"`
	Steps          []*models.JourneyStep      `yaml:"steps"`
	Contact        models.SimulationContact   `yaml:"contact"`
	Policy         *models.OrganizationPolicy `yaml:"policy"`
	// EvaluatedAt pins the evaluation time. Zero means now.
	EvaluatedAt time.Time `yaml:"evaluated_at"`
}

// LoadSimulation reads a simulation file from disk.
func LoadSimulation(filepath string) (*SimulationFile, error) {
	data, err := os.ReadFile(filepath)
	if err != nil {
		return nil, fmt.Errorf("failed to read simulation file %s: %w", filepath, err)
	}

	return ParseSimulation(data)
}

// ParseSimulation decodes a YAML simulation document. Steps without an ID are
// numbered by position.
func ParseSimulation(data []byte) (*SimulationFile, error) {
	var file SimulationFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse YAML simulation: %w", err)
	}

	if len(file.Steps) == 0 {
		return nil, ErrNoSteps
	}

	for i, step := range file.Steps {
		if step == nil {
			return nil, fmt.Errorf("step %d is empty", i+1)
		}

		if step.ID == "" {
			step.ID = "step-" + strconv.Itoa(i+1)
		}
	}

	if file.Policy != nil && file.Policy.OrganizationID == "" {
		file.Policy.OrganizationID = file.OrganizationID
	}

	return &file, nil
}
