// Package schema describes and validates journey step configuration with JSON Schema.
package schema

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dukex/journey/pkg/models"
	"github.com/xeipuuv/gojsonschema"
)

var (
	// ErrMissingConfiguration indicates a step has no configuration for its kind.
	ErrMissingConfiguration = errors.New("step configuration is missing")

	// ErrUnknownKind indicates a step kind without a schema.
	ErrUnknownKind = errors.New("unknown step kind")
)

func intPtr(v int) *int { return &v }

func floatPtr(v float64) *float64 { return &v }

func boolPtr(v bool) *bool { return &v }

var descriptors = []models.StepKindDescriptor{
	{
		Kind:        models.StepKindTrigger,
		Name:        "Trigger",
		Description: "Entry event that enrolls a contact in the journey",
		Schema: &models.JSONSchema{
			Type:  "object",
			Title: "Trigger Configuration",
			Properties: map[string]*models.Property{
				"event": {
					Type:        "string",
					Description: "Event name, e.g. contact.created",
					MinLength:   intPtr(1),
					Pattern:     `^[a-z][a-z0-9_.]*$`,
				},
			},
			Required:             []string{"event"},
			AdditionalProperties: boolPtr(false),
		},
	},
	{
		Kind:        models.StepKindCondition,
		Name:        "Condition",
		Description: "Continue only when the contact matches",
		Schema: &models.JSONSchema{
			Type:  "object",
			Title: "Condition Configuration",
			Properties: map[string]*models.Property{
				"field": {
					Type: "string",
					Enum: []any{
						models.FieldLastActivityAt,
						models.FieldTotalSpentCents,
						models.FieldMarketingOptIn,
						models.FieldContactType,
						models.FieldTag,
					},
				},
				"operator": {
					Type: "string",
					Enum: []any{models.OperatorGte, models.OperatorLte, models.OperatorEq, models.OperatorIn, models.OperatorNotIn},
				},
				"value": {
					Type:      "string",
					MinLength: intPtr(1),
				},
				"window_days": {
					Type:    "integer",
					Minimum: floatPtr(1),
				},
			},
			Required:             []string{"field", "operator", "value"},
			AdditionalProperties: boolPtr(false),
		},
	},
	{
		Kind:        models.StepKindDelay,
		Name:        "Delay",
		Description: "Wait before the next step",
		Schema: &models.JSONSchema{
			Type:  "object",
			Title: "Delay Configuration",
			Properties: map[string]*models.Property{
				"minutes": {
					Type:    "integer",
					Minimum: floatPtr(1),
				},
			},
			Required:             []string{"minutes"},
			AdditionalProperties: boolPtr(false),
		},
	},
	{
		Kind:        models.StepKindAction,
		Name:        "Action",
		Description: "Send a message to the contact",
		Schema: &models.JSONSchema{
			Type:  "object",
			Title: "Action Configuration",
			Properties: map[string]*models.Property{
				"channel": {
					Type: "string",
					Enum: []any{models.ChannelInApp, models.ChannelPush, models.ChannelEmail, models.ChannelSMS},
				},
				"title":     {Type: "string", MinLength: intPtr(1), MaxLength: intPtr(120)},
				"body":      {Type: "string", MinLength: intPtr(1)},
				"cta_label": {Type: "string", MaxLength: intPtr(40)},
				"cta_url":   {Type: "string"},
			},
			Required:             []string{"channel", "title", "body"},
			AdditionalProperties: boolPtr(false),
		},
	},
}

// Descriptors returns the composer descriptors of every step kind.
func Descriptors() []models.StepKindDescriptor {
	return descriptors
}

// ForKind returns the schema of a step kind.
func ForKind(kind models.StepKind) (*models.JSONSchema, error) {
	for _, descriptor := range descriptors {
		if descriptor.Kind == kind {
			return descriptor.Schema, nil
		}
	}

	return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
}

// ValidateStep checks the configuration of step against the schema of its kind.
func ValidateStep(step *models.JourneyStep) error {
	stepSchema, err := ForKind(step.Kind)
	if err != nil {
		return err
	}

	config := configOf(step)
	if config == nil {
		return fmt.Errorf("%w: %s step %s", ErrMissingConfiguration, step.Kind, step.ID)
	}

	result, err := gojsonschema.Validate(gojsonschema.NewGoLoader(stepSchema), gojsonschema.NewGoLoader(config))
	if err != nil {
		return fmt.Errorf("failed to validate step %s: %w", step.ID, err)
	}

	if !result.Valid() {
		var errs []string
		for _, desc := range result.Errors() {
			errs = append(errs, desc.String())
		}

		return &ValidationError{StepID: step.ID, Kind: step.Kind, Problems: errs}
	}

	return nil
}

// configOf returns the configuration matching the step kind, or nil.
func configOf(step *models.JourneyStep) any {
	switch step.Kind {
	case models.StepKindTrigger:
		if step.Trigger != nil {
			return step.Trigger
		}
	case models.StepKindCondition:
		if step.Condition != nil {
			return step.Condition
		}
	case models.StepKindDelay:
		if step.Delay != nil {
			return step.Delay
		}
	case models.StepKindAction:
		if step.Action != nil {
			return step.Action
		}
	}

	return nil
}

// ValidationError lists the schema violations of a step.
type ValidationError struct {
	StepID   string
	Kind     models.StepKind
	Problems []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s step %s: %s", e.Kind, e.StepID, strings.Join(e.Problems, "; "))
}
