// Package journey evaluates journey definitions against a contact snapshot.
package journey

import (
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/dukex/journey/pkg/models"
)

// Match is the outcome of evaluating a condition step.
type Match struct {
	Matched bool   `json:"matched"`
	Detail  string `json:"detail"`
}

// Evaluator classifies contacts against condition steps. The zero value is ready
// to use and accepts unknown fields with a generic match.
type Evaluator struct {
	// Strict fails conditions on fields the evaluator does not understand.
	Strict bool
}

// EvaluateCondition evaluates cond with the default evaluator.
func EvaluateCondition(cond models.ConditionConfig, contact models.SimulationContact) Match {
	return Evaluator{}.Evaluate(cond, contact)
}

// Evaluate matches the contact against the condition. It never fails: malformed
// input is reported as an unmatched result with a detail.
func (e Evaluator) Evaluate(cond models.ConditionConfig, contact models.SimulationContact) Match {
	value := strings.TrimSpace(cond.Value)
	if value == "" {
		return Match{Matched: false, Detail: "condition value is empty"}
	}

	operator := strings.ToLower(strings.TrimSpace(cond.Operator))

	switch cond.Field {
	case models.FieldLastActivityAt:
		return evaluateLastActivity(operator, value, contact)
	case models.FieldTotalSpentCents:
		return evaluateTotalSpent(operator, value, contact)
	case models.FieldMarketingOptIn:
		return evaluateMarketingOptIn(value, contact)
	case models.FieldContactType:
		return evaluateContactType(operator, value, contact)
	case models.FieldTag:
		return evaluateTags(operator, value, contact)
	}

	if e.Strict {
		return Match{Matched: false, Detail: fmt.Sprintf("unsupported field %q", cond.Field)}
	}

	return Match{Matched: true, Detail: fmt.Sprintf("unsupported field %q, generic match on non-empty value", cond.Field)}
}

func evaluateLastActivity(operator, value string, contact models.SimulationContact) Match {
	threshold, err := parseNumber(trimDaySuffix(value))
	if err != nil {
		return Match{Matched: false, Detail: fmt.Sprintf("invalid day threshold %q", value)}
	}

	days, err := parseNumber(trimDaySuffix(contact.LastActivityDays))
	if err != nil {
		return Match{Matched: false, Detail: fmt.Sprintf("invalid contact last activity %q", contact.LastActivityDays)}
	}

	var matched bool

	var rule string

	switch operator {
	case models.OperatorGte:
		// "active within the last N days"
		matched = days <= threshold
		rule = "<="
	case models.OperatorLte:
		// "inactive for at least N days"
		matched = days >= threshold
		rule = ">="
	default:
		matched = days == threshold
		rule = "=="
	}

	return Match{
		Matched: matched,
		Detail:  fmt.Sprintf("last activity %s days %s %s days: %t", formatNumber(days), rule, formatNumber(threshold), matched),
	}
}

func evaluateTotalSpent(operator, value string, contact models.SimulationContact) Match {
	threshold, err := parseNumber(value)
	if err != nil {
		return Match{Matched: false, Detail: fmt.Sprintf("invalid spend threshold %q", value)}
	}

	spent, err := parseNumber(contact.TotalSpentCents)
	if err != nil {
		return Match{Matched: false, Detail: fmt.Sprintf("invalid contact spend %q", contact.TotalSpentCents)}
	}

	matched, rule := compare(operator, spent, threshold)

	return Match{
		Matched: matched,
		Detail:  fmt.Sprintf("total spent %s %s %s cents: %t", formatNumber(spent), rule, formatNumber(threshold), matched),
	}
}

func evaluateMarketingOptIn(value string, contact models.SimulationContact) Match {
	expected, err := strconv.ParseBool(strings.ToLower(value))
	if err != nil {
		return Match{Matched: false, Detail: fmt.Sprintf("invalid opt-in value %q", value)}
	}

	matched := contact.MarketingOptIn == expected

	return Match{
		Matched: matched,
		Detail:  fmt.Sprintf("marketing opt-in is %t, expected %t", contact.MarketingOptIn, expected),
	}
}

func evaluateContactType(operator, value string, contact models.SimulationContact) Match {
	contactType := strings.ToLower(strings.TrimSpace(contact.ContactType))

	switch operator {
	case models.OperatorIn, models.OperatorNotIn:
		expected := tokens(value)
		member := slices.Contains(expected, contactType)

		matched := member
		if operator == models.OperatorNotIn {
			matched = !member
		}

		return Match{
			Matched: matched,
			Detail:  fmt.Sprintf("contact type %q %s [%s]: %t", contactType, operator, strings.Join(expected, ", "), matched),
		}
	default:
		matched := strings.TrimSpace(contact.ContactType) == value

		return Match{
			Matched: matched,
			Detail:  fmt.Sprintf("contact type %q equals %q: %t", contact.ContactType, value, matched),
		}
	}
}

func evaluateTags(operator, value string, contact models.SimulationContact) Match {
	expected := tokens(value)
	have := tokens(contact.Tags)

	intersects := slices.ContainsFunc(expected, func(tag string) bool {
		return slices.Contains(have, tag)
	})

	matched := intersects
	if operator == models.OperatorNotIn {
		matched = !intersects
	}

	return Match{
		Matched: matched,
		Detail:  fmt.Sprintf("tags [%s] %s [%s]: %t", strings.Join(have, ", "), tagRule(operator), strings.Join(expected, ", "), matched),
	}
}

func tagRule(operator string) string {
	if operator == models.OperatorNotIn {
		return "exclude"
	}

	return "intersect"
}

func compare(operator string, actual, threshold float64) (bool, string) {
	switch operator {
	case models.OperatorGte:
		return actual >= threshold, ">="
	case models.OperatorLte:
		return actual <= threshold, "<="
	default:
		return actual == threshold, "=="
	}
}

func trimDaySuffix(value string) string {
	value = strings.TrimSpace(value)

	return strings.TrimSuffix(strings.TrimSuffix(value, "d"), "D")
}

func parseNumber(value string) (float64, error) {
	number, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return 0, err
	}

	if math.IsNaN(number) || math.IsInf(number, 0) {
		return 0, fmt.Errorf("non-finite number %q", value)
	}

	return number, nil
}

func formatNumber(value float64) string {
	return strconv.FormatFloat(value, 'f', -1, 64)
}

// tokens splits a comma separated list into trimmed, lower-cased, non-empty tokens.
func tokens(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))

	for _, part := range parts {
		token := strings.ToLower(strings.TrimSpace(part))
		if token != "" {
			out = append(out, token)
		}
	}

	return out
}
