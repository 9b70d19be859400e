package models

// SimulationContact is the contact snapshot a journey is evaluated against. Numeric
// attributes are strings because they come straight from composer form input.
type SimulationContact struct {
	LastActivityDays string `json:"last_activity_days" yaml:"last_activity_days"`
	TotalSpentCents  string `json:"total_spent_cents"  yaml:"total_spent_cents"`
	MarketingOptIn   bool   `json:"marketing_opt_in"   yaml:"marketing_opt_in"`
	ContactType      string `json:"contact_type"       yaml:"contact_type"`
	Tags             string `json:"tags"               yaml:"tags"` // comma separated
}

// TemplateData exposes the contact to action content templates.
func (c SimulationContact) TemplateData() map[string]any {
	return map[string]any{
		"last_activity_days": c.LastActivityDays,
		"total_spent_cents":  c.TotalSpentCents,
		"marketing_opt_in":   c.MarketingOptIn,
		"contact_type":       c.ContactType,
		"tags":               c.Tags,
	}
}
