package models

// StepKind is the type of a journey step.
type StepKind string

const (
	StepKindTrigger   StepKind = "TRIGGER"
	StepKindCondition StepKind = "CONDITION"
	StepKindDelay     StepKind = "DELAY"
	StepKindAction    StepKind = "ACTION"
)

// StepKinds lists every supported step kind in composer order.
var StepKinds = []StepKind{StepKindTrigger, StepKindCondition, StepKindDelay, StepKindAction}

// Channel is the delivery channel of an action step.
type Channel string

const (
	ChannelInApp Channel = "IN_APP"
	ChannelPush  Channel = "PUSH"
	ChannelEmail Channel = "EMAIL"
	ChannelSMS   Channel = "SMS"
)

// Condition fields understood by the evaluator.
const (
	FieldLastActivityAt  = "lastActivityAt"
	FieldTotalSpentCents = "totalSpentCents"
	FieldMarketingOptIn  = "marketingOptIn"
	FieldContactType     = "contactType"
	FieldTag             = "tag"
)

// Condition operators.
const (
	OperatorGte   = "gte"
	OperatorLte   = "lte"
	OperatorEq    = "eq"
	OperatorIn    = "in"
	OperatorNotIn = "not_in"
)

// JourneyStep is one unit of a journey. Exactly one of the config pointers
// matching Kind is expected to be set.
type JourneyStep struct {
	ID        string           `json:"id"                  validate:"required"`
	Kind      StepKind         `json:"kind"                validate:"required,oneof=TRIGGER CONDITION DELAY ACTION"`
	Label     string           `json:"label"`
	Trigger   *TriggerConfig   `json:"trigger,omitempty"   yaml:"trigger,omitempty"`
	Condition *ConditionConfig `json:"condition,omitempty" yaml:"condition,omitempty"`
	Delay     *DelayConfig     `json:"delay,omitempty"     yaml:"delay,omitempty"`
	Action    *ActionConfig    `json:"action,omitempty"    yaml:"action,omitempty"`
}

// TriggerConfig describes the entry event of a journey.
type TriggerConfig struct {
	Event string `json:"event" yaml:"event"`
}

// ConditionConfig matches a contact attribute against an expected value.
type ConditionConfig struct {
	Field      string `json:"field"                 yaml:"field"`
	Operator   string `json:"operator"              yaml:"operator"`
	Value      string `json:"value"                 yaml:"value"`
	WindowDays *int   `json:"window_days,omitempty" yaml:"window_days,omitempty"`
}

// DelayConfig pauses the journey before the next step.
type DelayConfig struct {
	Minutes int `json:"minutes" yaml:"minutes"`
}

// ActionConfig is an outbound message.
type ActionConfig struct {
	Channel  Channel `json:"channel"             yaml:"channel"`
	Title    string  `json:"title"               yaml:"title"`
	Body     string  `json:"body"                yaml:"body"`
	CTALabel string  `json:"cta_label,omitempty" yaml:"cta_label,omitempty"`
	CTAURL   string  `json:"cta_url,omitempty"   yaml:"cta_url,omitempty"`
}

// DisplayLabel returns the step label, falling back to the kind.
func (s *JourneyStep) DisplayLabel() string {
	if s.Label != "" {
		return s.Label
	}

	return string(s.Kind)
}
