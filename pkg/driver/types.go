// pkg/driver/types.go
package driver

// Action is a host-triggered request to the device
type Action struct {
	ID      string            `json:"action_id"`
	Options map[string]string `json:"options,omitempty"`
}

// Option returns the named option or the fallback when missing
func (a *Action) Option(name, fallback string) string {
	if a.Options == nil {
		return fallback
	}
	if value, ok := a.Options[name]; ok {
		return value
	}
	return fallback
}

// ActionResult describes what an action produced on the wire
type ActionResult struct {
	ActionID string `json:"action_id"`
	Command  string `json:"command"`
	Payload  []byte `json:"payload"`
	Sent     bool   `json:"sent"`
	Skipped  bool   `json:"skipped"`
}

// Field types understood by the host UI

// FieldType defines how a field is rendered
type FieldType string

const (
	FieldTypeStaticText FieldType = "static-text"
	FieldTypeTextInput  FieldType = "textinput"
	FieldTypeDropdown   FieldType = "dropdown"
	FieldTypeNumber     FieldType = "number"
)

// Choice is one entry of a dropdown
type Choice struct {
	ID    string `json:"id" yaml:"id"`
	Label string `json:"label" yaml:"label"`
}

// ConfigField describes one configuration input
type ConfigField struct {
	ID      string    `json:"id" yaml:"id"`
	Type    FieldType `json:"type" yaml:"type"`
	Label   string    `json:"label" yaml:"label"`
	Value   string    `json:"value,omitempty" yaml:"value,omitempty"`
	Default string    `json:"default,omitempty" yaml:"default,omitempty"`
	Regex   string    `json:"regex,omitempty" yaml:"regex,omitempty"`
	Width   int       `json:"width" yaml:"width"`
	Choices []Choice  `json:"choices,omitempty" yaml:"choices,omitempty"`
}

// OptionField describes one input of an action
type OptionField struct {
	ID      string    `json:"id" yaml:"id"`
	Type    FieldType `json:"type" yaml:"type"`
	Label   string    `json:"label" yaml:"label"`
	Default string    `json:"default,omitempty" yaml:"default,omitempty"`
	Tooltip string    `json:"tooltip,omitempty" yaml:"tooltip,omitempty"`
}

// ActionDefinition describes an action the host can trigger
type ActionDefinition struct {
	ID      string        `json:"id" yaml:"id"`
	Name    string        `json:"name" yaml:"name"`
	Options []OptionField `json:"options" yaml:"options"`
}

// Preset is a ready-made button for the host
type Preset struct {
	Category string  `json:"category" yaml:"category"`
	Label    string  `json:"label" yaml:"label"`
	Action   *Action `json:"action" yaml:"action"`
}
