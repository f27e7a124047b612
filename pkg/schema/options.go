package schema

// Default validation limits.
const (
	DefaultMaxDepth        = 100
	DefaultMaxProperties   = 1000
	DefaultMaxArrayLength  = 10000
	DefaultMaxStringLength = 1000000

	// MaxSafeInteger bounds every number accepted by the validator.
	MaxSafeInteger = 1<<53 - 1
	MinSafeInteger = -MaxSafeInteger
)

// Limits are safety ceilings applied regardless of other options.
type Limits struct {
	// Default: 100
	MaxDepth int `yaml:"max_depth" json:"max_depth"`

	// Default: 1000
	MaxProperties int `yaml:"max_properties" json:"max_properties"`

	// Default: 10000
	MaxArrayLength int `yaml:"max_array_length" json:"max_array_length"`

	// Default: 1000000
	MaxStringLength int `yaml:"max_string_length" json:"max_string_length"`
}

// DefaultLimits returns the default validation limits.
func DefaultLimits() Limits {
	return Limits{
		MaxDepth:        DefaultMaxDepth,
		MaxProperties:   DefaultMaxProperties,
		MaxArrayLength:  DefaultMaxArrayLength,
		MaxStringLength: DefaultMaxStringLength,
	}
}

func (l Limits) withDefaults() Limits {
	d := DefaultLimits()
	if l.MaxDepth <= 0 {
		l.MaxDepth = d.MaxDepth
	}
	if l.MaxProperties <= 0 {
		l.MaxProperties = d.MaxProperties
	}
	if l.MaxArrayLength <= 0 {
		l.MaxArrayLength = d.MaxArrayLength
	}
	if l.MaxStringLength <= 0 {
		l.MaxStringLength = d.MaxStringLength
	}
	return l
}

// Options controls how JSON responses are parsed and validated.
type Options struct {
	// Strict disables coercion, defaults and removal.
	// Default: false
	Strict bool `yaml:"strict" json:"strict"`

	// AutoFix extracts JSON from markdown fences or surrounding prose before
	// parsing. Used by the pipeline, not by Validate.
	// Default: true
	AutoFix bool `yaml:"auto_fix" json:"auto_fix"`

	// UseDefaults fills absent properties from their schema default.
	// Default: true
	UseDefaults bool `yaml:"use_defaults" json:"use_defaults"`

	// CoerceTypes enables best-effort type conversion.
	// Default: true
	CoerceTypes bool `yaml:"coerce_types" json:"coerce_types"`

	// RemoveAdditional drops keys not declared in properties.
	// Default: false
	RemoveAdditional bool `yaml:"remove_additional" json:"remove_additional"`

	// FailFast stops at the first error-severity issue.
	// Default: false
	FailFast bool `yaml:"fail_fast" json:"fail_fast"`

	Limits Limits `yaml:"limits" json:"limits"`

	// EnableWarnings downgrades the codes listed in Warnings to warning
	// severity.
	// Default: true
	EnableWarnings bool   `yaml:"enable_warnings" json:"enable_warnings"`
	Warnings       []Code `yaml:"warnings" json:"warnings"`
}

// DefaultOptions returns the default JSON options.
func DefaultOptions() Options {
	return Options{
		AutoFix:        true,
		UseDefaults:    true,
		CoerceTypes:    true,
		Limits:         DefaultLimits(),
		EnableWarnings: true,
	}
}

func (o Options) severity(code Code) Severity {
	if !o.EnableWarnings {
		return SeverityError
	}
	for _, w := range o.Warnings {
		if w == code {
			return SeverityWarning
		}
	}
	return SeverityError
}
