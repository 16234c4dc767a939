package flow

// FieldSpec declares one form field. Name is a dotted path into the payload,
// Rules is a validator tag and Match names a field whose value this one must
// repeat.
type FieldSpec struct {
	Name    string `mapstructure:"name" json:"name"`
	Default any    `mapstructure:"default" json:"default,omitempty"`
	Rules   string `mapstructure:"rules" json:"rules,omitempty"`
	Match   string `mapstructure:"match" json:"match,omitempty"`
}

// Schema is passed through to renderers and validators untouched; the flow
// core only reads field names and defaults from it.
type Schema struct {
	Fields []FieldSpec `mapstructure:"fields" json:"fields"`
}

// FlowDescriptor is the static configuration of one mode.
type FlowDescriptor struct {
	Mode            Mode     `mapstructure:"-" json:"mode"`
	Endpoint        string   `mapstructure:"endpoint" json:"endpoint"`
	FieldsToOmit    []string `mapstructure:"fields_to_omit" json:"fieldsToOmit,omitempty"`
	FieldsToDisable []string `mapstructure:"fields_to_disable" json:"fieldsToDisable,omitempty"`
	InputsPrefix    string   `mapstructure:"inputs_prefix" json:"inputsPrefix,omitempty"`
	Schema          Schema   `mapstructure:"schema" json:"schema"`
}

// Path returns the transport path for the descriptor's endpoint.
func (d FlowDescriptor) Path() string {
	return "/admin/" + d.Endpoint
}

// Disabled reports whether the named field is rendered read-only.
func (d FlowDescriptor) Disabled(name string) bool {
	for _, f := range d.FieldsToDisable {
		if f == name || d.InputsPrefix+f == name {
			return true
		}
	}
	return false
}

func (d FlowDescriptor) clone() FlowDescriptor {
	out := d
	out.FieldsToOmit = append([]string(nil), d.FieldsToOmit...)
	out.FieldsToDisable = append([]string(nil), d.FieldsToDisable...)
	out.Schema.Fields = append([]FieldSpec(nil), d.Schema.Fields...)
	return out
}

// Forms maps modes to their descriptors.
type Forms map[Mode]FlowDescriptor

// Registry resolves modes to descriptors. It is read-only after construction.
type Registry struct {
	forms Forms
}

// NewRegistry merges extension over base: an extension entry replaces the
// base entry for the same mode wholesale. Entries keyed by anything outside
// the fixed mode set are ignored.
func NewRegistry(base, extension Forms) *Registry {
	merged := make(Forms, len(allModes))
	for _, layer := range []Forms{base, extension} {
		for mode, d := range layer {
			if !mode.Valid() {
				continue
			}
			d = d.clone()
			d.Mode = mode
			merged[mode] = d
		}
	}
	return &Registry{forms: merged}
}

// DefaultRegistry returns a registry over the built-in form table.
func DefaultRegistry() *Registry {
	return NewRegistry(DefaultForms(), nil)
}

// Resolve returns a copy of the descriptor for mode.
func (r *Registry) Resolve(mode Mode) (FlowDescriptor, bool) {
	d, ok := r.forms[mode]
	if !ok {
		return FlowDescriptor{}, false
	}
	return d.clone(), true
}

// ResolveRaw resolves an unvalidated route parameter.
func (r *Registry) ResolveRaw(raw string) (FlowDescriptor, bool) {
	m, err := ParseMode(raw)
	if err != nil {
		return FlowDescriptor{}, false
	}
	return r.Resolve(m)
}
