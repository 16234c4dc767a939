package config

import (
	"fmt"

	"github.com/spf13/viper"

	"github.com/mrlokans/adminauth/internal/flow"
)

// LoadForms reads form overrides from a YAML or JSON file:
//
//	forms:
//	  login:
//	    endpoint: login
//	    fields_to_omit: [rememberMe]
//	    schema:
//	      fields:
//	        - name: email
//	          rules: required,email
//
// An empty path yields no overrides.
func LoadForms(path string) (flow.Forms, error) {
	if path == "" {
		return nil, nil
	}

	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read forms file: %w", err)
	}

	var raw map[string]flow.FlowDescriptor
	if err := v.UnmarshalKey("forms", &raw); err != nil {
		return nil, fmt.Errorf("failed to parse forms file: %w", err)
	}

	forms := make(flow.Forms, len(raw))
	for name, d := range raw {
		mode, err := flow.ParseMode(name)
		if err != nil {
			return nil, fmt.Errorf("forms file: %w", err)
		}
		if d.Endpoint == "" {
			return nil, fmt.Errorf("forms file: %s: endpoint is required", name)
		}
		forms[mode] = d
	}
	return forms, nil
}
