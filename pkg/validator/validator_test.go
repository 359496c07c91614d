package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate_CustomRules(t *testing.T) {
	v := New()

	type input struct {
		Type      string `validate:"omitempty,asset_type"`
		Criticity string `validate:"omitempty,criticity"`
		Severity  string `validate:"omitempty,severity"`
		Status    string `validate:"omitempty,finding_status"`
		Scope     string `validate:"omitempty,rule_scope"`
		Target    string `validate:"omitempty,rule_target"`
		Trigger   string `validate:"omitempty,rule_trigger"`
		RuleSev   string `validate:"omitempty,rule_severity"`
	}

	tests := []struct {
		name    string
		in      input
		wantErr bool
	}{
		{"all empty", input{}, false},
		{"valid values", input{
			Type:      "fqdn",
			Criticity: "high",
			Severity:  "critical",
			Status:    "ack",
			Scope:     "finding",
			Target:    "slack",
			Trigger:   "auto",
			RuleSev:   "High",
		}, false},
		{"bad asset type", input{Type: "mainframe"}, true},
		{"bad criticity", input{Criticity: "extreme"}, true},
		{"bad severity", input{Severity: "catastrophic"}, true},
		{"bad status", input{Status: "wontfix"}, true},
		{"bad scope", input{Scope: "network"}, true},
		{"bad target", input{Target: "pager"}, true},
		{"bad trigger", input{Trigger: "hourly"}, true},
		{"rule severity is capitalized", input{RuleSev: "high"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidate_FieldErrors(t *testing.T) {
	v := New()

	type input struct {
		Title    string `validate:"required,max=10"`
		Severity string `validate:"required,severity"`
	}

	err := v.Validate(input{Severity: "nope"})
	require.Error(t, err)

	verrs, ok := err.(ValidationErrors)
	require.True(t, ok)
	require.Len(t, verrs, 2)

	byField := map[string]string{}
	for _, e := range verrs {
		byField[e.Field] = e.Message
	}
	assert.Equal(t, "is required", byField["title"])
	assert.Equal(t, "must be one of: info, low, medium, high, critical", byField["severity"])
}

func TestValidate_NonStructTarget(t *testing.T) {
	v := New()

	err := v.Validate("not a struct")
	require.Error(t, err)
	_, ok := err.(ValidationErrors)
	assert.False(t, ok)
}
