package alertrule

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vulnwatchio/api/pkg/domain/asset"
	"github.com/vulnwatchio/api/pkg/domain/finding"
	"github.com/vulnwatchio/api/pkg/domain/scan"
	"github.com/vulnwatchio/api/pkg/domain/shared"
)

func testAsset(t *testing.T) *asset.Asset {
	t.Helper()
	a, err := asset.New("app.example.com", "Example App", asset.TypeFQDN, asset.CriticityHigh)
	require.NoError(t, err)
	return a
}

func testFinding(t *testing.T, severity finding.Severity) *finding.Finding {
	t.Helper()
	f, err := finding.New(shared.NewID(), "Outdated TLS configuration", severity)
	require.NoError(t, err)
	return f
}

func mustRule(t *testing.T, scope Scope, attr string, cond Condition) *Rule {
	t.Helper()
	r, err := New("test rule", scope, attr, cond, TargetEvent)
	require.NoError(t, err)
	return r
}

func TestEvaluateTextOperators(t *testing.T) {
	a := testAsset(t)

	tests := []struct {
		name string
		op   Operator
		val  string
		want bool
	}{
		{"iexact match", OpIExact, "APP.EXAMPLE.COM", true},
		{"iexact miss", OpIExact, "other.example.com", false},
		{"icontains match", OpIContains, "Example", true},
		{"icontains miss", OpIContains, "nothing", false},
		{"istartswith match", OpIStartsWith, "app.", true},
		{"iendswith match", OpIEndsWith, ".example.com", true},
		{"negated exact", OpNotIExact, "other", true},
		{"negated contains", OpNotIContains, "example", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := mustRule(t, ScopeAsset, "value", Condition{Operator: tt.op, Value: tt.val})
			assert.Equal(t, tt.want, Evaluate(r, a))
		})
	}
}

func TestEvaluateNumericOperators(t *testing.T) {
	f := testFinding(t, finding.SeverityHigh)
	f.RiskInfo.CVSSBaseScore = 7.5

	tests := []struct {
		op   Operator
		val  string
		want bool
	}{
		{OpGT, "7.0", true},
		{OpGT, "7.5", false},
		{OpGTE, "7.5", true},
		{OpLT, "9.0", true},
		{OpLTE, "7.4", false},
	}

	for _, tt := range tests {
		r := mustRule(t, ScopeFinding, "cvss_score", Condition{Operator: tt.op, Value: tt.val})
		assert.Equal(t, tt.want, Evaluate(r, f), "%s %s", tt.op, tt.val)
	}
}

func TestEvaluateNumericMalformedValueFailsClosed(t *testing.T) {
	f := testFinding(t, finding.SeverityHigh)
	r := mustRule(t, ScopeFinding, "cvss_score", Condition{Operator: OpGT, Value: "5"})
	r.Condition.Value = "not-a-number"
	assert.False(t, Evaluate(r, f))
}

func TestEvaluateListMembership(t *testing.T) {
	f := testFinding(t, finding.SeverityCritical)

	r := mustRule(t, ScopeFinding, "severity", Condition{Operator: OpIn, Value: "critical"})
	assert.True(t, Evaluate(r, f))

	r = mustRule(t, ScopeFinding, "severity", Condition{Operator: OpIn, Value: "low"})
	assert.False(t, Evaluate(r, f))
}

func TestEvaluateScopeMismatch(t *testing.T) {
	r := mustRule(t, ScopeFinding, "severity", Condition{Operator: OpIn, Value: "critical"})

	// An asset rule scope never matches a finding entity and vice versa.
	assert.False(t, Evaluate(r, testAsset(t)))
	assert.False(t, Evaluate(r, &scan.Scan{Status: scan.StatusFinished}))
	assert.False(t, Evaluate(r, nil))
}

func TestEvaluateUnknownAttributeFailsClosed(t *testing.T) {
	r := mustRule(t, ScopeAsset, "value", Condition{Operator: OpIExact, Value: "x"})
	r.ScopeAttr = "no_such_attribute"
	assert.False(t, Evaluate(r, testAsset(t)))
}

func TestEvaluateScanStatus(t *testing.T) {
	s := &scan.Scan{ID: shared.NewID(), Status: scan.StatusError, EngineName: "nmap"}

	r := mustRule(t, ScopeScan, "status", Condition{Operator: OpIExact, Value: "error"})
	assert.True(t, Evaluate(r, s))

	r = mustRule(t, ScopeScan, "engine_name", Condition{Operator: OpIContains, Value: "NMAP"})
	assert.True(t, Evaluate(r, s))
}

func TestValidateRejectsUnknownAttribute(t *testing.T) {
	_, err := New("bad", ScopeAsset, "not_an_attr",
		Condition{Operator: OpIExact, Value: "x"}, TargetEvent)
	require.Error(t, err)
	assert.ErrorIs(t, err, shared.ErrValidation)
}

func TestValidateRejectsOperatorTypeMismatch(t *testing.T) {
	// gt is a numeric operator; value is a text attribute.
	_, err := New("bad", ScopeAsset, "value",
		Condition{Operator: OpGT, Value: "10"}, TargetEvent)
	require.Error(t, err)
	assert.ErrorIs(t, err, shared.ErrValidation)
}

func TestValidateRejectsIllegalListValue(t *testing.T) {
	_, err := New("bad", ScopeFinding, "severity",
		Condition{Operator: OpIn, Value: "catastrophic"}, TargetEvent)
	require.Error(t, err)
	assert.ErrorIs(t, err, shared.ErrValidation)
}

func TestOperatorTypeTable(t *testing.T) {
	assert.True(t, AttrText.Allows(OpIContains))
	assert.False(t, AttrText.Allows(OpGT))
	assert.True(t, AttrNumeric.Allows(OpLTE))
	assert.False(t, AttrNumeric.Allows(OpIn))
	assert.True(t, AttrList.Allows(OpIn))
	assert.False(t, AttrList.Allows(OpIExact))
}
