package alertrule

import (
	"github.com/vulnwatchio/api/pkg/domain/asset"
	"github.com/vulnwatchio/api/pkg/domain/finding"
	"github.com/vulnwatchio/api/pkg/domain/scan"
)

// AttrType is the declared type of a rule attribute, which determines
// the legal operator set.
type AttrType string

// Attribute types.
const (
	AttrText    AttrType = "text"
	AttrNumeric AttrType = "numeric"
	AttrList    AttrType = "list"
)

// Value is the typed result of reading an attribute off an entity.
type Value struct {
	Text   string
	Number float64
}

// Attribute describes one rule-addressable attribute of a scope: its
// declared type, the legal values for list attributes, and a typed
// getter. The registry replaces runtime field introspection with an
// explicit startup-time table.
type Attribute struct {
	Type   AttrType
	Values []string
	Get    func(entity any) (Value, bool)
}

// IsLegalValue reports whether v is among the attribute's enumerated
// legal values. Non-list attributes accept any value.
func (a Attribute) IsLegalValue(v string) bool {
	if a.Type != AttrList {
		return true
	}
	for _, legal := range a.Values {
		if legal == v {
			return true
		}
	}
	return false
}

func textAttr(get func(any) (string, bool)) Attribute {
	return Attribute{
		Type: AttrText,
		Get: func(e any) (Value, bool) {
			s, ok := get(e)
			return Value{Text: s}, ok
		},
	}
}

func numericAttr(get func(any) (float64, bool)) Attribute {
	return Attribute{
		Type: AttrNumeric,
		Get: func(e any) (Value, bool) {
			n, ok := get(e)
			return Value{Number: n}, ok
		},
	}
}

func listAttr(values []string, get func(any) (string, bool)) Attribute {
	return Attribute{
		Type:   AttrList,
		Values: values,
		Get: func(e any) (Value, bool) {
			s, ok := get(e)
			return Value{Text: s}, ok
		},
	}
}

func assetTypeValues() []string {
	out := make([]string, len(asset.AllTypes))
	for i, t := range asset.AllTypes {
		out[i] = t.String()
	}
	return out
}

func severityValues() []string {
	out := make([]string, len(finding.AllSeverities))
	for i, s := range finding.AllSeverities {
		out[i] = s.String()
	}
	return out
}

// attributes maps (scope, attribute name) to its descriptor. Getters
// fail closed: a wrong entity type yields no value, never an error.
var attributes = map[Scope]map[string]Attribute{
	ScopeAsset: {
		"value": textAttr(func(e any) (string, bool) {
			a, ok := e.(*asset.Asset)
			if !ok {
				return "", false
			}
			return a.Value(), true
		}),
		"name": textAttr(func(e any) (string, bool) {
			a, ok := e.(*asset.Asset)
			if !ok {
				return "", false
			}
			return a.Name(), true
		}),
		"description": textAttr(func(e any) (string, bool) {
			a, ok := e.(*asset.Asset)
			if !ok {
				return "", false
			}
			return a.Description(), true
		}),
		"type": listAttr(assetTypeValues(), func(e any) (string, bool) {
			a, ok := e.(*asset.Asset)
			if !ok {
				return "", false
			}
			return a.Type().String(), true
		}),
		"criticity": listAttr([]string{"low", "medium", "high"}, func(e any) (string, bool) {
			a, ok := e.(*asset.Asset)
			if !ok {
				return "", false
			}
			return a.Criticity().String(), true
		}),
	},
	ScopeFinding: {
		"title": textAttr(func(e any) (string, bool) {
			f, ok := e.(*finding.Finding)
			if !ok {
				return "", false
			}
			return f.Title, true
		}),
		"description": textAttr(func(e any) (string, bool) {
			f, ok := e.(*finding.Finding)
			if !ok {
				return "", false
			}
			return f.Description, true
		}),
		"type": textAttr(func(e any) (string, bool) {
			f, ok := e.(*finding.Finding)
			if !ok {
				return "", false
			}
			return f.Type, true
		}),
		"hash": textAttr(func(e any) (string, bool) {
			f, ok := e.(*finding.Finding)
			if !ok {
				return "", false
			}
			return f.Hash, true
		}),
		"solution": textAttr(func(e any) (string, bool) {
			f, ok := e.(*finding.Finding)
			if !ok {
				return "", false
			}
			return f.Solution, true
		}),
		"severity": listAttr(severityValues(), func(e any) (string, bool) {
			f, ok := e.(*finding.Finding)
			if !ok {
				return "", false
			}
			return f.Severity.String(), true
		}),
		"status": listAttr([]string{"new", "ack"}, func(e any) (string, bool) {
			f, ok := e.(*finding.Finding)
			if !ok {
				return "", false
			}
			return string(f.Status), true
		}),
		"cvss_score": numericAttr(func(e any) (float64, bool) {
			f, ok := e.(*finding.Finding)
			if !ok {
				return 0, false
			}
			return f.RiskInfo.CVSSBaseScore, true
		}),
	},
	ScopeScan: {
		"status": textAttr(func(e any) (string, bool) {
			s, ok := e.(*scan.Scan)
			if !ok {
				return "", false
			}
			return string(s.Status), true
		}),
		"engine_name": textAttr(func(e any) (string, bool) {
			s, ok := e.(*scan.Scan)
			if !ok {
				return "", false
			}
			return s.EngineName, true
		}),
	},
}

// LookupAttribute returns the attribute descriptor for a scope.
func LookupAttribute(scope Scope, name string) (Attribute, bool) {
	attrs, ok := attributes[scope]
	if !ok {
		return Attribute{}, false
	}
	attr, ok := attrs[name]
	return attr, ok
}

// AttributeNames returns the rule-addressable attribute names for a
// scope, used by configuration surfaces.
func AttributeNames(scope Scope) []string {
	attrs := attributes[scope]
	out := make([]string, 0, len(attrs))
	for name := range attrs {
		out = append(out, name)
	}
	return out
}

// ScopeOf maps a concrete entity to its rule scope.
func ScopeOf(entity any) (Scope, bool) {
	switch entity.(type) {
	case *asset.Asset:
		return ScopeAsset, true
	case *finding.Finding:
		return ScopeFinding, true
	case *scan.Scan:
		return ScopeScan, true
	}
	return "", false
}
