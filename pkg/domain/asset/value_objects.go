package asset

// Type represents the kind of value an asset tracks.
type Type string

// Supported asset types.
const (
	TypeIP           Type = "ip"
	TypeIPRange      Type = "ip-range"
	TypeIPSubnet     Type = "ip-subnet"
	TypeFQDN         Type = "fqdn"
	TypeDomain       Type = "domain"
	TypeURL          Type = "url"
	TypeKeyword      Type = "keyword"
	TypePerson       Type = "person"
	TypeOrganisation Type = "organisation"
	TypePath         Type = "path"
	TypeApplication  Type = "application"
)

// AllTypes lists every supported asset type.
var AllTypes = []Type{
	TypeIP, TypeIPRange, TypeIPSubnet, TypeFQDN, TypeDomain, TypeURL,
	TypeKeyword, TypePerson, TypeOrganisation, TypePath, TypeApplication,
}

// IsValid checks if the asset type is valid.
func (t Type) IsValid() bool {
	for _, known := range AllTypes {
		if t == known {
			return true
		}
	}
	return false
}

// String returns the string representation of the type.
func (t Type) String() string {
	return string(t)
}

// ParseType parses a string into a Type.
func ParseType(s string) (Type, bool) {
	t := Type(s)
	return t, t.IsValid()
}

// Criticity represents the business criticity of an asset.
type Criticity string

// Supported criticity levels.
const (
	CriticityLow    Criticity = "low"
	CriticityMedium Criticity = "medium"
	CriticityHigh   Criticity = "high"
)

// IsValid checks if the criticity is valid.
func (c Criticity) IsValid() bool {
	switch c {
	case CriticityLow, CriticityMedium, CriticityHigh:
		return true
	}
	return false
}

// String returns the string representation of the criticity.
func (c Criticity) String() string {
	return string(c)
}

// TLP maps the asset criticity to a Traffic Light Protocol level used
// when forwarding alerts to external case-management systems.
func (c Criticity) TLP() int {
	switch c {
	case CriticityLow:
		return 1
	case CriticityMedium:
		return 2
	case CriticityHigh:
		return 3
	}
	return 0
}

// ParseCriticity parses a string into a Criticity.
func ParseCriticity(s string) (Criticity, bool) {
	c := Criticity(s)
	return c, c.IsValid()
}
