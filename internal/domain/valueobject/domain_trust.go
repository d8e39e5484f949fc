package valueobject

import "fmt"

// DomainTrust is an immutable value object classifying how much prior trust
// the target's registrable domain carries.
type DomainTrust struct {
	value string
}

var (
	TrustKnownSafe  = DomainTrust{value: "KNOWN_SAFE"}
	TrustUnknown    = DomainTrust{value: "UNKNOWN"}
	TrustKnownRisky = DomainTrust{value: "KNOWN_RISKY"}
)

// DomainTrustFromString reconstructs a DomainTrust from its string representation.
func DomainTrustFromString(s string) (DomainTrust, error) {
	switch s {
	case "KNOWN_SAFE":
		return TrustKnownSafe, nil
	case "UNKNOWN":
		return TrustUnknown, nil
	case "KNOWN_RISKY":
		return TrustKnownRisky, nil
	default:
		return DomainTrust{}, fmt.Errorf("invalid domain trust: %s", s)
	}
}

// String returns the string representation.
func (d DomainTrust) String() string {
	return d.value
}

// IsZero returns true if the DomainTrust has not been set.
func (d DomainTrust) IsZero() bool {
	return d.value == ""
}

// Equal checks equality with another DomainTrust.
func (d DomainTrust) Equal(other DomainTrust) bool {
	return d.value == other.value
}
