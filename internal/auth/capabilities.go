package auth

// Capability is one permission an API key may carry.
type Capability string

const (
	Create Capability = "Create"
	Read   Capability = "Read"
	Update Capability = "Update"
	Delete Capability = "Delete"
)

// CapabilitySet is the set of capabilities granted to a key.
type CapabilitySet map[Capability]bool

// NewCapabilitySet builds a set from a list of capabilities.
func NewCapabilitySet(caps ...Capability) CapabilitySet {
	set := make(CapabilitySet, len(caps))
	for _, c := range caps {
		set[c] = true
	}
	return set
}

// Has reports whether the set contains c.
func (s CapabilitySet) Has(c Capability) bool {
	return s[c]
}

// CapabilityResolver returns the capability set of an API key.
type CapabilityResolver interface {
	Resolve(apiKey string) CapabilitySet
}

// AllCapabilities grants every capability locally. Prosa remains the
// authority and its 403 responses surface as ErrForbidden-equivalent errors.
type AllCapabilities struct{}

func (AllCapabilities) Resolve(string) CapabilitySet {
	return NewCapabilitySet(Create, Read, Update, Delete)
}

// StaticResolver maps API keys to fixed capability sets. Keys not present
// fall back to Default, which is empty when nil.
type StaticResolver struct {
	Keys    map[string]CapabilitySet
	Default CapabilitySet
}

func (r StaticResolver) Resolve(apiKey string) CapabilitySet {
	if set, ok := r.Keys[apiKey]; ok {
		return set
	}
	if r.Default != nil {
		return r.Default
	}
	return CapabilitySet{}
}
