package utils

import "golang.org/x/net/publicsuffix"

// ApexDomain returns the registrable domain (eTLD+1) of name in normalized form.
// Names that have no registrable part, such as bare TLDs or single labels, are
// returned unchanged.
func ApexDomain(name string) string {
	name = CanonicalName(name)
	// the public suffix list is lowercase
	apex, err := publicsuffix.EffectiveTLDPlusOne(lowerASCII(name))
	if err != nil {
		return name
	}
	return UpperASCII(apex)
}
