package parse

import "strings"

// ciscoKeywords and juniperKeywords are the heuristic signals
// ("interface GigabitEthernet", "system {") scanned for when no vendor
// hint is supplied.
var (
	ciscoKeywords = []string{
		"interface GigabitEthernet", "interface TenGigabitEthernet",
		"interface Loopback", "router bgp", "router ospf", "ip address",
	}
	juniperKeywords = []string{"system {", "interfaces {", "protocols {", "routing-options {"}
)

// DetectVendor scans the first N lines for brace density and
// vendor-specific keywords and picks a parser shape.
// Juniper wins when a Juniper keyword appears alongside any brace or
// semicolon, or when braces and semicolons are dense and Juniper keywords
// are at least as frequent as Cisco ones. Otherwise any Cisco keyword picks
// Cisco; text with no braces and no Cisco keyword is Generic; anything
// else falls back to Cisco.
func DetectVendor(text string) Vendor {
	const scanLines = 40
	lines := strings.Split(text, "\n")
	if len(lines) > scanLines {
		lines = lines[:scanLines]
	}
	sample := strings.Join(lines, "\n")

	braceCount := strings.Count(sample, "{") + strings.Count(sample, "}")
	semiCount := strings.Count(sample, ";")

	juniperHits := keywordHits(sample, juniperKeywords)
	ciscoHits := keywordHits(sample, ciscoKeywords)

	if juniperHits > 0 && (braceCount > 0 || semiCount > 0) {
		return VendorJuniper
	}
	if braceCount >= 3 && semiCount >= 3 && juniperHits >= ciscoHits {
		return VendorJuniper
	}
	if ciscoHits > 0 {
		return VendorCisco
	}
	if braceCount == 0 {
		return VendorGeneric
	}
	return VendorCisco
}

func keywordHits(text string, keywords []string) int {
	n := 0
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			n++
		}
	}
	return n
}
