package diff

import "strings"

// Section is the coarse rollup bucket diff statistics are reported by.
type Section string

const (
	SectionInterfaces Section = "interfaces"
	SectionRouting    Section = "routing"
	SectionSecurity   Section = "security"
	SectionOther      Section = "other"
)

// Impact classifies how much a delta matters operationally, derived from
// its section and category.
type Impact string

const (
	ImpactCosmetic         Impact = "cosmetic"
	ImpactOperational      Impact = "operational"
	ImpactServiceAffecting Impact = "service_affecting"
)

// Stats is the full statistics report for a diff: category counts,
// per-section rollups, and impact counts.
type Stats struct {
	ByCategory map[Category]int
	BySection  map[Section]map[Category]int
	ByImpact   map[Impact]int
}

// Summarize walks the full delta tree, depth-first, and tallies category,
// section, and impact counts for every delta node: both the block-level
// summary (e.g. an interface block marked Modified because a line inside
// it changed) and the leaf-level deltas that caused it, since each is a
// meaningful unit on its own report granularity.
func Summarize(deltas []Delta) Stats {
	s := Stats{
		ByCategory: map[Category]int{},
		BySection:  map[Section]map[Category]int{},
		ByImpact:   map[Impact]int{},
	}
	var walk func([]Delta)
	walk = func(ds []Delta) {
		for _, d := range ds {
			s.ByCategory[d.Category]++
			sec := classifySection(d.Path)
			if s.BySection[sec] == nil {
				s.BySection[sec] = map[Category]int{}
			}
			s.BySection[sec][d.Category]++
			s.ByImpact[classifyImpact(sec, d.Category)]++
			walk(d.Children)
		}
	}
	walk(deltas)
	return s
}

// classifySection inspects the delta's path headers for the keywords that
// mark interface, routing, and security blocks.
func classifySection(path []string) Section {
	for _, h := range path {
		lower := strings.ToLower(h)
		switch {
		case strings.HasPrefix(lower, "interface"):
			return SectionInterfaces
		case strings.HasPrefix(lower, "router"), strings.Contains(lower, "routing-options"), strings.HasPrefix(lower, "protocols"):
			return SectionRouting
		case strings.HasPrefix(lower, "access-list"), strings.HasPrefix(lower, "ip access-list"), strings.Contains(lower, "firewall"), strings.HasPrefix(lower, "acl"):
			return SectionSecurity
		}
	}
	return SectionOther
}

// classifyImpact derives an operational weight from section and category:
// equivalence is always cosmetic; reordering is service-affecting only in
// security sections and cosmetic elsewhere; any other change in an
// interface, routing, or security section is service-affecting; everything
// else that changes content is operational.
func classifyImpact(sec Section, cat Category) Impact {
	switch cat {
	case CategoryEquivalent:
		return ImpactCosmetic
	case CategoryReordered:
		if sec == SectionSecurity {
			return ImpactServiceAffecting
		}
		return ImpactCosmetic
	default:
		if sec == SectionSecurity || sec == SectionRouting || sec == SectionInterfaces {
			return ImpactServiceAffecting
		}
		return ImpactOperational
	}
}
