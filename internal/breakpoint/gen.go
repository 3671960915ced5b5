package breakpoint

// Gen is the generation tag carried by every breakpoint mutation request.
//
// A primary generation is created where a user action or a spontaneous engine
// event enters the system and is the only one allowed to spread to other
// engines. Second derives the echo of a primary; Third reaches the children
// of overloaded breakpoints and is terminal. The zero Gen is invalid.
type Gen struct {
	level  int
	origin *Breakpoint
}

const (
	genPrimary   = 1
	genSecondary = 2
	genTertiary  = 3
)

// Primary returns a level 1 generation originating at origin.
// origin may be nil.
func Primary(origin *Breakpoint) Gen {
	return Gen{level: genPrimary, origin: origin}
}

// Secondary returns a level 2 generation synthesized on behalf of another
// engine.
func Secondary(origin *Breakpoint) Gen {
	return Gen{level: genSecondary, origin: origin}
}

// Second derives a secondary generation. g must be primary.
func (g Gen) Second() Gen {
	assert(g.level == genPrimary, "second() applied to %s generation", g)
	return Gen{level: genSecondary, origin: g.origin}
}

// Third derives a tertiary generation. g must be primary or secondary.
func (g Gen) Third() Gen {
	assert(g.level == genPrimary || g.level == genSecondary,
		"third() applied to %s generation", g)
	return Gen{level: genTertiary, origin: g.origin}
}

// Reply returns the generation an engine acknowledgment carries for a
// request tagged g. A primary request is acknowledged as secondary so that
// the acknowledgment never spreads; other generations are kept.
func (g Gen) Reply() Gen {
	if g.level == genPrimary {
		return g.Second()
	}
	return g
}

// IsPrimary reports whether g is a level 1 generation.
func (g Gen) IsPrimary() bool { return g.level == genPrimary }

// IsSecondary reports whether g is a level 2 generation.
func (g Gen) IsSecondary() bool { return g.level == genSecondary }

// IsTertiary reports whether g is a level 3 generation.
func (g Gen) IsTertiary() bool { return g.level == genTertiary }

// Spreads reports whether a request tagged g may be re-posted to other engines.
func (g Gen) Spreads() bool { return g.level == genPrimary }

// Level returns 1, 2 or 3, or 0 for the zero Gen.
func (g Gen) Level() int { return g.level }

// Origin returns the breakpoint that started the causal chain, or nil.
func (g Gen) Origin() *Breakpoint { return g.origin }

// String returns the generation name.
func (g Gen) String() string {
	switch g.level {
	case genPrimary:
		return "primary"
	case genSecondary:
		return "secondary"
	case genTertiary:
		return "tertiary"
	default:
		return "invalid"
	}
}
