package breakpoint

import "testing"

func TestGenPrimary(t *testing.T) {
	origin := NewFunctionBreakpoint("main")
	g := Primary(origin)

	if !g.IsPrimary() || g.IsSecondary() || g.IsTertiary() {
		t.Fatalf("expected primary, got %s", g)
	}
	if !g.Spreads() {
		t.Error("primary generation should spread")
	}
	if g.Origin() != origin {
		t.Error("origin not preserved")
	}

	s := g.Second()
	if !s.IsSecondary() || s.IsPrimary() {
		t.Errorf("Second(): expected secondary, got %s", s)
	}
	if s.Spreads() {
		t.Error("secondary generation should not spread")
	}
	if s.Origin() != origin {
		t.Error("Second() lost the origin")
	}
	if g.Level() != 1 {
		t.Errorf("deriving must not change the receiver, level %d", g.Level())
	}
}

func TestGenThird(t *testing.T) {
	for _, g := range []Gen{Primary(nil), Secondary(nil), Primary(nil).Second()} {
		third := g.Third()
		if !third.IsTertiary() {
			t.Errorf("%s.Third(): expected tertiary, got %s", g, third)
		}
		if third.Spreads() {
			t.Errorf("%s.Third() should not spread", g)
		}
	}
}

func TestGenSecondRequiresPrimary(t *testing.T) {
	tests := []struct {
		name string
		gen  Gen
	}{
		{"secondary", Secondary(nil)},
		{"derived secondary", Primary(nil).Second()},
		{"tertiary", Primary(nil).Third()},
		{"zero", Gen{}},
	}
	for _, tt := range tests {
		expectViolation(t, tt.name, func() { _ = tt.gen.Second() })
	}
}

func TestGenThirdIsTerminal(t *testing.T) {
	expectViolation(t, "third of tertiary", func() { _ = Secondary(nil).Third().Third() })
	expectViolation(t, "third of zero", func() { _ = Gen{}.Third() })
}

func TestGenReply(t *testing.T) {
	if r := Primary(nil).Reply(); !r.IsSecondary() {
		t.Errorf("reply to primary: expected secondary, got %s", r)
	}
	if r := Secondary(nil).Reply(); !r.IsSecondary() {
		t.Errorf("reply to secondary: expected secondary, got %s", r)
	}
	if r := Primary(nil).Third().Reply(); !r.IsTertiary() {
		t.Errorf("reply to tertiary: expected tertiary, got %s", r)
	}
}

func TestGenString(t *testing.T) {
	tests := map[string]Gen{
		"primary":   Primary(nil),
		"secondary": Secondary(nil),
		"tertiary":  Secondary(nil).Third(),
		"invalid":   {},
	}
	for want, g := range tests {
		if got := g.String(); got != want {
			t.Errorf("expected %q, got %q", want, got)
		}
	}
}
