package breakpoint

import (
	"fmt"
	"path"
	"strconv"
	"strings"
)

// Property names. Persistence uses the name; table columns use the key.
const (
	PropContext    = "context"
	PropWhileIn    = "whileIn"
	PropQWhileIn   = "qwhileIn"
	PropCondition  = "condition"
	PropQCondition = "qcondition"
	PropLWP        = "lwp"
	PropThread     = "thread"
	PropID         = "id"
	PropCount      = "count"
	PropTemp       = "temp"
	PropAdjusted   = "adjusted"
	PropCountLimit = "countLimit"
	PropEnabled    = "enabled"
	PropFile       = "fileName"
	PropLine       = "lineNumber"
	PropFunction   = "function"
	PropAddress    = "address"
)

// Column keys that differ from the property name.
const (
	KeyEnable = "enable"
	KeyFile   = "file"
	KeyLine   = "line"
)

// Context identifies the debug target a breakpoint belongs to.
type Context struct {
	Executable string
	Host       string
}

// String renders the context the way it is persisted: "exe" or "exe@host".
func (c Context) String() string {
	if c.Host == "" || c.Host == "localhost" {
		return c.Executable
	}
	return c.Executable + "@" + c.Host
}

// IsZero reports whether c names no target.
func (c Context) IsZero() bool {
	return c.Executable == ""
}

// Matches reports whether two contexts name the same target.
func (c Context) Matches(o Context) bool {
	return c.Executable == o.Executable && normalizeHost(c.Host) == normalizeHost(o.Host)
}

// Basename returns the base name of the executable.
func (c Context) Basename() string {
	if c.Executable == "" {
		return ""
	}
	return path.Base(c.Executable)
}

// ParseContext parses the persisted form of a Context.
func ParseContext(s string) Context {
	if i := strings.LastIndex(s, "@"); i > 0 {
		return Context{Executable: s[:i], Host: s[i+1:]}
	}
	return Context{Executable: s}
}

func normalizeHost(h string) string {
	if h == "" {
		return "localhost"
	}
	return h
}

type valueType int

const (
	typeString valueType = iota
	typeInt
	typeBool
	typeContext
)

type propDef struct {
	name            string
	key             string
	typ             valueType
	differentiating bool
	readOnly        bool
}

var commonProps = []propDef{
	{name: PropContext, key: PropContext, typ: typeContext, differentiating: true},
	{name: PropWhileIn, key: PropWhileIn, typ: typeString, differentiating: true},
	{name: PropQWhileIn, typ: typeString, readOnly: true},
	{name: PropCondition, key: PropCondition, typ: typeString, differentiating: true},
	{name: PropQCondition, typ: typeString, readOnly: true},
	{name: PropLWP, key: PropLWP, typ: typeString, differentiating: true},
	{name: PropThread, key: PropThread, typ: typeString, differentiating: true},
	{name: PropID, key: PropID, typ: typeInt, readOnly: true},
	{name: PropCount, key: PropCount, typ: typeInt, readOnly: true},
	{name: PropTemp, key: PropTemp, typ: typeBool, differentiating: true},
	{name: PropAdjusted, typ: typeBool, readOnly: true},
	{name: PropCountLimit, key: PropCountLimit, typ: typeInt, differentiating: true},
	{name: PropEnabled, key: KeyEnable, typ: typeBool, differentiating: true},
}

var kindProps = map[Kind][]propDef{
	KindLine: {
		{name: PropFile, key: KeyFile, typ: typeString, differentiating: true},
		{name: PropLine, key: KeyLine, typ: typeInt, differentiating: true},
	},
	KindFunction: {
		{name: PropFunction, key: PropFunction, typ: typeString, differentiating: true},
	},
	KindInstruction: {
		{name: PropAddress, key: PropAddress, typ: typeString, differentiating: true},
	},
}

// Property is a named, typed attribute of a breakpoint.
// Values are string, int, bool or Context.
type Property struct {
	def   propDef
	value any
	dirty bool
}

func newProperties(kind Kind) []Property {
	defs := append(append([]propDef(nil), kindProps[kind]...), commonProps...)
	props := make([]Property, len(defs))
	for i, d := range defs {
		props[i] = Property{def: d, value: zeroValue(d.typ)}
	}
	return props
}

func zeroValue(t valueType) any {
	switch t {
	case typeInt:
		return 0
	case typeBool:
		return false
	case typeContext:
		return Context{}
	default:
		return ""
	}
}

// Name returns the persistence name.
func (p Property) Name() string { return p.def.name }

// Key returns the table column key, or "" for properties without a column.
func (p Property) Key() string { return p.def.key }

// Value returns the current value.
func (p Property) Value() any { return p.value }

// IsReadOnly reports whether the property may not be edited by the user.
func (p Property) IsReadOnly() bool { return p.def.readOnly }

// IsDifferentiating reports whether the property distinguishes siblings.
func (p Property) IsDifferentiating() bool { return p.def.differentiating }

// IsDirty reports whether the property was edited on an editable copy.
func (p Property) IsDirty() bool { return p.dirty }

// Matches compares the values of two properties.
func (p Property) Matches(o Property) bool {
	if pc, ok := p.value.(Context); ok {
		oc, ok := o.value.(Context)
		return ok && pc.Matches(oc)
	}
	return p.value == o.value
}

// String renders the value in its persisted form.
func (p Property) String() string {
	return formatValue(p.value)
}

func (p Property) isQualified() bool {
	return strings.HasPrefix(p.def.name, "q")
}

// isDefining reports whether the property determines where the breakpoint
// is planted. A change to one of these requires the engine to plant anew.
func (p Property) isDefining() bool {
	switch p.def.name {
	case PropContext, PropWhileIn, PropQWhileIn, PropCondition, PropQCondition,
		PropLWP, PropThread, PropCount, PropTemp, PropCountLimit, PropEnabled,
		PropID, PropAdjusted:
		return false
	}
	return true
}

func formatValue(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case int:
		return strconv.Itoa(x)
	case bool:
		return strconv.FormatBool(x)
	case Context:
		return x.String()
	case nil:
		return ""
	default:
		return fmt.Sprint(x)
	}
}

func parseValue(t valueType, s string) (any, error) {
	switch t {
	case typeInt:
		n, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil {
			return nil, err
		}
		return n, nil
	case typeBool:
		b, err := strconv.ParseBool(strings.TrimSpace(s))
		if err != nil {
			return nil, err
		}
		return b, nil
	case typeContext:
		return ParseContext(s), nil
	default:
		return s, nil
	}
}

// coerceValue converts v to the type of t. Strings typed into a table cell
// are parsed.
func coerceValue(t valueType, v any) (any, bool) {
	if s, ok := v.(string); ok && t != typeString {
		parsed, err := parseValue(t, s)
		return parsed, err == nil
	}
	switch t {
	case typeInt:
		n, ok := v.(int)
		return n, ok
	case typeBool:
		b, ok := v.(bool)
		return b, ok
	case typeContext:
		c, ok := v.(Context)
		return c, ok
	default:
		if s, ok := v.(string); ok {
			return s, true
		}
		return nil, false
	}
}
