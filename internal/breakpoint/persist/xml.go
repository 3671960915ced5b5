// Package persist saves and restores breakpoint trees as XML.
//
// A document holds toplevel breakpoints with their midlevel and
// sub-breakpoint children nested inside them:
//
//	<breakpoints version="1">
//	  <breakpoint kind="line" level="toplevel" timestamp="1700000000000">
//	    <property name="fileName" value="/src/main.c"/>
//	    <property name="lineNumber" value="12"/>
//	    <annotation file="/src/main.c" line="12" addr="0x401000"/>
//	    <breakpoint kind="line" level="midlevel" timestamp="...">...</breakpoint>
//	  </breakpoint>
//	</breakpoints>
//
// Decoding degrades gracefully: malformed timestamps become the epoch,
// annotations with bad numbers are dropped, and records that cannot be
// decoded are skipped. Each case is logged as a warning.
package persist

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"time"

	"github.com/dshills/nativedbg/internal/breakpoint"
	"github.com/dshills/nativedbg/internal/logging"
)

const currentVersion = 1

var (
	// ErrUnsupportedVersion is returned for documents newer than this codec.
	ErrUnsupportedVersion = errors.New("unsupported breakpoints version")

	// ErrNotBreakpoints is returned when the root element is not <breakpoints>.
	ErrNotBreakpoints = errors.New("not a breakpoints document")
)

// volatile properties describe engine state and are not saved.
var volatile = map[string]bool{
	breakpoint.PropID:    true,
	breakpoint.PropCount: true,
}

type xmlProperty struct {
	Name  string `xml:"name,attr"`
	Value string `xml:"value,attr"`
}

type xmlAnnotation struct {
	File string `xml:"file,attr,omitempty"`
	Line string `xml:"line,attr,omitempty"`
	Addr string `xml:"addr,attr,omitempty"`
}

type xmlBreakpoint struct {
	XMLName     xml.Name        `xml:"breakpoint"`
	Kind        string          `xml:"kind,attr"`
	Level       string          `xml:"level,attr"`
	Timestamp   string          `xml:"timestamp,attr"`
	Properties  []xmlProperty   `xml:"property"`
	Annotations []xmlAnnotation `xml:"annotation"`
	Children    []xmlBreakpoint `xml:"breakpoint"`
}

// Decoder restores breakpoint trees.
type Decoder struct {
	log *logging.Logger
}

// NewDecoder returns a decoder reporting malformed records to log. A nil
// log discards the warnings.
func NewDecoder(log *logging.Logger) *Decoder {
	if log == nil {
		log = logging.Discard()
	}
	return &Decoder{log: log.WithComponent("persist")}
}

// Decode reads a document from r and returns its toplevel breakpoints, ready
// for Bag.Restore. Malformed records are logged and skipped; only an
// unreadable document is an error.
func (d *Decoder) Decode(r io.Reader) ([]*breakpoint.Breakpoint, error) {
	dec := xml.NewDecoder(r)

	root, err := nextStart(dec)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read breakpoints: %w", err)
	}
	if root.Name.Local != "breakpoints" {
		return nil, fmt.Errorf("%w: root element <%s>", ErrNotBreakpoints, root.Name.Local)
	}
	if v := attr(root, "version"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n > currentVersion {
			return nil, fmt.Errorf("%w: %q (max supported: %d)", ErrUnsupportedVersion, v, currentVersion)
		}
	}

	var out []*breakpoint.Breakpoint
	for {
		tok, err := dec.Token()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return out, nil
			}
			return out, fmt.Errorf("failed to read breakpoints: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local != "breakpoint" {
				d.log.Warn("skipping unexpected element <%s>", t.Name.Local)
				if err := dec.Skip(); err != nil {
					return out, fmt.Errorf("failed to read breakpoints: %w", err)
				}
				continue
			}
			var rec xmlBreakpoint
			if err := dec.DecodeElement(&rec, &t); err != nil {
				return out, fmt.Errorf("failed to read breakpoint: %w", err)
			}
			if b := d.build(rec, breakpoint.Toplevel, 1); b != nil {
				out = append(out, b)
			}
		case xml.EndElement:
			return out, nil
		}
	}
}

func nextStart(dec *xml.Decoder) (xml.StartElement, error) {
	for {
		tok, err := dec.Token()
		if err != nil {
			return xml.StartElement{}, err
		}
		if se, ok := tok.(xml.StartElement); ok {
			return se, nil
		}
	}
}

func attr(se xml.StartElement, name string) string {
	for _, a := range se.Attr {
		if a.Name.Local == name {
			return a.Value
		}
	}
	return ""
}

// build turns rec into a node at level. It returns nil when rec cannot be
// decoded; the caller drops it and moves on to the next record.
func (d *Decoder) build(rec xmlBreakpoint, level breakpoint.Level, index int) *breakpoint.Breakpoint {
	log := d.log.WithField("record", index).WithField("level", level)

	kind, ok := breakpoint.ParseKind(rec.Kind)
	if !ok {
		log.Warn("skipping breakpoint of unknown kind %q", rec.Kind)
		return nil
	}
	if rec.Level != "" && rec.Level != level.String() {
		log.Warn("skipping %s breakpoint found at %s depth", rec.Level, level)
		return nil
	}

	b := breakpoint.NewRestored(kind, level)
	attrs := make(map[string]string, len(rec.Properties))
	for _, p := range rec.Properties {
		attrs[p.Name] = p.Value
	}
	if err := b.SetAttrs(attrs); err != nil {
		log.Warn("ignoring properties: %v", err)
	}
	b.RestoreTimestamp(d.timestamp(log, rec.Timestamp))

	for _, a := range rec.Annotations {
		line, addr, err := parseAnnotation(a)
		if err != nil {
			log.Warn("skipping annotation %s: %v", a.File, err)
			continue
		}
		b.AddAnnotation(a.File, line, addr)
	}

	if level == breakpoint.SubBreakpoint {
		if len(rec.Children) > 0 {
			log.Warn("ignoring %d children of a sub-breakpoint", len(rec.Children))
		}
		return b
	}
	for i, c := range rec.Children {
		if child := d.build(c, level+1, i+1); child != nil {
			b.RestoringChild(child)
		}
	}
	return b
}

func (d *Decoder) timestamp(log *logging.Logger, s string) time.Time {
	if s == "" {
		return time.Unix(0, 0)
	}
	ms, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		log.Warn("bad timestamp %q, using epoch", s)
		return time.Unix(0, 0)
	}
	return time.UnixMilli(ms)
}

func parseAnnotation(a xmlAnnotation) (int, uint64, error) {
	var line int
	var addr uint64
	var err error
	if a.Line != "" {
		if line, err = strconv.Atoi(a.Line); err != nil || line < 0 {
			return 0, 0, fmt.Errorf("bad line %q", a.Line)
		}
	}
	if a.Addr != "" {
		if addr, err = strconv.ParseUint(a.Addr, 0, 64); err != nil {
			return 0, 0, fmt.Errorf("bad address %q", a.Addr)
		}
	}
	return line, addr, nil
}

// Decode restores breakpoints from r, discarding warnings.
func Decode(r io.Reader) ([]*breakpoint.Breakpoint, error) {
	return NewDecoder(nil).Decode(r)
}

// Encode writes bs, with their children, to w. Timestamps of changed
// breakpoints are refreshed first.
func Encode(w io.Writer, bs []*breakpoint.Breakpoint) error {
	doc := struct {
		XMLName     xml.Name        `xml:"breakpoints"`
		Version     int             `xml:"version,attr"`
		Breakpoints []xmlBreakpoint `xml:"breakpoint"`
	}{Version: currentVersion}
	for _, b := range bs {
		doc.Breakpoints = append(doc.Breakpoints, record(b))
	}

	if _, err := io.WriteString(w, xml.Header); err != nil {
		return fmt.Errorf("failed to write breakpoints: %w", err)
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("failed to encode breakpoints: %w", err)
	}
	if _, err := io.WriteString(w, "\n"); err != nil {
		return fmt.Errorf("failed to write breakpoints: %w", err)
	}
	return nil
}

func record(b *breakpoint.Breakpoint) xmlBreakpoint {
	b.PrepareForSaving()
	rec := xmlBreakpoint{
		Kind:      b.Kind().String(),
		Level:     b.Level().String(),
		Timestamp: strconv.FormatInt(b.Timestamp().UnixMilli(), 10),
	}

	attrs := b.Attrs()
	names := make([]string, 0, len(attrs))
	for name := range attrs {
		if !volatile[name] {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	for _, name := range names {
		rec.Properties = append(rec.Properties, xmlProperty{Name: name, Value: attrs[name]})
	}

	for _, a := range b.Annotations() {
		x := xmlAnnotation{File: a.File}
		if a.Line != 0 {
			x.Line = strconv.Itoa(a.Line)
		}
		if a.Addr != 0 {
			x.Addr = "0x" + strconv.FormatUint(a.Addr, 16)
		}
		rec.Annotations = append(rec.Annotations, x)
	}

	for _, c := range b.Children() {
		rec.Children = append(rec.Children, record(c))
	}
	return rec
}
