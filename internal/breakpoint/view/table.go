package view

import (
	"fmt"

	"github.com/dshills/nativedbg/internal/breakpoint"
)

// breakpointOf classifies node and returns its breakpoint, or nil for an
// OtherNode.
func breakpointOf(node any) (*breakpoint.Breakpoint, error) {
	n, err := nodeOf(node)
	if err != nil {
		return nil, err
	}
	if bn, ok := n.(BreakpointNode); ok {
		return bn.Breakpoint, nil
	}
	return nil, nil
}

// ValueAt returns the cell of node in column. Unknown columns and rows that
// are not breakpoints have no value. The context column is rendered as
// "[pid] basename".
func (f *Filter) ValueAt(node any, column string) (any, error) {
	b, err := breakpointOf(node)
	if err != nil || b == nil {
		return nil, err
	}
	p, ok := b.PropertyByKey(column)
	if !ok {
		return nil, nil
	}
	if p.Name() == breakpoint.PropContext {
		return b.EmbellishedContext(p.String()), nil
	}
	return p.Value(), nil
}

// IsReadOnly reports whether the cell of node in column cannot be edited.
// The enable column is edited through the check box only.
func (f *Filter) IsReadOnly(node any, column string) (bool, error) {
	b, err := breakpointOf(node)
	if err != nil {
		return true, err
	}
	if b == nil || column == breakpoint.KeyEnable {
		return true, nil
	}
	p, ok := b.PropertyByKey(column)
	if !ok {
		return true, nil
	}
	return p.IsReadOnly(), nil
}

// SetValueAt edits the cell of node in column. The edit is applied to an
// editable copy and posted as a primary change, so the row changes only
// once the engine confirms. Writing the enable column is a protocol
// violation.
func (f *Filter) SetValueAt(node any, column string, value any) error {
	b, err := breakpointOf(node)
	if err != nil {
		return err
	}
	if column == breakpoint.KeyEnable {
		panic(breakpoint.Violation("SetValueAt: the %q column is changed through the check box", column))
	}
	if b == nil {
		return ErrReadOnly
	}
	p, ok := b.PropertyByKey(column)
	if !ok || p.IsReadOnly() {
		return fmt.Errorf("%w: %s", ErrReadOnly, column)
	}
	edited := b.MakeEditableCopy()
	if err := edited.SetProperty(p.Name(), value); err != nil {
		return err
	}
	b.PostChange(edited, breakpoint.Primary(b))
	return nil
}

// IsSelected returns the check box state of node: the enable property, or
// nil when it is not a boolean.
func (f *Filter) IsSelected(node any) (*bool, error) {
	b, err := breakpointOf(node)
	if err != nil || b == nil {
		return nil, err
	}
	p, ok := b.PropertyByKey(breakpoint.KeyEnable)
	if !ok {
		return nil, nil
	}
	v, ok := p.Value().(bool)
	if !ok {
		return nil, nil
	}
	return &v, nil
}

// SetSelected requests enabling or disabling node.
func (f *Filter) SetSelected(node any, selected bool) error {
	b, err := breakpointOf(node)
	if err != nil {
		return err
	}
	if b == nil {
		return ErrReadOnly
	}
	b.SetPropEnabled(selected)
	return nil
}

// DisplayName returns the name column of node.
func (f *Filter) DisplayName(node any) (string, error) {
	n, err := nodeOf(node)
	if err != nil {
		return "", err
	}
	switch n := n.(type) {
	case BreakpointNode:
		return n.DisplayName(), nil
	case OtherNode:
		return fmt.Sprint(n.Value), nil
	}
	return "", nil
}

// ShortDescription returns the flyover text of node.
func (f *Filter) ShortDescription(node any) (string, error) {
	n, err := nodeOf(node)
	if err != nil {
		return "", err
	}
	switch n := n.(type) {
	case BreakpointNode:
		return n.ShortDescription(), nil
	case OtherNode:
		return fmt.Sprint(n.Value), nil
	}
	return "", nil
}

// IconBase returns the icon name of node, or "" for other rows.
func (f *Filter) IconBase(node any) (string, error) {
	b, err := breakpointOf(node)
	if err != nil || b == nil {
		return "", err
	}
	return b.IconBase(), nil
}

// Rendition returns how the row of node is drawn.
func (f *Filter) Rendition(node any) (breakpoint.Rendition, error) {
	b, err := breakpointOf(node)
	if err != nil || b == nil {
		return breakpoint.RenditionPlain, err
	}
	return b.Rendition(), nil
}
