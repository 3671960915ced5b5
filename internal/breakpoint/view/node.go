package view

import (
	"errors"
	"fmt"

	"github.com/dshills/nativedbg/internal/breakpoint"
)

// Sentinel errors for the view package.
var (
	// ErrUnknownType is returned for a node that is neither a breakpoint nor
	// an OtherNode.
	ErrUnknownType = errors.New("unknown view node type")

	// ErrReadOnly is returned when writing a column that cannot be written.
	ErrReadOnly = errors.New("read-only cell")
)

// Node is a row of the view.
type Node interface {
	node()
}

// BreakpointNode is a row showing a breakpoint.
type BreakpointNode struct {
	*breakpoint.Breakpoint
}

func (BreakpointNode) node() {}

// OtherNode is a row supplied by the surrounding model, such as a group
// separator. It has no children and no editable cells.
type OtherNode struct {
	Value any
}

func (OtherNode) node() {}

// nodeOf classifies an untyped view value.
func nodeOf(v any) (Node, error) {
	switch n := v.(type) {
	case BreakpointNode:
		if n.Breakpoint == nil {
			return nil, fmt.Errorf("%w: empty breakpoint node", ErrUnknownType)
		}
		return n, nil
	case *breakpoint.Breakpoint:
		if n == nil {
			return nil, fmt.Errorf("%w: nil breakpoint", ErrUnknownType)
		}
		return BreakpointNode{n}, nil
	case OtherNode:
		return n, nil
	case *OtherNode:
		if n == nil {
			return nil, fmt.Errorf("%w: nil node", ErrUnknownType)
		}
		return *n, nil
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnknownType, v)
	}
}

func wrap(bs []*breakpoint.Breakpoint) []Node {
	out := make([]Node, len(bs))
	for i, b := range bs {
		out[i] = BreakpointNode{b}
	}
	return out
}
