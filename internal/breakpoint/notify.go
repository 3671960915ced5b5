package breakpoint

import (
	"context"

	"github.com/dshills/nativedbg/internal/event"
)

// Update asks the views to pull b again: its node (icon, summary, children)
// and every column. Editable copies never notify.
func (b *Breakpoint) Update() {
	if b.IsEditable() {
		return
	}
	u := b.updater()
	if u == nil {
		return
	}
	u.NodeChanged(b)
	for _, p := range b.Properties() {
		switch p.def.name {
		case PropEnabled, PropLWP, PropTemp:
			continue
		}
		if p.def.key != "" {
			u.TableValueChanged(b, p.def.key)
		}
	}
}

// UpdateAndParent updates b and its ancestors, then asks for the whole
// tree under the root so that collapsed rows are recomputed.
func (b *Breakpoint) UpdateAndParent() {
	if b.IsEditable() {
		return
	}
	b.Update()
	if p := b.Parent(); p != nil {
		p.UpdateAndParent()
		return
	}
	if u := b.updater(); u != nil {
		u.TreeChanged(b)
	}
}

// BusUpdater publishes refresh notifications on an event bus. Delivery is
// asynchronous; the bus worker plays the role of the UI thread.
type BusUpdater struct {
	Bus *event.Bus
}

// NodeChanged implements Updater.
func (u BusUpdater) NodeChanged(b *Breakpoint) {
	_ = u.Bus.Publish(context.Background(), event.NodeChanged{Node: b})
}

// TableValueChanged implements Updater.
func (u BusUpdater) TableValueChanged(b *Breakpoint, key string) {
	_ = u.Bus.Publish(context.Background(), event.TableValueChanged{Node: b, Column: key})
}

// TreeChanged implements Updater.
func (u BusUpdater) TreeChanged(root *Breakpoint) {
	var node any
	if root != nil {
		node = root
	}
	_ = u.Bus.Publish(context.Background(), event.TreeChanged{Root: node})
}
