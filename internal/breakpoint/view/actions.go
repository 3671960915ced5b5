package view

import (
	"errors"

	"github.com/dshills/nativedbg/internal/breakpoint"
)

// ActionID names a row or global action.
type ActionID string

// Row actions.
const (
	ActionEnable     ActionID = "enable"
	ActionDisable    ActionID = "disable"
	ActionCustomize  ActionID = "customize"
	ActionDelete     ActionID = "delete"
	ActionGoToSource ActionID = "goToSource"
)

// Global actions.
const (
	ActionEnableAll              ActionID = "enableAll"
	ActionDisableAll             ActionID = "disableAll"
	ActionDeleteAll              ActionID = "deleteAll"
	ActionToggleSessionOnly      ActionID = "toggleSessionOnly"
	ActionToggleSkipSingleParent ActionID = "toggleSkipSingleParent"
	ActionToggleGhostBuster      ActionID = "toggleGhostBuster"
)

// ErrActionDisabled is returned when performing a disabled action.
var ErrActionDisabled = errors.New("action disabled")

// Action is a menu entry.
type Action struct {
	ID      ActionID
	Label   string
	Enabled bool
	// Checked is set for toggles that are on.
	Checked bool
	do      func() error
}

// Perform runs the action.
func (a Action) Perform() error {
	if !a.Enabled || a.do == nil {
		return ErrActionDisabled
	}
	return a.do()
}

// Find returns the action with id from actions.
func Find(actions []Action, id ActionID) (Action, bool) {
	for _, a := range actions {
		if a.ID == id {
			return a, true
		}
	}
	return Action{}, false
}

// Actions returns the context menu of node. Rows that are not breakpoints
// have none.
func (f *Filter) Actions(node any) ([]Action, error) {
	b, err := breakpointOf(node)
	if err != nil || b == nil {
		return nil, err
	}
	enabled := b.IsEnabled()
	actions := []Action{
		{
			ID: ActionEnable, Label: "Enable", Enabled: !enabled,
			do: func() error { b.SetPropEnabled(true); return nil },
		},
		{
			ID: ActionDisable, Label: "Disable", Enabled: enabled,
			do: func() error { b.SetPropEnabled(false); return nil },
		},
		{
			ID: ActionCustomize, Label: "Customize", Enabled: f.customize != nil,
			do: func() error { f.customize(b.MakeEditableCopy()); return nil },
		},
		{
			ID: ActionDelete, Label: "Delete", Enabled: true,
			do: func() error { b.PostDelete(false, breakpoint.Primary(b)); return nil },
		},
	}
	file, line, ok := sourceOf(b)
	actions = append(actions, Action{
		ID: ActionGoToSource, Label: "Go to Source", Enabled: ok && f.navigate != nil,
		do: func() error { return f.navigate(file, line) },
	})
	return actions, nil
}

// sourceOf returns the first annotated source location of b, falling back
// to the location of a line breakpoint.
func sourceOf(b *breakpoint.Breakpoint) (string, int, bool) {
	for _, a := range b.Annotations() {
		if a.File != "" && a.Line > 0 {
			return a.File, a.Line, true
		}
	}
	if b.Kind() != breakpoint.KindLine {
		return "", 0, false
	}
	file, _ := b.Value(breakpoint.PropFile).(string)
	line, _ := b.Value(breakpoint.PropLine).(int)
	return file, line, file != "" && line > 0
}

// GlobalActions returns the actions of the view itself. Preference toggles
// are offered when the context is a Toggler.
func (f *Filter) GlobalActions() []Action {
	actions := []Action{
		{
			ID: ActionEnableAll, Label: "Enable All", Enabled: f.bag.AnyDisabled(),
			do: func() error { f.bag.PostEnableAllHandlers(true); return nil },
		},
		{
			ID: ActionDisableAll, Label: "Disable All", Enabled: f.bag.AnyEnabled(),
			do: func() error { f.bag.PostEnableAllHandlers(false); return nil },
		},
		{
			ID: ActionDeleteAll, Label: "Delete All", Enabled: f.bag.Len() > 0,
			do: func() error { f.bag.PostDeleteAllHandlers(); return nil },
		},
	}
	t, ok := f.ctx.(Toggler)
	if !ok {
		return actions
	}
	return append(actions,
		Action{
			ID: ActionToggleSessionOnly, Label: "Show Current Session Only",
			Enabled: true, Checked: f.ctx.SessionOnly(),
			do: func() error { t.ToggleSessionOnly(); return nil },
		},
		Action{
			ID: ActionToggleSkipSingleParent, Label: "Collapse Single Instances",
			Enabled: true, Checked: f.ctx.SkipSingleParent(),
			do: func() error { t.ToggleSkipSingleParent(); return nil },
		},
		Action{
			ID: ActionToggleGhostBuster, Label: "Discard Redundant Ghosts",
			Enabled: true, Checked: t.GhostBuster(),
			do: func() error { t.ToggleGhostBuster(); return nil },
		},
	)
}
