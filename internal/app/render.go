package app

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/gosuri/uitable"

	"github.com/dshills/nativedbg/internal/breakpoint"
	"github.com/dshills/nativedbg/internal/breakpoint/view"
)

// Row is one line of a rendered breakpoint view.
type Row struct {
	Depth       int
	Name        string
	Enabled     bool
	Context     string
	Count       string
	Icon        string
	Description string
	Rendition   breakpoint.Rendition
}

// Rows walks f depth first. Children are fetched on the view query workers,
// names and cells on the caller.
func (app *Application) Rows(ctx context.Context, f *view.Filter) ([]Row, error) {
	if err := app.manager.Sync(ctx); err != nil {
		return nil, err
	}
	return app.walk(ctx, f, nil, 0)
}

func (app *Application) walk(ctx context.Context, f *view.Filter, parent any, depth int) ([]Row, error) {
	var nodes []view.Node
	err := app.queries.Query(ctx, view.CallChildren, func(context.Context) error {
		var err error
		nodes, err = f.Children(parent, 0, -1)
		return err
	})
	if err != nil {
		return nil, err
	}

	var rows []Row
	for _, n := range nodes {
		row, err := rowOf(f, n, depth)
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
		children, err := app.walk(ctx, f, n, depth+1)
		if err != nil {
			return nil, err
		}
		rows = append(rows, children...)
	}
	return rows, nil
}

func rowOf(f *view.Filter, n view.Node, depth int) (Row, error) {
	row := Row{Depth: depth}
	var err error
	if row.Name, err = f.DisplayName(n); err != nil {
		return row, err
	}
	if row.Description, err = f.ShortDescription(n); err != nil {
		return row, err
	}
	if row.Icon, err = f.IconBase(n); err != nil {
		return row, err
	}
	if row.Rendition, err = f.Rendition(n); err != nil {
		return row, err
	}
	if v, _ := f.ValueAt(n, breakpoint.KeyEnable); v != nil {
		row.Enabled, _ = v.(bool)
	}
	if v, _ := f.ValueAt(n, breakpoint.PropContext); v != nil {
		row.Context = fmt.Sprint(v)
	}
	if v, _ := f.ValueAt(n, breakpoint.PropCount); v != nil && v != 0 {
		row.Count = fmt.Sprint(v)
	}
	return row, nil
}

var (
	currentColor = color.New(color.FgGreen, color.Bold)
	ghostColor   = color.New(color.Faint)
	brokenColor  = color.New(color.FgRed)
)

// WriteTable writes rows as an indented table. Colors follow color.NoColor.
func WriteTable(w io.Writer, rows []Row) error {
	tbl := uitable.New()
	tbl.Separator = "  "
	tbl.MaxColWidth = 60
	tbl.AddRow("", "BREAKPOINT", "CONTEXT", "COUNT", "DESCRIPTION")
	for _, r := range rows {
		mark := "[x]"
		if !r.Enabled {
			mark = "[ ]"
		}
		name := strings.Repeat("  ", r.Depth) + r.Name
		switch {
		case strings.Contains(r.Icon, "Broken"):
			name = brokenColor.Sprint(name)
		case r.Rendition == breakpoint.RenditionCurrent:
			name = currentColor.Sprint(name)
		case r.Rendition == breakpoint.RenditionGhost:
			name = ghostColor.Sprint(name)
		}
		tbl.AddRow(mark, name, r.Context, r.Count, r.Description)
	}
	_, err := fmt.Fprintln(w, tbl)
	return err
}
