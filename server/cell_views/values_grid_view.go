package cell_views

import (
	"fmt"
	"html/template"
	"math"

	"gridmdp/server/fastview"

	channerics "github.com/niceyeti/channerics/channels"
)

// ValuesGrid is an svg table of cells, each showing its utility and policy glyph.
type ValuesGrid struct {
	id      string
	updates <-chan []fastview.EleUpdate
}

func NewValuesGrid(
	done <-chan struct{},
	boards <-chan Board,
) (vg *ValuesGrid) {
	vg = &ValuesGrid{id: "valuesgrid"}
	vg.updates = channerics.Convert(done, boards, vg.onUpdate)
	return
}

func (vg *ValuesGrid) Updates() <-chan []fastview.EleUpdate {
	return vg.updates
}

// Returns the set of view updates needed for the view to reflect current values.
// Empty cells never change and are skipped.
func (vg *ValuesGrid) onUpdate(board Board) (ops []fastview.EleUpdate) {
	for _, col := range board.Cells {
		for _, cell := range col {
			if cell.Empty {
				continue
			}
			ops = append(ops,
				fastview.EleUpdate{
					EleId: valueTextId(cell),
					Ops: []fastview.Op{
						{Key: fastview.TextContent, Value: formatValue(cell.Utility)},
					},
				},
				fastview.EleUpdate{
					EleId: policyTextId(cell),
					Ops: []fastview.Op{
						{Key: fastview.TextContent, Value: cell.Glyph},
					},
				})
		}
	}
	return
}

func valueTextId(cell Cell) string {
	return fmt.Sprintf("%d-%d-value-text", cell.X, cell.Y)
}

func policyTextId(cell Cell) string {
	return fmt.Sprintf("%d-%d-policy-text", cell.X, cell.Y)
}

func formatValue(v float64) string {
	return fmt.Sprintf("%.2f", v)
}

// Parse defines the grid's template, which expects a Board.
func (vg *ValuesGrid) Parse(
	t *template.Template,
) (name string, err error) {
	name = vg.id
	_, err = t.Funcs(template.FuncMap{
		"formatValue": formatValue,
	}).Parse(
		`{{ define "` + name + `" }}
		<div id="state_values">
			{{ $x_cells := len .Cells }}
			{{ $y_cells := len (index .Cells 0) }}
			{{ $cell_width := 100 }}
			{{ $cell_height := $cell_width }}
			{{ $width := mult $cell_width $x_cells }}
			{{ $height := mult $cell_height $y_cells }}
			{{ $half_height := div $cell_height 2 }}
			{{ $half_width := div $cell_width 2 }}
			<svg id="` + vg.id + `"
				width="{{ add $width 1 }}px"
				height="{{ add $height 1 }}px"
				style="shape-rendering: crispEdges;">
				{{ range $col := .Cells }}
					{{ range $cell := $col }}
					<g>
						<rect
							x="{{ mult $cell.X $cell_width }}"
							y="{{ mult $cell.Y $cell_height }}"
							width="{{ $cell_width }}"
							height="{{ $cell_height }}"
							fill="{{ $cell.Fill }}"
							stroke="black"
							stroke-width="1"/>
						{{ if not $cell.Empty }}
						<text id="{{$cell.X}}-{{$cell.Y}}-value-text"
							x="{{ add (mult $cell.X $cell_width) $half_width }}"
							y="{{ add (mult $cell.Y $cell_height) (sub $half_height 10) }}"
							stroke="blue"
							dominant-baseline="text-top" text-anchor="middle"
							>{{ formatValue $cell.Utility }}</text>
						<text id="{{$cell.X}}-{{$cell.Y}}-policy-text"
							x="{{ add (mult $cell.X $cell_width) $half_width }}"
							y="{{ add (mult $cell.Y $cell_height) (add $half_height 20) }}"
							stroke="blue" stroke-width="1"
							dominant-baseline="central" text-anchor="middle"
							>{{ $cell.Glyph }}</text>
						{{ end }}
					</g>
					{{ end }}
				{{ end }}
			</svg>
		</div>
		{{ end }}`)
	return
}

// Status shows the iteration count, the last residual and the solver state.
type Status struct {
	id      string
	updates <-chan []fastview.EleUpdate
}

func NewStatus(
	done <-chan struct{},
	boards <-chan Board,
) (st *Status) {
	st = &Status{id: "status"}
	st.updates = channerics.Convert(done, boards, st.onUpdate)
	return
}

func (st *Status) Updates() <-chan []fastview.EleUpdate {
	return st.updates
}

func (st *Status) onUpdate(board Board) []fastview.EleUpdate {
	text := func(id, value string) fastview.EleUpdate {
		return fastview.EleUpdate{
			EleId: st.id + "-" + id,
			Ops:   []fastview.Op{{Key: fastview.TextContent, Value: value}},
		}
	}
	return []fastview.EleUpdate{
		text("iteration", fmt.Sprintf("%d", board.Iteration)),
		text("residual", formatResidual(board.Residual)),
		text("state", board.State),
	}
}

// formatResidual renders the residual before the first sweep as a dash.
func formatResidual(r float64) string {
	if math.IsInf(r, 0) {
		return "-"
	}
	return fmt.Sprintf("%.6f", r)
}

func (st *Status) Parse(
	t *template.Template,
) (name string, err error) {
	name = st.id
	_, err = t.Funcs(template.FuncMap{
		"formatResidual": formatResidual,
	}).Parse(
		`{{ define "` + name + `" }}
		<div id="` + st.id + `" style="font-family: monospace; padding: 10px;">
			iteration: <span id="` + st.id + `-iteration">{{ .Iteration }}</span>
			residual: <span id="` + st.id + `-residual">{{ formatResidual .Residual }}</span>
			state: <span id="` + st.id + `-state">{{ .State }}</span>
			<a href="/convergence">convergence</a>
		</div>
		{{ end }}`)
	return
}
