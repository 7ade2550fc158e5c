package cell_views

import (
	"fmt"
	"html/template"
	"math"

	"gridmdp/server/fastview"

	channerics "github.com/niceyeti/channerics/channels"
)

// ValueFunction shades each cell by where its utility lies between the
// board's minimum and maximum, as a coarse picture of the value function.
type ValueFunction struct {
	id      string
	updates <-chan []fastview.EleUpdate
}

func NewValueFunction(
	done <-chan struct{},
	boards <-chan Board,
) (vf *ValueFunction) {
	vf = &ValueFunction{id: "valuefunction"}
	vf.updates = channerics.Convert(done, boards, vf.onUpdate)
	return
}

func (vf *ValueFunction) Updates() <-chan []fastview.EleUpdate {
	return vf.updates
}

const heatCellDim = 40

func (vf *ValueFunction) onUpdate(board Board) (ops []fastview.EleUpdate) {
	for _, col := range board.Cells {
		for _, cell := range col {
			if cell.Empty {
				continue
			}
			ops = append(ops, fastview.EleUpdate{
				EleId: heatRectId(cell),
				Ops: []fastview.Op{
					{Key: "fill", Value: getRGBFill(cell.Utility, board.MinUtility, board.MaxUtility)},
				},
			})
		}
	}
	return
}

func heatRectId(cell Cell) string {
	return fmt.Sprintf("%d-%d-heat-rect", cell.X, cell.Y)
}

// getRGBFill returns a blue-to-red fill by val's relative position in [minVal, maxVal].
// A flat board is drawn at the midpoint.
func getRGBFill(val, minVal, maxVal float64) string {
	pct := 0.5
	if span := maxVal - minVal; span > 0 && !math.IsInf(span, 0) {
		pct = (val - minVal) / span
	}
	redPct := int(math.Round(100 * math.Max(0, math.Min(1, pct))))
	return fmt.Sprintf("rgb(%d%%,0%%,%d%%)", redPct, 100-redPct)
}

func (vf *ValueFunction) Parse(
	t *template.Template,
) (name string, err error) {
	name = vf.id
	_, err = t.Funcs(template.FuncMap{
		"heatFill": getRGBFill,
	}).Parse(
		`{{ define "` + name + `" }}
		<div style="padding:10px;">
			{{ $board := . }}
			{{ $cell_dim := ` + fmt.Sprintf("%d", heatCellDim) + ` }}
			{{ $width := mult $cell_dim (len .Cells) }}
			{{ $height := mult $cell_dim (len (index .Cells 0)) }}
			<svg id="` + vf.id + `" xmlns='http://www.w3.org/2000/svg'
				width="{{ add $width 1 }}px"
				height="{{ add $height 1 }}px"
				style="shape-rendering: crispEdges; stroke: lightgrey; stroke-width: 1;">
				{{ range $col := .Cells }}
					{{ range $cell := $col }}
					<rect id="{{$cell.X}}-{{$cell.Y}}-heat-rect"
						x="{{ mult $cell.X $cell_dim }}"
						y="{{ mult $cell.Y $cell_dim }}"
						width="{{ $cell_dim }}"
						height="{{ $cell_dim }}"
						{{ if $cell.Empty }}
						fill="{{ $cell.Fill }}"
						{{ else }}
						fill="{{ heatFill $cell.Utility $board.MinUtility $board.MaxUtility }}"
						{{ end }}
						/>
					{{ end }}
				{{ end }}
			</svg>
		</div>
		{{ end }}`)
	return
}
