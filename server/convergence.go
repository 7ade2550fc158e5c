package server

import (
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// renderConvergence writes a line chart of the per-iteration residuals.
func renderConvergence(w io.Writer, residuals []float64) error {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title:    "convergence",
			Subtitle: "max utility change per iteration",
		}),
		charts.WithInitializationOpts(opts.Initialization{
			Theme: "shine",
		}),
	)

	iterations := make([]string, 0, len(residuals))
	items := make([]opts.LineData, 0, len(residuals))
	for i, r := range residuals {
		iterations = append(iterations, fmt.Sprintf("%d", i+1))
		items = append(items, opts.LineData{Value: r})
	}
	line.SetXAxis(iterations).AddSeries("residual", items)

	page := components.NewPage()
	page.AddCharts(line)
	return page.Render(w)
}
