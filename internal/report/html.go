package report

import (
	"fmt"
	"io"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// WriteHTML renders a page with one grouped bar chart per stat: problem sizes
// on the x axis, one bar series per class. A class with no data at a size
// shows an empty bar.
func WriteHTML(w io.Writer, title, unit string, series []Series) error {
	sizes := Sizes(series)
	x := make([]string, len(sizes))
	for i, size := range sizes {
		x[i] = strconv.Itoa(size)
	}

	page := components.NewPage()
	page.PageTitle = title
	for _, st := range []Stat{StatPeak, StatMean} {
		bar := charts.NewBar()
		bar.SetGlobalOptions(
			charts.WithInitializationOpts(opts.Initialization{PageTitle: title, Width: "100%", Height: "480px"}),
			charts.WithTitleOpts(opts.Title{Title: fmt.Sprintf("%s %s rate", title, st), Subtitle: unit}),
			charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
			charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Top: "bottom"}),
			charts.WithXAxisOpts(opts.XAxis{Name: "size", NameLocation: "middle", NameGap: 25}),
			charts.WithYAxisOpts(opts.YAxis{Name: unit}),
		)
		bar.SetXAxis(x)
		for _, s := range series {
			bar.AddSeries(s.Class, barData(sizes, s, st))
		}
		page.AddCharts(bar)
	}
	return page.Render(w)
}

func barData(sizes []int, s Series, st Stat) []opts.BarData {
	bySize := make(map[int]Point, len(s.Points))
	for _, p := range s.Points {
		bySize[p.Size] = p
	}
	out := make([]opts.BarData, len(sizes))
	for i, size := range sizes {
		p, ok := bySize[size]
		if !ok {
			out[i] = opts.BarData{Value: "-"}
			continue
		}
		out[i] = opts.BarData{Value: st.value(p), Name: fmt.Sprintf("%d configs", p.Configs)}
	}
	return out
}
