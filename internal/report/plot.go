package report

import (
	"fmt"
	"image/color"
	"io"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// Stat selects which per-size value a chart shows.
type Stat string

const (
	StatMean Stat = "mean"
	StatPeak Stat = "peak"
)

func (s Stat) value(p Point) float64 {
	if s == StatPeak {
		return p.Peak
	}
	return p.Mean
}

// PlotOptions labels a rate plot.
type PlotOptions struct {
	Title string
	Unit  string
	Stat  Stat
}

// WritePNG renders one line per series, rate against log2 of the problem
// size, and writes the PNG to w. Series without points are left out of the
// legend.
func WritePNG(w io.Writer, series []Series, o PlotOptions) error {
	p := plot.New()
	p.Title.Text = o.Title
	p.X.Label.Text = "log2(size)"
	p.Y.Label.Text = fmt.Sprintf("%s rate (%s)", o.Stat, o.Unit)
	p.Y.Min = 0

	colors := generateColors(len(series))
	for i, s := range series {
		if len(s.Points) == 0 {
			continue
		}
		pts := make(plotter.XYs, len(s.Points))
		for j, pt := range s.Points {
			pts[j] = plotter.XY{X: log2(pt.Size), Y: o.Stat.value(pt)}
		}
		line, points, err := plotter.NewLinePoints(pts)
		if err != nil {
			return fmt.Errorf("series %s: %w", s.Class, err)
		}
		line.Color = colors[i]
		line.Width = vg.Points(1.5)
		points.Color = colors[i]
		p.Add(line, points)
		p.Legend.Add(s.Class, line, points)
	}

	p.Legend.Top = true
	p.Legend.Left = true
	p.Legend.XOffs = 10
	p.Legend.YOffs = -10

	wt, err := p.WriterTo(10*vg.Inch, 6*vg.Inch, "png")
	if err != nil {
		return fmt.Errorf("render %s plot: %w", o.Stat, err)
	}
	_, err = wt.WriteTo(w)
	return err
}

// generateColors creates a palette of distinct colors for series lines.
func generateColors(n int) []color.Color {
	if n <= 0 {
		return nil
	}
	colors := make([]color.Color, n)
	for i := 0; i < n; i++ {
		hue := float64(i) / float64(n)
		r, g, b := hslToRGB(hue, 0.7, 0.45)
		colors[i] = color.RGBA{R: r, G: g, B: b, A: 255}
	}
	return colors
}

// hslToRGB converts HSL to RGB (0-255 range).
func hslToRGB(h, s, l float64) (r, g, b uint8) {
	var rf, gf, bf float64
	if s == 0 {
		rf, gf, bf = l, l, l
	} else {
		var q float64
		if l < 0.5 {
			q = l * (1 + s)
		} else {
			q = l + s - l*s
		}
		p := 2*l - q
		rf = hueToRGB(p, q, h+1.0/3.0)
		gf = hueToRGB(p, q, h)
		bf = hueToRGB(p, q, h-1.0/3.0)
	}
	return uint8(rf * 255), uint8(gf * 255), uint8(bf * 255)
}

func hueToRGB(p, q, t float64) float64 {
	if t < 0 {
		t++
	}
	if t > 1 {
		t--
	}
	switch {
	case t < 1.0/6.0:
		return p + (q-p)*6*t
	case t < 1.0/2.0:
		return q
	case t < 2.0/3.0:
		return p + (q-p)*(2.0/3.0-t)*6
	}
	return p
}
