package report

import (
	"bytes"
	"fmt"
	"image/color"
	"io"
	"math"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/banshee-data/gram/internal/sweep"
)

// echartsAssetsHost serves the echarts javascript for rendered pages.
const echartsAssetsHost = "https://go-echarts.github.io/go-echarts-assets/assets/"

func checkPair(st sweep.State, i, j int) error {
	if len(st.Parameters) == 0 {
		return ErrNoSamples
	}
	dim := len(st.Sampler.Low)
	if len(st.Sampler.High) != dim {
		return fmt.Errorf("report: malformed sampler bounds")
	}
	if i < 0 || j < 0 || i >= dim || j >= dim {
		return fmt.Errorf("report: parameter pair (%d, %d) out of range [0, %d)", i, j, dim)
	}
	for r, row := range st.Parameters {
		if len(row) != dim {
			return fmt.Errorf("report: sample %d has %d parameters, want %d", r, len(row), dim)
		}
	}
	return nil
}

// WritePNG renders a scatter plot of parameter i against parameter j in
// log10 space, with the sampling box outlined.
func WritePNG(w io.Writer, st sweep.State, i, j int) error {
	if err := checkPair(st, i, j); err != nil {
		return err
	}
	names := parameterNames(st, len(st.Sampler.Low))

	pts := make(plotter.XYs, len(st.Parameters))
	for r, row := range st.Parameters {
		pts[r].X = math.Log10(row[i])
		pts[r].Y = math.Log10(row[j])
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("%s: %s vs %s (N=%d)", st.Name, names[i], names[j], len(pts))
	p.X.Label.Text = "log10 " + names[i]
	p.Y.Label.Text = "log10 " + names[j]

	xl, xh := st.Sampler.Low[i], st.Sampler.High[i]
	yl, yh := st.Sampler.Low[j], st.Sampler.High[j]
	box, err := plotter.NewLine(plotter.XYs{{X: xl, Y: yl}, {X: xh, Y: yl}, {X: xh, Y: yh}, {X: xl, Y: yh}, {X: xl, Y: yl}})
	if err != nil {
		return fmt.Errorf("box outline: %w", err)
	}
	box.Width = vg.Points(1)
	box.Color = color.Gray{Y: 128}
	box.Dashes = []vg.Length{vg.Points(4), vg.Points(2)}

	scatter, err := plotter.NewScatter(pts)
	if err != nil {
		return fmt.Errorf("scatter: %w", err)
	}
	scatter.GlyphStyle.Shape = draw.CircleGlyph{}
	scatter.GlyphStyle.Radius = vg.Points(2)
	scatter.GlyphStyle.Color = color.RGBA{R: 49, G: 104, B: 142, A: 255}

	p.Add(box, scatter)

	wt, err := p.WriterTo(6*vg.Inch, 6*vg.Inch, "png")
	if err != nil {
		return fmt.Errorf("render png: %w", err)
	}
	_, err = wt.WriteTo(w)
	return err
}

// WriteHTML renders a go-echarts page with one scatter chart per adjacent
// parameter pair (0-1, 1-2, ...), each in log10 space.
func WriteHTML(w io.Writer, st sweep.State) error {
	dim := len(st.Sampler.Low)
	if dim < 2 {
		return fmt.Errorf("report: need at least two parameters, have %d", dim)
	}
	if err := checkPair(st, 0, 1); err != nil {
		return err
	}
	names := parameterNames(st, dim)

	page := components.NewPage()
	page.SetPageTitle(fmt.Sprintf("%s %s", st.Name, st.ID))
	page.SetAssetsHost(echartsAssetsHost)

	for i := 0; i+1 < dim; i++ {
		j := i + 1
		data := make([]opts.ScatterData, 0, len(st.Parameters))
		for _, row := range st.Parameters {
			data = append(data, opts.ScatterData{Value: []interface{}{math.Log10(row[i]), math.Log10(row[j])}})
		}

		scatter := charts.NewScatter()
		scatter.SetGlobalOptions(
			charts.WithInitializationOpts(opts.Initialization{Width: "600px", Height: "600px", AssetsHost: echartsAssetsHost}),
			charts.WithTitleOpts(opts.Title{Title: fmt.Sprintf("%s vs %s", names[i], names[j]), Subtitle: fmt.Sprintf("N=%d", len(data))}),
			charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
			charts.WithXAxisOpts(opts.XAxis{Min: st.Sampler.Low[i], Max: st.Sampler.High[i], Name: "log10 " + names[i], NameLocation: "middle", NameGap: 25}),
			charts.WithYAxisOpts(opts.YAxis{Min: st.Sampler.Low[j], Max: st.Sampler.High[j], Name: "log10 " + names[j], NameLocation: "middle", NameGap: 30}),
		)
		scatter.AddSeries("samples", data, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 6}))
		page.AddCharts(scatter)
	}

	var buf bytes.Buffer
	if err := page.Render(&buf); err != nil {
		return fmt.Errorf("render html: %w", err)
	}
	_, err := w.Write(buf.Bytes())
	return err
}
