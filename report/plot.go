package report

import (
	"bufio"
	"image/color"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"

	"go.viam.com/armctl/utils"
)

const (
	plotWidth  = 8 * vg.Inch
	plotHeight = 7 * vg.Inch
	plotDPI    = 150
)

var (
	positionColor = color.RGBA{R: 31, G: 119, B: 180, A: 255}
	setpointColor = color.RGBA{R: 255, G: 127, B: 14, A: 255}
	goalColor     = color.RGBA{R: 44, G: 160, B: 44, A: 255}
	voltageColor  = color.RGBA{R: 214, G: 39, B: 40, A: 255}
)

type series struct {
	name   string
	color  color.Color
	dashed bool
	value  func(Sample) float64
}

// SavePlot renders the recording as a PNG with angles on top and voltage below.
func (r *Recorder) SavePlot(path string) error {
	samples := r.Samples()
	if len(samples) == 0 {
		return ErrNoSamples
	}

	angles, err := linePlot("Arm angle", "angle (deg)", samples, []series{
		{"position", positionColor, false, func(s Sample) float64 { return utils.RadToDeg(s.Position) }},
		{"setpoint", setpointColor, true, func(s Sample) float64 { return utils.RadToDeg(s.Setpoint) }},
		{"goal", goalColor, true, func(s Sample) float64 { return utils.RadToDeg(s.Goal) }},
	})
	if err != nil {
		return err
	}
	volts, err := linePlot("Motor output", "voltage (V)", samples, []series{
		{"voltage", voltageColor, false, func(s Sample) float64 { return s.Voltage }},
	})
	if err != nil {
		return err
	}

	canvas := vgimg.NewWith(vgimg.UseWH(plotWidth, plotHeight), vgimg.UseDPI(plotDPI))
	tiles := draw.Tiles{Rows: 2, Cols: 1, PadY: vg.Millimeter * 4, PadTop: vg.Millimeter * 2}
	grid := [][]*plot.Plot{{angles}, {volts}}
	canvases := plot.Align(grid, tiles, draw.New(canvas))
	for i := range grid {
		grid[i][0].Draw(canvases[i][0])
	}

	return writePNG(canvas, path)
}

func linePlot(title, ylabel string, samples []Sample, lines []series) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "time (s)"
	p.Y.Label.Text = ylabel
	p.Legend.Top = true
	p.Add(plotter.NewGrid())

	for _, l := range lines {
		pts := make(plotter.XYs, len(samples))
		for i, s := range samples {
			pts[i].X = s.Time.Seconds()
			pts[i].Y = l.value(s)
		}
		line, err := plotter.NewLine(pts)
		if err != nil {
			return nil, errors.Wrapf(err, "plotting %s", l.name)
		}
		line.LineStyle.Color = l.color
		line.LineStyle.Width = vg.Points(1.5)
		if l.dashed {
			line.LineStyle.Dashes = []vg.Length{vg.Points(4), vg.Points(2)}
		}
		p.Add(line)
		p.Legend.Add(l.name, line)
	}
	return p, nil
}

func writePNG(canvas *vgimg.Canvas, path string) (err error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return errors.Wrap(err, "cannot create plot directory")
		}
	}
	//nolint:gosec
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "cannot create plot file")
	}
	defer func() {
		err = multierr.Combine(err, f.Close())
	}()

	bw := bufio.NewWriter(f)
	if _, err := (vgimg.PngCanvas{Canvas: canvas}).WriteTo(bw); err != nil {
		return errors.Wrap(err, "cannot write png")
	}
	return bw.Flush()
}
