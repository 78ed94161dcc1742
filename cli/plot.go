package cli

import (
	"errors"
	"fmt"
	"image/color"

	"github.com/spf13/afero"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// maxPlotPoints caps the points drawn per channel.
const maxPlotPoints = 4000

// Plot draws the left and right waveforms of interleaved samples to a PNG
// at path on fs.
func Plot(fs afero.Fs, path string, samples []int16, rate int, title string) error {
	frames := len(samples) / 2
	if frames == 0 {
		return errors.New("plot: no samples")
	}
	step := (frames + maxPlotPoints - 1) / maxPlotPoints

	n := (frames + step - 1) / step
	left := make(plotter.XYs, n)
	right := make(plotter.XYs, n)
	for i := 0; i < n; i++ {
		f := i * step
		t := float64(f) / float64(rate)
		left[i].X, left[i].Y = t, float64(samples[2*f])
		right[i].X, right[i].Y = t, float64(samples[2*f+1])
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "time (s)"
	p.Y.Label.Text = "amplitude"
	p.Y.Min = -32768
	p.Y.Max = 32767

	lineL, err := plotter.NewLine(left)
	if err != nil {
		return fmt.Errorf("plot: %w", err)
	}
	lineL.Color = color.RGBA{R: 200, G: 40, B: 40, A: 255}
	lineR, err := plotter.NewLine(right)
	if err != nil {
		return fmt.Errorf("plot: %w", err)
	}
	lineR.Color = color.RGBA{R: 40, G: 40, B: 200, A: 255}

	p.Add(lineL, lineR)
	p.Legend.Add("left", lineL)
	p.Legend.Add("right", lineR)

	wt, err := p.WriterTo(10*vg.Inch, 4*vg.Inch, "png")
	if err != nil {
		return fmt.Errorf("plot: %w", err)
	}
	f, err := fs.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if _, err := wt.WriteTo(f); err != nil {
		f.Close()
		return fmt.Errorf("plot: %w", err)
	}
	return f.Close()
}
