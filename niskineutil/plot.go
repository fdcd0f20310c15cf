/*
Copyright © 2022 the niskine authors.
This file is part of niskine.

niskine is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

niskine is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with niskine.  If not, see <http://www.gnu.org/licenses/>.
*/

package niskineutil

import (
	"context"
	"fmt"
	"image/color"
	"math"
	"os"
	"time"

	"github.com/ctessum/sparse"
	"github.com/modscripps/niskine"
	"github.com/sirupsen/logrus"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette/moreland"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// ztGrid presents a (z, time) array as a plotter.GridXYZ with time in
// columns and depth in rows.
type ztGrid struct {
	t    []float64
	z    []float64
	data *sparse.DenseArray
}

func newZTGrid(t []time.Time, z []float64, data *sparse.DenseArray) (*ztGrid, error) {
	if len(t) < 2 || len(z) < 2 {
		return nil, fmt.Errorf("niskine: need at least two times and two depths to plot, have %d and %d", len(t), len(z))
	}
	if len(data.Shape) != 2 || data.Shape[0] != len(z) || data.Shape[1] != len(t) {
		return nil, fmt.Errorf("niskine: plot data shape %v does not match axes (%d, %d)", data.Shape, len(z), len(t))
	}
	g := &ztGrid{t: make([]float64, len(t)), z: z, data: data}
	for i, ti := range t {
		g.t[i] = float64(ti.Unix())
	}
	return g, nil
}

func (g *ztGrid) Dims() (c, r int)   { return len(g.t), len(g.z) }
func (g *ztGrid) Z(c, r int) float64 { return g.data.Elements[r*len(g.t)+c] }
func (g *ztGrid) X(c int) float64    { return g.t[c] }
func (g *ztGrid) Y(r int) float64    { return g.z[r] }

// dataRange returns the smallest and largest non-NaN values of v.
func dataRange(v []float64) (lo, hi float64) {
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, x := range v {
		if math.IsNaN(x) {
			continue
		}
		lo, hi = math.Min(lo, x), math.Max(hi, x)
	}
	if lo > hi {
		return 0, 1
	}
	if lo == hi {
		hi = lo + 1
	}
	return lo, hi
}

// HeatMap holds the settings of a depth/time section plot.
type HeatMap struct {
	Title string
	Label string // units, shown after the title

	// Min and Max set the color scale. If both are zero, the scale
	// spans the data.
	Min, Max float64

	Width, Height vg.Length
}

// Plot draws data on (z, time) as a section with depth increasing
// downward and saves it to file. The format follows the file extension.
func (hm HeatMap) Plot(t []time.Time, z []float64, data *sparse.DenseArray, file string) error {
	g, err := newZTGrid(t, z, data)
	if err != nil {
		return err
	}
	lo, hi := hm.Min, hm.Max
	if lo == 0 && hi == 0 {
		lo, hi = dataRange(data.Elements)
	}
	if hi <= lo {
		return fmt.Errorf("niskine: invalid color scale [%g, %g]", lo, hi)
	}
	pal := moreland.SmoothBlueRed()
	pal.SetMin(lo)
	pal.SetMax(hi)

	p := plot.New()
	p.Title.Text = hm.Title
	p.Y.Label.Text = "depth [m]"
	p.Y.Scale = plot.InvertedScale{Normalizer: plot.LinearScale{}}
	p.X.Tick.Marker = plot.TimeTicks{Format: "2006-01-02"}

	colors := pal.Palette(255)
	h := plotter.NewHeatMap(g, colors)
	h.Min, h.Max = lo, hi
	h.NaN = color.Transparent
	h.Underflow = colors.Colors()[0]
	h.Overflow = colors.Colors()[len(colors.Colors())-1]
	p.Add(h)

	if hm.Label != "" {
		p.Title.Text += " [" + hm.Label + "]"
	}
	// Color bar entries, largest value first.
	thumbs := plotter.PaletteThumbnailers(pal.Palette(5))
	for i := len(thumbs) - 1; i >= 0; i-- {
		v := lo + (hi-lo)*float64(i)/float64(len(thumbs)-1)
		p.Legend.Add(fmt.Sprintf("%.3g", v), thumbs[i])
	}
	p.Legend.Top = true
	p.Legend.XOffs = 1.5 * vg.Centimeter

	w, ht := hm.Width, hm.Height
	if w == 0 {
		w = 8 * vg.Inch
	}
	if ht == 0 {
		ht = 4 * vg.Inch
	}
	if err := p.Save(w, ht, file); err != nil {
		return fmt.Errorf("niskine: saving plot: %w", err)
	}
	return nil
}

// griddedVariable returns variable name of g.
func griddedVariable(g *niskine.Gridded, name string) (*sparse.DenseArray, error) {
	var v *sparse.DenseArray
	switch name {
	case "u":
		v = g.U
	case "v":
		v = g.V
	case "w":
		v = g.W
	default:
		return nil, fmt.Errorf("niskine: cannot plot variable %q; valid variables are u, v, and w", name)
	}
	if v == nil {
		return nil, fmt.Errorf("niskine: variable %s is not in the gridded product", name)
	}
	return v, nil
}

// PlotGridded reads the gridded product in file, which may be a local
// path, a URL, or a blob, and plots variable name to out.
func PlotGridded(ctx context.Context, file, name string, hm HeatMap, out string) error {
	local, cleanup, err := maybeDownload(ctx, file, Log)
	if err != nil {
		return err
	}
	defer cleanup()
	f, err := os.Open(local)
	if err != nil {
		return fmt.Errorf("niskine: opening gridded product: %w", err)
	}
	defer f.Close()
	g, err := niskine.ReadGridded(f)
	if err != nil {
		return err
	}
	v, err := griddedVariable(g, name)
	if err != nil {
		return err
	}
	if hm.Title == "" {
		hm.Title = fmt.Sprintf("%s %s", g.Attrs.Mooring, name)
	}
	if hm.Label == "" {
		hm.Label = "m/s"
	}
	return hm.Plot(g.Time, g.Z, v, out)
}

// PlotOverlap logs how often the instruments of a merge overlap and
// plots the number of instruments with data in each grid cell to out.
func PlotOverlap(ma *niskine.MergeADCP, out string, log logrus.FieldLogger) error {
	o, err := ma.Overlap()
	if err != nil {
		return err
	}
	log.WithField("mooring", ma.Mooring.Name()).Infof("%d grid times have overlapping instruments", niskine.OverlapTimes(o))
	hm := HeatMap{
		Title: ma.Mooring.Name() + " ADCP overlap",
		Label: "count",
		Min:   0,
		Max:   float64(len(ma.Sorted)),
	}
	return hm.Plot(ma.Time, ma.Z, o, out)
}
