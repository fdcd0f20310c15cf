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

package niskine

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/ctessum/sparse"
	"gonum.org/v1/gonum/interp"
)

// linear interpolates values given on a strictly increasing axis
// onto new coordinates. Results outside the axis are NaN, and so are
// results in a segment where either end sample is NaN. A coordinate
// that falls on a sample belongs to the segment that ends there, or to
// the first segment for the first sample.
type linear struct {
	xs []float64
	pl interp.PiecewiseLinear
}

func newLinear(xs []float64) (*linear, error) {
	for i := 1; i < len(xs); i++ {
		if !(xs[i] > xs[i-1]) {
			return nil, fmt.Errorf("niskine: interpolation axis is not strictly increasing at index %d", i)
		}
	}
	return &linear{xs: xs}, nil
}

// at interpolates ys onto xnew, writing the results to dst.
func (l *linear) at(dst, ys, xnew []float64) {
	n := len(l.xs)
	switch n {
	case 0:
		for i := range dst {
			dst[i] = math.NaN()
		}
		return
	case 1:
		for i, x := range xnew {
			if x == l.xs[0] {
				dst[i] = ys[0]
			} else {
				dst[i] = math.NaN()
			}
		}
		return
	}
	l.pl.Fit(l.xs, ys)
	lo, hi := l.xs[0], l.xs[n-1]
	for i, x := range xnew {
		if x < lo || x > hi || math.IsNaN(x) {
			dst[i] = math.NaN()
			continue
		}
		hi := sort.SearchFloat64s(l.xs, x)
		if hi == 0 {
			hi = 1
		}
		if math.IsNaN(ys[hi-1]) || math.IsNaN(ys[hi]) {
			dst[i] = math.NaN()
			continue
		}
		dst[i] = l.pl.Predict(x)
	}
}

// interpRows interpolates each row of a 2-D array along its second
// dimension.
func interpRows(a *sparse.DenseArray, l *linear, xnew []float64) *sparse.DenseArray {
	nr, nc := a.Shape[0], a.Shape[1]
	o := sparse.ZerosDense(nr, len(xnew))
	for r := 0; r < nr; r++ {
		l.at(o.Elements[r*len(xnew):(r+1)*len(xnew)], a.Elements[r*nc:(r+1)*nc], xnew)
	}
	return o
}

// interpColumns interpolates each column of a 2-D array along its
// first dimension.
func interpColumns(a *sparse.DenseArray, l *linear, xnew []float64) *sparse.DenseArray {
	nr, nc := a.Shape[0], a.Shape[1]
	o := sparse.ZerosDense(len(xnew), nc)
	col := make([]float64, nr)
	res := make([]float64, len(xnew))
	for c := 0; c < nc; c++ {
		for r := 0; r < nr; r++ {
			col[r] = a.Elements[r*nc+c]
		}
		l.at(res, col, xnew)
		for r, v := range res {
			o.Elements[r*nc+c] = v
		}
	}
	return o
}

// timeAxis converts times to seconds since the Unix epoch.
func timeAxis(t []time.Time) []float64 {
	o := make([]float64, len(t))
	for i, ti := range t {
		o[i] = float64(ti.Unix()) + float64(ti.Nanosecond())/1e9
	}
	return o
}

// InterpolateTime returns copies of the instruments interpolated onto
// the time vector tnew.
func InterpolateTime(adcps []*ADCP, tnew []time.Time) ([]*ADCP, error) {
	xnew := timeAxis(tnew)
	o := make([]*ADCP, len(adcps))
	for i, a := range adcps {
		if err := a.check(); err != nil {
			return nil, err
		}
		l, err := newLinear(timeAxis(a.Time))
		if err != nil {
			return nil, fmt.Errorf("niskine: ADCP %d time axis: %w", a.SN, err)
		}
		b := &ADCP{
			SN:   a.SN,
			Time: append([]time.Time(nil), tnew...),
			Z:    append([]float64(nil), a.Z...),
		}
		bf, af := b.fields2D(), a.fields2D()
		for j := range af {
			if *af[j] != nil {
				*bf[j] = interpRows(*af[j], l, xnew)
			}
		}
		b1, a1 := b.fields1D(), a.fields1D()
		for j := range a1 {
			*b1[j] = make([]float64, len(xnew))
			l.at(*b1[j], *a1[j], xnew)
		}
		o[i] = b
	}
	return o, nil
}

// InterpolateDepth returns copies of the instruments interpolated onto
// the depth vector znew.
func InterpolateDepth(adcps []*ADCP, znew []float64) ([]*ADCP, error) {
	o := make([]*ADCP, len(adcps))
	for i, a := range adcps {
		if err := a.check(); err != nil {
			return nil, err
		}
		l, err := newLinear(a.Z)
		if err != nil {
			return nil, fmt.Errorf("niskine: ADCP %d depth axis: %w", a.SN, err)
		}
		b := &ADCP{
			SN:          a.SN,
			Time:        append([]time.Time(nil), a.Time...),
			Z:           append([]float64(nil), znew...),
			Pressure:    append([]float64(nil), a.Pressure...),
			Temperature: append([]float64(nil), a.Temperature...),
		}
		bf, af := b.fields2D(), a.fields2D()
		for j := range af {
			if *af[j] != nil {
				*bf[j] = interpColumns(*af[j], l, znew)
			}
		}
		o[i] = b
	}
	return o, nil
}

// fillInterior linearly interpolates NaN values in v that lie between
// two valid values. Leading and trailing NaNs are left alone.
func fillInterior(x, v []float64) {
	var xs, ys []float64
	for i, vi := range v {
		if !math.IsNaN(vi) {
			xs = append(xs, x[i])
			ys = append(ys, vi)
		}
	}
	if len(xs) < 2 {
		return
	}
	var pl interp.PiecewiseLinear
	pl.Fit(xs, ys)
	for i, vi := range v {
		if math.IsNaN(vi) && x[i] > xs[0] && x[i] < xs[len(xs)-1] {
			v[i] = pl.Predict(x[i])
		}
	}
}
