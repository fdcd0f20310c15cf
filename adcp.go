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

// Package niskine processes current profiler data from the NISKINe
// mooring deployment. Its main task is merging the records of all
// ADCPs on a mooring onto one common time/depth grid.
package niskine

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/ctessum/sparse"
	"gonum.org/v1/gonum/stat"
)

// ADCP holds the record of a single acoustic Doppler current profiler.
// Two-dimensional variables are indexed as (z, time). Missing samples
// are NaN.
type ADCP struct {
	SN int // instrument serial number

	Time []time.Time
	Z    []float64 // bin depth [m], ascending

	U, V, W *sparse.DenseArray // velocity components [m/s]
	Amp     *sparse.DenseArray // echo amplitude; may be nil

	Pressure    []float64 // transducer pressure [dbar]
	Temperature []float64 // transducer temperature [°C]
}

// NewADCP returns an instrument record with the given axes and all
// variables set to NaN.
func NewADCP(sn int, t []time.Time, z []float64) *ADCP {
	a := &ADCP{
		SN:          sn,
		Time:        t,
		Z:           z,
		U:           nanDense(len(z), len(t)),
		V:           nanDense(len(z), len(t)),
		W:           nanDense(len(z), len(t)),
		Amp:         nanDense(len(z), len(t)),
		Pressure:    nanSlice(len(t)),
		Temperature: nanSlice(len(t)),
	}
	return a
}

// fields2D returns the (z, time) variables of a, in a fixed order.
// Nil variables are included so callers can keep them nil.
func (a *ADCP) fields2D() []**sparse.DenseArray {
	return []**sparse.DenseArray{&a.U, &a.V, &a.W, &a.Amp}
}

// fields1D returns the (time) variables of a.
func (a *ADCP) fields1D() []*[]float64 {
	return []*[]float64{&a.Pressure, &a.Temperature}
}

// check makes sure the shapes of the variables match the axes.
func (a *ADCP) check() error {
	nz, nt := len(a.Z), len(a.Time)
	for i, f := range a.fields2D() {
		if *f == nil {
			if i < 2 {
				return fmt.Errorf("niskine: ADCP %d is missing a velocity component", a.SN)
			}
			continue
		}
		s := (*f).Shape
		if len(s) != 2 || s[0] != nz || s[1] != nt {
			return fmt.Errorf("niskine: ADCP %d: variable shape %v does not match axes (%d, %d)", a.SN, s, nz, nt)
		}
	}
	for _, f := range a.fields1D() {
		if len(*f) != nt {
			return fmt.Errorf("niskine: ADCP %d: time series length %d does not match time axis %d", a.SN, len(*f), nt)
		}
	}
	return nil
}

// End returns the time of the last sample.
func (a *ADCP) End() time.Time {
	if len(a.Time) == 0 {
		return time.Time{}
	}
	return a.Time[len(a.Time)-1]
}

// MeanPressure returns the mean of the pressure record, ignoring
// missing samples.
func (a *ADCP) MeanPressure() float64 {
	p := dropNaN(a.Pressure)
	if len(p) == 0 {
		return math.NaN()
	}
	return stat.Mean(p, nil)
}

// SamplingPeriod returns the median interval between samples.
func (a *ADCP) SamplingPeriod() time.Duration {
	if len(a.Time) < 2 {
		return 0
	}
	dt := make([]float64, len(a.Time)-1)
	for i := range dt {
		dt[i] = float64(a.Time[i+1].Sub(a.Time[i]))
	}
	return time.Duration(median(dt))
}

// SelectTime returns a copy of a restricted to samples within
// [start, end].
func (a *ADCP) SelectTime(start, end time.Time) *ADCP {
	i0 := sort.Search(len(a.Time), func(i int) bool { return !a.Time[i].Before(start) })
	i1 := sort.Search(len(a.Time), func(i int) bool { return a.Time[i].After(end) })
	if i1 < i0 {
		i1 = i0
	}
	o := &ADCP{
		SN:   a.SN,
		Time: append([]time.Time(nil), a.Time[i0:i1]...),
		Z:    append([]float64(nil), a.Z...),
	}
	of, af := o.fields2D(), a.fields2D()
	for i := range af {
		if *af[i] == nil {
			continue
		}
		*of[i] = subsetColumns(*af[i], i0, i1)
	}
	o.Pressure = append([]float64(nil), a.Pressure[i0:i1]...)
	o.Temperature = append([]float64(nil), a.Temperature[i0:i1]...)
	return o
}

// SelectADCPs returns the instruments whose record extends past
// minEnd, which excludes instruments that stopped sampling early.
// A zero minEnd returns all instruments.
func SelectADCPs(adcps []*ADCP, minEnd time.Time) []*ADCP {
	if minEnd.IsZero() {
		return adcps
	}
	var o []*ADCP
	for _, a := range adcps {
		if a.End().After(minEnd) {
			o = append(o, a)
		}
	}
	return o
}

// AtDepthOnly restricts each instrument to the time the mooring
// was at depth.
func AtDepthOnly(adcps []*ADCP, w TimeWindow) []*ADCP {
	o := make([]*ADCP, len(adcps))
	for i, a := range adcps {
		o[i] = a.SelectTime(w.Start, w.End)
	}
	return o
}

// SortInDepth returns the instruments ordered from shallow to deep
// by their mean pressure. Instruments with equal mean pressure keep
// their input order.
func SortInDepth(adcps []*ADCP) []*ADCP {
	type keyed struct {
		a *ADCP
		p float64
	}
	k := make([]keyed, len(adcps))
	for i, a := range adcps {
		p := a.MeanPressure()
		if math.IsNaN(p) {
			p = math.Inf(1)
		}
		k[i] = keyed{a: a, p: p}
	}
	sort.SliceStable(k, func(i, j int) bool { return k[i].p < k[j].p })
	o := make([]*ADCP, len(k))
	for i, kk := range k {
		o[i] = kk.a
	}
	return o
}

// subsetColumns returns columns [i0, i1) of a (z, time) array.
func subsetColumns(a *sparse.DenseArray, i0, i1 int) *sparse.DenseArray {
	nz, nt := a.Shape[0], a.Shape[1]
	o := sparse.ZerosDense(nz, i1-i0)
	for k := 0; k < nz; k++ {
		copy(o.Elements[k*(i1-i0):(k+1)*(i1-i0)], a.Elements[k*nt+i0:k*nt+i1])
	}
	return o
}

func nanDense(dims ...int) *sparse.DenseArray {
	o := sparse.ZerosDense(dims...)
	for i := range o.Elements {
		o.Elements[i] = math.NaN()
	}
	return o
}

// denseFrom wraps elems in an array of the given shape.
func denseFrom(elems []float64, dims ...int) *sparse.DenseArray {
	o := &sparse.DenseArray{Shape: dims, Elements: elems}
	o.Fix()
	return o
}

func nanSlice(n int) []float64 {
	o := make([]float64, n)
	for i := range o {
		o[i] = math.NaN()
	}
	return o
}

func dropNaN(v []float64) []float64 {
	o := make([]float64, 0, len(v))
	for _, x := range v {
		if !math.IsNaN(x) {
			o = append(o, x)
		}
	}
	return o
}

// median returns the median of the non-NaN values in v, averaging the
// two central values when their number is even.
func median(v []float64) float64 {
	s := dropNaN(v)
	if len(s) == 0 {
		return math.NaN()
	}
	sort.Float64s(s)
	n := len(s)
	if n%2 == 1 {
		return s[n/2]
	}
	return (s[n/2-1] + s[n/2]) / 2
}
