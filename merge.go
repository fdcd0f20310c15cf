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
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/ctessum/sparse"
	"github.com/sirupsen/logrus"
)

// Method selects how overlapping instruments are combined.
type Method string

const (
	// Simple overlays deeper instruments on shallower ones so the
	// deepest valid sample wins.
	Simple Method = "simple"
	// Median takes the median across all instruments.
	Median Method = "median"
)

// ParseMethod returns the merge method named s.
func ParseMethod(s string) (Method, error) {
	switch m := Method(s); m {
	case Simple, Median:
		return m, nil
	default:
		return "", fmt.Errorf("niskine: invalid merge method %q; valid methods are %q and %q", s, Simple, Median)
	}
}

// merge returns the merge function for m.
func (m Method) merge() (func([]*ADCP) (*Gridded, error), error) {
	switch m {
	case Simple:
		return SimpleMerge, nil
	case Median:
		return MedianMerge, nil
	default:
		return nil, fmt.Errorf("niskine: invalid merge method %q", string(m))
	}
}

// commonGrid checks that all instruments share one time/depth grid
// and returns it.
func commonGrid(adcps []*ADCP) ([]time.Time, []float64, error) {
	if len(adcps) == 0 {
		return nil, nil, errors.New("niskine: no instruments to merge")
	}
	t, z := adcps[0].Time, adcps[0].Z
	for _, a := range adcps {
		if err := a.check(); err != nil {
			return nil, nil, err
		}
		if len(a.Time) != len(t) || len(a.Z) != len(z) {
			return nil, nil, fmt.Errorf("niskine: ADCP %d is not on the common grid", a.SN)
		}
	}
	return t, z, nil
}

func (a *ADCP) velocities() []*sparse.DenseArray {
	return []*sparse.DenseArray{a.U, a.V, a.W}
}

// SimpleMerge combines instruments ordered from shallow to deep. At
// each cell the value of the deepest instrument with data is used,
// falling back to progressively shallower instruments. The inputs are
// not modified.
func SimpleMerge(adcps []*ADCP) (*Gridded, error) {
	t, z, err := commonGrid(adcps)
	if err != nil {
		return nil, err
	}
	g := &Gridded{
		Time: append([]time.Time(nil), t...),
		Z:    append([]float64(nil), z...),
		U:    nanDense(len(z), len(t)),
		V:    nanDense(len(z), len(t)),
		W:    nanDense(len(z), len(t)),
	}
	out := g.velocities()
	for _, a := range adcps {
		for i, in := range a.velocities() {
			if in == nil {
				continue
			}
			for j, v := range in.Elements {
				if !math.IsNaN(v) {
					out[i].Elements[j] = v
				}
			}
		}
	}
	return g, nil
}

// MedianMerge combines instruments by taking the median across
// instruments at each cell, ignoring missing values.
func MedianMerge(adcps []*ADCP) (*Gridded, error) {
	t, z, err := commonGrid(adcps)
	if err != nil {
		return nil, err
	}
	g := &Gridded{
		Time: append([]time.Time(nil), t...),
		Z:    append([]float64(nil), z...),
		U:    nanDense(len(z), len(t)),
		V:    nanDense(len(z), len(t)),
		W:    nanDense(len(z), len(t)),
	}
	vals := make([]float64, len(adcps))
	for i, out := range g.velocities() {
		for j := range out.Elements {
			vals = vals[:0]
			for _, a := range adcps {
				if in := a.velocities()[i]; in != nil {
					vals = append(vals, in.Elements[j])
				}
			}
			out.Elements[j] = median(vals)
		}
	}
	return g, nil
}

// Overlap returns the number of instruments with a valid u velocity
// at each (z, time) cell.
func Overlap(adcps []*ADCP) (*sparse.DenseArray, error) {
	t, z, err := commonGrid(adcps)
	if err != nil {
		return nil, err
	}
	o := sparse.ZerosDense(len(z), len(t))
	for _, a := range adcps {
		for j, v := range a.U.Elements {
			if !math.IsNaN(v) {
				o.Elements[j]++
			}
		}
	}
	return o, nil
}

// OverlapTimes returns the number of time steps at which more than
// one instrument has data at any depth.
func OverlapTimes(overlap *sparse.DenseArray) int {
	nz, nt := overlap.Shape[0], overlap.Shape[1]
	var n int
	for j := 0; j < nt; j++ {
		for k := 0; k < nz; k++ {
			if overlap.Elements[k*nt+j] > 1 {
				n++
				break
			}
		}
	}
	return n
}

// MergeConfig holds the parameters of a merge.
type MergeConfig struct {
	Dt       time.Duration // time step of the common time vector
	Dz       float64       // depth step of the common depth vector [m]
	MaxDepth float64       // deepest level of the common depth vector [m]

	// MinEndTime excludes instruments whose record ends before it.
	// The zero value includes all instruments.
	MinEndTime time.Time

	// Start and Stop, if not zero, replace the beginning and end of
	// the mooring time span.
	Start, Stop time.Time

	Method Method

	// DropNA removes depth levels without any data.
	DropNA bool
}

// DefaultMergeConfig returns the standard merge parameters.
func DefaultMergeConfig() MergeConfig {
	return MergeConfig{
		Dt:         10 * time.Minute,
		Dz:         16,
		MaxDepth:   3000,
		MinEndTime: time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
		Method:     Simple,
		DropNA:     true,
	}
}

// MergeADCP holds the stages of merging the ADCPs of one mooring.
type MergeADCP struct {
	MergeConfig
	Mooring Mooring

	Log logrus.FieldLogger

	All    []*ADCP // all instruments on the mooring
	Sorted []*ADCP // selected instruments at depth, shallow to deep

	Time []time.Time
	Z    []float64

	// Interpolated holds the sorted instruments on the common grid.
	Interpolated []*ADCP

	Merged *Gridded
}

// NewMergeADCP merges the instruments of mooring m. The input records
// are not modified.
func NewMergeADCP(m Mooring, adcps []*ADCP, cfg MergeConfig, log logrus.FieldLogger) (*MergeADCP, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}
	ma := &MergeADCP{
		MergeConfig: cfg,
		Mooring:     m,
		Log:         log.WithField("mooring", m.Name()),
		All:         adcps,
	}
	mergeFunc, err := cfg.Method.merge()
	if err != nil {
		return nil, err
	}

	selected := SelectADCPs(ma.All, ma.MinEndTime)
	if len(selected) == 0 {
		return nil, fmt.Errorf("niskine: %s: no instruments sampled past %v", m.Name(), ma.MinEndTime)
	}
	ma.Sorted = SortInDepth(AtDepthOnly(selected, m.AtDepth))

	for _, a := range ma.Sorted {
		ma.Log.WithFields(logrus.Fields{
			"sn":              a.SN,
			"sampling_period": a.SamplingPeriod(),
		}).Info("sampling period")
	}

	if ma.Time, err = ma.timeVector(); err != nil {
		return nil, err
	}
	if ma.Z, err = DepthVector(ma.Dz, ma.MaxDepth); err != nil {
		return nil, err
	}

	ma.Log.Info("interpolating time...")
	ti, err := InterpolateTime(ma.Sorted, ma.Time)
	if err != nil {
		return nil, err
	}
	ma.Log.Info("interpolating depth...")
	if ma.Interpolated, err = InterpolateDepth(ti, ma.Z); err != nil {
		return nil, err
	}

	ma.Log.WithField("method", ma.Method).Info("merging...")
	merged, err := mergeFunc(ma.Interpolated)
	if err != nil {
		return nil, err
	}
	merged = AddMooringMetadata(merged, m)
	if merged, err = AddAuxiliaryData(ma.Interpolated, merged); err != nil {
		return nil, err
	}
	if ma.DropNA {
		merged = DropNA(merged)
	}
	ma.Merged = merged
	return ma, nil
}

func (ma *MergeADCP) timeVector() ([]time.Time, error) {
	span := ma.Mooring.AtDepth
	if !ma.Start.IsZero() {
		span.Start = ma.Start
	}
	if !ma.Stop.IsZero() {
		span.End = ma.Stop
	}
	return TimeVector(span.Start, span.End, ma.Dt)
}

// Overlap returns the number of instruments with data at each cell of
// the common grid.
func (ma *MergeADCP) Overlap() (*sparse.DenseArray, error) {
	return Overlap(ma.Interpolated)
}

// FillGaps returns the merged product with gaps in depth filled.
func (ma *MergeADCP) FillGaps() *Gridded {
	return FillGaps(ma.Merged)
}
