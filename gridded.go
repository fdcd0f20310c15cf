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
	"time"

	"github.com/ctessum/sparse"
)

// Attributes is the descriptive metadata of a gridded product.
type Attributes struct {
	Project     string
	Mooring     string
	Lon, Lat    float64
	BottomDepth float64
}

// Gridded is the merged velocity record of one mooring on a common
// time/depth grid. Velocity variables are indexed as (z, time) and
// per-instrument variables as (adcp, time).
type Gridded struct {
	Time []time.Time
	Z    []float64

	U, V *sparse.DenseArray
	W    *sparse.DenseArray // nil after gap filling

	// SN holds the serial numbers of the instruments, shallow to deep.
	SN          []int
	XducerDepth *sparse.DenseArray
	Temperature *sparse.DenseArray

	Attrs Attributes
}

func (g *Gridded) velocities() []*sparse.DenseArray {
	return []*sparse.DenseArray{g.U, g.V, g.W}
}

// Copy returns a deep copy of g.
func (g *Gridded) Copy() *Gridded {
	o := &Gridded{
		Time:  append([]time.Time(nil), g.Time...),
		Z:     append([]float64(nil), g.Z...),
		SN:    append([]int(nil), g.SN...),
		Attrs: g.Attrs,
	}
	cp := func(a *sparse.DenseArray) *sparse.DenseArray {
		if a == nil {
			return nil
		}
		return a.Copy()
	}
	o.U, o.V, o.W = cp(g.U), cp(g.V), cp(g.W)
	o.XducerDepth, o.Temperature = cp(g.XducerDepth), cp(g.Temperature)
	return o
}

// AddMooringMetadata sets the descriptive attributes of g.
func AddMooringMetadata(g *Gridded, m Mooring) *Gridded {
	g.Attrs = Attributes{
		Project:     Project,
		Mooring:     m.Name(),
		Lon:         m.Lon,
		Lat:         m.Lat,
		BottomDepth: m.BottomDepth,
	}
	return g
}

// AddAuxiliaryData attaches the transducer depth, temperature, and
// serial number of each instrument to g. The instruments must be on
// the time axis of g, and the latitude attribute of g must be set.
func AddAuxiliaryData(adcps []*ADCP, g *Gridded) (*Gridded, error) {
	nt := len(g.Time)
	depth := sparse.ZerosDense(len(adcps), nt)
	temp := sparse.ZerosDense(len(adcps), nt)
	sn := make([]int, len(adcps))
	for i, a := range adcps {
		if len(a.Pressure) != nt || len(a.Temperature) != nt {
			return nil, fmt.Errorf("niskine: ADCP %d is not on the merged time axis", a.SN)
		}
		for j, p := range a.Pressure {
			depth.Elements[i*nt+j] = PToDepth(p, g.Attrs.Lat)
		}
		copy(temp.Elements[i*nt:(i+1)*nt], a.Temperature)
		sn[i] = a.SN
	}
	g.XducerDepth, g.Temperature, g.SN = depth, temp, sn
	return g, nil
}

// DropNA returns a copy of g without the depth levels that have no
// velocity data at any time.
func DropNA(g *Gridded) *Gridded {
	nt := len(g.Time)
	var keep []int
	for k := range g.Z {
		for _, a := range g.velocities() {
			if a != nil && rowHasData(a.Elements[k*nt:(k+1)*nt]) {
				keep = append(keep, k)
				break
			}
		}
	}
	o := g.Copy()
	o.Z = make([]float64, len(keep))
	for i, k := range keep {
		o.Z[i] = g.Z[k]
	}
	sub := func(a *sparse.DenseArray) *sparse.DenseArray {
		if a == nil {
			return nil
		}
		b := sparse.ZerosDense(len(keep), nt)
		for i, k := range keep {
			copy(b.Elements[i*nt:(i+1)*nt], a.Elements[k*nt:(k+1)*nt])
		}
		return b
	}
	o.U, o.V, o.W = sub(g.U), sub(g.V), sub(g.W)
	return o
}

func rowHasData(r []float64) bool {
	for _, v := range r {
		if !math.IsNaN(v) {
			return true
		}
	}
	return false
}

// FillGaps returns a copy of g without vertical velocity and with
// missing horizontal velocities filled by linear interpolation in
// depth. Only gaps bounded by data above and below are filled.
func FillGaps(g *Gridded) *Gridded {
	o := g.Copy()
	o.W = nil
	nz, nt := len(o.Z), len(o.Time)
	col := make([]float64, nz)
	for _, a := range []*sparse.DenseArray{o.U, o.V} {
		for j := 0; j < nt; j++ {
			for k := 0; k < nz; k++ {
				col[k] = a.Elements[k*nt+j]
			}
			fillInterior(o.Z, col)
			for k := 0; k < nz; k++ {
				a.Elements[k*nt+j] = col[k]
			}
		}
	}
	return o
}
