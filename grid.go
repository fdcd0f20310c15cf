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

	"gonum.org/v1/gonum/floats"
)

// Project is the name written into the metadata of gridded products.
const Project = "NISKINe"

// Version is the version of this software.
const Version = "0.1.0"

// TimeWindow is a closed time interval.
type TimeWindow struct {
	Start, End time.Time
}

// Contains returns whether t lies within w.
func (w TimeWindow) Contains(t time.Time) bool {
	return !t.Before(w.Start) && !t.After(w.End)
}

// Mooring holds the location of a mooring and the time it spent at depth.
type Mooring struct {
	ID          int
	Lon, Lat    float64
	BottomDepth float64 // water depth [m]

	// AtDepth is the period between the mooring settling after
	// deployment and the start of recovery.
	AtDepth TimeWindow
}

// Name returns the mooring name as used in file names, e.g. "M1".
func (m Mooring) Name() string { return fmt.Sprintf("M%d", m.ID) }

// TimeVector returns times spaced by dt starting at start and ending
// before stop. Both are truncated to whole minutes first.
func TimeVector(start, stop time.Time, dt time.Duration) ([]time.Time, error) {
	if dt <= 0 {
		return nil, fmt.Errorf("niskine: time step must be positive, got %v", dt)
	}
	start = start.Truncate(time.Minute)
	stop = stop.Truncate(time.Minute)
	if !stop.After(start) {
		return nil, fmt.Errorf("niskine: time vector stop %v is not after start %v", stop, start)
	}
	n := int(stop.Sub(start) / dt)
	if start.Add(time.Duration(n) * dt).Before(stop) {
		n++
	}
	o := make([]time.Time, n)
	for i := range o {
		o[i] = start.Add(time.Duration(i) * dt)
	}
	return o, nil
}

// DepthVector returns depths spaced by dz starting at the surface and
// reaching at least maxDepth.
func DepthVector(dz, maxDepth float64) ([]float64, error) {
	if !(dz > 0) {
		return nil, fmt.Errorf("niskine: depth step must be positive, got %g", dz)
	}
	if maxDepth < 0 {
		return nil, fmt.Errorf("niskine: maximum depth must not be negative, got %g", maxDepth)
	}
	n := int(math.Ceil((maxDepth + dz) / dz))
	if float64(n-1)*dz >= maxDepth+dz {
		n--
	}
	if n < 2 {
		return []float64{0}, nil
	}
	return floats.Span(make([]float64, n), 0, float64(n-1)*dz), nil
}
