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
	"os"
	"time"

	"github.com/batchatco/go-native-netcdf/netcdf"
	"github.com/batchatco/go-native-netcdf/netcdf/api"
	"github.com/ctessum/sparse"
	"gonum.org/v1/gonum/stat"
)

// SSH holds gridded geostrophic velocity anomalies derived from
// satellite altimetry. Velocity variables are indexed as
// (time, lat, lon).
type SSH struct {
	Time     []time.Time
	Lat, Lon []float64

	UGOSA, VGOSA *sparse.DenseArray // [m/s]
}

// firstVar reads the first of names that exists in g.
func firstVar(g api.Group, names ...string) (*ncVar, error) {
	for _, n := range names {
		if hasVar(g, n) {
			return readVar(g, n)
		}
	}
	return nil, fmt.Errorf("niskine: none of the variables %v found", names)
}

// ReadSSH reads a Copernicus sea level product containing the
// geostrophic velocity anomalies ugosa and vgosa.
func ReadSSH(path string) (*SSH, error) {
	g, err := netcdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("niskine: opening SSH file %s: %w", path, err)
	}
	defer g.Close()

	tv, err := readVar(g, "time")
	if err != nil {
		return nil, err
	}
	units, ok := attrString(tv.attrs, "units")
	if !ok {
		return nil, fmt.Errorf("niskine: %s: time variable has no units", path)
	}
	s := new(SSH)
	if s.Time, err = decodeCFTime(tv.values, units); err != nil {
		return nil, fmt.Errorf("niskine: %s: %w", path, err)
	}
	lat, err := firstVar(g, "latitude", "lat")
	if err != nil {
		return nil, fmt.Errorf("%v in %s", err, path)
	}
	lon, err := firstVar(g, "longitude", "lon")
	if err != nil {
		return nil, fmt.Errorf("%v in %s", err, path)
	}
	s.Lat, s.Lon = lat.values, lon.values
	nt, ny, nx := len(s.Time), len(s.Lat), len(s.Lon)
	for _, f := range []struct {
		name string
		dst  **sparse.DenseArray
	}{{"ugosa", &s.UGOSA}, {"vgosa", &s.VGOSA}} {
		v, err := readVar(g, f.name)
		if err != nil {
			return nil, err
		}
		if len(v.values) != nt*ny*nx {
			return nil, fmt.Errorf("niskine: %s: variable %s has %d values but the grid has %d", path, f.name, len(v.values), nt*ny*nx)
		}
		*f.dst = denseFrom(v.values, nt, ny, nx)
	}
	return s, nil
}

// EKE returns the eddy kinetic energy per unit mass [m²/s²] of the
// velocity anomalies, indexed as (time, lat, lon).
func (s *SSH) EKE() *sparse.DenseArray {
	o := sparse.ZerosDense(s.UGOSA.Shape...)
	for i, u := range s.UGOSA.Elements {
		v := s.VGOSA.Elements[i]
		o.Elements[i] = 0.5 * (u*u + v*v)
	}
	return o
}

// timeMean averages the (time, lat, lon) array a over the time indices
// for which include returns true, ignoring missing values.
func timeMean(a *sparse.DenseArray, include func(i int) bool) *sparse.DenseArray {
	nt, ny, nx := a.Shape[0], a.Shape[1], a.Shape[2]
	o := sparse.ZerosDense(ny, nx)
	vals := make([]float64, 0, nt)
	for j := 0; j < ny*nx; j++ {
		vals = vals[:0]
		for i := 0; i < nt; i++ {
			if !include(i) {
				continue
			}
			if v := a.Elements[i*ny*nx+j]; !math.IsNaN(v) {
				vals = append(vals, v)
			}
		}
		if len(vals) == 0 {
			o.Elements[j] = math.NaN()
			continue
		}
		o.Elements[j] = stat.Mean(vals, nil)
	}
	return o
}

// MeanEKE returns the time-mean of eke, indexed as (lat, lon).
func MeanEKE(eke *sparse.DenseArray) *sparse.DenseArray {
	return timeMean(eke, func(int) bool { return true })
}

// MonthlyEKE returns the monthly climatology of eke, indexed as
// (month, lat, lon) with January first. Months without data are NaN.
func (s *SSH) MonthlyEKE(eke *sparse.DenseArray) *sparse.DenseArray {
	ny, nx := eke.Shape[1], eke.Shape[2]
	o := sparse.ZerosDense(12, ny, nx)
	for m := 0; m < 12; m++ {
		month := time.Month(m + 1)
		mm := timeMean(eke, func(i int) bool { return s.Time[i].Month() == month })
		copy(o.Elements[m*ny*nx:(m+1)*ny*nx], mm.Elements)
	}
	return o
}

// nearest returns the index of the value in x closest to v.
func nearest(x []float64, v float64) int {
	var o int
	d := math.Inf(1)
	for i, xi := range x {
		if dd := math.Abs(xi - v); dd < d {
			o, d = i, dd
		}
	}
	return o
}

// Nearest returns the grid indices of the cell closest to (lon, lat).
// Longitudes are matched in the convention of the grid.
func (s *SSH) Nearest(lon, lat float64) (j, k int, err error) {
	if len(s.Lat) == 0 || len(s.Lon) == 0 {
		return 0, 0, fmt.Errorf("niskine: SSH grid is empty")
	}
	if lon < 0 && s.Lon[len(s.Lon)-1] > 180 {
		lon += 360
	}
	return nearest(s.Lat, lat), nearest(s.Lon, lon), nil
}

// EKEAt returns the time series of eke at the grid cell closest to
// (lon, lat).
func (s *SSH) EKEAt(eke *sparse.DenseArray, lon, lat float64) ([]float64, error) {
	j, k, err := s.Nearest(lon, lat)
	if err != nil {
		return nil, err
	}
	nt := eke.Shape[0]
	o := make([]float64, nt)
	for i := range o {
		o[i] = eke.Get(i, j, k)
	}
	return o, nil
}

// EKEClimatology is the mean and monthly eddy kinetic energy of a
// region.
type EKEClimatology struct {
	Lat, Lon []float64
	Mean     *sparse.DenseArray // (lat, lon)
	Monthly  *sparse.DenseArray // (month, lat, lon)
}

// Climatology computes the mean and monthly eddy kinetic energy of s.
func (s *SSH) Climatology() *EKEClimatology {
	eke := s.EKE()
	return &EKEClimatology{
		Lat:     append([]float64(nil), s.Lat...),
		Lon:     append([]float64(nil), s.Lon...),
		Mean:    MeanEKE(eke),
		Monthly: s.MonthlyEKE(eke),
	}
}

// Write writes c to w as a classic netCDF file.
func (c *EKEClimatology) Write(w *os.File) error {
	months := make([]int32, 12)
	for i := range months {
		months[i] = int32(i + 1)
	}
	d := &ncFile{
		dims:    []string{"latitude", "longitude", "month"},
		lengths: []int{len(c.Lat), len(c.Lon), 12},
		attrs: map[string]interface{}{
			"project": Project,
			"comment": "eddy kinetic energy from geostrophic velocity anomalies",
		},
		vars: map[string]ncData{
			"latitude":    {Dims: []string{"latitude"}, Units: "degrees_north", Data: c.Lat},
			"longitude":   {Dims: []string{"longitude"}, Units: "degrees_east", Data: c.Lon},
			"month":       {Dims: []string{"month"}, Data: months},
			"eke_mean":    {Dims: []string{"latitude", "longitude"}, Description: "mean eddy kinetic energy", Units: "m2 s-2", Data: c.Mean},
			"eke_monthly": {Dims: []string{"month", "latitude", "longitude"}, Description: "monthly mean eddy kinetic energy", Units: "m2 s-2", Data: c.Monthly},
		},
	}
	return d.write(w)
}
