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
	"io"
	"math"
	"os"
	"sort"

	"github.com/ctessum/cdf"
	"github.com/ctessum/sparse"
)

// ncData is a variable to be written to a netCDF file.
type ncData struct {
	Dims        []string
	Description string
	Units       string
	Data        interface{} // *sparse.DenseArray, []float64, or []int32
}

// ncFile is the content of a netCDF file prior to writing.
type ncFile struct {
	dims    []string
	lengths []int
	attrs   map[string]interface{}
	vars    map[string]ncData
}

// write writes d to w. Variables are written in sorted order and no
// timestamps are recorded, so identical content gives identical files.
func (d *ncFile) write(w *os.File) error {
	for i, n := range d.lengths {
		if n == 0 {
			// A zero length denotes the record dimension in the
			// classic format.
			return fmt.Errorf("niskine: netcdf dimension %s has zero length", d.dims[i])
		}
	}
	h := cdf.NewHeader(d.dims, d.lengths)

	attrNames := make([]string, 0, len(d.attrs))
	for n := range d.attrs {
		attrNames = append(attrNames, n)
	}
	sort.Strings(attrNames)
	for _, n := range attrNames {
		h.AddAttribute("", n, d.attrs[n])
	}

	// Sort the names so they write in the same order every time.
	names := make([]string, 0, len(d.vars))
	for n := range d.vars {
		names = append(names, n)
	}
	sort.Strings(names)

	for _, name := range names {
		dd := d.vars[name]
		switch dd.Data.(type) {
		case []int32:
			h.AddVariable(name, dd.Dims, []int32{0})
		default:
			h.AddVariable(name, dd.Dims, []float64{0})
			h.AddAttribute(name, "_FillValue", []float64{math.NaN()})
		}
		if dd.Description != "" {
			h.AddAttribute(name, "description", dd.Description)
		}
		if dd.Units != "" {
			h.AddAttribute(name, "units", dd.Units)
		}
	}
	h.Define()

	f, err := cdf.Create(w, h)
	if err != nil {
		return fmt.Errorf("niskine: creating netcdf file: %w", err)
	}
	for _, name := range names {
		if err = writeNCF(f, name, d.vars[name].Data); err != nil {
			return fmt.Errorf("niskine: writing variable %s to netcdf file: %w", name, err)
		}
	}
	return cdf.UpdateNumRecs(w)
}

func writeNCF(f *cdf.File, name string, data interface{}) error {
	n := 1
	for _, l := range f.Header.Lengths(name) {
		n *= l
	}
	var vals interface{}
	var nv int
	switch d := data.(type) {
	case *sparse.DenseArray:
		vals, nv = d.Elements, len(d.Elements)
	case []float64:
		vals, nv = d, len(d)
	case []int32:
		vals, nv = d, len(d)
	default:
		return fmt.Errorf("unsupported data type %T", data)
	}
	if nv != n {
		return fmt.Errorf("dims are %d but array length is %d", n, nv)
	}
	w := f.Writer(name, nil, nil)
	nw, err := w.Write(vals)
	// The writer reports io.EOF once it reaches the end of a fixed-size
	// variable, which is where a complete write stops.
	if err == io.EOF && nw == n {
		return nil
	}
	if err == nil && nw != n {
		return fmt.Errorf("wrote %d of %d values", nw, n)
	}
	return err
}

// readNCF reads all values of float64 variable name.
func readNCF(f *cdf.File, name string) ([]float64, error) {
	n := 1
	for _, l := range f.Header.Lengths(name) {
		n *= l
	}
	r := f.Reader(name, nil, nil)
	buf := r.Zero(n).([]float64)
	if _, err := r.Read(buf); err != nil {
		return nil, fmt.Errorf("niskine: reading netcdf variable %s: %w", name, err)
	}
	return buf, nil
}

func hasNCF(f *cdf.File, name string) bool {
	for _, v := range f.Header.Variables() {
		if v == name {
			return true
		}
	}
	return false
}

// Write writes g to w as a classic netCDF file.
func (g *Gridded) Write(w *os.File) error {
	if g.XducerDepth == nil || g.Temperature == nil {
		return fmt.Errorf("niskine: gridded %s has no auxiliary data", g.Attrs.Mooring)
	}
	tv, tunits := encodeCFTime(g.Time)
	sn := make([]int32, len(g.SN))
	for i, s := range g.SN {
		sn[i] = int32(s)
	}
	d := &ncFile{
		dims:    []string{"z", "time", "adcp"},
		lengths: []int{len(g.Z), len(g.Time), len(g.SN)},
		attrs: map[string]interface{}{
			"project":      g.Attrs.Project,
			"mooring":      g.Attrs.Mooring,
			"lon":          []float64{g.Attrs.Lon},
			"lat":          []float64{g.Attrs.Lat},
			"bottom_depth": []float64{g.Attrs.BottomDepth},
		},
		vars: map[string]ncData{
			"time":         {Dims: []string{"time"}, Units: tunits, Data: tv},
			"z":            {Dims: []string{"z"}, Description: "depth", Units: "m", Data: g.Z},
			"u":            {Dims: []string{"z", "time"}, Description: "eastward velocity", Units: "m/s", Data: g.U},
			"v":            {Dims: []string{"z", "time"}, Description: "northward velocity", Units: "m/s", Data: g.V},
			"adcp":         {Dims: []string{"adcp"}, Description: "ADCP serial number", Data: sn},
			"xducer_depth": {Dims: []string{"adcp", "time"}, Description: "transducer depth", Units: "m", Data: g.XducerDepth},
			"temperature":  {Dims: []string{"adcp", "time"}, Description: "transducer temperature", Units: "°C", Data: g.Temperature},
		},
	}
	if g.W != nil {
		d.vars["w"] = ncData{Dims: []string{"z", "time"}, Description: "vertical velocity", Units: "m/s", Data: g.W}
	}
	return d.write(w)
}

// ReadGridded reads a gridded product written by Gridded.Write.
func ReadGridded(rw cdf.ReaderWriterAt) (*Gridded, error) {
	f, err := cdf.Open(rw)
	if err != nil {
		return nil, fmt.Errorf("niskine: opening gridded file: %w", err)
	}
	g := new(Gridded)
	tv, err := readNCF(f, "time")
	if err != nil {
		return nil, err
	}
	units, _ := f.Header.GetAttribute("time", "units").(string)
	if g.Time, err = decodeCFTime(tv, units); err != nil {
		return nil, err
	}
	if g.Z, err = readNCF(f, "z"); err != nil {
		return nil, err
	}
	nz, nt := len(g.Z), len(g.Time)
	for _, v := range []struct {
		name string
		dst  **sparse.DenseArray
	}{{"u", &g.U}, {"v", &g.V}, {"w", &g.W}} {
		if !hasNCF(f, v.name) {
			continue
		}
		vals, err := readNCF(f, v.name)
		if err != nil {
			return nil, err
		}
		*v.dst = denseFrom(vals, nz, nt)
	}
	if g.U == nil || g.V == nil {
		return nil, fmt.Errorf("niskine: gridded file is missing velocity")
	}

	n := f.Header.Lengths("adcp")[0]
	r := f.Reader("adcp", nil, nil)
	sn := r.Zero(n).([]int32)
	if _, err = r.Read(sn); err != nil {
		return nil, fmt.Errorf("niskine: reading netcdf variable adcp: %w", err)
	}
	g.SN = make([]int, n)
	for i, s := range sn {
		g.SN[i] = int(s)
	}
	for _, v := range []struct {
		name string
		dst  **sparse.DenseArray
	}{{"xducer_depth", &g.XducerDepth}, {"temperature", &g.Temperature}} {
		vals, err := readNCF(f, v.name)
		if err != nil {
			return nil, err
		}
		*v.dst = denseFrom(vals, n, nt)
	}

	g.Attrs.Project, _ = f.Header.GetAttribute("", "project").(string)
	g.Attrs.Mooring, _ = f.Header.GetAttribute("", "mooring").(string)
	for _, a := range []struct {
		name string
		dst  *float64
	}{{"lon", &g.Attrs.Lon}, {"lat", &g.Attrs.Lat}, {"bottom_depth", &g.Attrs.BottomDepth}} {
		v, ok := f.Header.GetAttribute("", a.name).([]float64)
		if !ok || len(v) == 0 {
			return nil, fmt.Errorf("niskine: gridded file is missing attribute %s", a.name)
		}
		*a.dst = v[0]
	}
	return g, nil
}

// WriteADCP writes the record of one instrument to w in the layout
// read by ReadADCP.
func WriteADCP(w *os.File, a *ADCP) error {
	if err := a.check(); err != nil {
		return err
	}
	tv, tunits := encodeCFTime(a.Time)
	d := &ncFile{
		dims:    []string{"z", "time"},
		lengths: []int{len(a.Z), len(a.Time)},
		attrs:   map[string]interface{}{"sn": []int32{int32(a.SN)}},
		vars: map[string]ncData{
			"time":        {Dims: []string{"time"}, Units: tunits, Data: tv},
			"z":           {Dims: []string{"z"}, Units: "m", Data: a.Z},
			"u":           {Dims: []string{"z", "time"}, Units: "m/s", Data: a.U},
			"v":           {Dims: []string{"z", "time"}, Units: "m/s", Data: a.V},
			"pressure":    {Dims: []string{"time"}, Units: "dbar", Data: a.Pressure},
			"temperature": {Dims: []string{"time"}, Units: "°C", Data: a.Temperature},
		},
	}
	if a.W != nil {
		d.vars["w"] = ncData{Dims: []string{"z", "time"}, Units: "m/s", Data: a.W}
	}
	if a.Amp != nil {
		d.vars["amp"] = ncData{Dims: []string{"z", "time"}, Units: "dB", Data: a.Amp}
	}
	return d.write(w)
}
