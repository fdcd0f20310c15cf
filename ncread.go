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
	"path/filepath"
	"reflect"
	"regexp"
	"sort"
	"strconv"

	"github.com/batchatco/go-native-netcdf/netcdf"
	"github.com/batchatco/go-native-netcdf/netcdf/api"
	"github.com/ctessum/sparse"
)

// ncVar is a numeric netCDF variable unpacked to float64, with fill
// values replaced by NaN.
type ncVar struct {
	dims   []string
	values []float64
	attrs  api.AttributeMap
}

func hasVar(g api.Group, name string) bool {
	for _, v := range g.ListVariables() {
		if v == name {
			return true
		}
	}
	return false
}

// readVar reads variable name from g, applying the _FillValue,
// missing_value, scale_factor, and add_offset attributes.
func readVar(g api.Group, name string) (*ncVar, error) {
	v, err := g.GetVariable(name)
	if err != nil {
		return nil, fmt.Errorf("niskine: reading netcdf variable %s: %w", name, err)
	}
	vals, err := toFloat64(v.Values)
	if err != nil {
		return nil, fmt.Errorf("niskine: netcdf variable %s: %w", name, err)
	}
	o := &ncVar{dims: v.Dimensions, values: vals, attrs: v.Attributes}
	var fills []float64
	for _, a := range []string{"_FillValue", "missing_value"} {
		if f, ok := attrFloat(v.Attributes, a); ok && !math.IsNaN(f) {
			fills = append(fills, f)
		}
	}
	scale, hasScale := attrFloat(v.Attributes, "scale_factor")
	offset, hasOffset := attrFloat(v.Attributes, "add_offset")
	for i, x := range o.values {
		for _, f := range fills {
			if x == f {
				x = math.NaN()
			}
		}
		if hasScale {
			x *= scale
		}
		if hasOffset {
			x += offset
		}
		o.values[i] = x
	}
	return o, nil
}

// attrString returns the string attribute key.
func attrString(attrs api.AttributeMap, key string) (string, bool) {
	if attrs == nil {
		return "", false
	}
	v, ok := attrs.Get(key)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// attrFloat returns the first value of the numeric attribute key.
func attrFloat(attrs api.AttributeMap, key string) (float64, bool) {
	if attrs == nil {
		return 0, false
	}
	v, ok := attrs.Get(key)
	if !ok {
		return 0, false
	}
	f, err := toFloat64(v)
	if err != nil || len(f) == 0 {
		return 0, false
	}
	return f[0], true
}

// toFloat64 flattens a numeric value or a (nested) slice of numeric
// values, as returned by the netcdf reader, into a []float64.
func toFloat64(v interface{}) ([]float64, error) {
	var o []float64
	var walk func(rv reflect.Value) error
	walk = func(rv reflect.Value) error {
		switch rv.Kind() {
		case reflect.Slice, reflect.Array:
			for i := 0; i < rv.Len(); i++ {
				if err := walk(rv.Index(i)); err != nil {
					return err
				}
			}
		case reflect.Float32, reflect.Float64:
			o = append(o, rv.Float())
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			o = append(o, float64(rv.Int()))
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			o = append(o, float64(rv.Uint()))
		case reflect.Interface, reflect.Ptr:
			if rv.IsNil() {
				return fmt.Errorf("nil value")
			}
			return walk(rv.Elem())
		default:
			return fmt.Errorf("non-numeric type %s", rv.Type())
		}
		return nil
	}
	if err := walk(reflect.ValueOf(v)); err != nil {
		return nil, err
	}
	return o, nil
}

// toZT arranges the values of v as a (z, time) array.
func (v *ncVar) toZT(name string, nz, nt int) (*sparse.DenseArray, error) {
	if len(v.values) != nz*nt {
		return nil, fmt.Errorf("niskine: variable %s has %d values but the grid has %d", name, len(v.values), nz*nt)
	}
	o := sparse.ZerosDense(nz, nt)
	if len(v.dims) == 2 && v.dims[0] == "time" && v.dims[1] == "z" {
		for j := 0; j < nt; j++ {
			for k := 0; k < nz; k++ {
				o.Elements[k*nt+j] = v.values[j*nz+k]
			}
		}
		return o, nil
	}
	copy(o.Elements, v.values)
	return o, nil
}

var snPattern = regexp.MustCompile(`_(\d+)\.nc$`)

// ReadADCP reads the processed record of one instrument from a netCDF
// (classic or NetCDF4) file. The file must hold the coordinates time
// and z, velocities u and v on (z, time), and pressure on (time).
// Vertical velocity w, echo amplitude amp, and temperature are
// optional.
func ReadADCP(path string) (*ADCP, error) {
	g, err := netcdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("niskine: opening ADCP file %s: %w", path, err)
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
	a := new(ADCP)
	if a.Time, err = decodeCFTime(tv.values, units); err != nil {
		return nil, fmt.Errorf("niskine: %s: %w", path, err)
	}
	zv, err := readVar(g, "z")
	if err != nil {
		return nil, err
	}
	a.Z = zv.values
	nz, nt := len(a.Z), len(a.Time)

	for _, f := range []struct {
		name     string
		dst      **sparse.DenseArray
		required bool
	}{
		{"u", &a.U, true},
		{"v", &a.V, true},
		{"w", &a.W, false},
		{"amp", &a.Amp, false},
	} {
		if !f.required && !hasVar(g, f.name) {
			*f.dst = nanDense(nz, nt)
			continue
		}
		v, err := readVar(g, f.name)
		if err != nil {
			return nil, err
		}
		if *f.dst, err = v.toZT(f.name, nz, nt); err != nil {
			return nil, fmt.Errorf("%v in %s", err, path)
		}
	}

	pv, err := readVar(g, "pressure")
	if err != nil {
		return nil, err
	}
	a.Pressure = pv.values
	if hasVar(g, "temperature") {
		tv, err := readVar(g, "temperature")
		if err != nil {
			return nil, err
		}
		a.Temperature = tv.values
	} else {
		a.Temperature = nanSlice(nt)
	}

	if sn, ok := attrFloat(g.Attributes(), "sn"); ok {
		a.SN = int(sn)
	} else if m := snPattern.FindStringSubmatch(filepath.Base(path)); m != nil {
		a.SN, _ = strconv.Atoi(m[1])
	}

	if nz > 1 && a.Z[0] > a.Z[nz-1] {
		a.flipZ()
	}
	if err := a.check(); err != nil {
		return nil, fmt.Errorf("%v in %s", err, path)
	}
	return a, nil
}

// flipZ reverses the depth axis of a.
func (a *ADCP) flipZ() {
	nz, nt := len(a.Z), len(a.Time)
	for i, j := 0, nz-1; i < j; i, j = i+1, j-1 {
		a.Z[i], a.Z[j] = a.Z[j], a.Z[i]
	}
	for _, f := range a.fields2D() {
		if *f == nil {
			continue
		}
		e := (*f).Elements
		for i, j := 0, nz-1; i < j; i, j = i+1, j-1 {
			for t := 0; t < nt; t++ {
				e[i*nt+t], e[j*nt+t] = e[j*nt+t], e[i*nt+t]
			}
		}
	}
}

// LoadMooringADCPs reads the processed records of all instruments on
// mooring m, stored in dir as M<N>_<sn>.nc, in file name order.
func LoadMooringADCPs(dir string, m Mooring) ([]*ADCP, error) {
	files, err := filepath.Glob(filepath.Join(dir, m.Name()+"_*.nc"))
	if err != nil {
		return nil, fmt.Errorf("niskine: listing ADCP files: %w", err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("niskine: no ADCP files for %s in %s", m.Name(), dir)
	}
	sort.Strings(files)
	o := make([]*ADCP, len(files))
	for i, f := range files {
		if o[i], err = ReadADCP(f); err != nil {
			return nil, err
		}
	}
	return o, nil
}
