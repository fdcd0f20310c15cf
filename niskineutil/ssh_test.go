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
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ctessum/cdf"
	"github.com/modscripps/niskine"
)

// writeSSHFile writes a 2x2 altimetry grid with three daily maps. Only
// the cell closest to mooring m1 has velocity anomalies.
func writeSSHFile(t *testing.T, path string) {
	t.Helper()
	epoch := time.Date(1950, 1, 1, 0, 0, 0, 0, time.UTC)
	var days []float64
	for _, d := range []time.Time{
		time.Date(2019, 1, 30, 0, 0, 0, 0, time.UTC),
		time.Date(2019, 1, 31, 0, 0, 0, 0, time.UTC),
		time.Date(2019, 2, 1, 0, 0, 0, 0, time.UTC),
	} {
		days = append(days, d.Sub(epoch).Hours()/24)
	}
	data := map[string][]float64{
		"time":      days,
		"latitude":  {58.875, 59.125},
		"longitude": {-21.375, -21.125},
		"ugosa": {
			0, 0, 0, 1,
			0, 0, 0, 3,
			0, 0, 0, 2,
		},
		"vgosa": {
			0, 0, 0, 1,
			0, 0, 0, 3,
			0, 0, 0, 0,
		},
	}
	dims := map[string][]string{
		"time":      {"time"},
		"latitude":  {"latitude"},
		"longitude": {"longitude"},
		"ugosa":     {"time", "latitude", "longitude"},
		"vgosa":     {"time", "latitude", "longitude"},
	}
	names := []string{"latitude", "longitude", "time", "ugosa", "vgosa"}

	h := cdf.NewHeader([]string{"time", "latitude", "longitude"}, []int{3, 2, 2})
	for _, n := range names {
		h.AddVariable(n, dims[n], []float64{0})
	}
	h.AddAttribute("time", "units", "days since 1950-01-01 00:00:00")
	h.Define()

	if err := os.MkdirAll(filepath.Dir(path), os.ModePerm); err != nil {
		t.Fatal(err)
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	cf, err := cdf.Create(f, h)
	if err != nil {
		t.Fatal(err)
	}
	for _, n := range names {
		// A full write of a fixed-size variable ends with io.EOF.
		if _, err := cf.Writer(n, nil, nil).Write(data[n]); err != nil && err != io.EOF {
			t.Fatal(err)
		}
	}
	if err := cdf.UpdateNumRecs(f); err != nil {
		t.Fatal(err)
	}
}

func TestSSHEKE(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "mercator_ssh.nc")
	writeSSHFile(t, in)
	out := filepath.Join(dir, "eke", "eke.nc")

	r, err := SSHEKE(context.Background(), in, testMooring, out, testLog(t))
	if err != nil {
		t.Fatal(err)
	}
	if r.Mooring != "M1" {
		t.Errorf("mooring %s", r.Mooring)
	}
	if r.Mean != 4 {
		t.Errorf("mean EKE: want 4 but have %g", r.Mean)
	}
	want := []float64{1, 9, 2}
	for i, v := range r.Series {
		if v != want[i] {
			t.Errorf("series: want %v but have %v", want, r.Series)
			break
		}
	}

	f, err := os.Open(out)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	cf, err := cdf.Open(f)
	if err != nil {
		t.Fatal(err)
	}
	if l := cf.Header.Lengths("eke_monthly"); len(l) != 3 || l[0] != 12 || l[1] != 2 || l[2] != 2 {
		t.Errorf("monthly shape %v", l)
	}
}

func TestSSHEKEMissingData(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "mercator_ssh.nc")
	writeSSHFile(t, in)

	// The nearest cell to this mooring has no anomalies, which gives
	// zero EKE rather than a missing value.
	m := niskine.Mooring{ID: 9, Lon: -21.4, Lat: 58.8}
	r, err := SSHEKE(context.Background(), in, m, filepath.Join(dir, "eke.nc"), testLog(t))
	if err != nil {
		t.Fatal(err)
	}
	if r.Mean != 0 {
		t.Errorf("mean EKE %g", r.Mean)
	}

	if _, err := SSHEKE(context.Background(), filepath.Join(dir, "missing.nc"), m, filepath.Join(dir, "eke2.nc"), testLog(t)); err == nil {
		t.Error("missing input: expected an error")
	}
}
