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
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/modscripps/niskine"
)

var t0 = time.Date(2019, 6, 1, 0, 0, 0, 0, time.UTC)

// testMooring matches mooring m1 of the example configuration.
var testMooring = niskine.Mooring{
	ID:          1,
	Lon:         -21.15,
	Lat:         59.07,
	BottomDepth: 2860,
	AtDepth:     niskine.TimeWindow{Start: t0, End: t0.Add(2 * time.Hour)},
}

// testADCP returns an instrument sampling every 10 minutes around the
// mooring window with uniform velocity and constant pressure.
func testADCP(sn int, z []float64, u, v, p float64) *niskine.ADCP {
	tt := make([]time.Time, 19)
	for i := range tt {
		tt[i] = t0.Add(-30*time.Minute + time.Duration(i)*10*time.Minute)
	}
	a := niskine.NewADCP(sn, tt, z)
	for i := range a.U.Elements {
		a.U.Elements[i] = u
		a.V.Elements[i] = v
	}
	for i := range a.Pressure {
		a.Pressure[i] = p
		a.Temperature[i] = 4
	}
	return a
}

func testADCPs() []*niskine.ADCP {
	return []*niskine.ADCP{
		testADCP(101, []float64{100, 110, 120, 130, 140, 150}, 1, -1, 90),
		testADCP(202, []float64{140, 160, 180, 200}, 2, -2, 190),
	}
}

func testMergeConfig() niskine.MergeConfig {
	cfg := niskine.DefaultMergeConfig()
	cfg.MaxDepth = 250
	cfg.MinEndTime = time.Time{}
	return cfg
}

// writeADCPs saves the test instruments of mooring id to dir.
func writeADCPs(t *testing.T, dir string, id int) {
	t.Helper()
	if err := os.MkdirAll(dir, os.ModePerm); err != nil {
		t.Fatal(err)
	}
	for _, a := range testADCPs() {
		f, err := os.Create(filepath.Join(dir, fmt.Sprintf("M%d_%d.nc", id, a.SN)))
		if err != nil {
			t.Fatal(err)
		}
		if err := niskine.WriteADCP(f, a); err != nil {
			t.Fatal(err)
		}
		f.Close()
	}
}

func readGridded(t *testing.T, file string) *niskine.Gridded {
	t.Helper()
	f, err := os.Open(file)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	g, err := niskine.ReadGridded(f)
	if err != nil {
		t.Fatal(err)
	}
	return g
}

func TestMergeRun(t *testing.T) {
	root := testProject(t)
	c, err := LoadConfig(filepath.Join(root, ConfigFileName))
	if err != nil {
		t.Fatal(err)
	}
	proc, _ := c.ProcADCPDir()
	writeADCPs(t, proc, 1)

	r := &MergeRun{
		Config:   c,
		Moorings: []int{1},
		Methods:  []niskine.Method{niskine.Simple, niskine.Median},
		Merge:    testMergeConfig(),
		FillGaps: true,
		Log:      testLog(t),
	}
	files, err := r.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	gridded := filepath.Join(root, "data", "adcp", "gridded")
	want := []string{
		filepath.Join(gridded, "M1_gridded_simple_merge.nc"),
		filepath.Join(gridded, "M1_gridded_simple_merge_gaps_filled.nc"),
		filepath.Join(gridded, "M1_gridded_median_merge.nc"),
		filepath.Join(gridded, "M1_gridded_median_merge_gaps_filled.nc"),
	}
	if !reflect.DeepEqual(files, want) {
		t.Fatalf("want %v but have %v", want, files)
	}

	simple := readGridded(t, files[0])
	if simple.Attrs.Mooring != "M1" || simple.Attrs.Project != niskine.Project {
		t.Errorf("attributes %+v", simple.Attrs)
	}
	if !reflect.DeepEqual(simple.Z, []float64{112, 128, 144, 160, 176, 192}) {
		t.Errorf("depths %v", simple.Z)
	}
	if !reflect.DeepEqual(simple.SN, []int{101, 202}) {
		t.Errorf("instruments %v", simple.SN)
	}
	if u := simple.U.Get(2, 0); u != 2 {
		t.Errorf("simple u at 144 m: %g", u)
	}
	median := readGridded(t, files[2])
	if u := median.U.Get(2, 0); u != 1.5 {
		t.Errorf("median u at 144 m: %g", u)
	}
	if filled := readGridded(t, files[1]); filled.W != nil {
		t.Error("gap filled product should not have w")
	}
}

func TestMergeRunLabel(t *testing.T) {
	r := &MergeRun{Label: "test"}
	if s := r.suffix(niskine.Median, true); s != "test_median_merge_gaps_filled" {
		t.Errorf("have %s", s)
	}
	r.Label = ""
	if s := r.suffix(niskine.Simple, false); s != "simple_merge" {
		t.Errorf("have %s", s)
	}
}

func TestMergeRunErrors(t *testing.T) {
	root := testProject(t)
	c, err := LoadConfig(filepath.Join(root, ConfigFileName))
	if err != nil {
		t.Fatal(err)
	}
	t.Run("no method", func(t *testing.T) {
		r := &MergeRun{Config: c, Moorings: []int{1}, Merge: testMergeConfig(), Log: testLog(t)}
		if _, err := r.Run(context.Background()); err == nil {
			t.Error("expected an error")
		}
	})
	t.Run("unknown mooring", func(t *testing.T) {
		r := &MergeRun{Config: c, Moorings: []int{3}, Methods: []niskine.Method{niskine.Simple}, Merge: testMergeConfig(), Log: testLog(t)}
		if _, err := r.Run(context.Background()); err == nil {
			t.Error("expected an error")
		}
	})
	t.Run("no input", func(t *testing.T) {
		r := &MergeRun{Config: c, Moorings: []int{2}, Methods: []niskine.Method{niskine.Simple}, Merge: testMergeConfig(), Log: testLog(t)}
		if _, err := r.Run(context.Background()); err == nil {
			t.Error("expected an error")
		}
	})
}

func TestSave(t *testing.T) {
	ma, err := niskine.NewMergeADCP(testMooring, testADCPs(), testMergeConfig(), testLog(t))
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	t.Run("local", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "gridded")
		f, err := Save(ctx, ma.Merged, dir, "")
		if err != nil {
			t.Fatal(err)
		}
		if f != filepath.Join(dir, "M1_gridded.nc") {
			t.Errorf("have %s", f)
		}
		g := readGridded(t, f)
		if len(g.Time) != len(ma.Merged.Time) {
			t.Errorf("have %d times", len(g.Time))
		}
	})
	t.Run("blob", func(t *testing.T) {
		chdir(t, t.TempDir())
		if err := os.MkdirAll("bucket", os.ModePerm); err != nil {
			t.Fatal(err)
		}
		f, err := Save(ctx, ma.Merged, "file://bucket/gridded", "simple_merge")
		if err != nil {
			t.Fatal(err)
		}
		if f != "file://bucket/gridded/M1_gridded_simple_merge.nc" {
			t.Errorf("have %s", f)
		}
		g := readGridded(t, filepath.Join("bucket", "gridded", "M1_gridded_simple_merge.nc"))
		if g.Attrs.Mooring != "M1" {
			t.Errorf("attributes %+v", g.Attrs)
		}
	})
}
