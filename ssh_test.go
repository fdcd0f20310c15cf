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
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ctessum/cdf"
)

// testSSH returns a 2x2 grid with three daily maps, two in January
// and one in February.
func testSSH() *SSH {
	nan := math.NaN()
	return &SSH{
		Time: []time.Time{
			time.Date(2019, 1, 30, 0, 0, 0, 0, time.UTC),
			time.Date(2019, 1, 31, 0, 0, 0, 0, time.UTC),
			time.Date(2019, 2, 1, 0, 0, 0, 0, time.UTC),
		},
		Lat: []float64{58.875, 59.125},
		Lon: []float64{338.625, 338.875},
		UGOSA: denseFrom([]float64{
			1, 0, 0, nan,
			3, 0, 0, nan,
			2, 0, 0, nan,
		}, 3, 2, 2),
		VGOSA: denseFrom([]float64{
			1, 0, 2, nan,
			3, 0, 2, nan,
			0, 0, 2, nan,
		}, 3, 2, 2),
	}
}

func TestEKE(t *testing.T) {
	nan := math.NaN()
	s := testSSH()
	eke := s.EKE()
	arrayEqual(eke, denseFrom([]float64{
		1, 0, 2, nan,
		9, 0, 2, nan,
		2, 0, 2, nan,
	}, 3, 2, 2), "eke", t)

	arrayEqual(MeanEKE(eke), denseFrom([]float64{4, 0, 2, nan}, 2, 2), "mean", t)

	monthly := s.MonthlyEKE(eke)
	if monthly.Shape[0] != 12 {
		t.Fatalf("shape %v", monthly.Shape)
	}
	if v := monthly.Get(0, 0, 0); v != 5 {
		t.Errorf("January: have %g", v)
	}
	if v := monthly.Get(1, 0, 0); v != 2 {
		t.Errorf("February: have %g", v)
	}
	if v := monthly.Get(6, 0, 0); !math.IsNaN(v) {
		t.Errorf("July: have %g", v)
	}
}

func TestEKEAt(t *testing.T) {
	s := testSSH()
	have, err := s.EKEAt(s.EKE(), -21.1, 59.1)
	if err != nil {
		t.Fatal(err)
	}
	// The nearest cell is (59.125, 338.875), which has no data.
	for _, v := range have {
		if !math.IsNaN(v) {
			t.Errorf("have %v", have)
			break
		}
	}
	have, err = s.EKEAt(s.EKE(), -21.3, 58.9)
	if err != nil {
		t.Fatal(err)
	}
	if !sameFloats(have, []float64{1, 9, 2}) {
		t.Errorf("have %v", have)
	}
}

func TestEKEClimatologyWrite(t *testing.T) {
	c := testSSH().Climatology()
	name := filepath.Join(t.TempDir(), "eke.nc")
	f, err := os.Create(name)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err = c.Write(f); err != nil {
		t.Fatal(err)
	}
	cf, err := cdf.Open(f)
	if err != nil {
		t.Fatal(err)
	}
	have, err := readNCF(cf, "eke_mean")
	if err != nil {
		t.Fatal(err)
	}
	if !sameFloats(have, c.Mean.Elements) {
		t.Errorf("want %v but have %v", c.Mean.Elements, have)
	}
	if l := cf.Header.Lengths("eke_monthly"); len(l) != 3 || l[0] != 12 {
		t.Errorf("monthly lengths %v", l)
	}
}
