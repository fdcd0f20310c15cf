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
	"testing"
	"time"
)

func TestInterpolateTime(t *testing.T) {
	nan := math.NaN()
	tt := testTimes(t0, 4, 20*time.Minute)
	a := NewADCP(1, tt, []float64{10, 20})
	copy(a.U.Elements, []float64{0, 2, 4, nan, 1, 1, 1, 1})
	copy(a.Pressure, []float64{100, 102, 104, 106})

	tnew := testTimes(t0.Add(-10*time.Minute), 9, 10*time.Minute)
	o, err := InterpolateTime([]*ADCP{a}, tnew)
	if err != nil {
		t.Fatal(err)
	}
	b := o[0]
	arrayEqual(b.U, denseFrom([]float64{
		nan, 0, 1, 2, 3, 4, nan, nan, nan,
		nan, 1, 1, 1, 1, 1, 1, 1, nan,
	}, 2, 9), "u", t)
	if want := []float64{nan, 100, 101, 102, 103, 104, 105, 106, nan}; !sameFloats(b.Pressure, want) {
		t.Errorf("pressure: want %v but have %v", want, b.Pressure)
	}
	if !sameFloats(a.Pressure, []float64{100, 102, 104, 106}) {
		t.Error("input was modified")
	}
	if len(b.Time) != len(tnew) {
		t.Errorf("time length %d", len(b.Time))
	}
}

func TestInterpolateDepth(t *testing.T) {
	nan := math.NaN()
	a := NewADCP(1, testTimes(t0, 2, time.Hour), []float64{10, 20, 30})
	copy(a.U.Elements, []float64{
		1, 2,
		3, nan,
		5, 6,
	})
	o, err := InterpolateDepth([]*ADCP{a}, []float64{0, 10, 15, 20, 25, 30, 35})
	if err != nil {
		t.Fatal(err)
	}
	// A missing sample blanks both segments next to it, including the
	// samples at their ends.
	arrayEqual(o[0].U, denseFrom([]float64{
		nan, nan,
		1, nan,
		2, nan,
		3, nan,
		4, nan,
		5, nan,
		nan, nan,
	}, 7, 2), "u", t)
	arrayEqual(o[0].W, nanDense(7, 2), "w", t)
}

func TestLinearAtSamples(t *testing.T) {
	nan := math.NaN()
	l, err := newLinear([]float64{0, 1, 2})
	if err != nil {
		t.Fatal(err)
	}
	for _, test := range []struct {
		ys, want []float64
	}{
		{[]float64{nan, 5, 6}, []float64{nan, nan, 6}},
		{[]float64{4, 5, nan}, []float64{4, 5, nan}},
		{[]float64{4, nan, 6}, []float64{nan, nan, nan}},
		{[]float64{4, 5, 6}, []float64{4, 5, 6}},
	} {
		have := make([]float64, 3)
		l.at(have, test.ys, []float64{0, 1, 2})
		if !sameFloats(have, test.want) {
			t.Errorf("%v: want %v but have %v", test.ys, test.want, have)
		}
	}
}

func TestInterpolateDepthNotIncreasing(t *testing.T) {
	a := NewADCP(1, testTimes(t0, 2, time.Hour), []float64{10, 10})
	if _, err := InterpolateDepth([]*ADCP{a}, []float64{0, 10}); err == nil {
		t.Error("repeated depth should fail")
	}
}

func TestFillInterior(t *testing.T) {
	nan := math.NaN()
	v := []float64{nan, 1, nan, nan, 4, nan}
	fillInterior([]float64{0, 1, 2, 3, 4, 5}, v)
	if want := []float64{nan, 1, 2, 3, 4, nan}; !sameFloats(v, want) {
		t.Errorf("want %v but have %v", want, v)
	}
}
