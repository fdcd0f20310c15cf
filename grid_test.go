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
	"reflect"
	"testing"
	"time"
)

func TestTimeVector(t *testing.T) {
	start := time.Date(2019, 6, 1, 0, 3, 27, 0, time.UTC)
	stop := time.Date(2019, 6, 1, 0, 43, 0, 0, time.UTC)
	have, err := TimeVector(start, stop, 10*time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	want := testTimes(time.Date(2019, 6, 1, 0, 3, 0, 0, time.UTC), 4, 10*time.Minute)
	if !reflect.DeepEqual(have, want) {
		t.Errorf("want %v but have %v", want, have)
	}

	// The stop time is excluded.
	have, err = TimeVector(t0, t0.Add(time.Hour), 10*time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	if len(have) != 6 || !have[5].Equal(t0.Add(50*time.Minute)) {
		t.Errorf("have %v", have)
	}

	// Seconds past the last whole minute of stop are dropped.
	have, err = TimeVector(t0, t0.Add(20*time.Minute+30*time.Second), 10*time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	if want := testTimes(t0, 2, 10*time.Minute); !reflect.DeepEqual(have, want) {
		t.Errorf("want %v but have %v", want, have)
	}

	if _, err := TimeVector(t0, t0.Add(time.Hour), 0); err == nil {
		t.Error("zero step should fail")
	}
	if _, err := TimeVector(t0, t0, time.Minute); err == nil {
		t.Error("empty span should fail")
	}
}

func TestDepthVector(t *testing.T) {
	for _, test := range []struct {
		dz, max float64
		n       int
		last    float64
	}{
		{dz: 16, max: 3000, n: 189, last: 3008},
		{dz: 10, max: 20, n: 3, last: 20},
		{dz: 10, max: 25, n: 4, last: 30},
		{dz: 10, max: 0, n: 1, last: 0},
	} {
		z, err := DepthVector(test.dz, test.max)
		if err != nil {
			t.Fatal(err)
		}
		if len(z) != test.n || z[len(z)-1] != test.last || z[0] != 0 {
			t.Errorf("DepthVector(%g, %g): have %d levels ending at %g", test.dz, test.max, len(z), z[len(z)-1])
		}
		for i := 1; i < len(z); i++ {
			if z[i]-z[i-1] != test.dz {
				t.Errorf("DepthVector(%g, %g): step %g at %d", test.dz, test.max, z[i]-z[i-1], i)
				break
			}
		}
	}
	if _, err := DepthVector(0, 100); err == nil {
		t.Error("zero step should fail")
	}
}

func TestMooringName(t *testing.T) {
	if have := (Mooring{ID: 3}).Name(); have != "M3" {
		t.Errorf("have %s", have)
	}
}
