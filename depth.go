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

import "math"

// PToDepth converts sea pressure p [dbar] at latitude lat [°] to depth
// [m], positive downward, using the UNESCO 1983 algorithm
// (Fofonoff & Millard, UNESCO technical papers in marine science 44).
func PToDepth(p, lat float64) float64 {
	x := math.Sin(lat * math.Pi / 180)
	x *= x
	gr := 9.780318*(1.0+(5.2788e-3+2.36e-5*x)*x) + 1.092e-6*p
	return (((-1.82e-15*p+2.279e-10)*p-2.2512e-5)*p + 9.72659) * p / gr
}
