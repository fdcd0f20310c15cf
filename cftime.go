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
	"strings"
	"time"
)

// cfEpochFormats are the reference time layouts accepted in CF time
// units, most specific first.
var cfEpochFormats = []string{
	"2006-01-02T15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006-01-02",
	"2006-1-2 15:4:5",
	"2006-1-2",
}

// parseCFUnits parses CF time units such as "minutes since
// 2019-05-01 00:00:00" into a step and a reference time (UTC).
func parseCFUnits(units string) (time.Duration, time.Time, error) {
	parts := strings.SplitN(strings.TrimSpace(units), " since ", 2)
	if len(parts) != 2 {
		return 0, time.Time{}, fmt.Errorf("niskine: invalid CF time units %q", units)
	}
	var step time.Duration
	switch strings.ToLower(strings.TrimSpace(parts[0])) {
	case "nanoseconds", "nanosecond", "ns":
		step = time.Nanosecond
	case "microseconds", "microsecond", "us":
		step = time.Microsecond
	case "milliseconds", "millisecond", "ms":
		step = time.Millisecond
	case "seconds", "second", "secs", "sec", "s":
		step = time.Second
	case "minutes", "minute", "mins", "min":
		step = time.Minute
	case "hours", "hour", "hrs", "hr", "h":
		step = time.Hour
	case "days", "day", "d":
		step = 24 * time.Hour
	default:
		return 0, time.Time{}, fmt.Errorf("niskine: unsupported CF time step in %q", units)
	}
	ref := strings.TrimSpace(parts[1])
	ref = strings.TrimSuffix(ref, " UTC")
	ref = strings.TrimSuffix(ref, " utc")
	if strings.HasSuffix(ref, " +00:00") || strings.HasSuffix(ref, " 0:00") {
		ref = ref[:strings.LastIndex(ref, " ")]
	}
	for _, layout := range cfEpochFormats {
		if t, err := time.Parse(layout, ref); err == nil {
			return step, t.UTC(), nil
		}
	}
	return 0, time.Time{}, fmt.Errorf("niskine: invalid reference time in CF time units %q", units)
}

// decodeCFTime converts numeric time values with CF units to times.
func decodeCFTime(v []float64, units string) ([]time.Time, error) {
	step, ref, err := parseCFUnits(units)
	if err != nil {
		return nil, err
	}
	o := make([]time.Time, len(v))
	for i, x := range v {
		if math.IsNaN(x) {
			return nil, fmt.Errorf("niskine: missing value in time variable at index %d", i)
		}
		whole := math.Trunc(x)
		frac := time.Duration(math.Round((x - whole) * float64(step)))
		o[i] = ref.Add(time.Duration(whole)*step + frac)
	}
	return o, nil
}

// encodeCFTime converts times to seconds since the Unix epoch.
func encodeCFTime(t []time.Time) ([]float64, string) {
	return timeAxis(t), "seconds since 1970-01-01 00:00:00"
}
