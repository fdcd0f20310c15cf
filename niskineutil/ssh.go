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
	"math"
	"os"
	"path/filepath"

	"github.com/modscripps/niskine"
	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/stat"
)

// EKEResult summarizes the eddy kinetic energy at a mooring.
type EKEResult struct {
	Mooring string
	Mean    float64   // time-mean EKE at the nearest grid cell [m²/s²]
	Series  []float64 // EKE time series at the nearest grid cell
	File    string    // climatology output file
}

// SSHEKE computes the eddy kinetic energy of the altimetry file sshFile,
// which may be a local path, a URL, or a blob. It writes the regional
// climatology to out and returns the EKE at mooring m.
func SSHEKE(ctx context.Context, sshFile string, m niskine.Mooring, out string, log logrus.FieldLogger) (*EKEResult, error) {
	if log == nil {
		log = Log
	}
	local, cleanup, err := maybeDownload(ctx, sshFile, log)
	if err != nil {
		return nil, err
	}
	defer cleanup()
	s, err := niskine.ReadSSH(local)
	if err != nil {
		return nil, err
	}
	eke := s.EKE()
	series, err := s.EKEAt(eke, m.Lon, m.Lat)
	if err != nil {
		return nil, err
	}
	r := &EKEResult{Mooring: m.Name(), Series: series, File: out, Mean: math.NaN()}
	if v := dropNaN(series); len(v) > 0 {
		r.Mean = stat.Mean(v, nil)
	}
	log.WithField("mooring", r.Mooring).Infof("mean EKE %.4g m²/s²", r.Mean)

	if err := os.MkdirAll(filepath.Dir(out), os.ModePerm); err != nil {
		return nil, fmt.Errorf("niskine: creating output directory: %w", err)
	}
	f, err := os.Create(out)
	if err != nil {
		return nil, fmt.Errorf("niskine: creating EKE file: %w", err)
	}
	if err := s.Climatology().Write(f); err != nil {
		f.Close()
		return nil, err
	}
	if err := f.Close(); err != nil {
		return nil, err
	}
	log.Infof("wrote EKE climatology to %s", out)
	return r, nil
}

func dropNaN(v []float64) []float64 {
	o := make([]float64, 0, len(v))
	for _, x := range v {
		if !math.IsNaN(x) {
			o = append(o, x)
		}
	}
	return o
}
