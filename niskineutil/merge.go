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

	"github.com/ctessum/requestcache"
	"github.com/modscripps/niskine"
	"github.com/sirupsen/logrus"
)

// MergeRun merges the ADCPs of one or more moorings with one or more
// merge methods and saves the products.
type MergeRun struct {
	Config *Config

	Moorings []int
	Methods  []niskine.Method

	// Merge holds the merge parameters. Its Method field is replaced
	// by each of Methods in turn.
	Merge niskine.MergeConfig

	// FillGaps additionally saves each product with gaps filled.
	FillGaps bool

	// Label, if not empty, is prepended to the file name suffix.
	Label string

	// InDir and OutDir override the processed and gridded ADCP
	// directories of the project configuration.
	InDir, OutDir string

	Log logrus.FieldLogger

	adcps *requestcache.Cache
}

// loadADCPs returns the instruments of mooring m. Records are read once
// and shared between merge methods.
func (r *MergeRun) loadADCPs(ctx context.Context, m niskine.Mooring) ([]*niskine.ADCP, error) {
	if r.adcps == nil {
		r.adcps = requestcache.NewCache(func(ctx context.Context, request interface{}) (interface{}, error) {
			m := request.(niskine.Mooring)
			r.Log.WithField("mooring", m.Name()).Infof("loading ADCP records from %s", r.InDir)
			return niskine.LoadMooringADCPs(r.InDir, m)
		}, 1, requestcache.Deduplicate(), requestcache.Memory(len(r.Moorings)+1))
	}
	v, err := r.adcps.NewRequest(ctx, m, m.Name()).Result()
	if err != nil {
		return nil, err
	}
	return v.([]*niskine.ADCP), nil
}

func (r *MergeRun) suffix(m niskine.Method, filled bool) string {
	s := string(m) + "_merge"
	if r.Label != "" {
		s = r.Label + "_" + s
	}
	if filled {
		s += "_gaps_filled"
	}
	return s
}

// Run carries out the merges and returns the paths of the saved files.
func (r *MergeRun) Run(ctx context.Context) ([]string, error) {
	if r.Log == nil {
		r.Log = Log
	}
	var err error
	if r.InDir == "" {
		if r.InDir, err = r.Config.ProcADCPDir(); err != nil {
			return nil, err
		}
	}
	if r.OutDir == "" {
		if r.OutDir, err = r.Config.GriddedADCPDir(); err != nil {
			return nil, err
		}
	}
	if len(r.Methods) == 0 {
		return nil, fmt.Errorf("niskine: no merge method selected")
	}
	var files []string
	for _, id := range r.Moorings {
		m, err := r.Config.Mooring(id)
		if err != nil {
			return files, err
		}
		adcps, err := r.loadADCPs(ctx, m)
		if err != nil {
			return files, err
		}
		for _, method := range r.Methods {
			cfg := r.Merge
			cfg.Method = method
			ma, err := niskine.NewMergeADCP(m, adcps, cfg, r.Log)
			if err != nil {
				return files, err
			}
			f, err := Save(ctx, ma.Merged, r.OutDir, r.suffix(method, false))
			if err != nil {
				return files, err
			}
			r.Log.WithField("mooring", m.Name()).Infof("saved %s", f)
			files = append(files, f)
			if !r.FillGaps {
				continue
			}
			f, err = Save(ctx, ma.FillGaps(), r.OutDir, r.suffix(method, true))
			if err != nil {
				return files, err
			}
			r.Log.WithField("mooring", m.Name()).Infof("saved %s", f)
			files = append(files, f)
		}
	}
	return files, nil
}
