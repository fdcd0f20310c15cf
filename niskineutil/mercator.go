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
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cast"
	"golang.org/x/term"
)

// Region is a longitude/latitude box.
type Region struct {
	LonMin, LonMax float64
	LatMin, LatMax float64
}

// NISKINeRegion is the area around the NISKINe moorings.
var NISKINeRegion = Region{LonMin: -27, LonMax: -19, LatMin: 57, LatMax: 60}

// MercatorDataset holds the request defaults of a Copernicus Marine
// product.
type MercatorDataset struct {
	URL       string // MOTU server; replaced by the mercator.url option
	Service   string
	Product   string
	Variables []string
	Depth     []float64 // depth range; nil for surface products
}

// MercatorDatasets are the products that can be retrieved:
// daily gridded altimetry for the whole deployment ("ssh") and the
// hourly global analysis, available from 2020 ("hourly").
var MercatorDatasets = map[string]MercatorDataset{
	"ssh": {
		URL:       "https://my.cmems-du.eu/motu-web/Motu",
		Service:   "SEALEVEL_GLO_PHY_L4_MY_008_047-TDS",
		Product:   "cmems_obs-sl_glo_phy-ssh_my_allsat-l4-duacs-0.25deg_P1D",
		Variables: []string{"adt", "sla", "ugos", "ugosa", "vgos", "vgosa"},
	},
	"hourly": {
		URL:       "https://nrt.cmems-du.eu/motu-web/Motu",
		Service:   "GLOBAL_ANALYSIS_FORECAST_PHY_001_024-TDS",
		Product:   "global-analysis-forecast-phy-001-024-hourly-t-u-v-ssh",
		Variables: []string{"thetao", "uo", "vo", "zos"},
		Depth:     []float64{0.493, 0.4942},
	},
}

// RetrieveMercatorData downloads subsets of a Copernicus Marine
// product.
type RetrieveMercatorData struct {
	Dataset string
	MercatorDataset

	// OutDir is the default output directory.
	OutDir string

	// Username and Password are the Copernicus Marine credentials.
	// If empty, they are taken from the COPERNICUS_USERNAME and
	// COPERNICUS_PASSWORD environment variables or requested on the
	// terminal.
	Username, Password string

	Client *http.Client
	Log    logrus.FieldLogger
}

// NewRetrieveMercatorData returns a retriever for dataset ("ssh" or
// "hourly") saving to outDir.
func NewRetrieveMercatorData(dataset, outDir string) (*RetrieveMercatorData, error) {
	d, ok := MercatorDatasets[dataset]
	if !ok {
		return nil, fmt.Errorf("niskine: unknown Mercator dataset %q; valid datasets are \"ssh\" and \"hourly\"", dataset)
	}
	return &RetrieveMercatorData{
		Dataset:         dataset,
		MercatorDataset: d,
		OutDir:          outDir,
		Client:          http.DefaultClient,
		Log:             Log,
	}, nil
}

// MercatorRequest is one subset of a product.
type MercatorRequest struct {
	DateMin, DateMax time.Time
	Region
	Variables []string
	OutDir    string
	OutName   string
}

const mercatorTimeFormat = "2006-01-02 15:04:05"

// Request fills a request from the dataset defaults and options, which
// may set date_min, date_max, longitude_min, longitude_max,
// latitude_min, latitude_max, variables, out_dir, and out_name.
func (rm *RetrieveMercatorData) Request(options map[string]interface{}) (*MercatorRequest, error) {
	req := &MercatorRequest{
		Region:    NISKINeRegion,
		Variables: rm.Variables,
		OutDir:    rm.OutDir,
		OutName:   fmt.Sprintf("mercator_%s.nc", rm.Dataset),
	}
	var err error
	for k, v := range options {
		switch k {
		case "date_min":
			req.DateMin, err = cast.ToTimeE(v)
		case "date_max":
			req.DateMax, err = cast.ToTimeE(v)
		case "longitude_min":
			req.LonMin, err = cast.ToFloat64E(v)
		case "longitude_max":
			req.LonMax, err = cast.ToFloat64E(v)
		case "latitude_min":
			req.LatMin, err = cast.ToFloat64E(v)
		case "latitude_max":
			req.LatMax, err = cast.ToFloat64E(v)
		case "variables":
			req.Variables, err = cast.ToStringSliceE(v)
		case "out_dir":
			req.OutDir, err = cast.ToStringE(v)
		case "out_name":
			req.OutName, err = cast.ToStringE(v)
		default:
			err = fmt.Errorf("unknown option")
		}
		if err != nil {
			return nil, fmt.Errorf("niskine: Mercator option %s: %v", k, err)
		}
	}
	if req.DateMin.IsZero() || req.DateMax.IsZero() {
		return nil, fmt.Errorf("niskine: Mercator request needs date_min and date_max")
	}
	if !req.DateMax.After(req.DateMin) {
		return nil, fmt.Errorf("niskine: Mercator request date_max is not after date_min")
	}
	if req.LonMax <= req.LonMin || req.LatMax <= req.LatMin {
		return nil, fmt.Errorf("niskine: Mercator request region %+v is empty", req.Region)
	}
	if req.OutDir == "" {
		req.OutDir = "."
	}
	return req, nil
}

// query returns the MOTU query parameters of req.
func (rm *RetrieveMercatorData) query(req *MercatorRequest) url.Values {
	q := url.Values{}
	q.Set("action", "productdownload")
	q.Set("service", rm.Service)
	q.Set("product", rm.Product)
	q.Set("x_lo", cast.ToString(req.LonMin))
	q.Set("x_hi", cast.ToString(req.LonMax))
	q.Set("y_lo", cast.ToString(req.LatMin))
	q.Set("y_hi", cast.ToString(req.LatMax))
	q.Set("t_lo", req.DateMin.UTC().Format(mercatorTimeFormat))
	q.Set("t_hi", req.DateMax.UTC().Format(mercatorTimeFormat))
	if len(rm.Depth) == 2 {
		q.Set("z_lo", cast.ToString(rm.Depth[0]))
		q.Set("z_hi", cast.ToString(rm.Depth[1]))
	}
	for _, v := range req.Variables {
		q.Add("variable", v)
	}
	q.Set("mode", "console")
	return q
}

// credentials fills in missing credentials from the environment or
// the terminal.
func (rm *RetrieveMercatorData) credentials(in io.Reader, out io.Writer) error {
	if rm.Username == "" {
		rm.Username = os.Getenv("COPERNICUS_USERNAME")
	}
	if rm.Password == "" {
		rm.Password = os.Getenv("COPERNICUS_PASSWORD")
	}
	if rm.Username != "" && rm.Password != "" {
		return nil
	}
	f, ok := in.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return fmt.Errorf("niskine: Copernicus credentials missing; set COPERNICUS_USERNAME and COPERNICUS_PASSWORD")
	}
	if rm.Username == "" {
		fmt.Fprint(out, "Copernicus username: ")
		s, err := bufio.NewReader(f).ReadString('\n')
		if err != nil {
			return fmt.Errorf("niskine: reading username: %w", err)
		}
		rm.Username = strings.TrimSpace(s)
	}
	if rm.Password == "" {
		fmt.Fprint(out, "Copernicus password: ")
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(out)
		if err != nil {
			return fmt.Errorf("niskine: reading password: %w", err)
		}
		rm.Password = string(b)
	}
	return nil
}

// Retrieve downloads the subset described by options and returns the
// path of the saved file.
func (rm *RetrieveMercatorData) Retrieve(ctx context.Context, options map[string]interface{}) (string, error) {
	req, err := rm.Request(options)
	if err != nil {
		return "", err
	}
	if err := rm.credentials(os.Stdin, os.Stderr); err != nil {
		return "", err
	}
	if err := os.MkdirAll(req.OutDir, os.ModePerm); err != nil {
		return "", fmt.Errorf("niskine: creating output directory: %w", err)
	}
	out := filepath.Join(req.OutDir, req.OutName)
	u := rm.URL + "?" + rm.query(req).Encode()
	rm.Log.WithFields(logrus.Fields{
		"product":  rm.Product,
		"date_min": req.DateMin,
		"date_max": req.DateMax,
	}).Infof("retrieving %s", out)
	newRequest := func(ctx context.Context) (*http.Request, error) {
		r, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return nil, err
		}
		r.SetBasicAuth(rm.Username, rm.Password)
		return r, nil
	}
	if err := fetch(ctx, rm.Client, newRequest, out, rm.Log); err != nil {
		return "", err
	}
	return out, nil
}

// MonthlyRequests splits year into one option set per month, each
// spanning from half an hour after the start of the month to half an
// hour before its end, saved as <prefix>_<year>_<MM>.nc.
func MonthlyRequests(year int, prefix string) []map[string]interface{} {
	o := make([]map[string]interface{}, 12)
	for i := range o {
		start := time.Date(year, time.Month(i+1), 1, 0, 0, 0, 0, time.UTC)
		end := start.AddDate(0, 1, 0)
		o[i] = map[string]interface{}{
			"date_min": start.Add(30 * time.Minute).Format(mercatorTimeFormat),
			"date_max": end.Add(-30 * time.Minute).Format(mercatorTimeFormat),
			"out_name": fmt.Sprintf("%s_%d_%02d.nc", prefix, year, i+1),
		}
	}
	return o
}
