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
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// CDSCredentials are the Climate Data Store API endpoint and key.
type CDSCredentials struct {
	URL string `yaml:"url"` // e.g. https://cds.climate.copernicus.eu/api
	Key string `yaml:"key"` // personal access token
}

// ReadCDSCredentials reads the CDS API configuration file (usually
// ~/.cdsapirc). The CDSAPI_URL and CDSAPI_KEY environment variables
// take precedence over the file.
func ReadCDSCredentials(file string) (*CDSCredentials, error) {
	c := new(CDSCredentials)
	if b, err := os.ReadFile(file); err == nil {
		if err := yaml.Unmarshal(b, c); err != nil {
			return nil, fmt.Errorf("niskine: parsing %s: %w", file, err)
		}
	} else if os.Getenv("CDSAPI_KEY") == "" {
		return nil, fmt.Errorf("niskine: reading CDS API configuration: %w", err)
	}
	if u := os.Getenv("CDSAPI_URL"); u != "" {
		c.URL = u
	}
	if k := os.Getenv("CDSAPI_KEY"); k != "" {
		c.Key = k
	}
	switch {
	case c.URL == "" || c.Key == "":
		return nil, fmt.Errorf("niskine: CDS API configuration needs a url and a key")
	case strings.Contains(c.Key, ":"):
		// Keys of the form <UID>:<API key> belong to the retired CDS.
		return nil, fmt.Errorf("niskine: CDS API key has the legacy <UID>:<key> form; use the personal access token from the CDS profile page")
	}
	return c, nil
}

func (c *CDSCredentials) setAuth(r *http.Request) {
	r.Header.Set("PRIVATE-TOKEN", c.Key)
}

// ERA5Request returns the CDS request for hourly 10 m wind over region
// for the given years, in netCDF format.
func ERA5Request(region Region, years []string) map[string]interface{} {
	var months, days, hours []string
	for i := 1; i <= 12; i++ {
		months = append(months, fmt.Sprintf("%02d", i))
	}
	for i := 1; i <= 31; i++ {
		days = append(days, fmt.Sprintf("%02d", i))
	}
	for i := 0; i < 24; i++ {
		hours = append(hours, fmt.Sprintf("%02d:00", i))
	}
	return map[string]interface{}{
		"product_type":    []string{"reanalysis"},
		"data_format":     "netcdf",
		"download_format": "unarchived",
		"variable":        []string{"10m_u_component_of_wind", "10m_v_component_of_wind"},
		"year":            years,
		"month":           months,
		"day":             days,
		"time":            hours,
		"area":            []float64{region.LatMax, region.LonMin, region.LatMin, region.LonMax},
	}
}

// cdsJob is the status of a CDS retrieve job.
type cdsJob struct {
	JobID  string `json:"jobID"`
	Status string `json:"status"`
}

// cdsResults are the results of a finished CDS retrieve job.
type cdsResults struct {
	Asset struct {
		Value struct {
			Href string `json:"href"`
		} `json:"value"`
	} `json:"asset"`
	Title  string `json:"title"`
	Detail string `json:"detail"`
}

var errJobPending = errors.New("niskine: CDS request not complete")

// newPollBackOff returns the polling policy for queued CDS requests.
var newPollBackOff = func() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 5 * time.Second
	b.MaxInterval = 2 * time.Minute
	b.MaxElapsedTime = 24 * time.Hour
	return b
}

// RetrieveCDS submits request for dataset to the Climate Data Store,
// waits for the job to complete, and saves the result to out.
func RetrieveCDS(ctx context.Context, client *http.Client, creds *CDSCredentials, dataset string, request map[string]interface{}, out string, log logrus.FieldLogger) error {
	body, err := json.Marshal(map[string]interface{}{"inputs": request})
	if err != nil {
		return fmt.Errorf("niskine: encoding CDS request: %w", err)
	}
	base := strings.TrimSuffix(creds.URL, "/") + "/retrieve/v1"
	send := func(method, u string, body []byte, v interface{}) error {
		var r *http.Request
		var err error
		if body != nil {
			r, err = http.NewRequestWithContext(ctx, method, u, bytes.NewReader(body))
		} else {
			r, err = http.NewRequestWithContext(ctx, method, u, nil)
		}
		if err != nil {
			return backoff.Permanent(err)
		}
		if body != nil {
			r.Header.Set("Content-Type", "application/json")
		}
		creds.setAuth(r)
		return doJSON(client, r, v)
	}

	var job cdsJob
	err = backoff.RetryNotify(
		func() error {
			return send(http.MethodPost, base+"/processes/"+dataset+"/execution", body, &job)
		},
		backoff.WithContext(newBackOff(), ctx),
		func(err error, d time.Duration) { log.WithField("retry_in", d).Warn(err) },
	)
	if err != nil {
		return err
	}
	if job.JobID == "" {
		return fmt.Errorf("niskine: CDS did not return a job ID")
	}
	log.WithFields(logrus.Fields{"dataset": dataset, "job_id": job.JobID}).Info("CDS request submitted")

	jobURL := base + "/jobs/" + url.PathEscape(job.JobID)
	err = backoff.RetryNotify(
		func() error {
			if err := send(http.MethodGet, jobURL, nil, &job); err != nil {
				return err
			}
			switch job.Status {
			case "successful":
				return nil
			case "failed", "rejected", "dismissed", "deleted":
				return backoff.Permanent(fmt.Errorf("niskine: CDS job %s %s", job.JobID, job.Status))
			}
			return errJobPending
		},
		backoff.WithContext(newPollBackOff(), ctx),
		func(err error, d time.Duration) {
			log.WithFields(logrus.Fields{"status": job.Status, "next_check": d}).Debug(err)
		},
	)
	if err != nil {
		return err
	}

	var res cdsResults
	err = backoff.RetryNotify(
		func() error { return send(http.MethodGet, jobURL+"/results", nil, &res) },
		backoff.WithContext(newBackOff(), ctx),
		func(err error, d time.Duration) { log.WithField("retry_in", d).Warn(err) },
	)
	if err != nil {
		return err
	}
	loc, err := url.Parse(strings.TrimSuffix(creds.URL, "/") + "/")
	if err != nil {
		return fmt.Errorf("niskine: %w", err)
	}
	if res.Asset.Value.Href == "" {
		return fmt.Errorf("niskine: CDS job %s has no result: %s %s", job.JobID, res.Title, res.Detail)
	}
	if loc, err = loc.Parse(res.Asset.Value.Href); err != nil {
		return fmt.Errorf("niskine: invalid CDS result location: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(out), os.ModePerm); err != nil {
		return fmt.Errorf("niskine: creating output directory: %w", err)
	}
	log.Infof("downloading %s to %s", loc.Redacted(), out)
	return fetch(ctx, client, func(ctx context.Context) (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, loc.String(), nil)
	}, out, log)
}

// doJSON sends r and decodes the JSON response into v.
func doJSON(client *http.Client, r *http.Request, v interface{}) error {
	resp, err := client.Do(r)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if err := checkResponse(resp); err != nil {
		return err
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("niskine: decoding response from %s: %w", r.URL.Redacted(), err)
	}
	return nil
}

// RetrieveERA5 downloads hourly ERA5 10 m wind over the NISKINe region
// for years to out.
func RetrieveERA5(ctx context.Context, creds *CDSCredentials, years []string, out string) error {
	return RetrieveCDS(ctx, http.DefaultClient, creds, "reanalysis-era5-single-levels",
		ERA5Request(NISKINeRegion, years), out, Log)
}
