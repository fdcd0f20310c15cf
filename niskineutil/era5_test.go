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
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"reflect"
	"sync/atomic"
	"testing"
)

func TestReadCDSCredentials(t *testing.T) {
	t.Setenv("CDSAPI_URL", "")
	t.Setenv("CDSAPI_KEY", "")
	file := filepath.Join(t.TempDir(), ".cdsapirc")
	if err := os.WriteFile(file, []byte("url: https://cds.example.com/api\nkey: abcd-1234\n"), 0600); err != nil {
		t.Fatal(err)
	}
	c, err := ReadCDSCredentials(file)
	if err != nil {
		t.Fatal(err)
	}
	if want := (&CDSCredentials{URL: "https://cds.example.com/api", Key: "abcd-1234"}); !reflect.DeepEqual(c, want) {
		t.Errorf("want %+v but have %+v", want, c)
	}

	t.Setenv("CDSAPI_KEY", "efgh-5678")
	if c, err = ReadCDSCredentials(file); err != nil {
		t.Fatal(err)
	}
	if c.Key != "efgh-5678" {
		t.Errorf("environment key: have %s", c.Key)
	}

	t.Setenv("CDSAPI_KEY", "")
	if _, err := ReadCDSCredentials(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Error("missing file: expected an error")
	}
	legacy := filepath.Join(t.TempDir(), ".cdsapirc")
	if err := os.WriteFile(legacy, []byte("url: https://cds.example.com/api/v2\nkey: 1234:abcd\n"), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := ReadCDSCredentials(legacy); err == nil {
		t.Error("legacy key: expected an error")
	}
}

func TestERA5Request(t *testing.T) {
	r := ERA5Request(NISKINeRegion, []string{"2019"})
	if area := r["area"].([]float64); !reflect.DeepEqual(area, []float64{60, -27, 57, -19}) {
		t.Errorf("area %v", area)
	}
	if r["data_format"] != "netcdf" {
		t.Errorf("format %v", r["data_format"])
	}
	if n := len(r["time"].([]string)); n != 24 {
		t.Errorf("%d hours", n)
	}
	if d := r["day"].([]string); len(d) != 31 || d[0] != "01" {
		t.Errorf("days %v", d)
	}
}

// cdsServer returns a Climate Data Store stand-in whose job finishes
// with status final after one intermediate poll.
func cdsServer(t *testing.T, final string, polls *int32) *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/retrieve/v1/processes/reanalysis-era5-single-levels/execution", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method", http.StatusMethodNotAllowed)
			return
		}
		if r.Header.Get("PRIVATE-TOKEN") != "abcd-1234" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		var req struct {
			Inputs map[string]interface{} `json:"inputs"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Inputs["data_format"] != "netcdf" {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		fmt.Fprint(w, `{"jobID": "abc", "status": "accepted"}`)
	})
	mux.HandleFunc("/api/retrieve/v1/jobs/abc", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("PRIVATE-TOKEN") != "abcd-1234" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		if atomic.AddInt32(polls, 1) < 2 {
			fmt.Fprint(w, `{"jobID": "abc", "status": "running"}`)
			return
		}
		fmt.Fprintf(w, `{"jobID": "abc", "status": %q}`, final)
	})
	mux.HandleFunc("/api/retrieve/v1/jobs/abc/results", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"asset": {"value": {"href": "/download/abc.nc", "file:size": 4}}}`)
	})
	mux.HandleFunc("/download/abc.nc", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "era5")
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestRetrieveCDS(t *testing.T) {
	noRetryDelay(t)
	var polls int32
	srv := cdsServer(t, "successful", &polls)

	creds := &CDSCredentials{URL: srv.URL + "/api", Key: "abcd-1234"}
	out := filepath.Join(t.TempDir(), "wind", "era5.nc")
	err := RetrieveCDS(context.Background(), srv.Client(), creds, "reanalysis-era5-single-levels",
		ERA5Request(NISKINeRegion, []string{"2019"}), out, testLog(t))
	if err != nil {
		t.Fatal(err)
	}
	if b, _ := os.ReadFile(out); string(b) != "era5" {
		t.Errorf("have %q", b)
	}
	if polls != 2 {
		t.Errorf("%d polls", polls)
	}
}

func TestRetrieveCDSFailed(t *testing.T) {
	noRetryDelay(t)
	var polls int32
	srv := cdsServer(t, "failed", &polls)

	creds := &CDSCredentials{URL: srv.URL + "/api", Key: "abcd-1234"}
	out := filepath.Join(t.TempDir(), "era5.nc")
	err := RetrieveCDS(context.Background(), srv.Client(), creds, "reanalysis-era5-single-levels",
		ERA5Request(NISKINeRegion, []string{"2019"}), out, testLog(t))
	if err == nil {
		t.Fatal("expected an error")
	}
	if _, err := os.Stat(out); !os.IsNotExist(err) {
		t.Error("a failed job should not write output")
	}
}
