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
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"
)

func TestMercatorRequest(t *testing.T) {
	rm, err := NewRetrieveMercatorData("ssh", "/data/ssh")
	if err != nil {
		t.Fatal(err)
	}
	req, err := rm.Request(map[string]interface{}{
		"date_min": "2019-05-01",
		"date_max": "2020-11-01",
	})
	if err != nil {
		t.Fatal(err)
	}
	if !req.DateMin.Equal(time.Date(2019, 5, 1, 0, 0, 0, 0, time.UTC)) || !req.DateMax.Equal(time.Date(2020, 11, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("dates %v, %v", req.DateMin, req.DateMax)
	}
	want := &MercatorRequest{
		DateMin:   req.DateMin,
		DateMax:   req.DateMax,
		Region:    NISKINeRegion,
		Variables: MercatorDatasets["ssh"].Variables,
		OutDir:    "/data/ssh",
		OutName:   "mercator_ssh.nc",
	}
	if !reflect.DeepEqual(req, want) {
		t.Errorf("want %+v but have %+v", want, req)
	}

	q := rm.query(req)
	for k, v := range map[string]string{
		"service": "SEALEVEL_GLO_PHY_L4_MY_008_047-TDS",
		"x_lo":    "-27",
		"x_hi":    "-19",
		"y_lo":    "57",
		"y_hi":    "60",
		"t_lo":    "2019-05-01 00:00:00",
		"t_hi":    "2020-11-01 00:00:00",
	} {
		if q.Get(k) != v {
			t.Errorf("%s: want %s but have %s", k, v, q.Get(k))
		}
	}
	if len(q["variable"]) != 6 {
		t.Errorf("variables %v", q["variable"])
	}
	if q.Get("z_lo") != "" {
		t.Error("surface product should not have a depth range")
	}
}

func TestMercatorRequestOptions(t *testing.T) {
	rm, err := NewRetrieveMercatorData("hourly", "")
	if err != nil {
		t.Fatal(err)
	}
	req, err := rm.Request(map[string]interface{}{
		"date_min":      "2020-01-01 00:30:00",
		"date_max":      "2020-01-31 23:30:00",
		"longitude_min": -25,
		"latitude_max":  "59.5",
		"variables":     []string{"uo", "vo"},
		"out_name":      "hourly.nc",
	})
	if err != nil {
		t.Fatal(err)
	}
	if req.LonMin != -25 || req.LatMax != 59.5 || req.OutDir != "." || req.OutName != "hourly.nc" {
		t.Errorf("have %+v", req)
	}
	q := rm.query(req)
	if !reflect.DeepEqual(q["variable"], []string{"uo", "vo"}) {
		t.Errorf("variables %v", q["variable"])
	}
	if q.Get("z_lo") != "0.493" {
		t.Errorf("depth %s", q.Get("z_lo"))
	}

	for name, options := range map[string]map[string]interface{}{
		"no dates":       {"date_min": "2020-01-01"},
		"reversed dates": {"date_min": "2020-02-01", "date_max": "2020-01-01"},
		"unknown option": {"date_min": "2020-01-01", "date_max": "2020-02-01", "depth": 10},
		"empty region":   {"date_min": "2020-01-01", "date_max": "2020-02-01", "longitude_min": -10},
	} {
		if _, err := rm.Request(options); err == nil {
			t.Errorf("%s: expected an error", name)
		}
	}
	if _, err := NewRetrieveMercatorData("sst", ""); err == nil {
		t.Error("unknown dataset: expected an error")
	}
}

func TestMonthlyRequests(t *testing.T) {
	r := MonthlyRequests(2020, "hourly_ssh")
	if len(r) != 12 {
		t.Fatalf("%d requests", len(r))
	}
	want := map[string]interface{}{
		"date_min": "2020-02-01 00:30:00",
		"date_max": "2020-02-29 23:30:00",
		"out_name": "hourly_ssh_2020_02.nc",
	}
	if !reflect.DeepEqual(r[1], want) {
		t.Errorf("want %v but have %v", want, r[1])
	}
	if r[11]["date_max"] != "2020-12-31 23:30:00" {
		t.Errorf("December: %v", r[11])
	}
}

func TestMercatorRetrieve(t *testing.T) {
	noRetryDelay(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != "user" || pass != "secret" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		q := r.URL.Query()
		if q.Get("action") != "productdownload" {
			http.Error(w, "bad action", http.StatusBadRequest)
			return
		}
		fmt.Fprintf(w, "%s %s", q.Get("t_lo"), q.Get("t_hi"))
	}))
	defer srv.Close()

	dir := t.TempDir()
	rm, err := NewRetrieveMercatorData("ssh", filepath.Join(dir, "ssh"))
	if err != nil {
		t.Fatal(err)
	}
	rm.URL = srv.URL
	rm.Client = srv.Client()
	rm.Log = testLog(t)
	rm.Username, rm.Password = "user", "secret"

	for _, options := range MonthlyRequests(2020, "hourly_ssh")[:2] {
		f, err := rm.Retrieve(context.Background(), options)
		if err != nil {
			t.Fatal(err)
		}
		b, err := os.ReadFile(f)
		if err != nil {
			t.Fatal(err)
		}
		if want := fmt.Sprintf("%s %s", options["date_min"], options["date_max"]); string(b) != want {
			t.Errorf("want %q but have %q", want, b)
		}
		if !strings.HasPrefix(filepath.Base(f), "hourly_ssh_2020_0") {
			t.Errorf("file %s", f)
		}
	}

	rm.Password = "wrong"
	if _, err := rm.Retrieve(context.Background(), MonthlyRequests(2020, "x")[0]); err == nil {
		t.Error("bad credentials: expected an error")
	}
}

func TestMercatorCredentials(t *testing.T) {
	t.Setenv("COPERNICUS_USERNAME", "env_user")
	t.Setenv("COPERNICUS_PASSWORD", "env_pass")
	rm, err := NewRetrieveMercatorData("ssh", "")
	if err != nil {
		t.Fatal(err)
	}
	if err := rm.credentials(strings.NewReader(""), new(strings.Builder)); err != nil {
		t.Fatal(err)
	}
	if rm.Username != "env_user" || rm.Password != "env_pass" {
		t.Errorf("have %s, %s", rm.Username, rm.Password)
	}

	t.Setenv("COPERNICUS_PASSWORD", "")
	rm, _ = NewRetrieveMercatorData("ssh", "")
	if err := rm.credentials(strings.NewReader(""), new(strings.Builder)); err == nil {
		t.Error("missing password without a terminal: expected an error")
	}
}
