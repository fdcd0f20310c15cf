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
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/modscripps/niskine"
	"github.com/spf13/cast"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// ConfigFileName is the name of the project configuration file.
const ConfigFileName = "config.yml"

// FindConfigFile searches dir and its parents for the project root: the
// nearest directory whose name ends in "niskine" and that contains a
// configuration file. It returns the configuration file and the root
// directory.
func FindConfigFile(dir string) (file, root string, err error) {
	dir, err = filepath.Abs(dir)
	if err != nil {
		return "", "", fmt.Errorf("niskine: finding configuration file: %w", err)
	}
	for {
		if strings.HasSuffix(filepath.Base(dir), "niskine") {
			f := filepath.Join(dir, ConfigFileName)
			if fi, err := os.Stat(f); err == nil && !fi.IsDir() {
				return f, dir, nil
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", "", fmt.Errorf("niskine: no project directory with a %s file found above the working directory", ConfigFileName)
		}
		dir = parent
	}
}

// Config is a project configuration with all paths resolved.
type Config struct {
	// File is the configuration file the settings were read from.
	File string

	settings map[string]interface{}
}

// LoadConfig reads the project configuration file. The project root is
// the directory of the file. path.data and path.fig are resolved
// relative to the root, and every string value starting with "$data/"
// is resolved relative to the data directory. Environment variables in
// string values are expanded.
func LoadConfig(file string) (*Config, error) {
	file, err := filepath.Abs(file)
	if err != nil {
		return nil, fmt.Errorf("niskine: loading configuration: %w", err)
	}
	v := viper.New()
	v.SetConfigFile(file)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("niskine: problem reading configuration file: %w", err)
	}
	s := v.AllSettings()

	root := filepath.Dir(file)
	path := cast.ToStringMap(s["path"])
	if path == nil {
		path = make(map[string]interface{})
	}
	data := filepath.Join(root, os.ExpandEnv(cast.ToString(path["data"])))
	path["root"] = root
	path["data"] = data
	path["fig"] = filepath.Join(root, os.ExpandEnv(cast.ToString(path["fig"])))
	s["path"] = path

	s = replaceVariable(s, "$data", data)
	return &Config{File: file, settings: s}, nil
}

// replaceVariable returns a copy of d in which string values that
// begin with variable followed by a slash are joined to replacement.
// Nested maps are processed recursively.
func replaceVariable(d map[string]interface{}, variable, replacement string) map[string]interface{} {
	o := make(map[string]interface{}, len(d))
	for k, v := range d {
		switch vv := v.(type) {
		case map[string]interface{}:
			o[k] = replaceVariable(vv, variable, replacement)
		case map[interface{}]interface{}:
			o[k] = replaceVariable(cast.ToStringMap(vv), variable, replacement)
		case string:
			// variable is matched before expansion, since the environment
			// would otherwise replace it.
			if strings.HasPrefix(vv, variable+"/") {
				o[k] = filepath.Join(replacement, os.ExpandEnv(vv[len(variable)+1:]))
			} else {
				o[k] = os.ExpandEnv(vv)
			}
		default:
			o[k] = v
		}
	}
	return o
}

// Get returns the setting at the dot-separated key, or nil if it does
// not exist.
func (c *Config) Get(key string) interface{} {
	var v interface{} = c.settings
	for _, k := range strings.Split(strings.ToLower(key), ".") {
		m, ok := v.(map[string]interface{})
		if !ok {
			return nil
		}
		if v, ok = m[k]; !ok {
			return nil
		}
	}
	return v
}

// Path returns the path setting at key.
func (c *Config) Path(key string) (string, error) {
	v := c.Get(key)
	if v == nil {
		return "", fmt.Errorf("niskine: %s is not set in %s", key, c.File)
	}
	s, err := cast.ToStringE(v)
	if err != nil || s == "" {
		return "", fmt.Errorf("niskine: %s in %s is not a path", key, c.File)
	}
	return s, nil
}

// Root returns the project root directory.
func (c *Config) Root() string {
	s, _ := c.Path("path.root")
	return s
}

// DataDir returns the project data directory.
func (c *Config) DataDir() (string, error) { return c.Path("path.data") }

// FigDir returns the project figure directory.
func (c *Config) FigDir() (string, error) { return c.Path("path.fig") }

// ProcADCPDir returns the directory holding processed ADCP records.
func (c *Config) ProcADCPDir() (string, error) { return c.Path("data.proc.adcp") }

// GriddedADCPDir returns the directory for merged ADCP products.
func (c *Config) GriddedADCPDir() (string, error) { return c.Path("data.gridded.adcp") }

// SSHDir returns the directory for altimetry data.
func (c *Config) SSHDir() (string, error) { return c.Path("data.ssh") }

// WindDir returns the directory for wind data.
func (c *Config) WindDir() (string, error) { return c.Path("data.wind.dir") }

// ERA5File returns the path of the ERA5 wind file.
func (c *Config) ERA5File() (string, error) { return c.Path("data.wind.era5") }

// Mooring returns the location and at-depth period of mooring id.
func (c *Config) Mooring(id int) (niskine.Mooring, error) {
	key := fmt.Sprintf("mooring.m%d", id)
	m := cast.ToStringMap(c.Get(key))
	if len(m) == 0 {
		return niskine.Mooring{}, fmt.Errorf("niskine: mooring %d is not defined in %s", id, c.File)
	}
	o := niskine.Mooring{ID: id}
	var err error
	for _, f := range []struct {
		name string
		dst  *float64
	}{{"lon", &o.Lon}, {"lat", &o.Lat}, {"depth", &o.BottomDepth}} {
		if *f.dst, err = cast.ToFloat64E(m[f.name]); err != nil || m[f.name] == nil {
			return o, fmt.Errorf("niskine: %s.%s: invalid or missing number", key, f.name)
		}
	}
	if o.AtDepth.Start, err = cast.ToTimeE(m["start"]); err != nil {
		return o, fmt.Errorf("niskine: %s.start: %w", key, err)
	}
	if o.AtDepth.End, err = cast.ToTimeE(m["end"]); err != nil {
		return o, fmt.Errorf("niskine: %s.end: %w", key, err)
	}
	o.AtDepth.Start, o.AtDepth.End = o.AtDepth.Start.UTC(), o.AtDepth.End.UTC()
	if !o.AtDepth.End.After(o.AtDepth.Start) {
		return o, fmt.Errorf("niskine: %s: end is not after start", key)
	}
	return o, nil
}

// Print writes the configuration tree to w. If values is false, only
// the keys are printed.
func (c *Config) Print(w io.Writer, values bool) error {
	if values {
		e := yaml.NewEncoder(w)
		e.SetIndent(2)
		if err := e.Encode(c.settings); err != nil {
			return fmt.Errorf("niskine: printing configuration: %w", err)
		}
		return e.Close()
	}
	printKeys(w, c.settings, 0)
	return nil
}

func printKeys(w io.Writer, m map[string]interface{}, depth int) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(w, "%s%s\n", strings.Repeat("  ", depth), k)
		if sub, ok := m[k].(map[string]interface{}); ok {
			printKeys(w, sub, depth+1)
		}
	}
}
