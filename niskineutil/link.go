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
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
)

var leadingDigits = regexp.MustCompile(`^\D*(\d+)`)

// procADCPName returns the link name M<N>_<sn>.nc of a processed ADCP
// file at M<N>/ADCP/proc/<sn>/<file>.nc relative to the mooring
// directory.
func procADCPName(rel string) (string, error) {
	parts := strings.Split(filepath.ToSlash(rel), "/")
	if len(parts) != 5 {
		return "", fmt.Errorf("niskine: unexpected processed ADCP path %s", rel)
	}
	m := leadingDigits.FindStringSubmatch(parts[3])
	if m == nil {
		m = leadingDigits.FindStringSubmatch(strings.TrimSuffix(parts[4], filepath.Ext(parts[4])))
	}
	if m == nil {
		return "", fmt.Errorf("niskine: no serial number in processed ADCP path %s", rel)
	}
	return fmt.Sprintf("%s_%s.nc", strings.ToUpper(parts[0]), m[1]), nil
}

// LinkProcADCP links the processed ADCP files found under mooringDir
// as M*/ADCP/proc/*/*.nc into procDir as M<N>_<sn>.nc. Existing
// links are left alone, so it is safe to run repeatedly. It returns
// the links that were created.
func LinkProcADCP(mooringDir, procDir string, log logrus.FieldLogger) ([]string, error) {
	files, err := filepath.Glob(filepath.Join(mooringDir, "M*", "ADCP", "proc", "*", "*.nc"))
	if err != nil {
		return nil, fmt.Errorf("niskine: listing processed ADCP files: %w", err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("niskine: no processed ADCP files found in %s", mooringDir)
	}
	sort.Strings(files)
	if err := os.MkdirAll(procDir, os.ModePerm); err != nil {
		return nil, fmt.Errorf("niskine: creating %s: %w", procDir, err)
	}
	var created []string
	for _, f := range files {
		rel, err := filepath.Rel(mooringDir, f)
		if err != nil {
			return created, fmt.Errorf("niskine: %w", err)
		}
		name, err := procADCPName(rel)
		if err != nil {
			return created, err
		}
		link := filepath.Join(procDir, name)
		if _, err := os.Lstat(link); err == nil {
			log.WithField("link", link).Debug("link exists")
			continue
		}
		target, err := filepath.Abs(f)
		if err != nil {
			return created, fmt.Errorf("niskine: %w", err)
		}
		if err := os.Symlink(target, link); err != nil {
			return created, fmt.Errorf("niskine: linking %s: %w", f, err)
		}
		log.WithFields(logrus.Fields{"link": link, "target": target}).Info("linked processed ADCP file")
		created = append(created, link)
	}
	return created, nil
}
