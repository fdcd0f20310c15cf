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
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/modscripps/niskine"
)

type uploader struct {
	// files is a set of file path pairs. The first of each pair
	// is a local file path and the second is a blob storage
	// path where it should be uploaded to.
	files [][2]string
	err   error
	dir   string
}

// upload copies the registered local files to blob storage.
func (u *uploader) upload(ctx context.Context) error {
	if u.err != nil {
		return u.err
	}
	for _, files := range u.files {
		if err := uploadFile(ctx, files[0], files[1]); err != nil {
			return err
		}
	}
	return nil
}

func uploadFile(ctx context.Context, local, remote string) error {
	r, err := os.Open(local)
	if err != nil {
		return fmt.Errorf("niskine: opening file '%s' for upload: %w", local, err)
	}
	defer r.Close()
	bucketName, key, err := splitBlob(remote)
	if err != nil {
		return err
	}
	bucket, err := OpenBucket(ctx, bucketName)
	if err != nil {
		return fmt.Errorf("niskine: opening bucket to upload file '%s': %w", remote, err)
	}
	defer bucket.Close()
	w, err := bucket.NewWriter(ctx, key, nil)
	if err != nil {
		return fmt.Errorf("niskine: opening writer to upload file '%s': %w", remote, err)
	}
	if _, err := io.Copy(w, r); err != nil {
		w.Close()
		return fmt.Errorf("niskine: uploading file '%s' to '%s': %w", local, remote, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("niskine: uploading file '%s' to '%s': %w", local, remote, err)
	}
	return nil
}

// maybeUpload checks whether the given output file path refers to
// a blob storage location. If it does, then a temporary file location
// is returned. The file will then be uploaded to blob storage when
// the upload method is run.
func (u *uploader) maybeUpload(path string) string {
	if u.err != nil {
		return ""
	}
	if !IsBlob(path) {
		return path
	}
	if u.dir == "" {
		u.dir, u.err = os.MkdirTemp("", "niskine")
		if u.err != nil {
			return ""
		}
	}
	local := filepath.Join(u.dir, filepath.Base(path))
	u.files = append(u.files, [2]string{local, path})
	return local
}

// cleanup removes the temporary files created by maybeUpload.
func (u *uploader) cleanup() {
	if u.dir != "" {
		os.RemoveAll(u.dir)
	}
}

// GriddedFileName returns the file name of the gridded product of a
// mooring, e.g. M1_gridded_simple_merge.nc.
func GriddedFileName(mooring, suffix string) string {
	if suffix == "" {
		return mooring + "_gridded.nc"
	}
	return mooring + "_gridded_" + suffix + ".nc"
}

// joinPath joins a file name to a local directory or a blob URL.
func joinPath(dir, name string) string {
	if IsBlob(dir) {
		return strings.TrimSuffix(dir, "/") + "/" + name
	}
	return filepath.Join(dir, name)
}

// Save writes g to dir, which may be a local directory or a blob
// URL, and returns the path of the written file. Local directories
// are created if needed.
func Save(ctx context.Context, g *niskine.Gridded, dir, suffix string) (string, error) {
	path := joinPath(dir, GriddedFileName(g.Attrs.Mooring, suffix))
	u := new(uploader)
	local := u.maybeUpload(path)
	if u.err != nil {
		return "", fmt.Errorf("niskine: preparing upload: %w", u.err)
	}
	defer u.cleanup()
	if err := os.MkdirAll(filepath.Dir(local), os.ModePerm); err != nil {
		return "", fmt.Errorf("niskine: creating output directory: %w", err)
	}
	f, err := os.Create(local)
	if err != nil {
		return "", fmt.Errorf("niskine: creating output file: %w", err)
	}
	if err = g.Write(f); err != nil {
		f.Close()
		return "", err
	}
	if err = f.Close(); err != nil {
		return "", err
	}
	return path, u.upload(ctx)
}
