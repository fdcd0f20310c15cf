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
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"
	"gocloud.dev/blob"
	"gocloud.dev/blob/fileblob"
	"gocloud.dev/blob/gcsblob"
	"gocloud.dev/blob/s3blob"
	"gocloud.dev/gcp"
)

// maybeDownload checks if the input is an existing file locally.
// If not, it checks if the file is a URL or a blob.
// If it is, it downloads the file and
// returns the path to the downloaded file. The returned cleanup
// function removes any downloaded file and must be called once the
// file is no longer needed.
func maybeDownload(ctx context.Context, path string, log logrus.FieldLogger) (local string, cleanup func(), err error) {
	// Check if local file exists. If it does, return the given path.
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		return path, func() {}, nil
	}

	var download func(ctx context.Context, path, local string) error
	switch {
	case strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://"):
		download = func(ctx context.Context, path, local string) error {
			return downloadHTTP(ctx, path, local, log)
		}
	case IsBlob(path):
		download = downloadBlob
	default:
		return path, func() {}, nil
	}

	dir, err := os.MkdirTemp("", "niskine")
	if err != nil {
		return "", nil, fmt.Errorf("niskine: failed creating temporary download directory: %w", err)
	}
	cleanup = func() { os.RemoveAll(dir) }
	name := filepath.Base(path)
	if u, err := url.Parse(path); err == nil && u.Path != "" {
		name = filepath.Base(u.Path)
	}
	local = filepath.Join(dir, name)
	if err := download(ctx, path, local); err != nil {
		cleanup()
		return "", nil, err
	}
	return local, cleanup, nil
}

// downloadHTTP downloads a file from the specified URL to local.
func downloadHTTP(ctx context.Context, path, local string, log logrus.FieldLogger) error {
	if _, err := url.Parse(path); err != nil {
		return fmt.Errorf("niskine: %w", err)
	}
	newRequest := func(ctx context.Context) (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, path, nil)
	}
	return fetch(ctx, http.DefaultClient, newRequest, local, log)
}

// newBackOff returns the retry policy for network requests.
var newBackOff = func() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = 10 * time.Minute
	return b
}

// statusError is returned for unsuccessful HTTP responses.
type statusError struct {
	url    string
	status int
	body   string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("niskine: request to %s failed with status %d: %s", e.url, e.status, e.body)
}

// checkResponse returns an error if the request failed. Client errors
// are permanent; other failures may be retried.
func checkResponse(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	err := &statusError{url: resp.Request.URL.Redacted(), status: resp.StatusCode, body: strings.TrimSpace(string(b))}
	if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
		return backoff.Permanent(err)
	}
	return err
}

// fetch sends the request created by newRequest and saves the response
// body to the file at path, retrying transient failures.
func fetch(ctx context.Context, client *http.Client, newRequest func(context.Context) (*http.Request, error), path string, log logrus.FieldLogger) error {
	return backoff.RetryNotify(
		func() error {
			req, err := newRequest(ctx)
			if err != nil {
				return backoff.Permanent(err)
			}
			resp, err := client.Do(req)
			if err != nil {
				return err
			}
			defer resp.Body.Close()
			if err := checkResponse(resp); err != nil {
				return err
			}
			w, err := os.Create(path)
			if err != nil {
				return backoff.Permanent(fmt.Errorf("niskine: failed creating file for download: %w", err))
			}
			if _, err = io.Copy(w, resp.Body); err != nil {
				w.Close()
				return err
			}
			return w.Close()
		},
		backoff.WithContext(newBackOff(), ctx),
		func(err error, d time.Duration) {
			log.WithField("retry_in", d).Warn(err)
		},
	)
}

// IsBlob returns whether the given filename represents a blob.
// (i.e., if it starts with `gs://`, 's3://', or 'file://').
func IsBlob(path string) bool {
	return strings.HasPrefix(path, "gs://") || strings.HasPrefix(path, "s3://") || strings.HasPrefix(path, "file://")
}

// OpenBucket returns the blob storage bucket specified by bucketName,
// where bucketName must be in the format 'provider://name' where provider
// is the name of the storage provider and name is the name of the bucket.
// The currently accepted storage providers are "file" for the local filesystem
// (e.g., for testing), "gs" for Google Cloud Storage, and "s3" for AWS S3.
func OpenBucket(ctx context.Context, bucketName string) (*blob.Bucket, error) {
	u, err := url.Parse(bucketName)
	if err != nil {
		return nil, fmt.Errorf("niskine: opening bucket: %w", err)
	}
	switch u.Scheme {
	case "file":
		return fileblob.OpenBucket(u.Hostname(), nil)
	case "gs":
		return gsBucket(ctx, u.Hostname())
	case "s3":
		return s3Bucket(ctx, u.Hostname())
	default:
		return nil, fmt.Errorf("niskine: invalid blob storage provider %s", u.Scheme)
	}
}

func gsBucket(ctx context.Context, name string) (*blob.Bucket, error) {
	// See here for information on credentials:
	// https://cloud.google.com/docs/authentication/getting-started
	creds, err := gcp.DefaultCredentials(ctx)
	if err != nil {
		return nil, err
	}
	c, err := gcp.NewHTTPClient(gcp.DefaultTransport(), gcp.CredentialsTokenSource(creds))
	if err != nil {
		return nil, err
	}
	return gcsblob.OpenBucket(ctx, c, name, nil)
}

// s3Bucket opens an s3 storage bucket. It assumes the following
// environment variables are set: AWS_REGION, AWS_ACCESS_KEY_ID, and
// AWS_SECRET_ACCESS_KEY.
func s3Bucket(ctx context.Context, name string) (*blob.Bucket, error) {
	region := os.Getenv("AWS_REGION")
	if region == "" {
		region = "eu-west-1"
	}
	c := &aws.Config{
		Region:      aws.String(region),
		Credentials: credentials.NewEnvCredentials(),
	}
	s, err := session.NewSession(c)
	if err != nil {
		return nil, err
	}
	return s3blob.OpenBucket(ctx, s, name, nil)
}

// splitBlob returns the bucket and the object key of a blob path.
func splitBlob(path string) (bucket, key string, err error) {
	u, err := url.Parse(path)
	if err != nil {
		return "", "", fmt.Errorf("niskine: %w", err)
	}
	return u.Scheme + "://" + u.Host, strings.TrimPrefix(u.Path, "/"), nil
}

// downloadBlob downloads the specified file from blob storage.
func downloadBlob(ctx context.Context, path, local string) error {
	bucketName, key, err := splitBlob(path)
	if err != nil {
		return err
	}
	bucket, err := OpenBucket(ctx, bucketName)
	if err != nil {
		return err
	}
	defer bucket.Close()
	w, err := os.Create(local)
	if err != nil {
		return fmt.Errorf("niskine: failed creating file for download: %w", err)
	}
	defer w.Close()
	r, err := bucket.NewReader(ctx, key, nil)
	if err != nil {
		return fmt.Errorf("niskine: reading %s: %w", path, err)
	}
	defer r.Close()
	if _, err = io.Copy(w, r); err != nil {
		return fmt.Errorf("niskine: downloading %s: %w", path, err)
	}
	return w.Close()
}
