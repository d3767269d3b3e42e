// Package dataset reads the inputs of a training request: the CSV payload,
// from a local file, an s3://bucket/key object or a URL, and an optional
// hyperparameter file in YAML or JSON.
package dataset

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"gopkg.in/yaml.v3"

	"github.com/dmitrijs2005/trainctl/internal/logging"
	"github.com/dmitrijs2005/trainctl/internal/netx"
)

// MaxCSVBytes caps the payload sent inline with a training request.
const MaxCSVBytes = 32 << 20

var (
	ErrEmptyCSV    = errors.New("csv file is empty")
	ErrCSVTooLarge = errors.New("csv file is too large")
	ErrBadLocation = errors.New("invalid s3 location")
)

// ObjectGetter is the part of *s3.Client the loader needs.
type ObjectGetter interface {
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Options configure the client used for s3:// locations. Zero values
// fall back to the default AWS configuration chain.
type S3Options struct {
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	UsePathStyle    bool
}

var loadDefaultAWSConfig = awsconfig.LoadDefaultConfig

// Loader reads datasets and parameter files.
type Loader struct {
	opts S3Options
	log  logging.Logger
	http *http.Client

	mu sync.Mutex
	s3 ObjectGetter
}

// NewLoader builds a loader whose URL downloads give up after timeout.
// Zero means no limit.
func NewLoader(opts S3Options, timeout time.Duration, log logging.Logger) *Loader {
	return &Loader{
		opts: opts,
		log:  log.With("component", "dataset"),
		http: &http.Client{Timeout: timeout},
	}
}

// WithObjectGetter makes l use g for s3:// locations.
func (l *Loader) WithObjectGetter(g ObjectGetter) *Loader {
	l.mu.Lock()
	l.s3 = g
	l.mu.Unlock()
	return l
}

// LoadCSV returns the CSV text at location, which is a local path,
// s3://bucket/key or an http(s) URL such as a presigned object link. The
// content must parse as CSV and have a header row.
func (l *Loader) LoadCSV(ctx context.Context, location string) (string, error) {
	var (
		data []byte
		err  error
	)

	if bucket, key, ok, perr := parseS3Location(location); perr != nil {
		return "", perr
	} else if ok {
		data, err = l.fetchS3(ctx, bucket, key)
	} else if isHTTP(location) {
		data, err = netx.Download(ctx, l.http, location, MaxCSVBytes)
		if errors.Is(err, netx.ErrTooLarge) {
			err = ErrCSVTooLarge
		}
	} else {
		data, err = readLimited(location)
	}
	if err != nil {
		return "", err
	}

	if _, err := Header(data); err != nil {
		return "", fmt.Errorf("%s: %w", location, err)
	}
	return string(data), nil
}

// Header returns the first record of a CSV document.
func Header(data []byte) ([]string, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, ErrEmptyCSV
	}
	r := csv.NewReader(bytes.NewReader(data))
	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("invalid csv: %w", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}
	return header, nil
}

// LoadParams reads a flat hyperparameter map. Files ending in .yaml or
// .yml are YAML, anything else is JSON.
func LoadParams(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	params := map[string]any{}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &params)
	default:
		err = json.Unmarshal(data, &params)
	}
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return params, nil
}

func (l *Loader) fetchS3(ctx context.Context, bucket, key string) ([]byte, error) {
	client, err := l.objectGetter(ctx)
	if err != nil {
		return nil, err
	}

	l.log.Debug(ctx, "fetching dataset", "bucket", bucket, "key", key)
	out, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("get s3://%s/%s: %w", bucket, key, err)
	}
	defer out.Body.Close()

	return readAllLimited(out.Body)
}

func (l *Loader) objectGetter(ctx context.Context) (ObjectGetter, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.s3 != nil {
		return l.s3, nil
	}

	var optFns []func(*awsconfig.LoadOptions) error
	if l.opts.Region != "" {
		optFns = append(optFns, awsconfig.WithRegion(l.opts.Region))
	}
	if l.opts.AccessKeyID != "" {
		optFns = append(optFns, awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			l.opts.AccessKeyID,
			l.opts.SecretAccessKey,
			"",
		)))
	}

	cfg, err := loadDefaultAWSConfig(ctx, optFns...)
	if err != nil {
		return nil, fmt.Errorf("aws config: %w", err)
	}

	l.s3 = s3.NewFromConfig(cfg, func(o *s3.Options) {
		if l.opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(l.opts.Endpoint)
		}
		o.UsePathStyle = l.opts.UsePathStyle
	})
	return l.s3, nil
}

func isHTTP(location string) bool {
	return strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://")
}

// parseS3Location splits s3://bucket/key. ok is false for anything that is
// not an s3 URL.
func parseS3Location(location string) (bucket, key string, ok bool, err error) {
	rest, found := strings.CutPrefix(location, "s3://")
	if !found {
		return "", "", false, nil
	}
	bucket, key, _ = strings.Cut(rest, "/")
	if bucket == "" || key == "" {
		return "", "", true, fmt.Errorf("%w: %q", ErrBadLocation, location)
	}
	return bucket, key, true, nil
}

func readLimited(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return readAllLimited(f)
}

func readAllLimited(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxCSVBytes+1))
	if err != nil {
		return nil, err
	}
	if len(data) > MaxCSVBytes {
		return nil, ErrCSVTooLarge
	}
	return data, nil
}
