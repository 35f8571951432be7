// Package source opens import files from the local filesystem or from
// S3-compatible object storage (s3://bucket/key).
package source

import (
	"context"
	"io"
	"net/url"
	"os"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/go-faster/errors"

	"github.com/tim-schilling/publicworks/internal/config"
	"github.com/tim-schilling/publicworks/internal/etl"
	"github.com/tim-schilling/publicworks/internal/model"
)

const scheme = "s3://"

// Location is a parsed source URI.
type Location struct {
	Bucket string
	Key    string
	Path   string
}

// IsS3 reports whether the location names an object rather than a file.
func (l Location) IsS3() bool { return l.Bucket != "" }

// Parse splits uri into an object location or a local path.
func Parse(uri string) (Location, error) {
	if !strings.HasPrefix(uri, scheme) {
		if uri == "" {
			return Location{}, errors.New("empty source path")
		}
		return Location{Path: uri}, nil
	}
	u, err := url.Parse(uri)
	if err != nil {
		return Location{}, errors.Wrapf(err, "parse %s", uri)
	}
	key := strings.TrimPrefix(u.Path, "/")
	if u.Host == "" || key == "" {
		return Location{}, errors.Errorf("s3 uri %q needs a bucket and a key", uri)
	}
	return Location{Bucket: u.Host, Key: key}, nil
}

// Opener resolves URIs into import sources. The S3 client is created on
// first use so local imports never touch AWS configuration.
type Opener struct {
	opts config.S3Options

	once    sync.Once
	client  *s3.Client
	initErr error
}

// NewOpener creates an opener using opts for s3:// URIs.
func NewOpener(opts config.S3Options) *Opener {
	return &Opener{opts: opts}
}

func (o *Opener) s3Client(ctx context.Context) (*s3.Client, error) {
	o.once.Do(func() {
		region := o.opts.Region
		if region == "" {
			region = "us-east-1"
		}
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
		if err != nil {
			o.initErr = errors.Wrap(err, "load aws config")
			return
		}
		o.client = s3.NewFromConfig(awsCfg, func(so *s3.Options) {
			so.UsePathStyle = o.opts.PathStyle
			if o.opts.Endpoint != "" {
				so.BaseEndpoint = aws.String(o.opts.Endpoint)
			}
		})
	})
	return o.client, o.initErr
}

// Open returns a reader over uri.
func (o *Opener) Open(ctx context.Context, uri string) (io.ReadCloser, error) {
	loc, err := Parse(uri)
	if err != nil {
		return nil, err
	}
	if !loc.IsS3() {
		f, err := os.Open(loc.Path)
		if err != nil {
			return nil, errors.Wrap(err, "open source file")
		}
		return f, nil
	}
	client, err := o.s3Client(ctx)
	if err != nil {
		return nil, err
	}
	out, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(loc.Bucket),
		Key:    aws.String(loc.Key),
	})
	if err != nil {
		return nil, errors.Wrapf(err, "get s3://%s/%s", loc.Bucket, loc.Key)
	}
	return out.Body, nil
}

// Source binds uri to an import of kind k.
func (o *Opener) Source(k model.Kind, uri string) (etl.Source, error) {
	if _, err := Parse(uri); err != nil {
		return etl.Source{}, err
	}
	return etl.Source{
		Kind: k,
		Name: uri,
		Open: func(ctx context.Context) (io.ReadCloser, error) { return o.Open(ctx, uri) },
	}, nil
}
