// Package s3object adapts a media tree stored in an S3 compatible bucket.
// The first key segment below the configured prefix names the library.
package s3object

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/narwhalmedia/catalog/internal/catalog/domain"
	"github.com/narwhalmedia/catalog/internal/catalog/provider"
	"github.com/narwhalmedia/catalog/internal/catalog/provider/pathname"
	"github.com/narwhalmedia/catalog/pkg/config"
	pkgerrors "github.com/narwhalmedia/catalog/pkg/errors"
	"github.com/narwhalmedia/catalog/pkg/interfaces"
	"github.com/narwhalmedia/catalog/pkg/logger"
)

// Adapter lists objects of one bucket.
type Adapter struct {
	client    s3.ListObjectsV2APIClient
	bucket    string
	prefix    string
	libraries []string
	listings  *pathname.Listings
	logger    interfaces.Logger
}

// New creates an adapter over an existing client.
func New(client s3.ListObjectsV2APIClient, src config.SourceConfig, log interfaces.Logger) *Adapter {
	if log == nil {
		log = logger.NewNoopLogger()
	}
	prefix := strings.Trim(src.Prefix, "/")
	if prefix != "" {
		prefix += "/"
	}
	return &Adapter{
		client:    client,
		bucket:    src.Bucket,
		prefix:    prefix,
		libraries: src.Libraries,
		listings:  pathname.NewListings(pathname.ListingTTL),
		logger:    log.WithFields(interfaces.String("source_id", src.ID), interfaces.String("bucket", src.Bucket)),
	}
}

// Factory returns a provider.Factory that builds an S3 client per source.
// APIKey and Token, when both set, are used as access key id and secret;
// otherwise the default AWS credential chain applies.
func Factory(log interfaces.Logger) provider.Factory {
	return func(src config.SourceConfig) (provider.Adapter, error) {
		if src.Bucket == "" {
			return nil, pkgerrors.BadRequest("s3 source requires a bucket")
		}

		opts := []func(*awsconfig.LoadOptions) error{}
		if src.Region != "" {
			opts = append(opts, awsconfig.WithRegion(src.Region))
		}
		if src.APIKey != "" && src.Token != "" {
			opts = append(opts, awsconfig.WithCredentialsProvider(
				credentials.NewStaticCredentialsProvider(src.APIKey, src.Token, "")))
		}
		cfg, err := awsconfig.LoadDefaultConfig(context.Background(), opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to load AWS config: %w", err)
		}

		client := s3.NewFromConfig(cfg, func(o *s3.Options) {
			if src.Endpoint != "" {
				o.BaseEndpoint = aws.String(src.Endpoint)
				o.UsePathStyle = true
			}
		})
		return New(client, src, log), nil
	}
}

// Capabilities reports no server-side change filter; ListObjectsV2 cannot
// filter by LastModified.
func (a *Adapter) Capabilities() provider.Capabilities {
	return provider.Capabilities{}
}

// GetLibraries returns the configured libraries, or the top-level
// "folders" under the prefix.
func (a *Adapter) GetLibraries(ctx context.Context) ([]domain.LibraryInfo, error) {
	if len(a.libraries) > 0 {
		libs := make([]domain.LibraryInfo, 0, len(a.libraries))
		for _, l := range a.libraries {
			libs = append(libs, domain.LibraryInfo{ID: l, Name: l, Type: "folder"})
		}
		return libs, nil
	}

	var libs []domain.LibraryInfo
	paginator := s3.NewListObjectsV2Paginator(a.client, &s3.ListObjectsV2Input{
		Bucket:    aws.String(a.bucket),
		Prefix:    aws.String(a.prefix),
		Delimiter: aws.String("/"),
	})
	for paginator.HasMorePages() {
		out, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, a.wrap(ctx, "list libraries", err)
		}
		for _, cp := range out.CommonPrefixes {
			name := strings.TrimSuffix(strings.TrimPrefix(aws.ToString(cp.Prefix), a.prefix), "/")
			if name == "" || strings.HasPrefix(name, ".") {
				continue
			}
			libs = append(libs, domain.LibraryInfo{ID: name, Name: name, Type: "folder"})
		}
	}
	return libs, nil
}

// GetLibraryItems lists the whole library, groups the keys into items and
// returns the requested offset page. ModifiedSince is ignored. The grouped
// listing is reused by the following pages of the same pass.
func (a *Adapter) GetLibraryItems(ctx context.Context, libraryID string, req provider.PageRequest) (*provider.Page, error) {
	rel := strings.Trim(libraryID, "/") + "/"
	groups, err := a.listings.Groups(ctx, rel, req.Offset, func() ([]*pathname.Group, error) {
		entries, err := a.list(ctx, rel)
		if err != nil {
			return nil, err
		}
		if len(entries) == 0 {
			return nil, fmt.Errorf("%w: %s", domain.ErrLibraryNotFound, libraryID)
		}
		return pathname.Collect(entries), nil
	})
	if err != nil {
		return nil, err
	}

	page, done := pathname.Page(groups, req.Offset, req.Limit)
	items := make([]*domain.MediaMetadata, 0, len(page))
	for _, g := range page {
		items = append(items, g.Metadata())
	}
	return &provider.Page{Items: items, Total: len(groups), Done: done}, nil
}

// GetItemMetadata resolves an item id, which is either a folder or an
// object key relative to the prefix.
func (a *Adapter) GetItemMetadata(ctx context.Context, itemID string) (*domain.MediaMetadata, error) {
	entries, err := a.list(ctx, strings.Trim(itemID, "/"))
	if err != nil {
		return nil, err
	}
	for _, g := range pathname.Collect(entries) {
		if g.ID == itemID {
			return g.Metadata(), nil
		}
	}
	return nil, fmt.Errorf("%w: %s", domain.ErrItemNotFound, itemID)
}

// list returns the media objects whose relative key starts with rel.
func (a *Adapter) list(ctx context.Context, rel string) ([]pathname.Entry, error) {
	var entries []pathname.Entry
	paginator := s3.NewListObjectsV2Paginator(a.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(a.bucket),
		Prefix: aws.String(a.prefix + rel),
	})

	pages := 0
	for paginator.HasMorePages() {
		out, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, a.wrap(ctx, "list objects", err)
		}
		pages++
		for _, obj := range out.Contents {
			key := aws.ToString(obj.Key)
			relKey := strings.TrimPrefix(key, a.prefix)
			if !pathname.IsMedia(relKey) || hidden(relKey) {
				continue
			}
			e := pathname.Entry{
				Rel:      relKey,
				Location: "s3://" + a.bucket + "/" + key,
				Size:     aws.ToInt64(obj.Size),
			}
			if obj.LastModified != nil {
				e.Modified = obj.LastModified.UTC()
			}
			entries = append(entries, e)
		}
	}

	a.logger.Debug("Listed objects",
		interfaces.String("prefix", a.prefix+rel),
		interfaces.Int("pages", pages),
		interfaces.Int("media_objects", len(entries)))
	return entries, nil
}

func (a *Adapter) wrap(ctx context.Context, op string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return pkgerrors.Wrap(pkgerrors.ErrorTypeUnavailable, "s3 "+op+" failed", err)
}

func hidden(rel string) bool {
	for _, part := range strings.Split(rel, "/") {
		if strings.HasPrefix(part, ".") {
			return true
		}
	}
	return false
}
