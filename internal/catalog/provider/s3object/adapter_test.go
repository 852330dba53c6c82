package s3object

import (
	"context"
	"errors"
	"sort"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/narwhalmedia/catalog/internal/catalog/domain"
	"github.com/narwhalmedia/catalog/internal/catalog/provider"
	"github.com/narwhalmedia/catalog/pkg/config"
	pkgerrors "github.com/narwhalmedia/catalog/pkg/errors"
)

// fakeBucket serves ListObjectsV2 from memory, two keys per page.
type fakeBucket struct {
	objects map[string]time.Time
	calls   int
	err     error
}

func (f *fakeBucket) ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}

	prefix := aws.ToString(in.Prefix)
	var keys []string
	seen := map[string]bool{}
	var common []types.CommonPrefix
	for k := range f.objects {
		if !strings.HasPrefix(k, prefix) {
			continue
		}
		if d := aws.ToString(in.Delimiter); d != "" {
			if i := strings.Index(k[len(prefix):], d); i >= 0 {
				cp := k[:len(prefix)+i+1]
				if !seen[cp] {
					seen[cp] = true
					common = append(common, types.CommonPrefix{Prefix: aws.String(cp)})
				}
				continue
			}
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	sort.Slice(common, func(i, j int) bool { return *common[i].Prefix < *common[j].Prefix })

	start := 0
	if tok := aws.ToString(in.ContinuationToken); tok != "" {
		start, _ = strconv.Atoi(tok)
	}
	end := min(start+2, len(keys))

	out := &s3.ListObjectsV2Output{CommonPrefixes: common, IsTruncated: aws.Bool(end < len(keys))}
	for _, k := range keys[start:end] {
		out.Contents = append(out.Contents, types.Object{
			Key:          aws.String(k),
			Size:         aws.Int64(int64(len(k))),
			LastModified: aws.Time(f.objects[k]),
		})
	}
	if end < len(keys) {
		out.NextContinuationToken = aws.String(strconv.Itoa(end))
	}
	return out, nil
}

func newBucket() *fakeBucket {
	ts := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	return &fakeBucket{objects: map[string]time.Time{
		"media/Movies/Arrival (2016)/Arrival (2016) 2160p.mkv": ts,
		"media/Movies/Arrival (2016)/Arrival (2016) 1080p.mp4": ts.Add(time.Hour),
		"media/Movies/Arrival (2016)/poster.jpg":               ts,
		"media/Movies/Sicario.2015.mkv":                        ts,
		"media/Movies/.staging/Tenet (2020).mkv":               ts,
		"media/Shows/Dark/Season 1/Dark.S01E01.Secrets.mkv":    ts,
		"other/Movies/Ignored (1999).mkv":                      ts,
	}}
}

func source() config.SourceConfig {
	return config.SourceConfig{ID: "s3", Type: "s3", Bucket: "library", Prefix: "/media/"}
}

func TestGetLibraries(t *testing.T) {
	a := New(newBucket(), source(), nil)

	libs, err := a.GetLibraries(context.Background())

	require.NoError(t, err)
	require.Len(t, libs, 2)
	assert.Equal(t, "Movies", libs[0].ID)
	assert.Equal(t, "Shows", libs[1].ID)
}

func TestGetLibrariesConfigured(t *testing.T) {
	bucket := newBucket()
	src := source()
	src.Libraries = []string{"Shows"}

	libs, err := New(bucket, src, nil).GetLibraries(context.Background())

	require.NoError(t, err)
	assert.Equal(t, []domain.LibraryInfo{{ID: "Shows", Name: "Shows", Type: "folder"}}, libs)
	assert.Zero(t, bucket.calls)
}

func TestLibraryItemsFollowContinuationTokens(t *testing.T) {
	// Arrange
	bucket := newBucket()
	a := New(bucket, source(), nil)

	// Act
	items, total, err := provider.FetchAll(context.Background(), a, "Movies", 10, nil, nil)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	require.Len(t, items, 2)
	assert.GreaterOrEqual(t, bucket.calls, 3)

	arrival := items[0]
	assert.Equal(t, "Movies/Arrival (2016)", arrival.ProviderItemID)
	assert.Equal(t, "Arrival", arrival.Title)
	assert.Equal(t, 2016, arrival.Year)
	require.Len(t, arrival.Sources, 2)
	assert.Equal(t, "s3://library/media/Movies/Arrival (2016)/Arrival (2016) 1080p.mp4", arrival.Sources[0].FilePath)
	assert.Equal(t, "mp4", arrival.Sources[0].Container)
	assert.Equal(t, time.Date(2024, 3, 1, 13, 0, 0, 0, time.UTC), arrival.ModifiedAt)

	assert.Equal(t, "Sicario", items[1].Title)
	assert.False(t, a.Capabilities().ModifiedSinceFilter)
}

func TestPagingListsLibraryOnce(t *testing.T) {
	// Arrange
	bucket := newBucket()
	a := New(bucket, source(), nil)
	first, err := a.GetLibraryItems(context.Background(), "Movies", provider.PageRequest{Limit: 1})
	require.NoError(t, err)
	listCalls := bucket.calls

	// Act
	second, err := a.GetLibraryItems(context.Background(), "Movies", provider.PageRequest{Offset: 1, Limit: 1})

	// Assert
	require.NoError(t, err)
	assert.Equal(t, listCalls, bucket.calls)
	require.Len(t, first.Items, 1)
	require.Len(t, second.Items, 1)
	assert.Equal(t, "Sicario", second.Items[0].Title)
	assert.True(t, second.Done)

	_, err = a.GetLibraryItems(context.Background(), "Movies", provider.PageRequest{Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, 2*listCalls, bucket.calls)
}

func TestGetItemMetadata(t *testing.T) {
	a := New(newBucket(), source(), nil)

	md, err := a.GetItemMetadata(context.Background(), "Shows/Dark/Season 1/Dark.S01E01.Secrets.mkv")
	require.NoError(t, err)
	assert.Equal(t, domain.MediaTypeEpisode, md.Type)
	assert.Equal(t, "Dark", md.SeriesTitle)
	assert.Equal(t, "Secrets", md.Title)

	_, err = a.GetItemMetadata(context.Background(), "Movies/Nope")
	assert.ErrorIs(t, err, domain.ErrItemNotFound)

	_, err = a.GetLibraryItems(context.Background(), "Music", provider.PageRequest{})
	assert.ErrorIs(t, err, domain.ErrLibraryNotFound)
}

func TestListFailureIsUnavailable(t *testing.T) {
	a := New(&fakeBucket{err: errors.New("connection reset")}, source(), nil)

	_, err := a.GetLibraryItems(context.Background(), "Movies", provider.PageRequest{})

	require.Error(t, err)
	assert.True(t, pkgerrors.IsUnavailable(err))
}

func TestFactoryRequiresBucket(t *testing.T) {
	_, err := Factory(nil)(config.SourceConfig{ID: "s3", Type: "s3"})
	assert.True(t, pkgerrors.IsBadRequest(err))
}
