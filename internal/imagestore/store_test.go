package imagestore

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"hash/crc32"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/cloudfront"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeObjects struct {
	mu        sync.Mutex
	objects   map[string][]byte
	types     map[string]string
	putErr    error
	deleteErr error
	headErr   error
	deleted   []string
}

func newFakeObjects() *fakeObjects {
	return &fakeObjects{objects: map[string][]byte{}, types: map[string]string{}}
}

func (f *fakeObjects) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.putErr != nil {
		return nil, f.putErr
	}
	body, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[*in.Key] = body
	f.types[*in.Key] = *in.ContentType
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeObjects) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	if f.deleteErr != nil {
		return nil, f.deleteErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, *in.Key)
	delete(f.objects, *in.Key)
	return &s3.DeleteObjectOutput{}, nil
}

func (f *fakeObjects) HeadBucket(context.Context, *s3.HeadBucketInput, ...func(*s3.Options)) (*s3.HeadBucketOutput, error) {
	return &s3.HeadBucketOutput{}, f.headErr
}

type fakeCDN struct {
	paths []string
	err   error
}

func (f *fakeCDN) CreateInvalidation(_ context.Context, in *cloudfront.CreateInvalidationInput, _ ...func(*cloudfront.Options)) (*cloudfront.CreateInvalidationOutput, error) {
	f.paths = append(f.paths, in.InvalidationBatch.Paths.Items...)
	return &cloudfront.CreateInvalidationOutput{}, f.err
}

// createTestPNG returns a w×h PNG whose left half is red and right half blue.
func createTestPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			c := color.RGBA{R: 255, A: 255}
			if x >= w/2 {
				c = color.RGBA{B: 255, A: 255}
			}
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

// pngHeader returns a PNG signature and IHDR chunk claiming w×h grey
// pixels. It is enough for image.DecodeConfig and costs a few bytes.
func pngHeader(w, h uint32) []byte {
	ihdr := make([]byte, 13)
	binary.BigEndian.PutUint32(ihdr[0:4], w)
	binary.BigEndian.PutUint32(ihdr[4:8], h)
	ihdr[8] = 8 // bit depth; colour type, compression, filter, interlace stay 0

	var buf bytes.Buffer
	buf.WriteString("\x89PNG\r\n\x1a\n")
	_ = binary.Write(&buf, binary.BigEndian, uint32(len(ihdr)))
	crc := crc32.NewIEEE()
	chunk := append([]byte("IHDR"), ihdr...)
	buf.Write(chunk)
	crc.Write(chunk)
	_ = binary.Write(&buf, binary.BigEndian, crc.Sum32())
	return buf.Bytes()
}

func testConfig() Config {
	return Config{Bucket: "portfolio-images", Region: "us-east-1", Folder: "projects", ThumbnailSize: 300}
}

func TestStoreUploadsSquareThumbnail(t *testing.T) {
	objects := newFakeObjects()
	store := New(objects, nil, testConfig())

	u, err := store.Store(context.Background(), createTestPNG(t, 600, 300), "projects")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(u, "https://portfolio-images.s3.us-east-1.amazonaws.com/projects/"), u)
	assert.True(t, strings.HasSuffix(u, ".jpg"))

	require.Len(t, objects.objects, 1)
	for key, body := range objects.objects {
		assert.Equal(t, "image/jpeg", objects.types[key])
		img, err := jpeg.Decode(bytes.NewReader(body))
		require.NoError(t, err)
		assert.Equal(t, 300, img.Bounds().Dx())
		assert.Equal(t, 300, img.Bounds().Dy())

		// A centred square crop of a 2:1 image keeps both halves.
		r, _, _, _ := img.At(10, 150).RGBA()
		_, _, b, _ := img.At(290, 150).RGBA()
		assert.Greater(t, r>>8, uint32(200))
		assert.Greater(t, b>>8, uint32(200))
	}
}

func TestStoreURLForms(t *testing.T) {
	tests := []struct {
		name   string
		cfg    func(c *Config)
		prefix string
	}{
		{"cdn", func(c *Config) { c.CDNDomain = "img.example.dev" }, "https://img.example.dev/projects/"},
		{"custom endpoint", func(c *Config) { c.Endpoint = "http://localhost:9000/" }, "http://localhost:9000/portfolio-images/projects/"},
		{"s3", func(c *Config) {}, "https://portfolio-images.s3.us-east-1.amazonaws.com/projects/"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			tt.cfg(&cfg)
			store := New(newFakeObjects(), nil, cfg)

			u, err := store.Store(context.Background(), createTestPNG(t, 40, 40), "projects")
			require.NoError(t, err)
			assert.True(t, strings.HasPrefix(u, tt.prefix), u)
		})
	}
}

func TestStoreRejectsBadInput(t *testing.T) {
	cfg := testConfig()
	cfg.MaxBytes = 1 << 20
	store := New(newFakeObjects(), nil, cfg)

	_, err := store.Store(context.Background(), []byte("definitely not an image"), "projects")
	assert.ErrorIs(t, err, ErrUnsupportedImage)

	_, err = store.Store(context.Background(), nil, "projects")
	assert.ErrorIs(t, err, ErrUnsupportedImage)

	// PNG magic followed by garbage fails at decode.
	_, err = store.Store(context.Background(), append([]byte("\x89PNG\r\n\x1a\n"), 0, 1, 2, 3), "projects")
	assert.ErrorIs(t, err, ErrUnsupportedImage)

	_, err = store.Store(context.Background(), make([]byte, 2<<20), "projects")
	assert.ErrorIs(t, err, ErrTooLarge)
}

func TestStoreRejectsOversizedDimensions(t *testing.T) {
	cfg := testConfig()
	cfg.MaxBytes = 10 << 20
	objects := newFakeObjects()
	store := New(objects, nil, cfg)

	tests := []struct {
		name string
		w, h uint32
	}{
		{"wide", 12000, 10},
		{"tall", 10, 12000},
		{"too many pixels", 8000, 8000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := store.Store(context.Background(), pngHeader(tt.w, tt.h), "projects")
			assert.ErrorIs(t, err, ErrTooLarge)
		})
	}
	assert.Empty(t, objects.objects)
}

func TestCheckDimensionsAcceptsNormalImages(t *testing.T) {
	assert.NoError(t, checkDimensions(pngHeader(4000, 3000)))
	assert.NoError(t, checkDimensions(createTestPNG(t, 20, 10)))
}

func TestStoreUploadFailureIsStoreError(t *testing.T) {
	objects := newFakeObjects()
	objects.putErr = errors.New("AccessDenied")
	store := New(objects, nil, testConfig())

	_, err := store.Store(context.Background(), createTestPNG(t, 20, 20), "projects")
	var serr *StoreError
	require.True(t, errors.As(err, &serr))
	assert.Equal(t, "upload", serr.Op)
}

func TestStoreThenRemove(t *testing.T) {
	objects := newFakeObjects()
	cdn := &fakeCDN{}
	cfg := testConfig()
	cfg.CDNDomain = "img.example.dev"
	cfg.DistributionID = "E123"
	store := New(objects, cdn, cfg)

	u, err := store.Store(context.Background(), createTestPNG(t, 20, 20), "projects")
	require.NoError(t, err)

	assert.True(t, store.Remove(context.Background(), u))
	assert.Empty(t, objects.objects)
	require.Len(t, objects.deleted, 1)
	assert.Equal(t, []string{"/" + objects.deleted[0]}, cdn.paths)
}

func TestRemoveSwallowsFailures(t *testing.T) {
	objects := newFakeObjects()
	store := New(objects, nil, testConfig())

	u, err := store.Store(context.Background(), createTestPNG(t, 20, 20), "projects")
	require.NoError(t, err)

	objects.deleteErr = errors.New("NoSuchBucket: 404")
	assert.NotPanics(t, func() {
		assert.False(t, store.Remove(context.Background(), u))
	})

	assert.False(t, store.Remove(context.Background(), "https://img.example.dev/"))
	assert.False(t, store.Remove(context.Background(), "://bad url"))
}

func TestRemoveInvalidationFailureStillSucceeds(t *testing.T) {
	cfg := testConfig()
	cfg.DistributionID = "E123"
	store := New(newFakeObjects(), &fakeCDN{err: errors.New("throttled")}, cfg)

	assert.True(t, store.Remove(context.Background(), "https://portfolio-images.s3.us-east-1.amazonaws.com/projects/abc.jpg"))
}

func TestKeyFromURL(t *testing.T) {
	store := New(newFakeObjects(), nil, Config{Bucket: "b", Region: "eu-west-1", CDNDomain: "img.example.dev"})

	tests := []struct {
		url  string
		want string
	}{
		{"https://img.example.dev/projects/abc123.jpg", "projects/abc123.jpg"},
		{"https://img.example.dev/archive/2024/abc123.jpg", "archive/2024/abc123.jpg"},
		// Foreign URLs fall back to the default folder and keep only the id.
		{"https://res.cloudinary.com/demo/image/upload/v1699/projects/xyz789.png", "projects/xyz789.jpg"},
	}
	for _, tt := range tests {
		got, err := store.keyFromURL(tt.url)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, tt.url)
	}
}

func TestCheck(t *testing.T) {
	objects := newFakeObjects()
	store := New(objects, nil, testConfig())
	assert.NoError(t, store.Check(context.Background()))

	objects.headErr = errors.New("forbidden")
	var serr *StoreError
	assert.True(t, errors.As(store.Check(context.Background()), &serr))
}

func TestDetectContentType(t *testing.T) {
	assert.Equal(t, "image/png", detectContentType(createTestPNG(t, 2, 2)))
	assert.Equal(t, "image/jpeg", detectContentType([]byte{0xFF, 0xD8, 0xFF, 0xE0}))
	assert.Equal(t, "image/gif", detectContentType([]byte("GIF89a......")))
	assert.Equal(t, "image/webp", detectContentType([]byte("RIFF\x00\x00\x00\x00WEBPVP8 ")))
	assert.Equal(t, "application/octet-stream", detectContentType([]byte("hello")))
}
