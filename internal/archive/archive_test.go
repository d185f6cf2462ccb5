package archive

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ginjaninja78/ifirma-client/internal/config"
	"github.com/ginjaninja78/ifirma-client/internal/types"
)

// fakeS3 serves the subset of the S3 REST API the s3 driver uses.
type fakeS3 struct {
	mu      sync.Mutex
	objects map[string]fakeObject
}

type fakeObject struct {
	body        []byte
	contentType string
}

func newFakeS3() *fakeS3 { return &fakeS3{objects: make(map[string]fakeObject)} }

func (f *fakeS3) RoundTrip(req *http.Request) (*http.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	// Path style: /<bucket>/<key>
	parts := strings.SplitN(strings.TrimPrefix(req.URL.Path, "/"), "/", 2)
	key := ""
	if len(parts) == 2 {
		key = parts[1]
	}

	if req.Method == http.MethodGet && req.URL.Query().Get("list-type") == "2" {
		prefix := req.URL.Query().Get("prefix")
		var keys []string
		for k := range f.objects {
			if strings.HasPrefix(k, prefix) {
				keys = append(keys, k)
			}
		}
		sort.Strings(keys)
		var b strings.Builder
		b.WriteString(`<?xml version="1.0"?><ListBucketResult><IsTruncated>false</IsTruncated>`)
		for _, k := range keys {
			fmt.Fprintf(&b, "<Contents><Key>%s</Key><Size>%d</Size><LastModified>2024-01-01T00:00:00Z</LastModified></Contents>", k, len(f.objects[k].body))
		}
		b.WriteString("</ListBucketResult>")
		return respond(http.StatusOK, b.String(), http.Header{"Content-Type": {"application/xml"}}), nil
	}

	switch req.Method {
	case http.MethodHead, http.MethodGet:
		obj, ok := f.objects[key]
		if !ok {
			if req.Method == http.MethodHead {
				return respond(http.StatusNotFound, "", http.Header{}), nil
			}
			return respond(http.StatusNotFound, `<Error><Code>NoSuchKey</Code><Message>missing</Message></Error>`,
				http.Header{"Content-Type": {"application/xml"}}), nil
		}
		h := http.Header{
			"Content-Length": {strconv.Itoa(len(obj.body))},
			"Content-Type":   {obj.contentType},
			"Etag":           {`"etag"`},
			"Last-Modified":  {time.Now().UTC().Format(http.TimeFormat)},
		}
		if req.Method == http.MethodHead {
			return respond(http.StatusOK, "", h), nil
		}
		return respond(http.StatusOK, string(obj.body), h), nil
	case http.MethodPut:
		body, _ := io.ReadAll(req.Body)
		if dec, ok := decodeChunked(body); ok {
			body = dec
		}
		f.objects[key] = fakeObject{body: body, contentType: req.Header.Get("Content-Type")}
		return respond(http.StatusOK, "", http.Header{"Etag": {`"etag"`}}), nil
	case http.MethodDelete:
		delete(f.objects, key)
		return respond(http.StatusNoContent, "", http.Header{}), nil
	}
	return respond(http.StatusNotImplemented, "", http.Header{}), nil
}

func respond(status int, body string, h http.Header) *http.Response {
	return &http.Response{StatusCode: status, Header: h, Body: io.NopCloser(strings.NewReader(body)), ContentLength: int64(len(body))}
}

// decodeChunked unwraps a single-chunk aws-chunked payload:
// <hex size>\r\n<body>\r\n0\r\n<trailers>
func decodeChunked(b []byte) ([]byte, bool) {
	parts := strings.Split(string(b), "\r\n")
	if len(parts) < 3 || parts[2] != "0" {
		return nil, false
	}
	size, err := strconv.ParseInt(strings.Split(parts[0], ";")[0], 16, 64)
	if err != nil || int64(len(parts[1])) != size {
		return nil, false
	}
	return []byte(parts[1]), true
}

func newTestS3(t *testing.T, fake *fakeS3, prefix string) *S3 {
	t.Helper()
	s, err := NewS3(context.Background(), S3Config{
		Bucket:          "invoices",
		Prefix:          prefix,
		Endpoint:        "https://s3.test.local",
		AccessKeyID:     "AKIA",
		SecretAccessKey: "SECRET",
		PathStyle:       true,
		HTTPClient:      &http.Client{Transport: fake},
	})
	require.NoError(t, err)
	return s
}

func stores(t *testing.T) map[string]Store {
	fs, err := NewFilesystem(t.TempDir())
	require.NoError(t, err)
	return map[string]Store{
		"memory": NewMemory(),
		"fs":     fs,
		"s3":     newTestS3(t, newFakeS3(), ""),
	}
}

func TestStoreContract(t *testing.T) {
	ctx := context.Background()
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			info, err := store.Put(ctx, "domestic/final/1234.pdf", strings.NewReader("%PDF-1.4"), PutOptions{ContentType: "application/pdf"})
			require.NoError(t, err)
			assert.Equal(t, "domestic/final/1234.pdf", info.Key)
			assert.EqualValues(t, 8, info.Size)

			_, err = store.Put(ctx, "domestic/final/1234.pdf", strings.NewReader("again"), PutOptions{})
			assert.ErrorIs(t, err, ErrExists)

			got, rc, err := store.Get(ctx, "domestic/final/1234.pdf")
			require.NoError(t, err)
			body, err := io.ReadAll(rc)
			require.NoError(t, err)
			require.NoError(t, rc.Close())
			assert.Equal(t, "%PDF-1.4", string(body))
			assert.Equal(t, "application/pdf", got.ContentType)

			head, err := store.Head(ctx, "domestic/final/1234.pdf")
			require.NoError(t, err)
			assert.EqualValues(t, 8, head.Size)

			_, err = store.Put(ctx, "domestic/final/1235.json", strings.NewReader("{}"), PutOptions{ContentType: "application/json"})
			require.NoError(t, err)
			_, err = store.Put(ctx, "cash-on-delivery/final/9.pdf", strings.NewReader("x"), PutOptions{})
			require.NoError(t, err)

			list, err := store.List(ctx, "domestic/")
			require.NoError(t, err)
			require.Len(t, list, 2)
			assert.Equal(t, "domestic/final/1234.pdf", list[0].Key)
			assert.Equal(t, "domestic/final/1235.json", list[1].Key)

			all, err := store.List(ctx, "")
			require.NoError(t, err)
			assert.Len(t, all, 3)

			ok, err := store.Delete(ctx, "domestic/final/1234.pdf")
			require.NoError(t, err)
			assert.True(t, ok)
			ok, err = store.Delete(ctx, "domestic/final/1234.pdf")
			require.NoError(t, err)
			assert.False(t, ok)

			_, err = store.Head(ctx, "domestic/final/1234.pdf")
			assert.ErrorIs(t, err, ErrNotFound)
			_, _, err = store.Get(ctx, "domestic/final/1234.pdf")
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestInvalidKeys(t *testing.T) {
	ctx := context.Background()
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			for _, key := range []string{"", "  ", "/abs.pdf", "../escape.pdf", "a/../../b.pdf", `a\b.pdf`} {
				_, err := store.Put(ctx, key, bytes.NewReader(nil), PutOptions{})
				assert.Error(t, err, "key %q", key)
			}
		})
	}
}

func TestFilesystemMetadataSidecar(t *testing.T) {
	ctx := context.Background()
	fs, err := NewFilesystem(t.TempDir())
	require.NoError(t, err)

	_, err = fs.Put(ctx, "a.xml", strings.NewReader("<x/>"), PutOptions{
		ContentType: "application/xml",
		Metadata:    map[string]string{"invoice-id": "77"},
	})
	require.NoError(t, err)

	info, err := fs.Head(ctx, "a.xml")
	require.NoError(t, err)
	assert.Equal(t, "application/xml", info.ContentType)
	assert.Equal(t, map[string]string{"invoice-id": "77"}, info.Metadata)
	assert.NotEmpty(t, info.ETag)

	_, err = fs.Put(ctx, "b.meta", strings.NewReader(""), PutOptions{})
	assert.Error(t, err)

	list, err := fs.List(ctx, "")
	require.NoError(t, err)
	require.Len(t, list, 1)
}

func TestMemoryReturnsCopies(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	md := map[string]string{"k": "v"}
	_, err := m.Put(ctx, "a", strings.NewReader("abc"), PutOptions{Metadata: md})
	require.NoError(t, err)
	md["k"] = "changed"

	info, err := m.Head(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "v", info.Metadata["k"])
	info.Metadata["k"] = "mutated"

	again, err := m.Head(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "v", again.Metadata["k"])
}

func TestS3Prefix(t *testing.T) {
	ctx := context.Background()
	fake := newFakeS3()
	s := newTestS3(t, fake, "/archive/")

	_, err := s.Put(ctx, "domestic/1.pdf", strings.NewReader("pdf"), PutOptions{ContentType: "application/pdf"})
	require.NoError(t, err)

	fake.mu.Lock()
	_, stored := fake.objects["archive/domestic/1.pdf"]
	fake.mu.Unlock()
	assert.True(t, stored)

	list, err := s.List(ctx, "")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "domestic/1.pdf", list[0].Key)
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	store, err := Open(ctx, config.ArchiveSettings{Driver: "none"})
	require.NoError(t, err)
	assert.Nil(t, store)

	store, err = Open(ctx, config.ArchiveSettings{Driver: "memory"})
	require.NoError(t, err)
	assert.Equal(t, DriverMemory, store.Driver())

	dir := t.TempDir()
	store, err = Open(ctx, config.ArchiveSettings{Driver: "fs", Dir: dir})
	require.NoError(t, err)
	require.Equal(t, DriverFilesystem, store.Driver())
	assert.Equal(t, dir, store.(*Filesystem).Root())

	store, err = Open(ctx, config.ArchiveSettings{Driver: "s3", S3: config.S3Settings{Bucket: "b", Region: "eu-central-1"}})
	require.NoError(t, err)
	assert.Equal(t, DriverS3, store.Driver())

	_, err = Open(ctx, config.ArchiveSettings{Driver: "s3"})
	assert.Error(t, err)

	_, err = Open(ctx, config.ArchiveSettings{Driver: "ftp"})
	assert.ErrorIs(t, err, types.ErrConfiguration)
}

func TestKey(t *testing.T) {
	assert.Equal(t, "domestic/final/1.pdf", Key("domestic", "", "/final/", "1.pdf"))
	assert.Equal(t, "", Key())
}
