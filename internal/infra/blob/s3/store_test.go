package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"bookclub/internal/blob/core"
)

const listPageSize = 2

type fakeObject struct {
	body        []byte
	contentType string
	metadata    map[string]string
	modified    time.Time
}

// fakeS3 serves the path-style subset of the S3 REST API used by Store.
type fakeS3 struct {
	mu      sync.Mutex
	objects map[string]fakeObject
	lists   int
}

func newFakeS3() *fakeS3 { return &fakeS3{objects: make(map[string]fakeObject)} }

func response(status int, body string, header http.Header) *http.Response {
	if header == nil {
		header = http.Header{}
	}
	return &http.Response{StatusCode: status, Body: io.NopCloser(strings.NewReader(body)), Header: header}
}

func errorXML(code, msg string) string {
	return fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?><Error><Code>%s</Code><Message>%s</Message></Error>`, code, msg)
}

func (f *fakeS3) RoundTrip(req *http.Request) (*http.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	_, key, _ := strings.Cut(strings.TrimPrefix(req.URL.Path, "/"), "/")
	query := req.URL.Query()
	if req.Method == http.MethodGet && query.Get("list-type") == "2" {
		return f.list(query.Get("prefix"), query.Get("continuation-token")), nil
	}
	switch req.Method {
	case http.MethodPut:
		body, err := io.ReadAll(req.Body)
		if err != nil {
			return nil, err
		}
		if strings.Contains(req.Header.Get("Content-Encoding"), "aws-chunked") || req.Header.Get("X-Amz-Decoded-Content-Length") != "" {
			body = decodeAWSChunked(body)
		}
		if _, exists := f.objects[key]; exists && req.Header.Get("If-None-Match") == "*" {
			return response(http.StatusPreconditionFailed, errorXML("PreconditionFailed", "At least one of the pre-conditions you specified did not hold"), nil), nil
		}
		meta := make(map[string]string)
		for name, values := range req.Header {
			if strings.HasPrefix(strings.ToLower(name), "x-amz-meta-") {
				meta[strings.ToLower(strings.TrimPrefix(strings.ToLower(name), "x-amz-meta-"))] = values[0]
			}
		}
		f.objects[key] = fakeObject{body: body, contentType: req.Header.Get("Content-Type"), metadata: meta, modified: time.Now().UTC()}
		return response(http.StatusOK, "", http.Header{"Etag": {`"etag-` + key + `"`}}), nil
	case http.MethodHead, http.MethodGet:
		obj, ok := f.objects[key]
		if !ok {
			if req.Method == http.MethodHead {
				return response(http.StatusNotFound, "", nil), nil
			}
			return response(http.StatusNotFound, errorXML("NoSuchKey", "The specified key does not exist."), nil), nil
		}
		header := http.Header{
			"Content-Length": {strconv.Itoa(len(obj.body))},
			"Content-Type":   {obj.contentType},
			"Etag":           {`"etag-` + key + `"`},
			"Last-Modified":  {obj.modified.Format(http.TimeFormat)},
		}
		for k, v := range obj.metadata {
			header.Set("X-Amz-Meta-"+k, v)
		}
		body := ""
		if req.Method == http.MethodGet {
			body = string(obj.body)
		}
		resp := response(http.StatusOK, body, header)
		resp.ContentLength = int64(len(obj.body))
		return resp, nil
	case http.MethodDelete:
		delete(f.objects, key)
		return response(http.StatusNoContent, "", nil), nil
	}
	return response(http.StatusNotImplemented, "", nil), nil
}

func (f *fakeS3) list(prefix, token string) *http.Response {
	f.lists++
	var keys []string
	for k := range f.objects {
		if strings.HasPrefix(k, prefix) && k > token {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	truncated := len(keys) > listPageSize
	if truncated {
		keys = keys[:listPageSize]
	}
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?><ListBucketResult>`)
	fmt.Fprintf(&b, "<IsTruncated>%t</IsTruncated>", truncated)
	if truncated {
		fmt.Fprintf(&b, "<NextContinuationToken>%s</NextContinuationToken>", keys[len(keys)-1])
	}
	for _, k := range keys {
		fmt.Fprintf(&b, "<Contents><Key>%s</Key><Size>%d</Size><LastModified>2024-01-01T00:00:00Z</LastModified></Contents>", k, len(f.objects[k].body))
	}
	b.WriteString("</ListBucketResult>")
	return response(http.StatusOK, b.String(), http.Header{"Content-Type": {"application/xml"}})
}

// decodeAWSChunked strips aws-chunked framing: "<hex>[;ext]\r\n<data>\r\n" repeated, ending with a zero chunk.
func decodeAWSChunked(b []byte) []byte {
	var out []byte
	for {
		line, rest, ok := bytes.Cut(b, []byte("\r\n"))
		if !ok {
			return out
		}
		sizeHex, _, _ := strings.Cut(string(line), ";")
		n, err := strconv.ParseInt(sizeHex, 16, 64)
		if err != nil || n == 0 || int64(len(rest)) < n {
			return out
		}
		out = append(out, rest[:n]...)
		b = bytes.TrimPrefix(rest[n:], []byte("\r\n"))
	}
}

func newFakeStore(t *testing.T) (*Store, *fakeS3) {
	t.Helper()
	fake := newFakeS3()
	store, err := New(context.Background(), Config{
		Bucket:          "rosters",
		Region:          "eu-west-1",
		Endpoint:        "https://s3.test.local",
		PathStyle:       true,
		AccessKeyID:     "AKIATEST",
		SecretAccessKey: "secret",
		HTTPClient:      &http.Client{Transport: fake},
	})
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	return store, fake
}

func TestStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store, _ := newFakeStore(t)

	info, err := store.Put(ctx, "rosters/c1/roster.csv", bytes.NewReader([]byte("userId,email\n")), core.PutOptions{
		ContentType: "text/csv",
		Metadata:    map[string]string{"club": "c1"},
	})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if info.Key != "rosters/c1/roster.csv" || info.ContentType != "text/csv" || info.Size != 13 {
		t.Fatalf("unexpected info %+v", info)
	}
	if info.ETag != "etag-rosters/c1/roster.csv" {
		t.Fatalf("etag should be unquoted, got %q", info.ETag)
	}
	if info.Metadata["club"] != "c1" {
		t.Fatalf("metadata not returned: %v", info.Metadata)
	}

	got, rc, err := store.Get(ctx, "rosters/c1/roster.csv")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	data, _ := io.ReadAll(rc)
	_ = rc.Close()
	if string(data) != "userId,email\n" || got.ContentType != "text/csv" {
		t.Fatalf("unexpected get %q %+v", data, got)
	}

	url, err := store.PresignURL(ctx, "rosters/c1/roster.csv", core.SignedURLOptions{Expiry: 30 * time.Second})
	if err != nil {
		t.Fatalf("presign: %v", err)
	}
	if !strings.Contains(url, "X-Amz-Expires=30") || !strings.Contains(url, "/rosters/rosters/c1/roster.csv") {
		t.Fatalf("unexpected presigned url %s", url)
	}

	ok, err := store.Delete(ctx, "rosters/c1/roster.csv")
	if err != nil || !ok {
		t.Fatalf("delete: %v %v", ok, err)
	}
	ok, err = store.Delete(ctx, "rosters/c1/roster.csv")
	if err != nil || ok {
		t.Fatalf("second delete should report absence: %v %v", ok, err)
	}
}

func TestStorePutIsCreateOnly(t *testing.T) {
	ctx := context.Background()
	store, _ := newFakeStore(t)
	if _, err := store.Put(ctx, "a.json", strings.NewReader("{}"), core.PutOptions{}); err != nil {
		t.Fatalf("put: %v", err)
	}
	_, err := store.Put(ctx, "a.json", strings.NewReader("[]"), core.PutOptions{})
	if !errors.Is(err, core.ErrExists) {
		t.Fatalf("expected ErrExists, got %v", err)
	}
	_, rc, err := store.Get(ctx, "a.json")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	data, _ := io.ReadAll(rc)
	_ = rc.Close()
	if string(data) != "{}" {
		t.Fatalf("original content must survive, got %q", data)
	}
}

func TestStoreNotFound(t *testing.T) {
	ctx := context.Background()
	store, _ := newFakeStore(t)
	if _, err := store.Head(ctx, "missing"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("head: expected ErrNotFound, got %v", err)
	}
	if _, _, err := store.Get(ctx, "missing"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("get: expected ErrNotFound, got %v", err)
	}
}

func TestStoreListPaginates(t *testing.T) {
	ctx := context.Background()
	store, fake := newFakeStore(t)
	for _, key := range []string{"r/3", "r/1", "r/2", "other/1", "r/4", "r/5"} {
		if _, err := store.Put(ctx, key, strings.NewReader(key), core.PutOptions{}); err != nil {
			t.Fatalf("put %s: %v", key, err)
		}
	}
	infos, err := store.List(ctx, "r/")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	var keys []string
	for _, info := range infos {
		keys = append(keys, info.Key)
	}
	if strings.Join(keys, ",") != "r/1,r/2,r/3,r/4,r/5" {
		t.Fatalf("unexpected keys %v", keys)
	}
	if fake.lists != 3 {
		t.Fatalf("expected 3 list pages, got %d", fake.lists)
	}
}

func TestStoreRejectsBadInput(t *testing.T) {
	ctx := context.Background()
	store, _ := newFakeStore(t)
	if _, err := store.Put(ctx, "../escape", strings.NewReader("x"), core.PutOptions{}); !errors.Is(err, core.ErrInvalidKey) {
		t.Fatalf("expected invalid key, got %v", err)
	}
	if _, err := store.PresignURL(ctx, "k", core.SignedURLOptions{Method: "PUT"}); !errors.Is(err, core.ErrUnsupported) {
		t.Fatalf("expected unsupported presign method, got %v", err)
	}
	if _, err := New(ctx, Config{}); err == nil {
		t.Fatalf("expected error for missing bucket")
	}
	if store.Driver() != core.DriverS3 || store.Bucket() != "rosters" {
		t.Fatalf("unexpected driver/bucket")
	}
}

func TestDecodeAWSChunked(t *testing.T) {
	framed := "5;chunk-signature=abc\r\nhello\r\n6\r\n world\r\n0\r\nx-amz-checksum-crc32:AAAA\r\n\r\n"
	if got := string(decodeAWSChunked([]byte(framed))); got != "hello world" {
		t.Fatalf("unexpected decode %q", got)
	}
}
