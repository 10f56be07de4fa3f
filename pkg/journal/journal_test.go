package journal

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/google/go-cmp/cmp"

	"github.com/vango-dev/locsync/pkg/location"
)

func fixedClock() func() time.Time {
	t0 := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	n := 0
	return func() time.Time {
		n++
		return t0.Add(time.Duration(n) * time.Second)
	}
}

func TestRecorderRecordsNavigations(t *testing.T) {
	r := NewRecorder(10, nil)
	r.now = fixedClock()

	r.ObserveNavigation(location.Navigation{Kind: location.NavDeferred, Field: location.FieldPathname, URL: "/a"})
	r.ObserveGateOpened(250 * time.Millisecond)
	r.ObserveNavigation(location.Navigation{Kind: location.NavPush, Field: location.FieldPathname, URL: "/a", Flushed: true})

	t0 := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	want := []Entry{
		{At: t0.Add(1 * time.Second), Kind: "deferred", Field: "pathname", URL: "/a"},
		{At: t0.Add(2 * time.Second), Kind: KindIdle, Waited: 250 * time.Millisecond},
		{At: t0.Add(3 * time.Second), Kind: "push", Field: "pathname", URL: "/a", Flushed: true},
	}
	if diff := cmp.Diff(want, r.Entries()); diff != "" {
		t.Errorf("Entries() mismatch (-want +got):\n%s", diff)
	}
}

func TestRecorderDropsOldest(t *testing.T) {
	seed := []Entry{{Kind: "push", URL: "/1"}, {Kind: "push", URL: "/2"}}
	r := NewRecorder(3, seed)

	r.ObserveNavigation(location.Navigation{Kind: location.NavHash, Field: location.FieldHash, URL: "#3"})
	r.ObserveNavigation(location.Navigation{Kind: location.NavHash, Field: location.FieldHash, URL: "#4"})

	got := r.Entries()
	if len(got) != 3 {
		t.Fatalf("Len() = %d, want 3", len(got))
	}
	var urls []string
	for _, e := range got {
		urls = append(urls, e.URL)
	}
	if strings.Join(urls, ",") != "/2,#3,#4" {
		t.Errorf("urls = %v, want [/2 #3 #4]", urls)
	}
}

func TestRecorderDefaultMax(t *testing.T) {
	r := NewRecorder(0, nil)
	for i := 0; i < DefaultMaxEntries+5; i++ {
		r.ObserveGateOpened(0)
	}
	if r.Len() != DefaultMaxEntries {
		t.Errorf("Len() = %d, want %d", r.Len(), DefaultMaxEntries)
	}
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()

	if _, err := m.Load(ctx, "s1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Load(missing) error = %v, want ErrNotFound", err)
	}

	entries := []Entry{{Kind: "href", Field: "pathname", URL: "/x"}}
	if err := m.Save(ctx, "s1", entries); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	entries[0].URL = "/mutated"

	got, err := m.Load(ctx, "s1")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got[0].URL != "/x" {
		t.Errorf("stored entry aliased caller slice: URL = %q", got[0].URL)
	}

	if err := m.Delete(ctx, "s1"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if m.Len() != 0 {
		t.Errorf("Len() after Delete = %d, want 0", m.Len())
	}

	m.Close()
	if err := m.Save(ctx, "s1", nil); !errors.Is(err, ErrStoreClosed) {
		t.Errorf("Save() after Close error = %v, want ErrStoreClosed", err)
	}
}

// fakeS3 is an in-memory S3API.
type fakeS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
	ctypes  map[string]string
	putErr  error
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: make(map[string][]byte), ctypes: make(map[string]string)}
}

func (f *fakeS3) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.putErr != nil {
		return nil, f.putErr
	}
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	key := *in.Bucket + "/" + *in.Key
	f.objects[key] = data
	f.ctypes[key] = *in.ContentType
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) GetObject(ctx context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.objects[*in.Bucket+"/"+*in.Key]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (f *fakeS3) DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, *in.Bucket+"/"+*in.Key)
	return &s3.DeleteObjectOutput{}, nil
}

func TestS3StoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	fake := newFakeS3()
	store := NewS3Store(fake, "bucket", "journals/")

	if got := store.Key("abc"); got != "journals/abc.json" {
		t.Errorf("Key() = %q, want journals/abc.json", got)
	}

	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	entries := []Entry{
		{At: at, Kind: "deferred", Field: "search", URL: "/p?q=1"},
		{At: at.Add(time.Second), Kind: KindIdle, Waited: 2 * time.Second},
	}
	if err := store.Save(ctx, "abc", entries); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if ct := fake.ctypes["bucket/journals/abc.json"]; ct != "application/json" {
		t.Errorf("ContentType = %q, want application/json", ct)
	}

	got, err := store.Load(ctx, "abc")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if diff := cmp.Diff(entries, got); diff != "" {
		t.Errorf("Load() mismatch (-want +got):\n%s", diff)
	}

	if err := store.Delete(ctx, "abc"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := store.Load(ctx, "abc"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Load() after Delete error = %v, want ErrNotFound", err)
	}
}

func TestS3StoreSaveEmptyWritesArray(t *testing.T) {
	fake := newFakeS3()
	store := NewS3Store(fake, "b", "")
	if err := store.Save(context.Background(), "s", nil); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if got := string(fake.objects["b/s.json"]); got != "[]" {
		t.Errorf("object = %q, want []", got)
	}
}

func TestS3StoreWrapsErrors(t *testing.T) {
	boom := errors.New("boom")
	fake := newFakeS3()
	fake.putErr = boom
	store := NewS3Store(fake, "b", "p/")

	err := store.Save(context.Background(), "s", nil)
	if !errors.Is(err, boom) {
		t.Errorf("Save() error = %v, want wrapping boom", err)
	}
}
