package blob

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestMemStoreListSorted(t *testing.T) {
	s := NewMemStore()
	s.Put("b.json", []byte(`{}`))
	s.Put("a.json", []byte(`{"resourceType":"Bundle"}`))
	s.Put("c.json", []byte(`{}`))

	objects, err := s.List(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(objects) != 3 {
		t.Fatalf("got %d objects, want 3", len(objects))
	}
	for i, want := range []string{"a.json", "b.json", "c.json"} {
		if objects[i].Name != want {
			t.Errorf("objects[%d].Name = %q, want %q", i, objects[i].Name, want)
		}
	}
	if objects[0].Size != int64(len(`{"resourceType":"Bundle"}`)) {
		t.Errorf("objects[0].Size = %d", objects[0].Size)
	}
}

func TestMemStoreDownload(t *testing.T) {
	s := NewMemStore()
	s.Put("one.json", []byte(`{"a":1}`))

	data, err := s.Download(context.Background(), "one.json")
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `{"a":1}` {
		t.Errorf("data = %q", data)
	}

	// Mutating the returned slice must not affect the store.
	data[0] = 'X'
	again, _ := s.Download(context.Background(), "one.json")
	if string(again) != `{"a":1}` {
		t.Error("download returned a shared slice")
	}

	_, err = s.Download(context.Background(), "missing.json")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestDirStore(t *testing.T) {
	dir := t.TempDir()
	files := map[string]string{
		"p1.json": `{"resourceType":"Bundle"}`,
		"p2.json": `{"resourceType":"Bundle"}`,
		"notes.txt": "ignore me",
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.Mkdir(filepath.Join(dir, "sub.json"), 0o700); err != nil {
		t.Fatal(err)
	}

	s := NewDirStore(dir)
	objects, err := s.List(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(objects) != 2 {
		t.Fatalf("got %d objects, want 2 (only regular .json files)", len(objects))
	}
	if objects[0].Name != "p1.json" || objects[1].Name != "p2.json" {
		t.Errorf("names = %s, %s", objects[0].Name, objects[1].Name)
	}

	data, err := s.Download(context.Background(), "p1.json")
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `{"resourceType":"Bundle"}` {
		t.Errorf("data = %q", data)
	}

	_, err = s.Download(context.Background(), "absent.json")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestDirStoreDownloadStripsPath(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "safe.json"), []byte(`{}`), 0o600); err != nil {
		t.Fatal(err)
	}

	s := NewDirStore(dir)
	data, err := s.Download(context.Background(), "../../../safe.json")
	if err != nil {
		t.Fatalf("path components should be stripped: %v", err)
	}
	if string(data) != `{}` {
		t.Errorf("data = %q", data)
	}
}

func TestListWithRetryRecovers(t *testing.T) {
	s := NewMemStore()
	s.Put("a.json", []byte(`{}`))
	s.FailListTimes(2)

	objects, err := ListWithRetry(context.Background(), s, 5, time.Millisecond, zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	if len(objects) != 1 {
		t.Errorf("got %d objects, want 1", len(objects))
	}
}

func TestListWithRetryExhausts(t *testing.T) {
	s := NewMemStore()
	s.FailListTimes(10)

	_, err := ListWithRetry(context.Background(), s, 3, time.Millisecond, zerolog.Nop())
	if !errors.Is(err, ErrUnauthorized) {
		t.Errorf("err = %v, want ErrUnauthorized", err)
	}
}

func TestListWithRetryNonAuthErrorFailsFast(t *testing.T) {
	s := NewDirStore(filepath.Join(t.TempDir(), "does-not-exist"))

	start := time.Now()
	_, err := ListWithRetry(context.Background(), s, 5, time.Second, zerolog.Nop())
	if err == nil {
		t.Fatal("expected an error")
	}
	if time.Since(start) > 500*time.Millisecond {
		t.Error("non-auth error should not be retried")
	}
}

func TestListWithRetryRespectsCancellation(t *testing.T) {
	s := NewMemStore()
	s.FailListTimes(10)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := ListWithRetry(ctx, s, 5, time.Minute, zerolog.Nop())
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}
