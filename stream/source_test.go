package stream

import (
	"context"
	"fmt"
	"runtime"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/gofhir/loader/blob"
)

func seedStore(t *testing.T, bundles int) *blob.MemStore {
	t.Helper()
	s := blob.NewMemStore()
	for i := 0; i < bundles; i++ {
		s.Put(fmt.Sprintf("patient-%02d.json", i),
			[]byte(fmt.Sprintf(`{"resourceType":"Bundle","type":"collection","id":"b-%d"}`, i)))
	}
	return s
}

func collect(t *testing.T, src *Source) []Batch {
	t.Helper()
	var batches []Batch
	for b := range src.Stream(context.Background()) {
		if b.Err != nil {
			t.Fatalf("batch error: %v", b.Err)
		}
		batches = append(batches, b)
	}
	return batches
}

func TestStreamBatches(t *testing.T) {
	src := NewSource(seedStore(t, 7), 3, zerolog.Nop())
	batches := collect(t, src)

	if len(batches) != 3 {
		t.Fatalf("got %d batches, want 3", len(batches))
	}
	for i, want := range []int{3, 3, 1} {
		if len(batches[i].Bundles) != want {
			t.Errorf("batch %d has %d bundles, want %d", i, len(batches[i].Bundles), want)
		}
	}

	// Listing order is preserved across batches
	idx := 0
	for _, b := range batches {
		for _, sb := range b.Bundles {
			want := fmt.Sprintf("patient-%02d.json", idx)
			if sb.Name != want {
				t.Errorf("bundle %d from %q, want %q", idx, sb.Name, want)
			}
			if sb.Doc["id"] != fmt.Sprintf("b-%d", idx) {
				t.Errorf("bundle %d decoded id = %v", idx, sb.Doc["id"])
			}
			idx++
		}
	}
}

func TestStreamSkipsNonBundles(t *testing.T) {
	s := seedStore(t, 2)
	s.Put("manifest.json", []byte(`{"resourceType":"Parameters"}`))
	s.Put("broken.json", []byte(`{"resourceType":"Bundle",`))
	s.Put("text.json", []byte(`not json at all`))

	src := NewSource(s, 10, zerolog.Nop())
	batches := collect(t, src)

	total := 0
	for _, b := range batches {
		total += len(b.Bundles)
	}
	if total != 2 {
		t.Errorf("got %d bundles, want 2", total)
	}
	if src.Skipped() != 3 {
		t.Errorf("Skipped() = %d, want 3", src.Skipped())
	}
}

func TestStreamEmptyStore(t *testing.T) {
	src := NewSource(blob.NewMemStore(), 5, zerolog.Nop())
	batches := collect(t, src)
	if len(batches) != 0 {
		t.Errorf("got %d batches from an empty store, want 0", len(batches))
	}
}

func TestStreamListError(t *testing.T) {
	s := blob.NewMemStore()
	s.FailListTimes(1)

	src := NewSource(s, 5, zerolog.Nop())
	var sawErr bool
	for b := range src.Stream(context.Background()) {
		if b.Err != nil {
			sawErr = true
			if len(b.Bundles) != 0 {
				t.Error("error batch carries bundles")
			}
		}
	}
	if !sawErr {
		t.Error("expected an error batch")
	}
}

func TestStreamCancellation(t *testing.T) {
	src := NewSource(seedStore(t, 20), 2, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	ch := src.Stream(ctx)

	// Take one batch, then cancel; the stream must terminate.
	<-ch
	cancel()
	count := 0
	for range ch {
		count++
		if count > 20 {
			t.Fatal("stream did not terminate after cancellation")
		}
	}
}

// waitForGoroutines polls until the goroutine count drops back to the
// baseline, failing the test after the deadline.
func waitForGoroutines(t *testing.T, baseline int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if runtime.NumGoroutine() <= baseline {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("producer goroutine leaked: %d running, baseline %d", runtime.NumGoroutine(), baseline)
}

func TestStreamCancelledConsumerGone(t *testing.T) {
	src := NewSource(seedStore(t, 20), 2, zerolog.Nop())
	baseline := runtime.NumGoroutine()

	ctx, cancel := context.WithCancel(context.Background())
	ch := src.Stream(ctx)

	// Take one batch, cancel, and never receive again. The producer must
	// still shut down instead of blocking on a final error send.
	<-ch
	cancel()

	waitForGoroutines(t, baseline)
}

func TestStreamListErrorConsumerGone(t *testing.T) {
	s := blob.NewMemStore()
	s.FailListTimes(1)
	baseline := runtime.NumGoroutine()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	src := NewSource(s, 5, zerolog.Nop())
	src.Stream(ctx)

	waitForGoroutines(t, baseline)
}

func TestIsBundleSniff(t *testing.T) {
	tests := []struct {
		name string
		data string
		want bool
	}{
		{"bundle", `{"resourceType":"Bundle","entry":[]}`, true},
		{"patient", `{"resourceType":"Patient"}`, false},
		{"missing type", `{"entry":[]}`, false},
		{"invalid", `{{`, false},
		{"empty", ``, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isBundle([]byte(tt.data)); got != tt.want {
				t.Errorf("isBundle(%q) = %v, want %v", tt.data, got, tt.want)
			}
		})
	}
}
