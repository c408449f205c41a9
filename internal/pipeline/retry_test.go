package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dgallion1/resumer/internal/llm"
)

// recordingTimer fires immediately and remembers every requested delay.
type recordingTimer struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (r *recordingTimer) After(d time.Duration) <-chan time.Time {
	r.mu.Lock()
	r.delays = append(r.delays, d)
	r.mu.Unlock()
	ch := make(chan time.Time, 1)
	ch <- time.Now()
	return ch
}

func (r *recordingTimer) recorded() []time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]time.Duration(nil), r.delays...)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRetry_SucceedsFirstTry(t *testing.T) {
	timer := &recordingTimer{}
	calls := 0
	out, err := Retry(context.Background(), "probe", RetryPolicy{MaxRetries: 3, BaseDelay: time.Second, Timer: timer}, discardLogger(),
		func(context.Context) (string, error) {
			calls++
			return "ok", nil
		})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "ok" || calls != 1 {
		t.Errorf("expected one call returning ok, got %q after %d calls", out, calls)
	}
	if len(timer.recorded()) != 0 {
		t.Errorf("expected no delays, got %v", timer.recorded())
	}
}

func TestRetry_SucceedsAfterFailures(t *testing.T) {
	timer := &recordingTimer{}
	calls := 0
	out, err := Retry(context.Background(), "summarize", RetryPolicy{MaxRetries: 3, BaseDelay: 100 * time.Millisecond, Timer: timer}, discardLogger(),
		func(context.Context) (int, error) {
			calls++
			if calls < 3 {
				return 0, errors.New("flaky")
			}
			return 42, nil
		})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != 42 || calls != 3 {
		t.Errorf("expected 42 after 3 calls, got %d after %d", out, calls)
	}
	want := []time.Duration{100 * time.Millisecond, 200 * time.Millisecond}
	assertDelays(t, timer.recorded(), want)
}

func TestRetry_PermanentFailureExhaustsAttempts(t *testing.T) {
	for _, maxRetries := range []int{1, 3, 5} {
		timer := &recordingTimer{}
		calls := 0
		_, err := Retry(context.Background(), "summarize lesson", RetryPolicy{MaxRetries: maxRetries, BaseDelay: time.Second, Timer: timer}, discardLogger(),
			func(context.Context) (string, error) {
				calls++
				return "", errors.New("connection refused")
			})
		if calls != maxRetries {
			t.Errorf("maxRetries=%d: expected %d calls, got %d", maxRetries, maxRetries, calls)
		}

		var want []time.Duration
		d := time.Second
		for i := 1; i < maxRetries; i++ {
			want = append(want, d)
			d *= 2
		}
		assertDelays(t, timer.recorded(), want)

		var retryErr *RetryError
		if !errors.As(err, &retryErr) {
			t.Fatalf("expected *RetryError, got %T: %v", err, err)
		}
		if retryErr.Attempts != maxRetries || retryErr.Op != "summarize lesson" {
			t.Errorf("unexpected retry error fields: %+v", retryErr)
		}
		wantMsg := "failed to summarize lesson after"
		if !strings.HasPrefix(err.Error(), wantMsg) || !strings.HasSuffix(err.Error(), "connection refused") {
			t.Errorf("unexpected message %q", err.Error())
		}
	}
}

func TestRetry_UnwrapsLastError(t *testing.T) {
	sentinel := errors.New("last")
	calls := 0
	_, err := Retry(context.Background(), "op", RetryPolicy{MaxRetries: 2, Timer: &recordingTimer{}}, discardLogger(),
		func(context.Context) (struct{}, error) {
			calls++
			if calls == 1 {
				return struct{}{}, errors.New("first")
			}
			return struct{}{}, sentinel
		})
	if !errors.Is(err, sentinel) {
		t.Errorf("expected last error to be wrapped, got %v", err)
	}
}

func TestRetry_ZeroMaxRetriesStillTriesOnce(t *testing.T) {
	calls := 0
	Retry(context.Background(), "op", RetryPolicy{MaxRetries: 0, Timer: &recordingTimer{}}, discardLogger(),
		func(context.Context) (int, error) {
			calls++
			return 0, errors.New("nope")
		})
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
}

func TestRetry_ContextCancelledStops(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	_, err := Retry(ctx, "op", RetryPolicy{MaxRetries: 5, Timer: &recordingTimer{}}, discardLogger(),
		func(ctx context.Context) (int, error) {
			calls++
			cancel()
			return 0, fmt.Errorf("ollama api: %w", ctx.Err())
		})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	var retryErr *RetryError
	if errors.As(err, &retryErr) {
		t.Error("cancellation should not be reported as exhausted retries")
	}
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
}

func TestRetry_ClientTimeoutIsRetried(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		select {
		case <-time.After(200 * time.Millisecond):
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()

	client := llm.NewOllamaClient(srv.URL, "granite3.3", 50*time.Millisecond)
	timer := &recordingTimer{}
	_, err := Retry(context.Background(), "summarize", RetryPolicy{MaxRetries: 3, BaseDelay: 10 * time.Millisecond, Timer: timer}, discardLogger(),
		func(ctx context.Context) (string, error) {
			return client.Generate(ctx, "hello")
		})

	var retryErr *RetryError
	if !errors.As(err, &retryErr) {
		t.Fatalf("expected *RetryError, got %T: %v", err, err)
	}
	if retryErr.Attempts != 3 {
		t.Errorf("expected 3 attempts, got %d", retryErr.Attempts)
	}
	if got := hits.Load(); got != 3 {
		t.Errorf("expected 3 requests to the server, got %d", got)
	}
	assertDelays(t, timer.recorded(), []time.Duration{10 * time.Millisecond, 20 * time.Millisecond})
}

func TestExponentialDelay(t *testing.T) {
	f := ExponentialDelay(500 * time.Millisecond)
	want := []time.Duration{500 * time.Millisecond, time.Second, 2 * time.Second, 4 * time.Second}
	for i, w := range want {
		if got := f(uint(i+1), nil, nil); got != w {
			t.Errorf("n=%d: expected %v, got %v", i+1, w, got)
		}
	}
}

func assertDelays(t *testing.T, got, want []time.Duration) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("expected delays %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("delay %d: expected %v, got %v", i, want[i], got[i])
		}
	}
}
