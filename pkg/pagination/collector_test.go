package pagination

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

// fakeCollection serves windows over total sequential integers.
func fakeCollection(total int, calls *atomic.Int32, failAt int) PageFunc[int] {
	return func(ctx context.Context, w Window) (*Page[int], error) {
		calls.Add(1)
		if failAt >= 0 && w.Offset == failAt {
			return nil, errors.New("boom")
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		// Finish later windows first to exercise reassembly.
		time.Sleep(time.Duration(total-w.Offset) * time.Microsecond)

		var items []int
		for i := w.Offset; i < total && i < w.Offset+w.Limit; i++ {
			items = append(items, i)
		}
		return &Page[int]{Items: items, Total: total, Offset: w.Offset, Limit: w.Limit}, nil
	}
}

func TestCollector_CollectAll(t *testing.T) {
	tests := []struct {
		name      string
		total     int
		pageSize  int
		wantCalls int32
	}{
		{name: "empty collection", total: 0, pageSize: 50, wantCalls: 1},
		{name: "single window", total: 16, pageSize: 50, wantCalls: 1},
		{name: "exact multiple", total: 100, pageSize: 50, wantCalls: 2},
		{name: "many windows", total: 1330, pageSize: 50, wantCalls: 27},
		{name: "small pages", total: 45, pageSize: 10, wantCalls: 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			collector := NewCollector(fakeCollection(tt.total, &calls, -1), Config{
				MaxConcurrency: 3,
				PageSize:       tt.pageSize,
			})

			items, err := collector.CollectAll(context.Background())
			if err != nil {
				t.Fatalf("CollectAll() error = %v", err)
			}

			if len(items) != tt.total {
				t.Fatalf("len(items) = %d, want %d", len(items), tt.total)
			}
			for i, v := range items {
				if v != i {
					t.Fatalf("items[%d] = %d, want %d (order not preserved)", i, v, i)
				}
			}
			if got := calls.Load(); got != tt.wantCalls {
				t.Errorf("fetch calls = %d, want %d", got, tt.wantCalls)
			}
		})
	}
}

func TestCollector_FirstWindowError(t *testing.T) {
	var calls atomic.Int32
	collector := NewCollector(fakeCollection(200, &calls, 0), DefaultConfig())

	items, err := collector.CollectAll(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
	if items != nil {
		t.Errorf("expected no items, got %d", len(items))
	}
	if calls.Load() != 1 {
		t.Errorf("calls = %d, want 1", calls.Load())
	}
}

func TestCollector_WindowErrorFailsWhole(t *testing.T) {
	var calls atomic.Int32
	collector := NewCollector(fakeCollection(500, &calls, 250), Config{
		MaxConcurrency: 1,
		PageSize:       50,
	})

	items, err := collector.CollectAll(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
	if items != nil {
		t.Errorf("partial items returned: %d", len(items))
	}
	// Sequential worker stops at the failing window (offset 250 is the 6th).
	if got := calls.Load(); got != 6 {
		t.Errorf("calls = %d, want 6", got)
	}
}

func TestNewCollector_Defaults(t *testing.T) {
	c := NewCollector[int](nil, Config{PageSize: 500})

	if c.config.MaxConcurrency != 4 {
		t.Errorf("MaxConcurrency = %d, want 4", c.config.MaxConcurrency)
	}
	if c.config.Timeout != 15*time.Second {
		t.Errorf("Timeout = %v, want 15s", c.config.Timeout)
	}
	if c.config.PageSize != MaxLimit {
		t.Errorf("PageSize = %d, want %d", c.config.PageSize, MaxLimit)
	}
}
