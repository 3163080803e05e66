package rag

import (
	"context"
	"math"
	"testing"
)

type fakeAnalyticsClient struct {
	snap *AnalyticsSnapshot
	err  error
}

func (f *fakeAnalyticsClient) Analytics(ctx context.Context) (*AnalyticsSnapshot, error) {
	return f.snap, f.err
}

func TestAnalyticsGet(t *testing.T) {
	svc := NewAnalyticsService(&fakeAnalyticsClient{snap: &AnalyticsSnapshot{
		TotalDocuments: 10,
		TotalChunks:    42,
		TotalCost:      0.5,
	}})

	res := svc.Get(context.Background())
	if !res.OK() {
		t.Fatalf("unexpected failure: %s", res.Err)
	}
	if res.Snapshot.TotalDocuments != 10 || res.Snapshot.TotalChunks != 42 {
		t.Errorf("snapshot not passed through: %+v", res.Snapshot)
	}
}

func TestAnalyticsGetFailure(t *testing.T) {
	svc := NewAnalyticsService(&fakeAnalyticsClient{
		err: &ClientError{Op: "/analytics", Message: "connection refused", Transport: true},
	})

	res := svc.Get(context.Background())
	if res.OK() {
		t.Fatal("expected failure result")
	}
	if res.Snapshot != nil {
		t.Error("no snapshot may accompany a failure")
	}
}

func TestAverageCostPerDocument(t *testing.T) {
	tests := []struct {
		name string
		docs int
		cost float64
		want float64
	}{
		{"normal", 10, 0.5, 0.05},
		{"empty store", 0, 0, 0},
		{"cost without documents", 0, 0.3, 0.3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := AnalyticsSnapshot{TotalDocuments: tt.docs, TotalCost: tt.cost}
			if got := s.AverageCostPerDocument(); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestReuseRate(t *testing.T) {
	empty := AnalyticsSnapshot{}
	if got := empty.ReuseRate(); got != 0 {
		t.Errorf("empty store reuse rate should be 0, got %v", got)
	}

	small := AnalyticsSnapshot{TotalDocuments: 25}
	if got := small.ReuseRate(); math.Abs(got-0.5) > 1e-9 {
		t.Errorf("25 documents should yield 0.5, got %v", got)
	}

	large := AnalyticsSnapshot{TotalDocuments: 100000}
	if got := large.ReuseRate(); got < 0.99 || got >= 1 {
		t.Errorf("rate must approach but never reach 1, got %v", got)
	}
}
