package cache

import (
	"context"
	"testing"
	"time"

	"github.com/daftar/daftar/pkg/analysis"
)

func TestMemory_PutGet(t *testing.T) {
	c := NewMemory(time.Hour)
	ctx := context.Background()

	rep := &analysis.Report{Checksum: "abc", Rows: 42}
	if err := c.Put(ctx, "abc", rep); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	got, ok, err := c.Get(ctx, "abc")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !ok {
		t.Fatal("Expected cache hit")
	}
	if got.Rows != 42 {
		t.Errorf("Expected cached report back, got %d rows", got.Rows)
	}
}

func TestMemory_Miss(t *testing.T) {
	c := NewMemory(time.Hour)

	_, ok, err := c.Get(context.Background(), "missing")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if ok {
		t.Error("Expected cache miss for unknown checksum")
	}
}

func TestMemory_TTLEviction(t *testing.T) {
	c := NewMemory(10 * time.Millisecond)
	ctx := context.Background()

	c.Put(ctx, "abc", &analysis.Report{Checksum: "abc"})
	time.Sleep(30 * time.Millisecond)

	if _, ok, _ := c.Get(ctx, "abc"); ok {
		t.Error("Expected entry evicted after TTL")
	}
}

func TestMemory_ZeroTTLNeverExpires(t *testing.T) {
	c := NewMemory(0)
	ctx := context.Background()

	c.Put(ctx, "abc", &analysis.Report{Checksum: "abc"})
	time.Sleep(20 * time.Millisecond)

	if _, ok, _ := c.Get(ctx, "abc"); !ok {
		t.Error("Expected entry kept with expiry disabled")
	}
}

func TestMemory_Close(t *testing.T) {
	c := NewMemory(time.Hour)
	ctx := context.Background()

	c.Put(ctx, "abc", &analysis.Report{Checksum: "abc"})
	if err := c.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if _, ok, _ := c.Get(ctx, "abc"); ok {
		t.Error("Expected entries dropped on close")
	}
}

func TestNop(t *testing.T) {
	var c Cache = Nop{}
	ctx := context.Background()

	if err := c.Put(ctx, "abc", &analysis.Report{}); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if _, ok, _ := c.Get(ctx, "abc"); ok {
		t.Error("Expected nop cache to store nothing")
	}
}
