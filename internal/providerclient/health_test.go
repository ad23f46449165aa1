package providerclient

import (
	"testing"
	"time"
)

func TestHealthTrackerOpensAfterThreshold(t *testing.T) {
	ht := NewHealthTracker(3, 50*time.Millisecond)

	if !ht.IsAvailable("openai") {
		t.Fatal("expected openai available before any failures")
	}

	ht.RecordFailure("openai")
	ht.RecordFailure("openai")
	if !ht.IsAvailable("openai") {
		t.Fatal("breaker opened before reaching threshold")
	}

	ht.RecordFailure("openai")
	if ht.IsAvailable("openai") {
		t.Fatal("expected breaker open after threshold failures")
	}
}

func TestHealthTrackerRecoversAfterProbeInterval(t *testing.T) {
	ht := NewHealthTracker(1, 10*time.Millisecond)
	ht.RecordFailure("bedrock")
	if ht.IsAvailable("bedrock") {
		t.Fatal("expected breaker open immediately after one failure")
	}

	time.Sleep(20 * time.Millisecond)
	if !ht.IsAvailable("bedrock") {
		t.Fatal("expected half-open probe to allow a request after recovery interval")
	}

	ht.RecordSuccess("bedrock")
	if !ht.IsAvailable("bedrock") {
		t.Fatal("expected closed breaker to remain available")
	}
}

func TestHealthTrackerIndependentPerProvider(t *testing.T) {
	ht := NewHealthTracker(1, time.Hour)
	ht.RecordFailure("openai")
	if ht.IsAvailable("openai") {
		t.Fatal("expected openai breaker open")
	}
	if !ht.IsAvailable("bedrock") {
		t.Fatal("bedrock breaker should be unaffected by openai failures")
	}
}
