package utils

import (
	"strings"
	"testing"
	"time"
)

func TestTruncateString(testCase *testing.T) {
	short := "brief"
	if got := TruncateString(short, 100); got != short {
		testCase.Errorf("short string altered: %q", got)
	}

	long := strings.Repeat("x", 600)
	truncated := TruncateString(long, 100)
	if !strings.HasPrefix(truncated, strings.Repeat("x", 100)) {
		testCase.Errorf("truncation did not keep the prefix: %q", truncated[:120])
	}
	if !strings.Contains(truncated, "total: 600 chars") {
		testCase.Errorf("truncation suffix missing the original length: %q", truncated)
	}

	// Non-positive maxLen falls back to the default.
	fallback := TruncateString(long, 0)
	if !strings.Contains(fallback, "total: 600 chars") {
		testCase.Errorf("default truncation missing suffix: %q", fallback)
	}
	if len(fallback) >= 600 {
		testCase.Error("default truncation did not shorten the string")
	}
}

func TestJSONToString(testCase *testing.T) {
	encoded := JSONToString(map[string]int{"count": 3})
	if encoded != `{"count":3}` {
		testCase.Errorf("unexpected JSON: %q", encoded)
	}

	// Channels cannot marshal; the error surfaces as a JSON string instead of
	// a panic.
	failed := JSONToString(make(chan int))
	if !strings.Contains(failed, "failed to marshal") {
		testCase.Errorf("expected embedded marshal error, got: %q", failed)
	}
}

func TestTimer(testCase *testing.T) {
	timer := NewTimer()
	time.Sleep(5 * time.Millisecond)

	if timer.Elapsed() <= 0 {
		testCase.Error("running timer reported no elapsed time")
	}

	timer.Stop()
	frozen := timer.Elapsed()
	if frozen <= 0 {
		testCase.Fatal("stopped timer reported no elapsed time")
	}

	time.Sleep(5 * time.Millisecond)
	if timer.Elapsed() != frozen {
		testCase.Error("elapsed time changed after Stop")
	}

	// Stop is idempotent.
	timer.Stop()
	if timer.Elapsed() != frozen {
		testCase.Error("second Stop changed the captured duration")
	}

	timer.Start()
	time.Sleep(time.Millisecond)
	timer.Stop()
	if timer.Elapsed() >= frozen+5*time.Millisecond {
		testCase.Error("Start did not reset the measurement")
	}
}
