package clockfilter

import "testing"

func TestFirstAcceptedSampleAnchorsOrigin(t *testing.T) {
	var now int64 = 1_000_000
	orig := nowFunc
	nowFunc = func() int64 { return now }
	defer func() { nowFunc = orig }()

	f := New()
	// t1=client send, t2=server recv (loop clock), t3=server send, t4=client recv.
	f.SubmitSample(900_000, 500, 600, 1_000_000)

	if !f.HasOrigin() {
		t.Fatal("expected origin to be set after first accepted sample")
	}
	if f.CurrentQuality() != Good {
		t.Errorf("quality = %v, want Good", f.CurrentQuality())
	}
}

func TestHighRTTSampleDiscardedBeforeOrigin(t *testing.T) {
	var now int64 = 1_000_000
	orig := nowFunc
	nowFunc = func() int64 { return now }
	defer func() { nowFunc = orig }()

	f := New()
	// rtt = (t4-t1)-(t3-t2) = (1_200_000-900_000) - (0) = 300_000 > 100_000
	f.SubmitSample(900_000, 0, 0, 1_200_000)

	if f.HasOrigin() {
		t.Fatal("origin should not be set when first sample exceeds max rtt")
	}
}

func TestRTTBoundaryExactly100000Rejected(t *testing.T) {
	var now int64 = 1_000_000
	orig := nowFunc
	nowFunc = func() int64 { return now }
	defer func() { nowFunc = orig }()

	f := New()
	// rtt = (t4-t1) - (t3-t2) = 100_000 exactly
	f.SubmitSample(0, 0, 0, 100_000)
	if f.HasOrigin() {
		t.Fatal("rtt == 100000 must be rejected")
	}
}

func TestRTTBoundary99999Accepted(t *testing.T) {
	var now int64 = 1_000_000
	orig := nowFunc
	nowFunc = func() int64 { return now }
	defer func() { nowFunc = orig }()

	f := New()
	f.SubmitSample(0, 0, 0, 99_999)
	if !f.HasOrigin() {
		t.Fatal("rtt == 99999 must be accepted")
	}
}

func TestOriginNeverOverwrittenByLaterSamples(t *testing.T) {
	var now int64 = 1_000_000
	orig := nowFunc
	nowFunc = func() int64 { return now }
	defer func() { nowFunc = orig }()

	f := New()
	f.SubmitSample(900_000, 500, 600, 1_000_000)
	firstOrigin := f.originUnixUs

	now = 5_000_000
	f.SubmitSample(4_900_000, 999_999, 999_999, 5_000_000)

	if f.originUnixUs != firstOrigin {
		t.Errorf("origin changed from %d to %d, must stay anchored", firstOrigin, f.originUnixUs)
	}
}

func TestServerToUnixMicrosUsesOriginWhenGood(t *testing.T) {
	var now int64 = 1_000_000
	orig := nowFunc
	nowFunc = func() int64 { return now }
	defer func() { nowFunc = orig }()

	f := New()
	f.SubmitSample(900_000, 0, 100, 1_000_000) // origin = now(1_000_000) - t2(0) = 1_000_000

	got := f.ServerToUnixMicros(500)
	want := int64(1_000_500)
	if got != want {
		t.Errorf("ServerToUnixMicros(500) = %d, want %d", got, want)
	}
}

func TestServerToUnixMicrosEstimatesWhenLost(t *testing.T) {
	var now int64 = 1_000_000
	orig := nowFunc
	nowFunc = func() int64 { return now }
	defer func() { nowFunc = orig }()

	f := New() // quality starts Lost, no origin
	got := f.ServerToUnixMicros(123)
	want := now + lostEstimateAheadMicros
	if got != want {
		t.Errorf("ServerToUnixMicros = %d, want %d", got, want)
	}
}

func TestTickDowngradesToLostAfterStalePeriod(t *testing.T) {
	var now int64 = 1_000_000
	orig := nowFunc
	nowFunc = func() int64 { return now }
	defer func() { nowFunc = orig }()

	f := New()
	f.SubmitSample(900_000, 0, 100, 1_000_000)
	if f.CurrentQuality() != Good {
		t.Fatalf("precondition: quality = %v, want Good", f.CurrentQuality())
	}

	now += staleAfterMicros + 1
	f.Tick()

	if f.CurrentQuality() != Lost {
		t.Errorf("quality = %v, want Lost after stale period", f.CurrentQuality())
	}
}
