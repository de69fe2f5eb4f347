package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetricsRegistration(t *testing.T) {
	if RotationsInitiated == nil {
		t.Error("RotationsInitiated metric is nil")
	}
	if RotationsCompleted == nil {
		t.Error("RotationsCompleted metric is nil")
	}
	if RotationsFailed == nil {
		t.Error("RotationsFailed metric is nil")
	}
	if RotationDuration == nil {
		t.Error("RotationDuration metric is nil")
	}

	if StreamsOpened == nil {
		t.Error("StreamsOpened metric is nil")
	}
	if StreamsActive == nil {
		t.Error("StreamsActive metric is nil")
	}
	if StreamsExpired == nil {
		t.Error("StreamsExpired metric is nil")
	}
	if StreamChunkDuration == nil {
		t.Error("StreamChunkDuration metric is nil")
	}
	if StreamChunkSize == nil {
		t.Error("StreamChunkSize metric is nil")
	}

	if EngineOperations == nil {
		t.Error("EngineOperations metric is nil")
	}
}

func TestMetricsIncrement(t *testing.T) {
	RotationsInitiated.WithLabelValues("schedule").Inc()
	RotationsCompleted.WithLabelValues("success").Inc()
	RotationsFailed.WithLabelValues("kms_error").Inc()
	RotationDuration.WithLabelValues("wrap").Observe(0.5)

	StreamsOpened.WithLabelValues("success").Inc()
	StreamsActive.Inc()
	StreamsExpired.Inc()
	StreamChunkDuration.WithLabelValues("sign").Observe(1.5)
	StreamChunkSize.WithLabelValues("inbound").Observe(1024)

	EngineOperations.WithLabelValues("encode", "aes256-gcm-siv").Inc()
	EngineOperations.WithLabelValues("decode", "aes256-gcm-siv").Inc()

	if count := testutil.CollectAndCount(RotationsInitiated); count == 0 {
		t.Error("RotationsInitiated has no metrics collected")
	}
	if count := testutil.CollectAndCount(StreamsOpened); count == 0 {
		t.Error("StreamsOpened has no metrics collected")
	}
	if count := testutil.CollectAndCount(EngineOperations); count == 0 {
		t.Error("EngineOperations has no metrics collected")
	}
}

func TestCollectorRecordsSnapshot(t *testing.T) {
	c := NewCollector()
	c.RecordSplit(10_000)
	c.RecordSign(false, 20_000)
	c.RecordAssemble(true, 5_000)
	c.RecordAssemble(false, 5_000)

	snap := c.GetSnapshot()
	if snap.SplitCount != 1 {
		t.Errorf("SplitCount = %d, want 1", snap.SplitCount)
	}
	if snap.Succeeded != 1 || snap.Failed != 1 {
		t.Errorf("Succeeded/Failed = %d/%d, want 1/1", snap.Succeeded, snap.Failed)
	}
	if rate := snap.SuccessRate(); rate != 50 {
		t.Errorf("SuccessRate() = %v, want 50", rate)
	}
}

func TestCollectorResetClearsState(t *testing.T) {
	c := NewCollector()
	c.RecordSplit(1)
	c.Reset()

	snap := c.GetSnapshot()
	if snap.SplitCount != 0 {
		t.Errorf("SplitCount after reset = %d, want 0", snap.SplitCount)
	}
}
