// tenantvault - Tenant Data Protection Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tenantvault

package metrics

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	io_prometheus_client "github.com/prometheus/client_model/go"
)

func TestRecordBackupCreated(t *testing.T) {
	before := testutil.ToFloat64(BackupsCreated.WithLabelValues("manual", "FULL"))

	RecordBackupCreated("manual", "FULL", 250*time.Millisecond, 4096)

	after := testutil.ToFloat64(BackupsCreated.WithLabelValues("manual", "FULL"))
	if after-before != 1 {
		t.Errorf("BackupsCreated delta = %v, want 1", after-before)
	}
}

func TestRecordVerification(t *testing.T) {
	tests := []struct {
		name   string
		result string
	}{
		{"valid hash", "valid"},
		{"tampered snapshot", "invalid"},
		{"legacy backup without hash", "vacuous"},
		{"store read failure", "error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			counter := Verifications.WithLabelValues(tt.result)
			before := testutil.ToFloat64(counter)
			RecordVerification(tt.result)
			if got := testutil.ToFloat64(counter) - before; got != 1 {
				t.Errorf("delta = %v, want 1", got)
			}
		})
	}
}

func TestRecordRestore(t *testing.T) {
	tests := []struct {
		name    string
		mode    string
		success bool
		status  string
	}{
		{"applied success", "apply", true, "success"},
		{"applied failure", "apply", false, "failed"},
		{"dry run", "dry_run", true, "success"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			counter := Restores.WithLabelValues(tt.mode, tt.status)
			before := testutil.ToFloat64(counter)
			RecordRestore(tt.mode, tt.success, 10*time.Millisecond)
			if got := testutil.ToFloat64(counter) - before; got != 1 {
				t.Errorf("delta = %v, want 1", got)
			}
		})
	}
}

func TestRecordBlobOperation(t *testing.T) {
	okCounter := BlobOperations.WithLabelValues("fs", "write", "success")
	errCounter := BlobOperations.WithLabelValues("fs", "write", "error")
	okBefore := testutil.ToFloat64(okCounter)
	errBefore := testutil.ToFloat64(errCounter)

	RecordBlobOperation("fs", "write", nil)
	RecordBlobOperation("fs", "write", errors.New("disk full"))

	if got := testutil.ToFloat64(okCounter) - okBefore; got != 1 {
		t.Errorf("success delta = %v, want 1", got)
	}
	if got := testutil.ToFloat64(errCounter) - errBefore; got != 1 {
		t.Errorf("error delta = %v, want 1", got)
	}
}

func TestGauges(t *testing.T) {
	SetActiveTriggers(3)
	if got := testutil.ToFloat64(ActiveTriggers); got != 3 {
		t.Errorf("ActiveTriggers = %v, want 3", got)
	}

	SetJournalPending(2)
	var m io_prometheus_client.Metric
	if err := JournalPending.Write(&m); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if got := m.GetGauge().GetValue(); got != 2 {
		t.Errorf("JournalPending = %v, want 2", got)
	}

	SetBlobBreakerState("s3", 2)
	if got := testutil.ToFloat64(BlobBreakerState.WithLabelValues("s3")); got != 2 {
		t.Errorf("BlobBreakerState = %v, want 2", got)
	}
}

func TestTrackActiveRequest(t *testing.T) {
	before := testutil.ToFloat64(APIActiveRequests)
	TrackActiveRequest(true)
	TrackActiveRequest(true)
	TrackActiveRequest(false)
	if got := testutil.ToFloat64(APIActiveRequests) - before; got != 1 {
		t.Errorf("in-flight delta = %v, want 1", got)
	}
	TrackActiveRequest(false)
}

func TestConcurrentMetricRecording(t *testing.T) {
	counter := ScheduledRuns.WithLabelValues("schedule", "success")
	before := testutil.ToFloat64(counter)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			RecordScheduledRun("schedule", "success", time.Millisecond)
		}()
	}
	wg.Wait()

	if got := testutil.ToFloat64(counter) - before; got != 50 {
		t.Errorf("delta = %v, want 50", got)
	}
}
