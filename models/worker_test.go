package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// TestNewRequestedWorker tests the reservation-time worker record.
func TestNewRequestedWorker(t *testing.T) {
	w := NewRequestedWorker("dev", "abaco/counter")
	assert.NotEmpty(t, w.ID)
	assert.Equal(t, "worker_"+w.ID, w.ChName)
	assert.Equal(t, WorkerRequested, w.Status)
	assert.Equal(t, "abaco/counter", w.Image)
}

// TestWorkerDBRoundTrip verifies ToDB and WorkerFromDB are lossless.
func TestWorkerDBRoundTrip(t *testing.T) {
	w := NewRequestedWorker("dev", "abaco/counter")
	w.Host = "node-7"
	w.Status = WorkerReady
	w.LastHealthCheckTime = time.Now().UTC().Truncate(time.Millisecond)

	got := WorkerFromDB(w.ToDB())
	assert.Equal(t, w.ID, got.ID)
	assert.Equal(t, w.ChName, got.ChName)
	assert.Equal(t, w.Host, got.Host)
	assert.Equal(t, w.Status, got.Status)
	assert.True(t, w.LastHealthCheckTime.Equal(got.LastHealthCheckTime))
}

// TestWorkerDisplay verifies the private channel name is stripped.
func TestWorkerDisplay(t *testing.T) {
	w := NewRequestedWorker("dev", "abaco/counter")
	d := w.Display()
	assert.NotContains(t, d, "ch_name")
	assert.NotContains(t, d, "tenant")
	assert.Equal(t, w.ID, d["id"])
	assert.NotContains(t, d, "host", "empty host is omitted")
}
