package backfill

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProgressTracker_ReportsOnInterval(t *testing.T) {
	var buf bytes.Buffer
	tracker := NewProgressTracker(&buf, "products", 100, 50)

	tracker.Start(0)
	tracker.Add(20)
	assert.Empty(t, buf.String(), "below the report interval")

	tracker.Add(40)
	assert.Contains(t, buf.String(), "products: 60/100 rows (60.0%)")
}

func TestProgressTracker_ResumedStart(t *testing.T) {
	var buf bytes.Buffer
	tracker := NewProgressTracker(&buf, "products", 100, 10)

	tracker.Start(40)
	assert.Equal(t, int64(40), tracker.Current())

	tracker.Add(500)
	assert.Equal(t, int64(100), tracker.Current(), "capped at total")

	tracker.Finish()
	assert.Contains(t, buf.String(), "100/100 rows (100.0%)")
	assert.Contains(t, buf.String(), "\n")
}

func TestProgressTracker_NotStarted(t *testing.T) {
	var buf bytes.Buffer
	tracker := NewProgressTracker(&buf, "products", 10, 1)

	tracker.Add(5)
	tracker.Finish()
	assert.Zero(t, tracker.Current())
	assert.Zero(t, tracker.Elapsed())
	assert.Empty(t, buf.String())
}

func TestProgressTracker_NilWriter(t *testing.T) {
	tracker := NewProgressTracker(nil, "products", 10, 1)
	tracker.Start(0)
	tracker.Add(10)
	tracker.Finish()
	assert.Equal(t, int64(10), tracker.Current())
}
