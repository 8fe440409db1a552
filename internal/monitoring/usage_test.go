package monitoring

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/isdelr/manuscript-be/internal/models"
	"github.com/isdelr/manuscript-be/internal/services"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/stretchr/testify/assert"
)

type fakeEvents struct {
	mu    sync.Mutex
	types []string
}

func (f *fakeEvents) CreateEvent(ctx context.Context, eventType, level, message string, subjectID *string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.types = append(f.types, eventType)
	return nil
}

func (f *fakeEvents) GetRecentEvents(ctx context.Context, limit int) ([]models.Event, error) {
	return nil, nil
}

func (f *fakeEvents) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.types)
}

func TestDiskMonitorAlertsWithCooldown(t *testing.T) {
	events := &fakeEvents{}
	m := NewDiskMonitor("/data", 90, events)

	used := 50.0
	m.usage = func(ctx context.Context, path string) (*disk.UsageStat, error) {
		return &disk.UsageStat{Path: path, UsedPercent: used}, nil
	}
	clock := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return clock }

	m.check()
	assert.Equal(t, 0, events.count(), "below threshold")

	used = 95
	m.check()
	assert.Equal(t, 1, events.count())
	assert.Equal(t, services.EventDiskAlert, events.types[0])

	clock = clock.Add(5 * time.Minute)
	m.check()
	assert.Equal(t, 1, events.count(), "cooldown suppresses repeats")

	clock = clock.Add(diskAlertCooldown)
	m.check()
	assert.Equal(t, 2, events.count())
}

func TestDiskMonitorUsageError(t *testing.T) {
	events := &fakeEvents{}
	m := NewDiskMonitor("/data", 90, events)
	m.usage = func(ctx context.Context, path string) (*disk.UsageStat, error) {
		return nil, errors.New("no such device")
	}
	m.check()
	assert.Equal(t, 0, events.count())
}

func TestDiskMonitorRunStop(t *testing.T) {
	events := &fakeEvents{}
	m := NewDiskMonitor(t.TempDir(), 101, events)
	done := make(chan struct{})
	go func() {
		m.Run()
		close(done)
	}()
	m.Stop()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("monitor did not stop")
	}
	assert.Equal(t, 0, events.count())
}
