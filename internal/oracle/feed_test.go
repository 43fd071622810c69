package oracle

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"parking-escrow-backend/config"
	"parking-escrow-backend/internal/engine"
	"parking-escrow-backend/internal/model"
)

type call struct {
	op     string
	caller string
	spotID int64
}

// fakeReporter records engine calls and can be told to reject them.
type fakeReporter struct {
	mu     sync.Mutex
	calls  []call
	reject error
}

func (f *fakeReporter) record(op, caller string, spotID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call{op: op, caller: caller, spotID: spotID})
	return f.reject
}

func (f *fakeReporter) ReportOccupied(ctx context.Context, caller string, spotID int64) (*model.Spot, error) {
	if err := f.record("occupied", caller, spotID); err != nil {
		return nil, err
	}
	return &model.Spot{ID: spotID, State: model.SpotOccupied}, nil
}

func (f *fakeReporter) ReportFree(ctx context.Context, caller string, spotID int64) (*engine.Settlement, error) {
	if err := f.record("free", caller, spotID); err != nil {
		return nil, err
	}
	return &engine.Settlement{SpotID: spotID}, nil
}

func (f *fakeReporter) recorded() []call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]call(nil), f.calls...)
}

func newFeedFixture(t *testing.T, rep *fakeReporter) (*Service, func(readings []Reading)) {
	var (
		mu      sync.Mutex
		current []Reading
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		json.NewEncoder(w).Encode(current)
	}))
	t.Cleanup(srv.Close)

	cfg := &config.Config{}
	cfg.Engine.Oracle = "acct_oracle"
	cfg.Sensor.Enabled = true
	cfg.Sensor.URL = srv.URL
	cfg.Sensor.OccupiedBelowCM = 20.0
	cfg.Sensor.FreeAboveCM = 27.0
	cfg.Sensor.DebounceCount = 3

	svc := NewService(cfg, rep, zerolog.Nop())
	return svc, func(readings []Reading) {
		mu.Lock()
		defer mu.Unlock()
		current = readings
	}
}

func TestFeedDebounceBeforeOccupied(t *testing.T) {
	rep := &fakeReporter{}
	svc, setReadings := newFeedFixture(t, rep)
	ctx := context.Background()

	setReadings([]Reading{{SpotID: 1, DistanceCM: 12.0}})

	// Two consecutive near readings are not enough.
	svc.PollOnce(ctx)
	svc.PollOnce(ctx)
	assert.Empty(t, rep.recorded())

	// The third one flips the spot.
	svc.PollOnce(ctx)
	calls := rep.recorded()
	require.Len(t, calls, 1)
	assert.Equal(t, call{op: "occupied", caller: "acct_oracle", spotID: 1}, calls[0])

	// Staying near must not report again.
	svc.PollOnce(ctx)
	svc.PollOnce(ctx)
	svc.PollOnce(ctx)
	assert.Len(t, rep.recorded(), 1)
}

func TestFeedSingleFarReadingResetsCounter(t *testing.T) {
	rep := &fakeReporter{}
	svc, setReadings := newFeedFixture(t, rep)
	ctx := context.Background()

	setReadings([]Reading{{SpotID: 1, DistanceCM: 12.0}})
	svc.PollOnce(ctx)
	svc.PollOnce(ctx)

	// One far reading wipes the streak.
	setReadings([]Reading{{SpotID: 1, DistanceCM: 50.0}})
	svc.PollOnce(ctx)

	setReadings([]Reading{{SpotID: 1, DistanceCM: 12.0}})
	svc.PollOnce(ctx)
	svc.PollOnce(ctx)
	assert.Empty(t, rep.recorded())

	svc.PollOnce(ctx)
	assert.Len(t, rep.recorded(), 1)
}

func TestFeedHysteresisBand(t *testing.T) {
	rep := &fakeReporter{}
	svc, setReadings := newFeedFixture(t, rep)
	ctx := context.Background()

	// Flip to occupied.
	setReadings([]Reading{{SpotID: 1, DistanceCM: 10.0}})
	for i := 0; i < 3; i++ {
		svc.PollOnce(ctx)
	}
	require.Len(t, rep.recorded(), 1)

	// Readings inside the band (above occupied threshold, below free
	// threshold) must not count towards freeing.
	setReadings([]Reading{{SpotID: 1, DistanceCM: 23.0}})
	for i := 0; i < 10; i++ {
		svc.PollOnce(ctx)
	}
	assert.Len(t, rep.recorded(), 1)

	// Clearly far readings free the spot after the debounce.
	setReadings([]Reading{{SpotID: 1, DistanceCM: 40.0}})
	for i := 0; i < 3; i++ {
		svc.PollOnce(ctx)
	}
	calls := rep.recorded()
	require.Len(t, calls, 2)
	assert.Equal(t, "free", calls[1].op)
}

func TestFeedDiscardsGlitchReadings(t *testing.T) {
	rep := &fakeReporter{}
	svc, setReadings := newFeedFixture(t, rep)
	ctx := context.Background()

	// Below the valid range: echoes from the sensor housing.
	setReadings([]Reading{{SpotID: 1, DistanceCM: 0.2}})
	for i := 0; i < 10; i++ {
		svc.PollOnce(ctx)
	}
	assert.Empty(t, rep.recorded())

	// Above the valid range: no return echo.
	setReadings([]Reading{{SpotID: 1, DistanceCM: 250.0}})
	for i := 0; i < 10; i++ {
		svc.PollOnce(ctx)
	}
	assert.Empty(t, rep.recorded())
}

func TestFeedKeepsTrackingAfterEngineRejection(t *testing.T) {
	rep := &fakeReporter{reject: engine.ErrNotCheckedIn}
	svc, setReadings := newFeedFixture(t, rep)
	ctx := context.Background()

	setReadings([]Reading{{SpotID: 1, DistanceCM: 10.0}})
	for i := 0; i < 3; i++ {
		svc.PollOnce(ctx)
	}
	require.Len(t, rep.recorded(), 1)

	// The flip was rejected, so the feed keeps treating the spot as free
	// and retries after another full debounce streak.
	for i := 0; i < 3; i++ {
		svc.PollOnce(ctx)
	}
	calls := rep.recorded()
	require.Len(t, calls, 2)
	assert.Equal(t, "occupied", calls[1].op)
}

func TestFeedTracksSpotsIndependently(t *testing.T) {
	rep := &fakeReporter{}
	svc, setReadings := newFeedFixture(t, rep)
	ctx := context.Background()

	setReadings([]Reading{
		{SpotID: 1, DistanceCM: 10.0},
		{SpotID: 2, DistanceCM: 55.0},
	})
	for i := 0; i < 3; i++ {
		svc.PollOnce(ctx)
	}

	calls := rep.recorded()
	require.Len(t, calls, 1)
	assert.Equal(t, int64(1), calls[0].spotID)
}

func TestFeedUnreachableGatewayIsHarmless(t *testing.T) {
	rep := &fakeReporter{}
	cfg := &config.Config{}
	cfg.Sensor.URL = "http://127.0.0.1:1/readings"
	svc := NewService(cfg, rep, zerolog.Nop())

	svc.PollOnce(context.Background())
	assert.Empty(t, rep.recorded())
}
