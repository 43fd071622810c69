package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"parking-escrow-backend/config"
	"parking-escrow-backend/internal/engine"
	"parking-escrow-backend/internal/model"
)

// Readings outside this range are sensor glitches (reflections, bad
// angles) and are discarded before they can influence the debounce
// counters.
const (
	minValidCM = 0.5
	maxValidCM = 100.0
)

// Reading is one distance measurement for a spot, as reported by the
// sensor gateway.
type Reading struct {
	SpotID     int64   `json:"spot_id"`
	DistanceCM float64 `json:"distance_cm"`
}

// Reporter is the slice of the engine the feed drives.
type Reporter interface {
	ReportOccupied(ctx context.Context, caller string, spotID int64) (*model.Spot, error)
	ReportFree(ctx context.Context, caller string, spotID int64) (*engine.Settlement, error)
}

// spotTrack is the per-spot debounce state. A state flip is only
// reported after DebounceCount consecutive readings on the far side of
// the matching hysteresis threshold.
type spotTrack struct {
	occupied bool
	occHits  int
	freeHits int
}

// Service polls the sensor gateway and reports stable occupancy flips to
// the engine as the oracle identity.
type Service struct {
	cfg    *config.Config
	eng    Reporter
	client *http.Client
	log    zerolog.Logger
	spots  map[int64]*spotTrack
}

// NewService creates and initializes a new sensor feed service.
func NewService(cfg *config.Config, eng Reporter, logger zerolog.Logger) *Service {
	return &Service{
		cfg: cfg,
		eng: eng,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
		log:   logger,
		spots: make(map[int64]*spotTrack),
	}
}

// Run starts the polling loop.
func (s *Service) Run(ctx context.Context) {
	if !s.cfg.Sensor.Enabled {
		s.log.Info().Msg("sensor feed is disabled, not starting")
		return
	}
	s.log.Info().
		Str("url", s.cfg.Sensor.URL).
		Float64("occupied_below_cm", s.cfg.Sensor.OccupiedBelowCM).
		Float64("free_above_cm", s.cfg.Sensor.FreeAboveCM).
		Int("debounce_count", s.cfg.Sensor.DebounceCount).
		Msg("starting sensor feed")

	s.PollOnce(ctx)

	timer := time.NewTimer(s.cfg.Sensor.Interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info().Msg("sensor feed shutting down")
			return
		case <-timer.C:
			s.PollOnce(ctx)
			timer.Reset(s.cfg.Sensor.Interval)
		}
	}
}

// PollOnce fetches one batch of readings and applies each to the
// debounce state. Engine rejections are logged and never stop the loop.
func (s *Service) PollOnce(ctx context.Context) {
	readings, err := s.fetchReadings(ctx)
	if err != nil {
		s.log.Warn().Err(err).Msg("sensor poll failed")
		return
	}
	for _, r := range readings {
		s.apply(ctx, r)
	}
}

func (s *Service) apply(ctx context.Context, r Reading) {
	if r.DistanceCM < minValidCM || r.DistanceCM > maxValidCM {
		s.log.Debug().Int64("spot", r.SpotID).Float64("cm", r.DistanceCM).Msg("discarding out-of-range reading")
		return
	}

	tr, ok := s.spots[r.SpotID]
	if !ok {
		tr = &spotTrack{}
		s.spots[r.SpotID] = tr
	}

	if !tr.occupied {
		if r.DistanceCM <= s.cfg.Sensor.OccupiedBelowCM {
			tr.occHits++
		} else {
			tr.occHits = 0
		}
		if tr.occHits >= s.cfg.Sensor.DebounceCount {
			if _, err := s.eng.ReportOccupied(ctx, s.cfg.Engine.Oracle, r.SpotID); err != nil {
				s.log.Warn().Err(err).Int64("spot", r.SpotID).Msg("reportOccupied rejected")
			} else {
				tr.occupied = true
			}
			tr.occHits, tr.freeHits = 0, 0
		}
		return
	}

	if r.DistanceCM >= s.cfg.Sensor.FreeAboveCM {
		tr.freeHits++
	} else {
		tr.freeHits = 0
	}
	if tr.freeHits >= s.cfg.Sensor.DebounceCount {
		if _, err := s.eng.ReportFree(ctx, s.cfg.Engine.Oracle, r.SpotID); err != nil {
			s.log.Warn().Err(err).Int64("spot", r.SpotID).Msg("reportFree rejected")
		} else {
			tr.occupied = false
		}
		tr.occHits, tr.freeHits = 0, 0
	}
}

func (s *Service) fetchReadings(ctx context.Context) ([]Reading, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.cfg.Sensor.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	for key, value := range s.cfg.Sensor.Headers {
		req.Header.Set(key, value)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("received non-200 status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	var readings []Reading
	if err := json.Unmarshal(body, &readings); err != nil {
		return nil, fmt.Errorf("failed to unmarshal readings: %w", err)
	}
	return readings, nil
}
