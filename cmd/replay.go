package cmd

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/bnema/lagmon/internal/config"
	"github.com/bnema/lagmon/internal/device"
	"github.com/bnema/lagmon/internal/event"
	"github.com/bnema/lagmon/internal/latency"
	"github.com/bnema/lagmon/internal/logger"
	"github.com/bnema/lagmon/internal/pipeline"
	"github.com/bnema/lagmon/internal/report"
	"github.com/bnema/lagmon/internal/resample"
	"github.com/bnema/lagmon/internal/store"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

// traceDevice describes one device in a "devices" trace record.
type traceDevice struct {
	ID           int32  `json:"id"`
	Name         string `json:"name"`
	Vendor       uint16 `json:"vendor"`
	Product      uint16 `json:"product"`
	KeyboardType int32  `json:"keyboard_type"`
	Source       uint32 `json:"source"`
}

type tracePointer struct {
	ID       int32 `json:"id"`
	ToolType int32 `json:"tool_type"`
}

// traceRecord is one line of a JSON-lines trace. Type selects which fields
// apply: "devices", "motion", "key", "finished" or "graphics". Times are
// milliseconds on a single monotonic clock.
type traceRecord struct {
	Type string `json:"type"`

	Devices []traceDevice `json:"devices,omitempty"`

	ID          int32          `json:"id,omitempty"`
	DeviceID    int32          `json:"device_id,omitempty"`
	Source      uint32         `json:"source,omitempty"`
	Action      int32          `json:"action,omitempty"`
	EventTimeMs int64          `json:"event_time_ms,omitempty"`
	ReadTimeMs  int64          `json:"read_time_ms,omitempty"`
	Pointers    []tracePointer `json:"pointers,omitempty"`

	Token          string `json:"token,omitempty"`
	DeliveryTimeMs int64  `json:"delivery_time_ms,omitempty"`
	ConsumeTimeMs  int64  `json:"consume_time_ms,omitempty"`
	FinishTimeMs   int64  `json:"finish_time_ms,omitempty"`
	GPUCompletedMs int64  `json:"gpu_completed_ms,omitempty"`
	PresentMs      int64  `json:"present_ms,omitempty"`
}

var replayNoStore bool

var replayCmd = &cobra.Command{
	Use:   "replay <trace-file>",
	Short: "Replay a recorded input trace through the latency pipeline",
	Long: `Replay reads a JSON-lines trace of dispatched events and their completion
signals, feeds it through the latency tracker and prints the per-action
latency aggregates. Timelines are also persisted to the configured store
unless --no-store is given.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Get()

		stats := report.NewStats()
		processors := report.Multi{report.NewLogReporter(), stats}

		if !replayNoStore {
			db, err := store.Open(cfg.Store.Path)
			if err != nil {
				return err
			}
			defer db.Close()
			processors = append(processors, db)
		}

		p := pipeline.New(processors, pipeline.Options{
			MaturityThreshold: cfg.Tracking.MaturityThreshold(),
			ResampleTuning: resample.Tuning{
				MinDelta:      time.Duration(cfg.Resample.MinDeltaMs) * time.Millisecond,
				MaxDelta:      time.Duration(cfg.Resample.MaxDeltaMs) * time.Millisecond,
				MaxPrediction: time.Duration(cfg.Resample.MaxPredictionMs) * time.Millisecond,
			},
			LatencyOffset: time.Duration(cfg.Resample.LatencyOffsetMs) * time.Millisecond,
		})
		if err := p.Start(context.Background()); err != nil {
			return err
		}

		latest, err := replayTrace(p, args[0])
		if err != nil {
			_ = p.Stop()
			return err
		}

		// Push "now" past the maturity window so every tracked event gets
		// reported before shutdown.
		p.Prune(latest + int64(cfg.Tracking.MaturityThreshold()) + 1)
		if err := p.Stop(); err != nil {
			return err
		}

		fmt.Print(stats.String())
		return nil
	},
}

// replayTrace feeds the trace at path into the pipeline and returns the
// latest event time seen, in nanoseconds.
func replayTrace(p *pipeline.Pipeline, path string) (int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("failed to open trace: %w", err)
	}
	defer f.Close()

	var latest int64
	scanner := bufio.NewScanner(f)
	line := 0
	for scanner.Scan() {
		line++
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}
		var rec traceRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			return latest, fmt.Errorf("trace line %d: %w", line, err)
		}
		if t := rec.EventTimeMs * int64(time.Millisecond); t > latest {
			latest = t
		}

		switch rec.Type {
		case "devices":
			devices := make([]device.Device, len(rec.Devices))
			for i, d := range rec.Devices {
				devices[i] = device.Device{
					ID: event.DeviceID(d.ID),
					Identity: device.Identity{
						Name:    d.Name,
						Vendor:  d.Vendor,
						Product: d.Product,
					},
					KeyboardType: event.KeyboardType(d.KeyboardType),
					Sources:      d.Source,
				}
			}
			p.SetInputDevices(devices)

		case "motion":
			props := make([]event.PointerProperties, len(rec.Pointers))
			for i, ptr := range rec.Pointers {
				props[i] = event.PointerProperties{
					ID:       ptr.ID,
					ToolType: event.ToolType(ptr.ToolType),
				}
			}
			p.NotifyMotion(event.NotifyMotionArgs{
				ID:                event.EventID(rec.ID),
				EventTime:         rec.EventTimeMs * int64(time.Millisecond),
				ReadTime:          rec.ReadTimeMs * int64(time.Millisecond),
				DeviceID:          event.DeviceID(rec.DeviceID),
				Source:            rec.Source,
				Action:            rec.Action,
				PointerProperties: props,
			})

		case "key":
			p.NotifyKey(event.NotifyKeyArgs{
				ID:        event.EventID(rec.ID),
				EventTime: rec.EventTimeMs * int64(time.Millisecond),
				ReadTime:  rec.ReadTimeMs * int64(time.Millisecond),
				DeviceID:  event.DeviceID(rec.DeviceID),
				Source:    rec.Source,
				Action:    rec.Action,
			})

		case "finished":
			token, err := uuid.Parse(rec.Token)
			if err != nil {
				logger.Warn("skipping finished record with bad token", "line", line, "err", err)
				continue
			}
			p.FinishedEvent(event.EventID(rec.ID), token,
				rec.DeliveryTimeMs*int64(time.Millisecond),
				rec.ConsumeTimeMs*int64(time.Millisecond),
				rec.FinishTimeMs*int64(time.Millisecond))

		case "graphics":
			token, err := uuid.Parse(rec.Token)
			if err != nil {
				logger.Warn("skipping graphics record with bad token", "line", line, "err", err)
				continue
			}
			var graphics latency.GraphicsTimeline
			graphics[latency.GPUCompletedTime] = rec.GPUCompletedMs * int64(time.Millisecond)
			graphics[latency.PresentTime] = rec.PresentMs * int64(time.Millisecond)
			p.GraphicsLatency(event.EventID(rec.ID), token, graphics)

		default:
			logger.Warn("skipping unknown trace record type", "line", line, "type", rec.Type)
		}
	}
	if err := scanner.Err(); err != nil {
		return latest, fmt.Errorf("failed to read trace: %w", err)
	}
	return latest, nil
}

func init() {
	replayCmd.Flags().BoolVar(&replayNoStore, "no-store", false, "do not persist timelines to the store")
	rootCmd.AddCommand(replayCmd)
}
