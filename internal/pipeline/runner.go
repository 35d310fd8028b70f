package pipeline

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/aviation-impact-accelerator/aia-analysis-contrail-avoidance/internal/airports"
	"github.com/aviation-impact-accelerator/aia-analysis-contrail-avoidance/internal/config"
	"github.com/aviation-impact-accelerator/aia-analysis-contrail-avoidance/internal/flight"
	"github.com/aviation-impact-accelerator/aia-analysis-contrail-avoidance/internal/ingest"
	"github.com/aviation-impact-accelerator/aia-analysis-contrail-avoidance/internal/segmentation"
	"github.com/aviation-impact-accelerator/aia-analysis-contrail-avoidance/internal/storage/sqlite"
	"github.com/aviation-impact-accelerator/aia-analysis-contrail-avoidance/internal/websocket"
	"github.com/aviation-impact-accelerator/aia-analysis-contrail-avoidance/pkg/logger"
)

// Broadcaster publishes chunk lifecycle events. Satisfied by the websocket
// server; nil disables broadcasting.
type Broadcaster interface {
	Broadcast(message *websocket.Message)
}

// Status is a snapshot of run progress served by the API.
type Status struct {
	Running      bool       `json:"running"`
	ChunksTotal  int        `json:"chunks_total"`
	ChunksDone   int        `json:"chunks_done"`
	CurrentFiles []string   `json:"current_files,omitempty"`
	RowsIn       int64      `json:"rows_in"`
	RowsOut      int64      `json:"rows_out"`
	NextFlightID int64      `json:"next_flight_id"`
	OpenTails    int        `json:"open_tails"`
	StartedAt    *time.Time `json:"started_at,omitempty"`
	FinishedAt   *time.Time `json:"finished_at,omitempty"`
	LastError    string     `json:"last_error,omitempty"`
}

// Runner drives the chunk loop. Chunks are consumed strictly sequentially:
// chunk n+1 may not begin until chunk n's tail state is computed, because
// flight id uniqueness depends on ordered consumption. The runner owns the
// only mutable cross-chunk state (the State snapshot) and hands it from one
// Segment call to the next.
type Runner struct {
	cfg      *config.Config
	reader   *ingest.Reader
	seg      *segmentation.Segmenter
	store    *sqlite.PartitionStore
	airports *airports.DB
	ws       Broadcaster
	logger   *logger.Logger

	mu     sync.RWMutex
	status Status
}

// NewRunner creates a runner. airportDB may be nil when the regional filter
// is disabled; ws may be nil when no server is running.
func NewRunner(
	cfg *config.Config,
	reader *ingest.Reader,
	seg *segmentation.Segmenter,
	store *sqlite.PartitionStore,
	airportDB *airports.DB,
	ws Broadcaster,
	log *logger.Logger,
) *Runner {
	return &Runner{
		cfg:      cfg,
		reader:   reader,
		seg:      seg,
		store:    store,
		airports: airportDB,
		ws:       ws,
		logger:   log.Named("pipeline"),
	}
}

// Status returns a snapshot of run progress.
func (r *Runner) Status() Status {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.status
}

// Run processes the input files in fixed-size chunks, carrying the flight
// tail state across chunk boundaries and routing finished records to
// day-partitioned storage. Any chunk failure aborts the whole run without
// rolling back partial output; re-running from the last successfully written
// partition is the operator's responsibility.
func (r *Runner) Run(ctx context.Context, files []string) error {
	chunks := ingest.ChunkFiles(files, r.cfg.Ingest.ChunkSizeFiles)
	started := time.Now().UTC()

	r.mu.Lock()
	r.status = Status{Running: true, ChunksTotal: len(chunks), StartedAt: &started}
	r.mu.Unlock()

	r.logger.Info("Starting segmentation run",
		logger.Int("files", len(files)),
		logger.Int("chunks", len(chunks)),
		logger.Int("chunk_size_files", r.cfg.Ingest.ChunkSizeFiles))

	state := flight.NewState()
	err := r.runChunks(ctx, chunks, &state)

	finished := time.Now().UTC()
	r.mu.Lock()
	r.status.Running = false
	r.status.CurrentFiles = nil
	r.status.FinishedAt = &finished
	if err != nil {
		r.status.LastError = err.Error()
	}
	r.mu.Unlock()

	if err != nil {
		r.broadcast(websocket.MessageTypeRunFailed, map[string]any{"error": err.Error()})
		return err
	}

	r.broadcast(websocket.MessageTypeRunComplete, map[string]any{
		"chunks":         len(chunks),
		"rows_out":       r.Status().RowsOut,
		"next_flight_id": state.NextFlightID,
		"elapsed":        finished.Sub(started).String(),
	})
	r.logger.Info("Segmentation run complete",
		logger.Int("chunks", len(chunks)),
		logger.Int64("next_flight_id", state.NextFlightID),
		logger.Duration("elapsed", finished.Sub(started)))
	return nil
}

func (r *Runner) runChunks(ctx context.Context, chunks [][]string, state *flight.State) error {
	for i, chunkFiles := range chunks {
		// Cancellation is honored only at chunk boundaries; a chunk is never
		// left half-written by a cancel.
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("run cancelled before chunk %d: %w", i+1, err)
		}

		r.mu.Lock()
		r.status.CurrentFiles = chunkFiles
		r.mu.Unlock()

		r.logger.Info("Processing chunk",
			logger.Int("chunk", i+1),
			logger.Int("chunks_total", len(chunks)),
			logger.Int("files", len(chunkFiles)),
			logger.String("first_file", chunkFiles[0]))
		r.broadcast(websocket.MessageTypeChunkStarted, map[string]any{
			"chunk": i + 1,
			"total": len(chunks),
			"files": chunkFiles,
		})

		records, err := r.reader.ReadChunk(chunkFiles)
		if err != nil {
			return fmt.Errorf("chunk %d: %w", i+1, err)
		}

		res := r.seg.Segment(records, *state)
		*state = res.State

		out := r.filterRegional(res.Records)
		if err := r.writePartitions(out); err != nil {
			return fmt.Errorf("chunk %d: %w", i+1, err)
		}

		r.mu.Lock()
		r.status.ChunksDone = i + 1
		r.status.RowsIn += int64(res.RowsIn)
		r.status.RowsOut += int64(len(out))
		r.status.NextFlightID = state.NextFlightID
		r.status.OpenTails = len(state.Tails)
		r.mu.Unlock()

		r.broadcast(websocket.MessageTypeChunkComplete, map[string]any{
			"chunk":             i + 1,
			"total":             len(chunks),
			"rows_in":           res.RowsIn,
			"rows_out":          len(out),
			"flights":           res.Flights,
			"continued_flights": res.ContinuedFlights,
			"noise_dropped":     res.NoiseDropped,
			"gap_splits":        res.GapSplits,
			"next_flight_id":    state.NextFlightID,
			"open_tails":        len(state.Tails),
		})
	}
	return nil
}

// filterRegional applies the downstream geographic scope: keep records whose
// declared route touches the configured country. A policy of the output
// stream, not of the segmentation engine.
func (r *Runner) filterRegional(records []flight.Record) []flight.Record {
	if !r.cfg.Output.RegionalOnly || r.airports == nil {
		return records
	}
	country := r.cfg.Airports.CountryCode
	out := records[:0]
	for _, rec := range records {
		if r.airports.Regional(rec.DepartureAirport, rec.ArrivalAirport, country) {
			out = append(out, rec)
		}
	}
	r.logger.Debug("Applied regional filter",
		logger.Int("rows_before", len(records)),
		logger.Int("rows_after", len(out)),
		logger.String("country", country))
	return out
}

// writePartitions appends the chunk's records to their calendar-day
// partitions. A chunk can span into a previously written day; appending
// merges with the existing partition content.
func (r *Runner) writePartitions(records []flight.Record) error {
	byDay := make(map[int][]flight.Record)
	for _, rec := range records {
		day := rec.Day()
		byDay[day] = append(byDay[day], rec)
	}

	days := make([]int, 0, len(byDay))
	for day := range byDay {
		days = append(days, day)
	}
	sort.Ints(days)

	for _, day := range days {
		if err := r.store.Append(day, byDay[day]); err != nil {
			return fmt.Errorf("failed to write day partition %03d: %w", day, err)
		}
		r.logger.Info("Wrote day partition",
			logger.Int("day", day),
			logger.Int("records", len(byDay[day])),
			logger.String("path", r.store.DayPath(day)))
	}
	return nil
}

func (r *Runner) broadcast(msgType string, data map[string]any) {
	if r.ws == nil {
		return
	}
	r.ws.Broadcast(&websocket.Message{Type: msgType, Data: data})
}
