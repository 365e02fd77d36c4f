// Package kitchen builds the kitchen display: PENDING lines grouped by
// preparation station. The view is pull-based; Refresh re-fetches it.
package kitchen

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/tablepos/api/internal/enum"
	"github.com/tablepos/api/internal/posclient"
)

// Unassigned labels lines whose product has no station.
const Unassigned = "UNASSIGNED"

var ErrNoLines = errors.New("choose at least one item")

// Station is one column of the kitchen display.
type Station struct {
	Name  string
	Lines []posclient.OrderDetail
}

// Group keeps PENDING lines and groups them by station. Known stations come
// first in catalogue order, then others alphabetically, then Unassigned.
// Lines within a station are ordered by creation time.
func Group(details []posclient.OrderDetail) []Station {
	byStation := make(map[string][]posclient.OrderDetail)
	for _, d := range details {
		if d.Status != enum.OrderDetailStatusPending {
			continue
		}
		name := Unassigned
		if d.Station != nil && strings.TrimSpace(*d.Station) != "" {
			name = strings.ToUpper(strings.TrimSpace(*d.Station))
		}
		byStation[name] = append(byStation[name], d)
	}

	names := make([]string, 0, len(byStation))
	for name := range byStation {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		ri, rj := rank(names[i]), rank(names[j])
		if ri != rj {
			return ri < rj
		}
		return names[i] < names[j]
	})

	out := make([]Station, 0, len(names))
	for _, name := range names {
		lines := byStation[name]
		sort.SliceStable(lines, func(i, j int) bool {
			return lines[i].CreatedAt.Before(lines[j].CreatedAt)
		})
		out = append(out, Station{Name: name, Lines: lines})
	}
	return out
}

func rank(name string) int {
	for i, s := range enum.Stations {
		if s == name {
			return i
		}
	}
	if name == Unassigned {
		return len(enum.Stations) + 1
	}
	return len(enum.Stations)
}

// API is the part of the REST client the queue uses.
type API interface {
	ListDetails(ctx context.Context, f posclient.DetailFilter) ([]posclient.OrderDetail, error)
	BatchUpdateStatus(ctx context.Context, req posclient.BatchStatusRequest) (*posclient.BatchResult, error)
}

// Queue is the kitchen's view of lines waiting to be prepared, optionally
// limited to one station.
type Queue struct {
	api      API
	log      *slog.Logger
	station  string
	stations []Station
}

func NewQueue(api API, station string, log *slog.Logger) *Queue {
	return &Queue{api: api, log: log, station: strings.ToUpper(strings.TrimSpace(station))}
}

// Stations returns the view as of the last Refresh.
func (q *Queue) Stations() []Station { return q.stations }

// Len is the number of lines in the view.
func (q *Queue) Len() int {
	n := 0
	for _, s := range q.stations {
		n += len(s.Lines)
	}
	return n
}

// Refresh re-fetches PENDING lines for the restaurant.
func (q *Queue) Refresh(ctx context.Context) error {
	details, err := q.api.ListDetails(ctx, posclient.DetailFilter{
		Status:  enum.OrderDetailStatusPending,
		Station: q.station,
	})
	if err != nil {
		return fmt.Errorf("failed to load kitchen queue: %w", err)
	}
	q.stations = Group(details)
	q.log.Debug("kitchen queue refreshed", "station", q.station, "lines", q.Len())
	return nil
}

// Confirm marks lines as prepared and refreshes the view. It returns how
// many lines actually changed; lines no longer PENDING are left alone.
func (q *Queue) Confirm(ctx context.Context, ids []uuid.UUID) (int, error) {
	return q.move(ctx, ids, enum.OrderDetailStatusConfirmed)
}

// Cancel marks lines as canceled and refreshes the view.
func (q *Queue) Cancel(ctx context.Context, ids []uuid.UUID) (int, error) {
	return q.move(ctx, ids, enum.OrderDetailStatusCanceled)
}

func (q *Queue) move(ctx context.Context, ids []uuid.UUID, status string) (int, error) {
	if len(ids) == 0 {
		return 0, ErrNoLines
	}
	res, err := q.api.BatchUpdateStatus(ctx, posclient.BatchStatusRequest{IDs: ids, Status: status})
	if err != nil {
		return 0, fmt.Errorf("failed to mark items %s: %w", strings.ToLower(status), err)
	}
	if skipped := len(ids) - len(res.Updated); skipped > 0 {
		q.log.Info("some items were not pending", "status", status, "skipped", skipped)
	}
	return len(res.Updated), q.Refresh(ctx)
}
