package engine

import (
	"sort"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/vantage/pkg/domain/model"
	"github.com/secmon-lab/vantage/pkg/domain/types"
)

// BacklogOptions controls backlog aggregation
type BacklogOptions struct {
	// MovedIsOutflow subtracts moved events from the backlog along with closed ones
	MovedIsOutflow bool
	// FillGaps inserts empty periods between the first and last period of the series.
	// Empty means only periods present in the input are emitted.
	FillGaps types.Granularity
}

// DefaultBacklogOptions returns the options matching the source dashboards
func DefaultBacklogOptions() BacklogOptions {
	return BacklogOptions{MovedIsOutflow: true}
}

type periodCounts struct {
	created int
	closed  int
	moved   int
}

// AggregateBacklog folds events into a per-period backlog series ordered by period key.
// Every period present in the input appears in the output, including periods whose events are
// all "other"; those carry the previous backlog forward.
func AggregateBacklog(events []model.BacklogEvent, opts BacklogOptions) ([]model.BacklogPoint, error) {
	if len(events) == 0 {
		return []model.BacklogPoint{}, nil
	}

	counts := make(map[string]*periodCounts)
	for _, ev := range events {
		c, ok := counts[ev.Period]
		if !ok {
			c = &periodCounts{}
			counts[ev.Period] = c
		}
		switch types.ParseEventType(ev.Type.String()) {
		case types.EventCreated:
			c.created++
		case types.EventClosed:
			c.closed++
		case types.EventMoved:
			c.moved++
		}
	}

	periods := make([]string, 0, len(counts))
	for p := range counts {
		periods = append(periods, p)
	}
	sort.Strings(periods)

	if opts.FillGaps != "" {
		filled, err := fillPeriods(periods, opts.FillGaps)
		if err != nil {
			return nil, err
		}
		periods = filled
	}

	series := make([]model.BacklogPoint, 0, len(periods))
	backlog := 0
	for _, p := range periods {
		c := counts[p]
		if c == nil {
			c = &periodCounts{}
		}

		outflow := c.closed
		if opts.MovedIsOutflow {
			outflow += c.moved
		}
		backlog += c.created - outflow

		series = append(series, model.BacklogPoint{
			Period:     p,
			Inflow:     c.created,
			Closed:     c.closed,
			Moved:      c.moved,
			Outflow:    outflow,
			NetBacklog: backlog,
		})
	}

	return series, nil
}

// fillPeriods returns every period key from the first to the last of sorted keys
func fillPeriods(sorted []string, g types.Granularity) ([]string, error) {
	if !g.IsValid() {
		return nil, goerr.New("invalid granularity for gap filling",
			goerr.T(model.ErrTagInvalidConfig),
			goerr.V("granularity", g))
	}
	for _, p := range sorted {
		if _, err := g.Start(p); err != nil {
			return nil, goerr.Wrap(err, "period key does not match granularity",
				goerr.T(model.ErrTagInvalidInput),
				goerr.V("granularity", g),
				goerr.V("period", p))
		}
	}

	last := sorted[len(sorted)-1]
	out := []string{sorted[0]}
	for cur := sorted[0]; cur < last; {
		next, err := g.Next(cur)
		if err != nil {
			return nil, err
		}
		out = append(out, next)
		cur = next
	}
	return out, nil
}

// ClassifyEvent maps a status label to an event type. Matching ignores case and surrounding
// whitespace; labels not listed are EventOther.
func ClassifyEvent(label string, labels model.EventLabels) types.EventType {
	label = strings.TrimSpace(label)
	if label == "" {
		return types.EventOther
	}

	switch {
	case matchLabel(labels.Created, label):
		return types.EventCreated
	case matchLabel(labels.Closed, label):
		return types.EventClosed
	case matchLabel(labels.Moved, label):
		return types.EventMoved
	default:
		return types.EventOther
	}
}

func matchLabel(candidates []string, label string) bool {
	for _, c := range candidates {
		if strings.EqualFold(strings.TrimSpace(c), label) {
			return true
		}
	}
	return false
}

// DeriveEvents turns defect records into backlog events.
//
// With EventSourceStatus each record yields one event in its discovery period, typed by its
// status label. With EventSourceLifecycle each record yields a created event in its discovery
// period and, when closed, a closed (or moved, if its status maps to moved) event in its
// closure period. Records without a discovery date are skipped.
func DeriveEvents(records []model.DefectRecord, source types.EventSource, g types.Granularity, labels model.EventLabels) []model.BacklogEvent {
	events := make([]model.BacklogEvent, 0, len(records))
	for i := range records {
		r := &records[i]
		if r.DiscoveryDate.IsZero() {
			continue
		}

		if source != types.EventSourceLifecycle {
			events = append(events, model.BacklogEvent{
				Period: g.Key(r.DiscoveryDate),
				Type:   ClassifyEvent(r.Status, labels),
			})
			continue
		}

		events = append(events, model.BacklogEvent{
			Period: g.Key(r.DiscoveryDate),
			Type:   types.EventCreated,
		})
		if r.IsOpen() {
			continue
		}
		outflow := types.EventClosed
		if ClassifyEvent(r.Status, labels) == types.EventMoved {
			outflow = types.EventMoved
		}
		events = append(events, model.BacklogEvent{
			Period: g.Key(*r.ClosedDate),
			Type:   outflow,
		})
	}
	return events
}
