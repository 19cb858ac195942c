package engine

import (
	"math"
	"sort"
	"strings"

	"github.com/secmon-lab/vantage/pkg/domain/model"
	"github.com/secmon-lab/vantage/pkg/domain/types"
)

// Summarize computes the headline metrics over report rows. Verdict is left empty;
// see DecideVerdict.
func Summarize(rows []model.ReportRow) model.Summary {
	s := model.Summary{TotalItems: len(rows)}
	if len(rows) == 0 {
		return s
	}

	met := 0
	agingTotal := 0
	rootCauses := make(map[string]int)
	for _, r := range rows {
		s.RiskExposure += r.FixCost
		agingTotal += r.AgingDays
		if r.KPIStatus == types.KPIMet {
			met++
		} else {
			s.BreachedItems++
		}
		if r.Open {
			s.OpenItems++
		}
		if rc := strings.TrimSpace(r.RootCause); rc != "" {
			rootCauses[rc]++
		}
	}

	s.KPIMetPct = round(float64(met)*100/float64(len(rows)), 1)
	s.AvgAgingDays = round(float64(agingTotal)/float64(len(rows)), 1)
	s.RiskExposure = round(s.RiskExposure, 2)
	s.SystemicMode = mode(rootCauses)

	return s
}

// DecideVerdict returns GO when KPI compliance reaches targetPct, HOLD otherwise,
// and NO_DATA for an empty summary
func DecideVerdict(s model.Summary, targetPct float64) types.Verdict {
	if s.TotalItems == 0 {
		return types.VerdictNoData
	}
	if s.KPIMetPct >= targetPct {
		return types.VerdictGo
	}
	return types.VerdictHold
}

// Breakdown groups rows by a dimension value, largest fix cost first
func Breakdown(rows []model.ReportRow, dim types.Dimension) []model.BreakdownItem {
	index := make(map[string]int)
	items := []model.BreakdownItem{}
	agingTotals := []int{}

	for i := range rows {
		r := &rows[i]
		value := dimensionValue(r, dim)

		pos, ok := index[value]
		if !ok {
			pos = len(items)
			index[value] = pos
			items = append(items, model.BreakdownItem{Value: value})
			agingTotals = append(agingTotals, 0)
		}

		items[pos].Count++
		items[pos].FixCost += r.FixCost
		agingTotals[pos] += r.AgingDays
		if r.KPIStatus == types.KPIBreached {
			items[pos].Breached++
		}
	}

	for i := range items {
		items[i].FixCost = round(items[i].FixCost, 2)
		items[i].AvgAgingDays = round(float64(agingTotals[i])/float64(items[i].Count), 1)
	}

	sort.SliceStable(items, func(i, j int) bool {
		if items[i].FixCost != items[j].FixCost {
			return items[i].FixCost > items[j].FixCost
		}
		return items[i].Value < items[j].Value
	})

	return items
}

// NestedBreakdown groups rows by outer, then each group by inner. It carries the
// root cause by application area view of the dashboard treemap.
func NestedBreakdown(rows []model.ReportRow, outer, inner types.Dimension) []model.BreakdownItem {
	items := Breakdown(rows, outer)
	groups := make(map[string][]model.ReportRow, len(items))
	for i := range rows {
		value := dimensionValue(&rows[i], outer)
		groups[value] = append(groups[value], rows[i])
	}
	for i := range items {
		items[i].Children = Breakdown(groups[items[i].Value], inner)
	}
	return items
}

func dimensionValue(r *model.ReportRow, dim types.Dimension) string {
	if value := strings.TrimSpace(r.Dimension(dim)); value != "" {
		return value
	}
	return "(none)"
}

// mode returns the most frequent key, the smallest key on ties, or "" for an empty map
func mode(counts map[string]int) string {
	best, bestCount := "", 0
	for k, c := range counts {
		if c > bestCount || (c == bestCount && k < best) {
			best, bestCount = k, c
		}
	}
	return best
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

// SortBySeverityLevel orders severity breakdown items from most to least severe using the
// configured levels. Unconfigured labels go last, keeping their relative order.
func SortBySeverityLevel(items []model.BreakdownItem, severities *model.SeveritiesConfig) {
	if severities == nil || len(severities.Severities) == 0 {
		return
	}
	sort.SliceStable(items, func(i, j int) bool {
		return severities.LevelOf(items[i].Value) > severities.LevelOf(items[j].Value)
	})
}
