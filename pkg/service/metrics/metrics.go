package metrics

import (
	"io"
	"sort"

	"github.com/m-mizutani/goerr/v2"
	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
	"github.com/secmon-lab/vantage/pkg/domain/model"
	"github.com/secmon-lab/vantage/pkg/domain/types"
	"google.golang.org/protobuf/proto"
)

const namespace = "vantage"

// Metric names exposed for a report
const (
	MetricDefects         = namespace + "_defects"
	MetricDefectsOpen     = namespace + "_defects_open"
	MetricDefectsBreached = namespace + "_defects_kpi_breached"
	MetricInvalidRecords  = namespace + "_invalid_records"
	MetricKPIMetRatio     = namespace + "_kpi_met_ratio"
	MetricKPIThreshold    = namespace + "_kpi_threshold_business_days"
	MetricAvgAging        = namespace + "_aging_average_business_days"
	MetricRiskExposure    = namespace + "_risk_exposure"
	MetricNetBacklog      = namespace + "_backlog_net"
	MetricVerdict         = namespace + "_verdict"
	MetricBreakdownItems  = namespace + "_breakdown_defects"
	MetricBreakdownCost   = namespace + "_breakdown_fix_cost"
)

// ContentType is the HTTP content type of the exposition
var ContentType = string(expfmt.NewFormat(expfmt.TypeTextPlain))

// Families converts a report into Prometheus metric families, sorted by name
func Families(report *model.Report) []*dto.MetricFamily {
	base := baseLabels(report)
	s := report.Summary

	families := []*dto.MetricFamily{
		gaugeFamily(MetricDefects, "Valid defect records matching the report filter.",
			gauge(float64(s.TotalItems), base)),
		gaugeFamily(MetricDefectsOpen, "Defects without a closed date.",
			gauge(float64(s.OpenItems), base)),
		gaugeFamily(MetricDefectsBreached, "Defects whose aging exceeds the KPI threshold.",
			gauge(float64(s.BreachedItems), base)),
		gaugeFamily(MetricInvalidRecords, "Records excluded from the report because they failed validation.",
			gauge(float64(len(report.Invalid)), base)),
		gaugeFamily(MetricKPIMetRatio, "Share of defects meeting the KPI threshold (0-1).",
			gauge(s.KPIMetPct/100, base)),
		gaugeFamily(MetricKPIThreshold, "Configured KPI threshold in business days.",
			gauge(float64(report.KPIThresholdDays), base)),
		gaugeFamily(MetricAvgAging, "Average aging of defects in business days.",
			gauge(s.AvgAgingDays, base)),
		gaugeFamily(MetricRiskExposure, "Sum of fix cost of defects.",
			gauge(s.RiskExposure, base)),
		verdictFamily(s.Verdict, base),
	}

	if n := len(report.Velocity); n > 0 {
		last := report.Velocity[n-1]
		families = append(families, gaugeFamily(MetricNetBacklog, "Net backlog at the end of the latest period.",
			gauge(float64(last.NetBacklog), withLabel(base, "period", last.Period))))
	}

	if items, cost := breakdownFamilies(report, base); items != nil {
		families = append(families, items, cost)
	}

	sort.Slice(families, func(i, j int) bool {
		return families[i].GetName() < families[j].GetName()
	})
	return families
}

// Write encodes the report's metric families in the Prometheus text format
func Write(w io.Writer, report *model.Report) error {
	enc := expfmt.NewEncoder(w, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range Families(report) {
		if err := enc.Encode(mf); err != nil {
			return goerr.Wrap(err, "failed to encode metric family",
				goerr.V("name", mf.GetName()))
		}
	}
	return nil
}

func verdictFamily(verdict types.Verdict, base []*dto.LabelPair) *dto.MetricFamily {
	all := []types.Verdict{types.VerdictGo, types.VerdictHold, types.VerdictNoData}
	metrics := make([]*dto.Metric, 0, len(all))
	for _, v := range all {
		value := 0.0
		if v == verdict {
			value = 1
		}
		metrics = append(metrics, gauge(value, withLabel(base, "verdict", v.String())))
	}
	return gaugeFamily(MetricVerdict, "Current governance verdict, 1 for the active verdict.", metrics...)
}

func breakdownFamilies(report *model.Report, base []*dto.LabelPair) (*dto.MetricFamily, *dto.MetricFamily) {
	var counts, costs []*dto.Metric
	for _, dim := range types.AllDimensions {
		for _, item := range report.Breakdown[dim] {
			labels := withLabel(withLabel(base, "dimension", string(dim)), "value", item.Value)
			counts = append(counts, gauge(float64(item.Count), labels))
			costs = append(costs, gauge(item.FixCost, labels))
		}
	}
	if len(counts) == 0 {
		return nil, nil
	}
	return gaugeFamily(MetricBreakdownItems, "Defects per dimension value.", counts...),
		gaugeFamily(MetricBreakdownCost, "Fix cost per dimension value.", costs...)
}

func baseLabels(report *model.Report) []*dto.LabelPair {
	if report.DatasetID == "" {
		return nil
	}
	return []*dto.LabelPair{label("dataset", report.DatasetID.String())}
}

func gaugeFamily(name, help string, metrics ...*dto.Metric) *dto.MetricFamily {
	return &dto.MetricFamily{
		Name:   proto.String(name),
		Help:   proto.String(help),
		Type:   dto.MetricType_GAUGE.Enum(),
		Metric: metrics,
	}
}

func gauge(value float64, labels []*dto.LabelPair) *dto.Metric {
	return &dto.Metric{
		Label: labels,
		Gauge: &dto.Gauge{Value: proto.Float64(value)},
	}
}

func label(name, value string) *dto.LabelPair {
	return &dto.LabelPair{Name: proto.String(name), Value: proto.String(value)}
}

// withLabel returns a new label slice; label names must stay sorted for the text encoder
func withLabel(labels []*dto.LabelPair, name, value string) []*dto.LabelPair {
	out := make([]*dto.LabelPair, 0, len(labels)+1)
	out = append(out, labels...)
	out = append(out, label(name, value))
	sort.Slice(out, func(i, j int) bool {
		return out[i].GetName() < out[j].GetName()
	})
	return out
}
