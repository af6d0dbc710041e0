package health

import (
	"fmt"
	"math"

	"github.com/netopt/optiview/internal/models"
)

// RingCircumference matches the dashboard's health ring geometry
// (radius 54, so 2*pi*54).
const RingCircumference = 2 * math.Pi * 54

// BarScale is the per-metric normalization for a summary bar. Warn is the
// threshold above which the bar turns warning; a zero Warn disables it.
type BarScale struct {
	Max  float64
	Warn float64
}

// Per-metric scales for the summary bars.
var (
	ScaleLatency    = BarScale{Max: 200, Warn: 100}
	ScaleBandwidth  = BarScale{Max: 1000}
	ScalePacketLoss = BarScale{Max: 10, Warn: 5}
	ScaleCPU        = BarScale{Max: 100, Warn: 80}
	ScaleMemory     = BarScale{Max: 100, Warn: 85}
	ScaleMaxLatency = BarScale{Max: 300, Warn: 100}
)

// Bar normalizes a raw value into a bar view-model. The percentage clamps to
// [0,100] no matter how far the value overshoots the scale.
func Bar(label, display string, value float64, scale BarScale) models.MetricBarView {
	percentage := math.Min(value/scale.Max*100, 100)
	if percentage < 0 {
		percentage = 0
	}

	severity := models.BarOK
	if value > scale.Max*0.8 {
		severity = models.BarDanger
	} else if scale.Warn > 0 && value > scale.Warn {
		severity = models.BarWarning
	}

	return models.MetricBarView{
		Label:      label,
		Display:    display,
		Percentage: percentage,
		Severity:   severity,
	}
}

// SummaryBars builds the full bar set for a metrics summary.
func SummaryBars(s models.MetricsSummary) []models.MetricBarView {
	return []models.MetricBarView{
		Bar("Avg Latency", fmt.Sprintf("%.1f ms", s.AvgLatency), s.AvgLatency, ScaleLatency),
		Bar("Avg Bandwidth", fmt.Sprintf("%.0f Mbps", s.AvgBandwidth), s.AvgBandwidth, ScaleBandwidth),
		Bar("Avg Packet Loss", fmt.Sprintf("%.2f%%", s.AvgPacketLoss), s.AvgPacketLoss, ScalePacketLoss),
		Bar("Avg CPU", fmt.Sprintf("%.1f%%", s.AvgCPU), s.AvgCPU, ScaleCPU),
		Bar("Avg Memory", fmt.Sprintf("%.1f%%", s.AvgMemory), s.AvgMemory, ScaleMemory),
		Bar("Max Latency", fmt.Sprintf("%.1f ms", s.MaxLatency), s.MaxLatency, ScaleMaxLatency),
	}
}

// Ring maps the remote-supplied overall score onto the health ring. The
// score is displayed as received, never recomputed client-side.
func Ring(score float64) models.HealthRingView {
	color := "red"
	switch {
	case score >= 80:
		color = "green"
	case score >= 60:
		color = "amber"
	}
	return models.HealthRingView{
		Score:      score,
		Color:      color,
		DashOffset: RingCircumference * (1 - score/100),
	}
}
