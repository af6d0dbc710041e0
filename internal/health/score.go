package health

import (
	"math"

	"github.com/netopt/optiview/internal/models"
)

// Score computes the 0-100 health score for a single node. Penalties are
// additive deductions from 100 with a floor of 0. The formula matches the
// one the optimizer service applies server-side, so locally derived node
// health lines up with the remote overall score.
func Score(node models.NodeRecord) float64 {
	score := 100.0

	// Latency penalty
	if node.Latency > 50 {
		score -= math.Min(25, (node.Latency-50)*0.25)
	}

	// Packet loss penalty, unconditional
	score -= node.PacketLoss * 4

	// Bandwidth penalty
	if node.Bandwidth < 500 {
		score -= math.Min(15, (500-node.Bandwidth)*0.03)
	}

	// CPU penalty
	if node.CPUUsage > 70 {
		score -= math.Min(20, (node.CPUUsage-70)*0.67)
	}

	// Memory penalty
	if node.MemoryUsage > 70 {
		score -= math.Min(15, (node.MemoryUsage-70)*0.5)
	}

	return math.Max(0, score)
}

// StatusFor classifies a node by its health score.
func StatusFor(score float64) models.NodeStatus {
	switch {
	case score < 50:
		return models.NodeCritical
	case score < 75:
		return models.NodeWarning
	default:
		return models.NodeHealthy
	}
}

// Grade attaches the derived health score and status to a node record.
func Grade(node models.NodeRecord) models.NodeRecord {
	node.Health = Score(node)
	node.Status = StatusFor(node.Health)
	return node
}
