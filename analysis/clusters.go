package analysis

import (
	"math"
	"sort"

	"github.com/tenderlens/tenderlens/stat"
)

// PriceCluster is one group of prices within tolerance of a common seed.
// Center is the mean of the members, not the seed.
type PriceCluster struct {
	Center float64 `json:"center"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Count  int     `json:"count"`
}

// ClusterReport lists price clusters, largest first.
type ClusterReport struct {
	Outcome
	Clusters []PriceCluster `json:"clusters"`
}

// PriceClusterer groups offer prices by relative proximity. The pass is
// greedy and order-sensitive: the first unclustered price seeds each
// cluster and absorbs every remaining price within tolerance of it, so
// the same prices in a different order can cluster differently. Callers
// that need stable output must pass prices in a stable order.
type PriceClusterer struct {
	cfg Thresholds
}

func NewPriceClusterer(cfg Thresholds) *PriceClusterer {
	return &PriceClusterer{cfg: cfg}
}

// ClusterPrices partitions prices into proximity clusters. Fewer than two
// prices skips the analysis. The input slice is not modified.
func (c *PriceClusterer) ClusterPrices(prices []float64) ClusterReport {
	if len(prices) < 2 {
		return ClusterReport{Outcome: notPerformed(ReasonTooFewForCluster)}
	}

	pool := append([]float64(nil), prices...)
	clusters := make([]PriceCluster, 0)
	for len(pool) > 0 {
		seed := pool[0]
		members := []float64{seed}
		remaining := make([]float64, 0, len(pool)-1)
		for _, price := range pool[1:] {
			if seed != 0 && math.Abs(price-seed)/seed <= c.cfg.ClusterTolerance {
				members = append(members, price)
			} else {
				remaining = append(remaining, price)
			}
		}
		pool = remaining

		lo, hi := stat.MinMax(members)
		clusters = append(clusters, PriceCluster{
			Center: stat.Round2(stat.Mean(members)),
			Min:    lo,
			Max:    hi,
			Count:  len(members),
		})
	}

	sort.SliceStable(clusters, func(i, j int) bool {
		return clusters[i].Count > clusters[j].Count
	})

	return ClusterReport{Outcome: performed(), Clusters: clusters}
}
