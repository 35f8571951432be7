package analysis

import (
	"fmt"
	"math/rand/v2"
)

// Chart is the bar chart payload the dashboard renders.
type Chart struct {
	Data ChartData `json:"data"`
}

type ChartData struct {
	Labels   []string       `json:"labels"`
	Datasets []ChartDataset `json:"datasets"`
}

type ChartDataset struct {
	Label           string     `json:"label"`
	Data            []*float64 `json:"data"`
	BackgroundColor []string   `json:"backgroundColor"`
}

// NewChart shapes results into one dataset of stat over measure, with a
// distinct random colour per bar.
func NewChart(results []GroupResult, measure Measure, stat Stat) Chart {
	ds := ChartDataset{
		Label:           measure.Label(),
		Data:            make([]*float64, 0, len(results)),
		BackgroundColor: colours(len(results)),
	}
	labels := make([]string, 0, len(results))
	for _, r := range results {
		labels = append(labels, r.Label)
		v := r.Measures[measure].Stat(stat)
		if !v.Valid {
			ds.Data = append(ds.Data, nil)
			continue
		}
		f := v.Decimal.InexactFloat64()
		ds.Data = append(ds.Data, &f)
	}
	return Chart{Data: ChartData{Labels: labels, Datasets: []ChartDataset{ds}}}
}

func colours(n int) []string {
	seen := make(map[string]bool, n)
	out := make([]string, 0, n)
	for len(out) < n {
		c := fmt.Sprintf("#%06x", rand.IntN(0x1000000))
		if seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	return out
}
