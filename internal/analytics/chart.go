package analytics

import (
	"slices"
	"time"

	"github.com/evcraddock/smartrent/internal/format"
)

// Palette colors bar and pie segments, repeating when there are more
// segments than colors.
var Palette = []string{"#3b82f6", "#10b981", "#f59e0b", "#ef4444", "#8b5cf6"}

// Chart is chart data ready for a renderer.
type Chart struct {
	Labels   []string  `json:"labels"`
	Datasets []Dataset `json:"datasets"`
}

// Dataset is one series of a Chart.
type Dataset struct {
	Label           string    `json:"label,omitempty"`
	Data            []float64 `json:"data"`
	BorderColor     string    `json:"borderColor,omitempty"`
	BackgroundColor []string  `json:"backgroundColor"`
	Tension         float64   `json:"tension,omitempty"`
	Fill            bool      `json:"fill,omitempty"`
}

// LineChart plots a daily series with "Jan 2" labels.
func LineChart(points []Point) Chart {
	labels := make([]string, 0, len(points))
	data := make([]float64, 0, len(points))
	for _, p := range points {
		label := p.Date
		if t, err := time.Parse(time.DateOnly, p.Date); err == nil {
			label = format.ShortDate(t)
		}
		labels = append(labels, label)
		data = append(data, p.Value)
	}
	return Chart{
		Labels: labels,
		Datasets: []Dataset{{
			Label:           "Activity",
			Data:            data,
			BorderColor:     Palette[0],
			BackgroundColor: []string{"rgba(59, 130, 246, 0.1)"},
			Tension:         0.4,
			Fill:            true,
		}},
	}
}

// BarChart plots counts per label, labels sorted.
func BarChart(counts map[string]int) Chart {
	c := segments(counts)
	c.Datasets[0].Label = "Count"
	return c
}

// PieChart plots shares per label, labels sorted.
func PieChart(counts map[string]int) Chart {
	return segments(counts)
}

func segments(counts map[string]int) Chart {
	labels := make([]string, 0, len(counts))
	for k := range counts {
		labels = append(labels, k)
	}
	slices.Sort(labels)

	data := make([]float64, len(labels))
	colors := make([]string, len(labels))
	for i, l := range labels {
		data[i] = float64(counts[l])
		colors[i] = Palette[i%len(Palette)]
	}
	return Chart{
		Labels:   labels,
		Datasets: []Dataset{{Data: data, BackgroundColor: colors}},
	}
}
