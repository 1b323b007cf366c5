package lbvh

import (
	"bytes"
	"fmt"
	"time"

	"github.com/olekukonko/tablewriter"
	"gonum.org/v1/gonum/stat"
)

// The time spent in a build stage.
type StageTiming struct {
	Name     string
	Duration time.Duration
}

// Build statistics.
type Stats struct {
	Triangles     int
	InternalNodes int
	LeafNodes     int

	MinLeafDepth    int
	MaxLeafDepth    int
	MeanLeafDepth   float64
	StdDevLeafDepth float64

	Stages []StageTiming
	Total  time.Duration
}

// Fill in the tree shape statistics of h.
func (s *Stats) collectShape(h *Hierarchy) {
	s.Triangles = len(h.Triangles)
	s.InternalNodes = len(h.InternalNodes)
	s.LeafNodes = len(h.LeafNodes)

	depths := h.LeafDepths()
	if len(depths) == 0 {
		return
	}

	samples := make([]float64, len(depths))
	s.MinLeafDepth, s.MaxLeafDepth = depths[0], depths[0]
	for i, d := range depths {
		samples[i] = float64(d)
		s.MinLeafDepth = min(s.MinLeafDepth, d)
		s.MaxLeafDepth = max(s.MaxLeafDepth, d)
	}
	s.MeanLeafDepth, s.StdDevLeafDepth = stat.MeanStdDev(samples, nil)
	if len(samples) == 1 {
		// Sample std dev is undefined for a single leaf
		s.StdDevLeafDepth = 0
	}
}

// Record a stage duration.
func (s *Stats) addStage(name string, d time.Duration) {
	s.Stages = append(s.Stages, StageTiming{Name: name, Duration: d})
	s.Total += d
}

// Build a tabular representation of the build statistics.
func (s *Stats) Table() string {
	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetAutoFormatHeaders(false)
	table.SetHeader([]string{"Metric", "Value"})
	table.Append([]string{"Triangles", fmt.Sprint(s.Triangles)})
	table.Append([]string{"Internal nodes", fmt.Sprint(s.InternalNodes)})
	table.Append([]string{"Leaf nodes", fmt.Sprint(s.LeafNodes)})
	table.Append([]string{"Leaf depth (min/max)", fmt.Sprintf("%d / %d", s.MinLeafDepth, s.MaxLeafDepth)})
	table.Append([]string{"Leaf depth (mean +/- stddev)", fmt.Sprintf("%.2f +/- %.2f", s.MeanLeafDepth, s.StdDevLeafDepth)})
	table.Append([]string{" ", " "})
	for _, stage := range s.Stages {
		table.Append([]string{"Stage: " + stage.Name, fmt.Sprintf("%d ms", stage.Duration.Milliseconds())})
	}
	table.SetFooter([]string{"Total", fmt.Sprintf("%d ms", s.Total.Milliseconds())})

	table.Render()
	return buf.String()
}
