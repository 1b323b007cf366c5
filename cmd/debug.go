package cmd

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/achilleasa/polaris-lbvh/asset/scene"
	"github.com/achilleasa/polaris-lbvh/asset/scene/reader"
	"github.com/achilleasa/polaris-lbvh/lbvh"
	"github.com/olekukonko/tablewriter"
	"github.com/pkg/errors"
	"github.com/urfave/cli"
)

// Debug view modes.
const (
	DebugAABB    = "aabb"
	DebugMorton  = "morton"
	DebugPresort = "presort"
	DebugSort    = "sort"
	DebugBVH     = "bvh"
)

// ErrUnknownDebugMode is returned for unsupported --mode values.
var ErrUnknownDebugMode = errors.New("unknown debug mode")

// Build a hierarchy for a scene and dump one of its intermediate buffers.
func Debug(ctx *cli.Context) error {
	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}

	if ctx.NArg() == 0 {
		return errors.New("missing scene file(s)")
	}

	mesh, err := reader.ReadMesh(ctx.Args()...)
	if err != nil {
		return err
	}

	h, err := lbvh.Build(newDevice(cfg.Build), mesh, cfg.Build)
	if err != nil {
		return err
	}

	out, err := debugView(h, ctx.String("mode"), ctx.Int("depth"), ctx.Int("limit"))
	if err != nil {
		return err
	}

	logger.Noticef("%s view:\n%s", ctx.String("mode"), out)
	return nil
}

// Render a debug view. Table views list at most limit rows (0 = all); the
// bvh view descends at most depth levels (< 0 = all).
func debugView(h *lbvh.Hierarchy, mode string, depth, limit int) (string, error) {
	switch mode {
	case DebugAABB:
		return aabbView(h, limit), nil
	case DebugMorton:
		return mortonView(h, limit), nil
	case DebugPresort:
		return presortView(h, limit), nil
	case DebugSort:
		return sortView(h, limit), nil
	case DebugBVH:
		return bvhView(h, depth)
	}
	return "", errors.Wrapf(ErrUnknownDebugMode, "%q", mode)
}

func rowCount(total, limit int) int {
	if limit <= 0 || limit > total {
		return total
	}
	return limit
}

func newTable(buf *bytes.Buffer, header ...string) *tablewriter.Table {
	table := tablewriter.NewWriter(buf)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetAutoFormatHeaders(false)
	table.SetHeader(header)
	return table
}

func aabbView(h *lbvh.Hierarchy, limit int) string {
	var buf bytes.Buffer
	table := newTable(&buf, "Sorted", "Triangle", "Min", "Max", "Center")
	for i := 0; i < rowCount(len(h.TriangleAABBs), limit); i++ {
		box := h.TriangleAABBs[i]
		table.Append([]string{
			fmt.Sprint(i),
			fmt.Sprint(h.SortedIndices[i]),
			fmt.Sprint(box.Min),
			fmt.Sprint(box.Max),
			fmt.Sprint(box.Center()),
		})
	}
	bounds := h.Bounds()
	table.SetFooter([]string{"Root", " ", fmt.Sprint(bounds.Min), fmt.Sprint(bounds.Max), " "})
	table.Render()
	return buf.String()
}

func mortonView(h *lbvh.Hierarchy, limit int) string {
	var buf bytes.Buffer
	table := newTable(&buf, "Sorted", "Triangle", "Raw key", "Compacted key")
	for i := 0; i < rowCount(len(h.MortonKeys), limit); i++ {
		table.Append([]string{
			fmt.Sprint(i),
			fmt.Sprint(h.SortedIndices[i]),
			fmt.Sprintf("%032b", h.RawKeys[i]),
			fmt.Sprintf("%032b", h.MortonKeys[i]),
		})
	}
	table.Render()
	return buf.String()
}

// Get the sorted position of every triangle.
func sortedPositions(h *lbvh.Hierarchy) []uint32 {
	pos := make([]uint32, len(h.SortedIndices))
	for i, tri := range h.SortedIndices {
		pos[tri] = uint32(i)
	}
	return pos
}

// List keys in input triangle order, before sorting.
func presortView(h *lbvh.Hierarchy, limit int) string {
	pos := sortedPositions(h)

	var buf bytes.Buffer
	table := newTable(&buf, "Triangle", "Centroid", "Key", "Sorted")
	for tri := 0; tri < rowCount(len(pos), limit); tri++ {
		i := pos[tri]
		table.Append([]string{
			fmt.Sprint(tri),
			fmt.Sprint(h.TriangleAABBs[i].Center()),
			fmt.Sprintf("%032b", h.RawKeys[i]),
			fmt.Sprint(i),
		})
	}
	table.Render()
	return buf.String()
}

func sortView(h *lbvh.Hierarchy, limit int) string {
	var buf bytes.Buffer
	table := newTable(&buf, "Sorted", "Triangle", "Key", "Material", "Shadow (cast/receive)")
	for i := 0; i < rowCount(len(h.SortedIndices), limit); i++ {
		table.Append([]string{
			fmt.Sprint(i),
			fmt.Sprint(h.SortedIndices[i]),
			fmt.Sprint(h.RawKeys[i]),
			fmt.Sprint(h.MaterialIndices[i]),
			fmt.Sprintf("%d/%d", h.ShadowFlags[i].Cast, h.ShadowFlags[i].Receive),
		})
	}
	table.Render()
	return buf.String()
}

func bvhView(h *lbvh.Hierarchy, maxDepth int) (string, error) {
	sc := h.Scene(nil)

	var buf bytes.Buffer
	err := sc.Traverse(func(nodeType, index uint32, depth int) bool {
		indent := strings.Repeat("  ", depth)
		if nodeType == scene.NodeTypeLeaf {
			leaf := sc.LeafNodes[index]
			fmt.Fprintf(&buf, "%sleaf %d -> triangle %d %v\n", indent, index, sc.TriangleIndices[leaf.Index], sc.NodeAABB(nodeType, index))
			return false
		}

		fmt.Fprintf(&buf, "%snode %d %v\n", indent, index, sc.NodeAABB(nodeType, index))
		return maxDepth < 0 || depth < maxDepth
	})
	return buf.String(), err
}
