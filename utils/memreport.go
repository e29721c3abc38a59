package utils

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
)

// MemReport is a hierarchical memory usage report for a component.
type MemReport struct {
	Name       string      `json:"name"`
	TotalBytes int         `json:"total_bytes"`
	Children   []MemReport `json:"children,omitempty"`
}

// JSON returns a JSON string representation of the MemReport.
func (r MemReport) JSON() string {
	b, err := json.Marshal(r)
	if err != nil {
		return fmt.Sprintf(`{"error": "%s"}`, err.Error())
	}
	return string(b)
}

// String renders the report as an indented tree.
func (r MemReport) String() string {
	var sb strings.Builder
	r.buildString(&sb, 0)
	return sb.String()
}

func (r MemReport) buildString(sb *strings.Builder, indent int) {
	prefix := strings.Repeat("  ", indent)
	fmt.Fprintf(sb, "%s- %s: %d bytes (%s)\n", prefix, r.Name, r.TotalBytes, humanize.IBytes(uint64(r.TotalBytes)))
	for _, child := range r.Children {
		child.buildString(sb, indent+1)
	}
}

// Find returns the first report in the tree with the given name.
func (r MemReport) Find(name string) (MemReport, bool) {
	if r.Name == name {
		return r, true
	}
	for _, child := range r.Children {
		if found, ok := child.Find(name); ok {
			return found, true
		}
	}
	return MemReport{}, false
}
