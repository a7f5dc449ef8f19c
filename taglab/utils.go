package taglab

import (
	"sort"
	"time"
)

// IoU calculates Intersection over Union between two rectangles.
func IoU(r1, r2 Rectangle) float64 {
	interArea := r1.Intersect(r2).Area()
	if interArea == 0 {
		return 0.0
	}
	unionArea := r1.Area() + r2.Area() - interArea
	if unionArea <= 0 {
		return 0.0
	}
	return interArea / unionArea
}

// DateLayout is the ISO-8601 calendar date layout used for acquisition dates
const DateLayout = "2006-01-02"

// DefaultAcquisitionDate is assigned on load to images carrying an invalid date
const DefaultAcquisitionDate = "1955-11-05"

// IsValidDate checks if a date in the ISO format YYYY-MM-DD is valid.
func IsValidDate(txt string) bool {
	_, err := time.Parse(DateLayout, txt)
	return err == nil
}

func maxFloat64(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

func minFloat64(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// uniqueInts returns ids without duplicates, keeping first-seen order
func uniqueInts(ids []int) []int {
	seen := make(map[int]struct{}, len(ids))
	out := make([]int, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// removeInt returns ids without every occurrence of id
func removeInt(ids []int, id int) []int {
	out := ids[:0:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

func sortedInts(ids []int) []int {
	out := append([]int(nil), ids...)
	sort.Ints(out)
	return out
}
