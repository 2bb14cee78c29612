// Package histdata provides the read-only histogram capability consumed by
// the calibration fit, a slice-backed implementation, and a loader for
// two-column text exports.
package histdata

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// View is the read-only histogram capability the fit consumes. Bin indices
// run from 0 to Bins()-1.
type View interface {
	// Bins returns the number of bins.
	Bins() int
	// Center returns the center of bin i.
	Center(i int) float64
	// Content returns the content of bin i.
	Content(i int) float64
	// Entries returns the total number of entries.
	Entries() float64
}

// Histogram is a slice-backed View.
type Histogram struct {
	centers  []float64
	contents []float64
	entries  float64
}

// New builds a Histogram from parallel center and content slices. Centers
// must be strictly increasing. Entries defaults to the sum of contents; use
// SetEntries when the true entry count is known.
func New(centers, contents []float64) (*Histogram, error) {
	if len(centers) != len(contents) {
		return nil, fmt.Errorf("centers and contents differ in length: %d vs %d", len(centers), len(contents))
	}
	if len(centers) == 0 {
		return nil, fmt.Errorf("histogram has no bins")
	}
	var entries float64
	for i, c := range centers {
		if i > 0 && c <= centers[i-1] {
			return nil, fmt.Errorf("bin centers not strictly increasing at index %d", i)
		}
		entries += contents[i]
	}
	return &Histogram{centers: centers, contents: contents, entries: entries}, nil
}

// SetEntries overrides the total entry count.
func (h *Histogram) SetEntries(n float64) {
	h.entries = n
}

// Bins returns the number of bins.
func (h *Histogram) Bins() int { return len(h.centers) }

// Center returns the center of bin i.
func (h *Histogram) Center(i int) float64 { return h.centers[i] }

// Content returns the content of bin i.
func (h *Histogram) Content(i int) float64 { return h.contents[i] }

// Entries returns the total number of entries.
func (h *Histogram) Entries() float64 { return h.entries }

// Fill adds one count to the bin whose center is nearest to x, ignoring
// values outside the bin range by half a bin width.
func (h *Histogram) Fill(x float64) {
	n := len(h.centers)
	if n < 2 {
		if n == 1 {
			h.contents[0]++
			h.entries++
		}
		return
	}
	width := h.centers[1] - h.centers[0]
	if x < h.centers[0]-width/2 || x > h.centers[n-1]+width/2 {
		return
	}
	i := int((x - h.centers[0] + width/2) / width)
	if i < 0 {
		i = 0
	}
	if i >= n {
		i = n - 1
	}
	h.contents[i]++
	h.entries++
}

// Load reads a histogram from a text file with one "center content" pair per
// line. Fields may be separated by whitespace or commas; blank lines and
// lines starting with '#' are skipped.
func Load(path string) (*Histogram, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open histogram: %w", err)
	}
	defer f.Close()

	var centers, contents []float64
	scanner := bufio.NewScanner(f)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		fields := strings.FieldsFunc(text, func(r rune) bool {
			return r == ',' || r == ' ' || r == '\t'
		})
		if len(fields) < 2 {
			return nil, fmt.Errorf("line %d: want \"center content\", got %q", line, text)
		}
		center, err := strconv.ParseFloat(fields[0], 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: bad center %q: %w", line, fields[0], err)
		}
		content, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: bad content %q: %w", line, fields[1], err)
		}
		centers = append(centers, center)
		contents = append(contents, content)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read histogram: %w", err)
	}
	return New(centers, contents)
}

// Uniform builds an empty histogram with bins bins of equal width spanning
// [lo, hi].
func Uniform(bins int, lo, hi float64) (*Histogram, error) {
	if bins < 1 || hi <= lo {
		return nil, fmt.Errorf("invalid binning: %d bins over [%g,%g]", bins, lo, hi)
	}
	width := (hi - lo) / float64(bins)
	centers := make([]float64, bins)
	for i := range centers {
		centers[i] = lo + (float64(i)+0.5)*width
	}
	return New(centers, make([]float64, bins))
}
