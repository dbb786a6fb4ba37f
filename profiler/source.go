package profiler

import (
	"bufio"
	"fmt"
	"os"
)

// maxLineLength bounds a single source line; longer lines fail the read.
const maxLineLength = 1 << 20

// ReadLines reads path and returns its lines without line terminators.
// Errors wrap ErrSourceUnavailable.
func ReadLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSourceUnavailable, err)
	}
	defer f.Close()

	var lines []string
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 4096), maxLineLength)
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("%w: reading %s: %w", ErrSourceUnavailable, path, err)
	}
	return lines, nil
}
