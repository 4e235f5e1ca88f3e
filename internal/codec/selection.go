package codec

import (
	"fmt"
	"strings"
)

// ErrIrregularSelection is returned when a selection cannot be
// expressed as a single regular hyperslab. The engine rejects such
// selections before any network call; there is no partial-write path.
type ErrIrregularSelection struct {
	Reason string
}

func (e *ErrIrregularSelection) Error() string {
	return "codec: unsupported selection: " + e.Reason
}

// EncodeHyperslab renders a regular hyperslab as the server's select=
// query value: one "[start:stop]" or "[start:stop:step]" range per
// dimension, comma-joined inside a single bracket pair, e.g.
// "[0:10,2:4]". stride may be nil for contiguous selections. An empty
// start/count pair selects the whole extent and yields "".
func EncodeHyperslab(start, count, stride []uint64) (string, error) {
	if len(start) == 0 && len(count) == 0 {
		return "", nil
	}
	if len(start) != len(count) {
		return "", &ErrIrregularSelection{Reason: fmt.Sprintf("rank mismatch: %d start vs %d count", len(start), len(count))}
	}
	if stride != nil && len(stride) != len(start) {
		return "", &ErrIrregularSelection{Reason: fmt.Sprintf("rank mismatch: %d stride vs %d start", len(stride), len(start))}
	}

	ranges := make([]string, len(start))
	for i := range start {
		if count[i] == 0 {
			return "", &ErrIrregularSelection{Reason: fmt.Sprintf("zero count in dimension %d", i)}
		}
		step := uint64(1)
		if stride != nil {
			if stride[i] == 0 {
				return "", &ErrIrregularSelection{Reason: fmt.Sprintf("zero stride in dimension %d", i)}
			}
			step = stride[i]
		}
		stop := start[i] + count[i]*step
		if step == 1 {
			ranges[i] = fmt.Sprintf("%d:%d", start[i], stop)
		} else {
			ranges[i] = fmt.Sprintf("%d:%d:%d", start[i], stop, step)
		}
	}
	return "[" + strings.Join(ranges, ",") + "]", nil
}
