package codec

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeHyperslab(t *testing.T) {
	tests := []struct {
		name   string
		start  []uint64
		count  []uint64
		stride []uint64
		want   string
	}{
		{"whole extent", nil, nil, nil, ""},
		{"1d contiguous", []uint64{0}, []uint64{10}, nil, "[0:10]"},
		{"1d offset", []uint64{5}, []uint64{3}, nil, "[5:8]"},
		{"1d strided", []uint64{0}, []uint64{5}, []uint64{2}, "[0:10:2]"},
		{"2d contiguous", []uint64{0, 2}, []uint64{10, 2}, nil, "[0:10,2:4]"},
		{"2d mixed stride", []uint64{1, 0}, []uint64{4, 8}, []uint64{3, 1}, "[1:13:3,0:8]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := EncodeHyperslab(tt.start, tt.count, tt.stride)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEncodeHyperslabRejectsIrregular(t *testing.T) {
	tests := []struct {
		name   string
		start  []uint64
		count  []uint64
		stride []uint64
	}{
		{"rank mismatch", []uint64{0, 0}, []uint64{1}, nil},
		{"stride rank mismatch", []uint64{0}, []uint64{1}, []uint64{1, 1}},
		{"zero count", []uint64{0}, []uint64{0}, nil},
		{"zero stride", []uint64{0}, []uint64{4}, []uint64{0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := EncodeHyperslab(tt.start, tt.count, tt.stride)
			require.Error(t, err)
			var irregular *ErrIrregularSelection
			assert.True(t, errors.As(err, &irregular), "want ErrIrregularSelection, got %v", err)
		})
	}
}
