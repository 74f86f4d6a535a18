package serialization

import (
	"fmt"
	"sort"
	"strings"
)

// Validation limits for resource protection.
const (
	MaxHeaderSize    = 100 * 1024 * 1024 // 100MB - maximum header size
	MaxTensorCount   = 100_000           // Maximum number of tensors in a file
	MaxTensorNameLen = 4096              // Maximum tensor name length
)

// namedRange is a tensor's byte range inside the data section.
type namedRange struct {
	name   string
	offset int64
	size   int64
}

// ValidateHeader checks tensor names, counts and byte ranges against a
// data section of dataSize bytes.
func ValidateHeader(h *Header, dataSize int64) error {
	if len(h.Tensors) > MaxTensorCount {
		return &ValidationError{
			Err:     ErrTooManyTensors,
			Details: fmt.Sprintf("got %d, max %d", len(h.Tensors), MaxTensorCount),
		}
	}

	ranges := make([]namedRange, 0, len(h.Tensors))
	for name, info := range h.Tensors {
		if err := ValidateTensorName(name); err != nil {
			return err
		}
		ranges = append(ranges, namedRange{name: name, offset: info.DataOffsets[0], size: info.Size()})
	}
	return validateRanges(ranges, dataSize)
}

// validateRanges rejects negative, out-of-bounds and overlapping ranges.
func validateRanges(ranges []namedRange, dataSize int64) error {
	sort.Slice(ranges, func(i, j int) bool {
		if ranges[i].offset != ranges[j].offset {
			return ranges[i].offset < ranges[j].offset
		}
		return ranges[i].name < ranges[j].name
	})

	for i, r := range ranges {
		if r.offset < 0 || r.size < 0 {
			return &ValidationError{
				Err:     ErrNegativeOffset,
				Tensor:  r.name,
				Details: fmt.Sprintf("offset=%d, size=%d", r.offset, r.size),
			}
		}

		if r.offset+r.size > dataSize {
			return &ValidationError{
				Err:     ErrOutOfBounds,
				Tensor:  r.name,
				Details: fmt.Sprintf("offset %d + size %d > data_size %d", r.offset, r.size, dataSize),
			}
		}

		if i < len(ranges)-1 {
			next := ranges[i+1]
			if r.offset+r.size > next.offset {
				return &ValidationError{
					Err:     ErrOffsetOverlap,
					Tensor:  r.name,
					Tensor2: next.name,
					Details: fmt.Sprintf("regions [%d-%d] and [%d-%d] overlap",
						r.offset, r.offset+r.size, next.offset, next.offset+next.size),
				}
			}
		}
	}
	return nil
}

// ValidateTensorName rejects empty, oversized and path-like names.
func ValidateTensorName(name string) error {
	switch {
	case name == "":
		return &ValidationError{Err: ErrInvalidTensorName, Details: "empty name"}
	case len(name) > MaxTensorNameLen:
		return &ValidationError{
			Err:     ErrInvalidTensorName,
			Tensor:  name[:64],
			Details: fmt.Sprintf("length %d > max %d", len(name), MaxTensorNameLen),
		}
	case strings.Contains(name, ".."):
		return &ValidationError{Err: ErrInvalidTensorName, Tensor: name, Details: "contains '..'"}
	case strings.ContainsAny(name, "/\\"):
		return &ValidationError{Err: ErrInvalidTensorName, Tensor: name, Details: "contains path separator"}
	case strings.Contains(name, "\x00"):
		return &ValidationError{Err: ErrInvalidTensorName, Tensor: name, Details: "contains null byte"}
	}
	return nil
}
