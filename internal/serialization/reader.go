package serialization

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"sort"

	"github.com/born-ml/deepspeech/internal/tensor"
)

// File is a fully loaded SafeTensors file.
type File struct {
	Metadata map[string]string
	Tensors  map[string]*tensor.RawTensor
}

// Names returns the tensor names in alphabetical order.
func (f *File) Names() []string {
	names := make([]string, 0, len(f.Tensors))
	for name := range f.Tensors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ReadFile loads every tensor of a SafeTensors file onto device.
func ReadFile(path string, device tensor.Device) (*File, error) {
	//nolint:gosec // G304: File path comes from user input, which is expected for model loading
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer func() {
		_ = file.Close() // read-only, close error carries no data loss
	}()
	return Decode(file, device)
}

// Decode reads a SafeTensors stream. The header is validated before any
// tensor is materialized; a checksum in metadata is verified.
func Decode(r io.Reader, device tensor.Device) (*File, error) {
	var headerSize uint64
	if err := binary.Read(r, binary.LittleEndian, &headerSize); err != nil {
		return nil, fmt.Errorf("failed to read header size: %w", err)
	}
	if headerSize > MaxHeaderSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrHeaderTooLarge, headerSize)
	}

	headerBytes := make([]byte, headerSize)
	if _, err := io.ReadFull(r, headerBytes); err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	var header Header
	if err := json.Unmarshal(bytes.TrimRight(headerBytes, " "), &header); err != nil {
		return nil, fmt.Errorf("failed to parse header JSON: %w", err)
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read tensor data: %w", err)
	}
	if err := ValidateHeader(&header, int64(len(data))); err != nil {
		return nil, err
	}

	if want, ok := header.Metadata[ChecksumKey]; ok {
		sum := sha256.Sum256(data)
		if hex.EncodeToString(sum[:]) != want {
			return nil, ErrChecksumMismatch
		}
	}

	f := &File{
		Metadata: header.Metadata,
		Tensors:  make(map[string]*tensor.RawTensor, len(header.Tensors)),
	}
	for name, info := range header.Tensors {
		raw, err := materialize(name, info, data, device)
		if err != nil {
			return nil, err
		}
		f.Tensors[name] = raw
	}
	return f, nil
}

func materialize(name string, info TensorInfo, data []byte, device tensor.Device) (*tensor.RawTensor, error) {
	dtype, err := fromDType(info.DType)
	if err != nil {
		return nil, fmt.Errorf("tensor %s: %w", name, err)
	}

	want, ok := byteSize(info.Shape, dtype.Size())
	if !ok {
		return nil, &ValidationError{
			Err:     ErrSizeMismatch,
			Tensor:  name,
			Details: fmt.Sprintf("%s%v overflows the addressable size", info.DType, info.Shape),
		}
	}

	shape := make(tensor.Shape, len(info.Shape))
	for i, dim := range info.Shape {
		shape[i] = int(dim)
	}
	if err := shape.Validate(); err != nil {
		return nil, fmt.Errorf("invalid shape for tensor %s: %w", name, err)
	}
	if want != info.Size() {
		return nil, &ValidationError{
			Err:     ErrSizeMismatch,
			Tensor:  name,
			Details: fmt.Sprintf("%s%v needs %d bytes, range holds %d", info.DType, info.Shape, want, info.Size()),
		}
	}

	return tensor.NewRawFromBytes(shape, dtype, device, data[info.DataOffsets[0]:info.DataOffsets[1]])
}

// byteSize returns the byte length of a tensor with the given dims, or
// false when a dimension is negative or the product overflows.
func byteSize(dims []int64, elemSize int) (int64, bool) {
	n := int64(elemSize)
	for _, d := range dims {
		if d < 0 {
			return 0, false
		}
		if d != 0 && n > math.MaxInt64/d {
			return 0, false
		}
		n *= d
	}
	return n, n <= math.MaxInt
}
