package serialization

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"hash/crc32"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/loom-ml/loom/internal/tensor"
)

// Reader reads state dictionaries from .loom format.
type Reader struct {
	file       *os.File
	header     Header
	flags      uint32
	dataOffset int64
	dataSize   int64
	checksum   uint32
	opts       ReaderOptions
	closed     bool
}

// ReaderOptions configures the behavior of Reader.
type ReaderOptions struct {
	// SkipChecksumValidation skips the CRC-32 check over the data section.
	// Faster for large files, but corruption goes undetected.
	SkipChecksumValidation bool
}

// NewReader creates a .loom file reader with checksum validation enabled.
func NewReader(path string) (*Reader, error) {
	return NewReaderWithOptions(path, ReaderOptions{})
}

// NewReaderWithOptions creates a .loom file reader with custom options.
func NewReaderWithOptions(path string, opts ReaderOptions) (*Reader, error) {
	//nolint:gosec // G304: the path comes from user input, which is expected for model loading
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}

	r := &Reader{file: file, opts: opts}
	if err := r.parseHeader(); err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("failed to parse header: %w", err)
	}

	return r, nil
}

func (r *Reader) parseHeader() error {
	fixed := make([]byte, FixedHeaderSize)
	if _, err := io.ReadFull(r.file, fixed); err != nil {
		return fmt.Errorf("failed to read fixed header: %w", err)
	}

	if string(fixed[0:8]) != MagicBytes {
		return fmt.Errorf("%w: got %q, expected %q", ErrInvalidMagic, string(fixed[0:8]), MagicBytes)
	}

	version := binary.LittleEndian.Uint32(fixed[8:12])
	if version != FormatVersion {
		return fmt.Errorf("%w: got %d, expected %d", ErrUnsupportedVersion, version, FormatVersion)
	}

	r.flags = binary.LittleEndian.Uint32(fixed[12:16])
	headerSize := binary.LittleEndian.Uint64(fixed[16:24])
	dataSize := binary.LittleEndian.Uint64(fixed[24:32])
	r.checksum = binary.LittleEndian.Uint32(fixed[ChecksumOffset : ChecksumOffset+4])

	if headerSize > MaxHeaderSize {
		return fmt.Errorf("%w: %d bytes", ErrHeaderTooLarge, headerSize)
	}

	headerBytes := make([]byte, headerSize)
	if _, err := io.ReadFull(r.file, headerBytes); err != nil {
		return fmt.Errorf("failed to read header JSON: %w", err)
	}

	if err := json.Unmarshal(headerBytes, &r.header); err != nil {
		return fmt.Errorf("failed to parse header JSON: %w", err)
	}

	currentPos := int64(FixedHeaderSize) + int64(headerSize)
	padding := (HeaderAlignment - (currentPos % HeaderAlignment)) % HeaderAlignment
	r.dataOffset = currentPos + padding
	r.dataSize = int64(dataSize)

	info, err := r.file.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat file: %w", err)
	}
	if info.Size() < r.dataOffset+r.dataSize {
		return fmt.Errorf("%w: need %d bytes, have %d", ErrTruncatedFile, r.dataOffset+r.dataSize, info.Size())
	}

	if err := validateHeader(&r.header, r.dataSize); err != nil {
		return err
	}

	if !r.opts.SkipChecksumValidation {
		if err := r.validateChecksum(); err != nil {
			return err
		}
	}

	return nil
}

func (r *Reader) validateChecksum() error {
	if _, err := r.file.Seek(r.dataOffset, io.SeekStart); err != nil {
		return fmt.Errorf("failed to seek to tensor data: %w", err)
	}

	h := crc32.NewIEEE()
	if _, err := io.CopyN(h, r.file, r.dataSize); err != nil {
		return fmt.Errorf("failed to read tensor data for checksum: %w", err)
	}

	if h.Sum32() != r.checksum {
		return fmt.Errorf("%w: computed %08x, stored %08x", ErrChecksumMismatch, h.Sum32(), r.checksum)
	}
	return nil
}

// validateHeader rejects malformed tensor tables before any data is read.
// Malicious offsets could otherwise read unrelated regions of the file.
func validateHeader(h *Header, dataSize int64) error {
	if len(h.Tensors) > MaxTensorCount {
		return fmt.Errorf("%w: got %d, max %d", ErrTooManyTensors, len(h.Tensors), MaxTensorCount)
	}

	for _, t := range h.Tensors {
		if len(t.Name) > MaxTensorNameLen {
			return fmt.Errorf("%w: %q exceeds %d bytes", ErrInvalidTensorName, t.Name[:32], MaxTensorNameLen)
		}
		if strings.ContainsAny(t.Name, "/\\\x00") || strings.Contains(t.Name, "..") {
			return fmt.Errorf("%w: %q", ErrInvalidTensorName, t.Name)
		}
		if t.Offset < 0 || t.Size < 0 {
			return fmt.Errorf("%w: tensor %q: offset=%d size=%d", ErrOutOfBounds, t.Name, t.Offset, t.Size)
		}
		if t.Offset+t.Size > dataSize {
			return fmt.Errorf("%w: tensor %q: offset %d + size %d > data size %d",
				ErrOutOfBounds, t.Name, t.Offset, t.Size, dataSize)
		}
	}

	sorted := make([]TensorMeta, len(h.Tensors))
	copy(sorted, h.Tensors)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Offset < sorted[j].Offset })
	for i := 0; i < len(sorted)-1; i++ {
		if sorted[i].Offset+sorted[i].Size > sorted[i+1].Offset {
			return fmt.Errorf("%w: %q and %q", ErrOffsetOverlap, sorted[i].Name, sorted[i+1].Name)
		}
	}

	return nil
}

// Header returns the file header.
func (r *Reader) Header() Header {
	return r.header
}

// Metadata returns the metadata map from the header.
func (r *Reader) Metadata() map[string]string {
	return r.header.Metadata
}

// TensorNames returns the names of all tensors in the file.
func (r *Reader) TensorNames() []string {
	names := make([]string, len(r.header.Tensors))
	for i, meta := range r.header.Tensors {
		names[i] = meta.Name
	}
	return names
}

// TensorInfo returns the metadata of a specific tensor.
func (r *Reader) TensorInfo(name string) (*TensorMeta, error) {
	for i := range r.header.Tensors {
		if r.header.Tensors[i].Name == name {
			return &r.header.Tensors[i], nil
		}
	}
	return nil, fmt.Errorf("tensor %s not found", name)
}

// LoadTensor loads a single tensor from the file.
func (r *Reader) LoadTensor(name string) (*tensor.RawTensor, error) {
	if r.closed {
		return nil, fmt.Errorf("reader is closed")
	}

	meta, err := r.TensorInfo(name)
	if err != nil {
		return nil, err
	}

	dtype, ok := stringToDtype(meta.DType)
	if !ok {
		return nil, fmt.Errorf("unsupported dtype: %s", meta.DType)
	}

	shape := tensor.Shape(meta.Shape)
	if err := shape.Validate(); err != nil {
		return nil, fmt.Errorf("invalid shape for tensor %s: %w", name, err)
	}
	if want := int64(shape.NumElements() * dtype.Size()); want != meta.Size {
		return nil, fmt.Errorf("tensor %s: size %d does not match shape %v (%d bytes)", name, meta.Size, shape, want)
	}

	raw, err := tensor.NewRaw(shape, dtype)
	if err != nil {
		return nil, fmt.Errorf("failed to create tensor: %w", err)
	}

	if _, err := r.file.Seek(r.dataOffset+meta.Offset, io.SeekStart); err != nil {
		return nil, fmt.Errorf("failed to seek to tensor data: %w", err)
	}
	if _, err := io.ReadFull(r.file, raw.Data()); err != nil {
		return nil, fmt.Errorf("failed to read tensor data: %w", err)
	}

	return raw, nil
}

// ReadStateDict reads all tensors into a state dictionary.
func (r *Reader) ReadStateDict() (map[string]*tensor.RawTensor, error) {
	if r.closed {
		return nil, fmt.Errorf("reader is closed")
	}

	stateDict := make(map[string]*tensor.RawTensor, len(r.header.Tensors))
	for _, meta := range r.header.Tensors {
		raw, err := r.LoadTensor(meta.Name)
		if err != nil {
			return nil, fmt.Errorf("failed to load tensor %s: %w", meta.Name, err)
		}
		stateDict[meta.Name] = raw
	}

	return stateDict, nil
}

// Close releases the file handle. Calling it twice is a no-op.
func (r *Reader) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	return r.file.Close()
}
