package serialization

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"hash/crc32"
	"os"
	"sort"
	"time"

	"github.com/loom-ml/loom/internal/tensor"
)

const loomVersion = "0.1.0" // Current loom version

// Writer writes state dictionaries in .loom format.
type Writer struct {
	file   *os.File
	closed bool
}

// NewWriter creates a .loom file writer at path, truncating any existing file.
func NewWriter(path string) (*Writer, error) {
	//nolint:gosec // G304: the path comes from user input, which is expected for model saving
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create file: %w", err)
	}

	return &Writer{file: file}, nil
}

// WriteStateDict writes a state dictionary with a default header.
//
// The state dictionary maps parameter names to tensors.
func (w *Writer) WriteStateDict(stateDict map[string]*tensor.RawTensor, modelType string, metadata map[string]string) error {
	return w.WriteStateDictWithHeader(stateDict, Header{
		ModelType: modelType,
		Metadata:  metadata,
	})
}

// WriteStateDictWithHeader writes a state dictionary with a caller-supplied
// header, which allows setting CheckpointMeta and custom metadata.
//
// FormatVersion, LoomVersion, CreatedAt and Tensors are always filled in by
// the writer. Tensors are laid out in sorted name order so the layout does
// not depend on map iteration order.
func (w *Writer) WriteStateDictWithHeader(stateDict map[string]*tensor.RawTensor, header Header) error {
	if w.closed {
		return fmt.Errorf("writer is closed")
	}

	header.FormatVersion = FormatVersion
	header.LoomVersion = loomVersion
	header.CreatedAt = time.Now().UTC()
	if header.Metadata == nil {
		header.Metadata = make(map[string]string)
	}

	names := make([]string, 0, len(stateDict))
	for name := range stateDict {
		names = append(names, name)
	}
	sort.Strings(names)

	// Lay out tensors back to back and collect the payload for the checksum.
	var payload []byte
	var offset int64
	header.Tensors = make([]TensorMeta, 0, len(stateDict))
	for _, name := range names {
		raw := stateDict[name]
		size := int64(raw.NumElements() * raw.DType().Size())

		header.Tensors = append(header.Tensors, TensorMeta{
			Name:   name,
			DType:  dtypeToString(raw.DType()),
			Shape:  []int(raw.Shape()),
			Offset: offset,
			Size:   size,
		})

		offset += size
		payload = append(payload, raw.Data()...)
	}

	headerJSON, err := json.Marshal(header)
	if err != nil {
		return fmt.Errorf("failed to marshal header: %w", err)
	}

	flags := uint32(0)
	if len(header.Metadata) > 0 {
		flags |= FlagHasMetadata
	}
	if header.CheckpointMeta != nil && header.CheckpointMeta.IsCheckpoint {
		flags |= FlagHasOptimizer
	}

	fixed := make([]byte, FixedHeaderSize)
	copy(fixed[0:8], MagicBytes)
	binary.LittleEndian.PutUint32(fixed[8:12], uint32(FormatVersion))
	binary.LittleEndian.PutUint32(fixed[12:16], flags)
	binary.LittleEndian.PutUint64(fixed[16:24], uint64(len(headerJSON)))
	binary.LittleEndian.PutUint64(fixed[24:32], uint64(len(payload)))
	binary.LittleEndian.PutUint32(fixed[ChecksumOffset:ChecksumOffset+4], crc32.ChecksumIEEE(payload))

	if _, err := w.file.Write(fixed); err != nil {
		return fmt.Errorf("failed to write fixed header: %w", err)
	}

	if _, err := w.file.Write(headerJSON); err != nil {
		return fmt.Errorf("failed to write header JSON: %w", err)
	}

	// Pad so the data section starts on a HeaderAlignment boundary.
	currentPos := int64(FixedHeaderSize) + int64(len(headerJSON))
	padding := (HeaderAlignment - (currentPos % HeaderAlignment)) % HeaderAlignment
	if padding > 0 {
		if _, err := w.file.Write(make([]byte, padding)); err != nil {
			return fmt.Errorf("failed to write padding: %w", err)
		}
	}

	if _, err := w.file.Write(payload); err != nil {
		return fmt.Errorf("failed to write tensor data: %w", err)
	}

	return nil
}

// Close releases the file handle. Calling it twice is a no-op.
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	return w.file.Close()
}
