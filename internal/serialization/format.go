// Package serialization implements the .loom binary container for model
// state dictionaries and training checkpoints.
//
// A .loom file has a fixed 64-byte header, a JSON metadata block and an
// aligned data section holding the raw tensor buffers back to back:
//
//	0x00-0x07  magic "LOOM0001"
//	0x08-0x0B  format version (uint32, little endian)
//	0x0C-0x0F  flags (uint32, little endian)
//	0x10-0x17  JSON header size in bytes (uint64, little endian)
//	0x18-0x1F  data section size in bytes (uint64, little endian)
//	0x20-0x23  CRC-32 (IEEE) of the data section (uint32, little endian)
//	0x24-0x3F  reserved, zero
//
// The JSON header lists every tensor with its name, dtype, shape and offset
// into the data section, so a reader can locate any tensor without scanning
// the payload. Checkpoint files additionally carry a CheckpointMeta block
// with the training epoch and loss at save time.
package serialization

import (
	"time"

	"github.com/loom-ml/loom/internal/tensor"
)

const (
	// MagicBytes identifies a .loom file. The trailing digits are the
	// on-disk generation and change only on incompatible layout changes.
	MagicBytes = "LOOM0001"

	// FormatVersion is the current container version.
	FormatVersion = 1

	// FixedHeaderSize is the size of the fixed header in bytes.
	FixedHeaderSize = 64

	// HeaderAlignment is the byte alignment of the data section.
	HeaderAlignment = 64

	// ChecksumOffset is the byte offset of the CRC-32 field in the fixed header.
	ChecksumOffset = 0x20
)

// Header flags.
const (
	FlagHasMetadata  uint32 = 1 << 0
	FlagHasOptimizer uint32 = 1 << 1
)

// Validation limits for untrusted input.
const (
	MaxHeaderSize    = 100 * 1024 * 1024
	MaxTensorCount   = 100_000
	MaxTensorNameLen = 4096
)

// Header is the JSON metadata block of a .loom file.
type Header struct {
	FormatVersion  int               `json:"format_version"`       // Container version
	LoomVersion    string            `json:"loom_version"`         // Version of loom that wrote the file
	ModelType      string            `json:"model_type"`           // Model type (e.g. "LSTMClassifier")
	CreatedAt      time.Time         `json:"created_at"`           // When the file was written
	Tensors        []TensorMeta      `json:"tensors"`              // Tensor metadata
	Metadata       map[string]string `json:"metadata"`             // Custom metadata
	CheckpointMeta *CheckpointMeta   `json:"checkpoint,omitempty"` // Checkpoint metadata (optional)
}

// CheckpointMeta describes the training state a checkpoint was taken at.
type CheckpointMeta struct {
	IsCheckpoint  bool              `json:"is_checkpoint"`           // Whether this file is a training snapshot
	Epoch         int               `json:"epoch"`                   // Epoch the checkpoint was taken at
	Step          int64             `json:"step"`                    // Optimizer step count
	Loss          float64           `json:"loss"`                    // Validation loss at save time
	OptimizerType string            `json:"optimizer_type"`          // Optimizer type (e.g. "Adam")
	TrainingMeta  map[string]string `json:"training_meta,omitempty"` // Additional training metadata
}

// TensorMeta describes a single tensor in the data section.
type TensorMeta struct {
	Name   string `json:"name"`   // Parameter name (e.g. "lstm.weight_ih_l0")
	DType  string `json:"dtype"`  // Element type ("float32" or "int32")
	Shape  []int  `json:"shape"`  // Tensor shape
	Offset int64  `json:"offset"` // Byte offset from the start of the data section
	Size   int64  `json:"size"`   // Size in bytes
}

// dtypeToString maps a DataType to its on-disk name.
func dtypeToString(dt tensor.DataType) string {
	return dt.String()
}

// stringToDtype maps an on-disk dtype name back to a DataType.
func stringToDtype(s string) (tensor.DataType, bool) {
	switch s {
	case "float32":
		return tensor.Float32, true
	case "int32":
		return tensor.Int32, true
	default:
		return 0, false
	}
}
