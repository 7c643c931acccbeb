package mnist

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/gzip"
)

// IDX magic numbers: 0x00000803 for image files, 0x00000801 for labels.
const (
	imagesMagic = 2051
	labelsMagic = 2049
)

// openIDX opens an IDX file, falling back to a gzip-compressed sibling when
// the plain file does not exist. The official distribution ships the files
// gzipped, so both layouts are accepted.
func openIDX(path string) (io.ReadCloser, error) {
	file, err := os.Open(path)
	if err == nil {
		return file, nil
	}
	if !os.IsNotExist(err) {
		return nil, err
	}

	file, gzErr := os.Open(path + ".gz")
	if gzErr != nil {
		return nil, err
	}
	gz, gzErr := gzip.NewReader(file)
	if gzErr != nil {
		file.Close()
		return nil, fmt.Errorf("failed to open %s.gz: %w", path, gzErr)
	}
	return &gzipFile{gz: gz, file: file}, nil
}

// gzipFile closes both the decompressor and the underlying file.
type gzipFile struct {
	gz   *gzip.Reader
	file *os.File
}

func (g *gzipFile) Read(p []byte) (int, error) { return g.gz.Read(p) }

func (g *gzipFile) Close() error {
	gzErr := g.gz.Close()
	if err := g.file.Close(); err != nil {
		return err
	}
	return gzErr
}

// readIDXImages reads an MNIST image file in IDX format.
//
// Layout:
//
//	magic number: 0x00000803 (2051)
//	number of images: 4 bytes
//	number of rows: 4 bytes (28)
//	number of cols: 4 bytes (28)
//	pixel data: unsigned bytes (0-255)
func readIDXImages(path string) (pixels []byte, rows, cols int, err error) {
	file, err := openIDX(path)
	if err != nil {
		return nil, 0, 0, err
	}
	defer file.Close()

	var magic uint32
	if err := binary.Read(file, binary.BigEndian, &magic); err != nil {
		return nil, 0, 0, fmt.Errorf("failed to read magic: %w", err)
	}
	if magic != imagesMagic {
		return nil, 0, 0, fmt.Errorf("invalid magic number: got %d, want %d", magic, imagesMagic)
	}

	var numImages, numRows, numCols uint32
	if err := binary.Read(file, binary.BigEndian, &numImages); err != nil {
		return nil, 0, 0, fmt.Errorf("failed to read image count: %w", err)
	}
	if err := binary.Read(file, binary.BigEndian, &numRows); err != nil {
		return nil, 0, 0, fmt.Errorf("failed to read row count: %w", err)
	}
	if err := binary.Read(file, binary.BigEndian, &numCols); err != nil {
		return nil, 0, 0, fmt.Errorf("failed to read column count: %w", err)
	}
	if numRows == 0 || numCols == 0 {
		return nil, 0, 0, fmt.Errorf("invalid image dimensions %dx%d", numRows, numCols)
	}

	pixels = make([]byte, int(numImages)*int(numRows)*int(numCols))
	if _, err := io.ReadFull(file, pixels); err != nil {
		return nil, 0, 0, fmt.Errorf("failed to read pixel data: %w", err)
	}
	return pixels, int(numRows), int(numCols), nil
}

// readIDXLabels reads an MNIST label file in IDX format.
//
// Layout:
//
//	magic number: 0x00000801 (2049)
//	number of labels: 4 bytes
//	label data: unsigned bytes (0-9)
func readIDXLabels(path string) ([]byte, error) {
	file, err := openIDX(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var magic uint32
	if err := binary.Read(file, binary.BigEndian, &magic); err != nil {
		return nil, fmt.Errorf("failed to read magic: %w", err)
	}
	if magic != labelsMagic {
		return nil, fmt.Errorf("invalid magic number: got %d, want %d", magic, labelsMagic)
	}

	var numLabels uint32
	if err := binary.Read(file, binary.BigEndian, &numLabels); err != nil {
		return nil, fmt.Errorf("failed to read label count: %w", err)
	}

	labels := make([]byte, numLabels)
	if _, err := io.ReadFull(file, labels); err != nil {
		return nil, fmt.Errorf("failed to read label data: %w", err)
	}
	return labels, nil
}
