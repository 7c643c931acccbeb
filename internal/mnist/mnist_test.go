package mnist_test

import (
	"encoding/binary"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loom-ml/loom/internal/backend/cpu"
	"github.com/loom-ml/loom/internal/mnist"
	"github.com/loom-ml/loom/internal/tensor"
)

// encodeIDXImages builds an IDX image file in memory.
func encodeIDXImages(images [][]byte, rows, cols int) []byte {
	buf := make([]byte, 16)
	binary.BigEndian.PutUint32(buf[0:], 2051)
	binary.BigEndian.PutUint32(buf[4:], uint32(len(images)))
	binary.BigEndian.PutUint32(buf[8:], uint32(rows))
	binary.BigEndian.PutUint32(buf[12:], uint32(cols))
	for _, img := range images {
		buf = append(buf, img...)
	}
	return buf
}

// encodeIDXLabels builds an IDX label file in memory.
func encodeIDXLabels(labels []byte) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint32(buf[0:], 2049)
	binary.BigEndian.PutUint32(buf[4:], uint32(len(labels)))
	return append(buf, labels...)
}

// writeTrainingFiles writes a synthetic training set into dir, optionally
// gzip-compressed.
func writeTrainingFiles(t *testing.T, dir string, images [][]byte, labels []byte, rows, cols int, gzipped bool) {
	t.Helper()
	files := map[string][]byte{
		mnist.TrainImagesFile: encodeIDXImages(images, rows, cols),
		mnist.TrainLabelsFile: encodeIDXLabels(labels),
	}
	for name, data := range files {
		path := filepath.Join(dir, name)
		if gzipped {
			f, err := os.Create(path + ".gz")
			require.NoError(t, err)
			gz := gzip.NewWriter(f)
			_, err = gz.Write(data)
			require.NoError(t, err)
			require.NoError(t, gz.Close())
			require.NoError(t, f.Close())
		} else {
			require.NoError(t, os.WriteFile(path, data, 0o644))
		}
	}
}

// syntheticSet builds n tiny rows x cols images with label i%10 and first
// pixel value i, so each sample is identifiable after shuffling.
func syntheticSet(n, rows, cols int) ([][]byte, []byte) {
	images := make([][]byte, n)
	labels := make([]byte, n)
	for i := range images {
		img := make([]byte, rows*cols)
		img[0] = byte(i)
		images[i] = img
		labels[i] = byte(i % 10)
	}
	return images, labels
}

// TestLoadTraining tests IDX decoding and normalization.
func TestLoadTraining(t *testing.T) {
	dir := t.TempDir()
	images := [][]byte{
		{0, 255, 128, 64},
		{10, 20, 30, 40},
	}
	writeTrainingFiles(t, dir, images, []byte{3, 7}, 2, 2, false)

	ds, err := mnist.LoadTraining(dir)
	require.NoError(t, err)

	assert.Equal(t, 2, ds.NumSamples())
	assert.Equal(t, 2, ds.Rows())
	assert.Equal(t, 2, ds.Cols())
	assert.Equal(t, int32(3), ds.Label(0))
	assert.Equal(t, int32(7), ds.Label(1))

	// (p/255 - 0.5) / 0.5: pixel 0 maps to -1, 255 to 1, 128 to ~0.00392.
	img := ds.Image(0)
	wants := []float32{-1, 1, 0.00392, -0.49804}
	for i, want := range wants {
		assert.InDelta(t, want, img[i], 1e-4, "Image(0)[%d]", i)
	}
}

// TestLoadTraining_Gzip tests the compressed-file fallback.
func TestLoadTraining_Gzip(t *testing.T) {
	dir := t.TempDir()
	images, labels := syntheticSet(5, 2, 2)
	writeTrainingFiles(t, dir, images, labels, 2, 2, true)

	ds, err := mnist.LoadTraining(dir)
	require.NoError(t, err, "LoadTraining should fall back to .gz files")
	assert.Equal(t, 5, ds.NumSamples())
}

// TestLoad_Errors tests the IDX failure modes.
func TestLoad_Errors(t *testing.T) {
	t.Run("missing files", func(t *testing.T) {
		_, err := mnist.LoadTraining(t.TempDir())
		assert.Error(t, err)
	})

	t.Run("bad magic", func(t *testing.T) {
		dir := t.TempDir()
		images, labels := syntheticSet(2, 2, 2)
		writeTrainingFiles(t, dir, images, labels, 2, 2, false)

		data, err := os.ReadFile(filepath.Join(dir, mnist.TrainImagesFile))
		require.NoError(t, err)
		binary.BigEndian.PutUint32(data[0:], 9999)
		require.NoError(t, os.WriteFile(filepath.Join(dir, mnist.TrainImagesFile), data, 0o644))

		_, err = mnist.LoadTraining(dir)
		assert.Error(t, err)
	})

	t.Run("count mismatch", func(t *testing.T) {
		dir := t.TempDir()
		images, _ := syntheticSet(3, 2, 2)
		writeTrainingFiles(t, dir, images, []byte{1, 2}, 2, 2, false)

		_, err := mnist.LoadTraining(dir)
		assert.Error(t, err)
	})

	t.Run("truncated pixels", func(t *testing.T) {
		dir := t.TempDir()
		images, labels := syntheticSet(2, 2, 2)
		writeTrainingFiles(t, dir, images, labels, 2, 2, false)

		require.NoError(t, os.Truncate(filepath.Join(dir, mnist.TrainImagesFile), 18))

		_, err := mnist.LoadTraining(dir)
		assert.Error(t, err)
	})
}

// TestDataset_Split tests the random train/validation partition.
func TestDataset_Split(t *testing.T) {
	images := make([]float32, 12*4)
	labels := make([]int32, 12)
	for i := range labels {
		labels[i] = int32(i)
	}
	ds, err := mnist.NewDataset(images, labels, 2, 2)
	require.NoError(t, err)

	train, val, err := ds.Split(5.0/6.0, rand.New(rand.NewSource(42)))
	require.NoError(t, err)
	assert.Equal(t, 10, train.NumSamples())
	assert.Equal(t, 2, val.NumSamples())

	// Together the subsets must cover every sample exactly once.
	seen := make(map[int32]int)
	for i := 0; i < train.NumSamples(); i++ {
		seen[train.Label(i)]++
	}
	for i := 0; i < val.NumSamples(); i++ {
		seen[val.Label(i)]++
	}
	assert.Len(t, seen, 12)
	for label, count := range seen {
		assert.Equal(t, 1, count, "sample %d", label)
	}

	for _, ratio := range []float64{0, 1, -0.5, 1.5} {
		_, _, err := ds.Split(ratio, rand.New(rand.NewSource(1)))
		assert.Error(t, err, "ratio %f", ratio)
	}
}

// TestNewDataset_Validation tests constructor checks.
func TestNewDataset_Validation(t *testing.T) {
	_, err := mnist.NewDataset(make([]float32, 7), make([]int32, 2), 2, 2)
	assert.Error(t, err, "mismatched image data length")

	_, err = mnist.NewDataset(nil, nil, 0, 2)
	assert.Error(t, err, "zero rows")
}

func testDataset(t *testing.T, n int) *mnist.Dataset {
	t.Helper()
	images := make([]float32, n*4)
	labels := make([]int32, n)
	for i := range labels {
		images[i*4] = float32(i)
		labels[i] = int32(i)
	}
	ds, err := mnist.NewDataset(images, labels, 2, 2)
	require.NoError(t, err)
	return ds
}

// TestLoader_Errors tests loader constructor validation.
func TestLoader_Errors(t *testing.T) {
	backend := cpu.New()

	empty, err := mnist.NewDataset(nil, nil, 2, 2)
	require.NoError(t, err)
	_, err = mnist.NewLoader(empty, backend, mnist.LoaderConfig{BatchSize: 4})
	assert.Error(t, err, "empty dataset")

	ds := testDataset(t, 4)
	_, err = mnist.NewLoader(ds, backend, mnist.LoaderConfig{BatchSize: 0})
	assert.Error(t, err, "zero batch size")
	_, err = mnist.NewLoader(ds, backend, mnist.LoaderConfig{BatchSize: 2, NumWorkers: -1})
	assert.Error(t, err, "negative worker count")
}

// TestLoader_Batches tests batch shapes and the partial final batch.
func TestLoader_Batches(t *testing.T) {
	backend := cpu.New()
	ds := testDataset(t, 10)

	loader, err := mnist.NewLoader(ds, backend, mnist.LoaderConfig{BatchSize: 4})
	require.NoError(t, err)
	assert.Equal(t, 10, loader.NumSamples())
	assert.Equal(t, 3, loader.NumBatches())

	var batches []*mnist.Batch[*cpu.CPUBackend]
	for batch := range loader.Batches() {
		batches = append(batches, batch)
	}
	require.Len(t, batches, 3)

	wantSizes := []int{4, 4, 2}
	for i, batch := range batches {
		assert.Equal(t, wantSizes[i], batch.Size, "batch %d", i)
		assert.Equal(t, tensor.Shape{wantSizes[i], 2, 2}, batch.Images.Shape(), "batch %d images", i)
		assert.Equal(t, tensor.Shape{wantSizes[i]}, batch.Labels.Shape(), "batch %d labels", i)
	}

	// Without shuffling, samples arrive in dataset order and each image
	// travels with its own label.
	next := int32(0)
	for _, batch := range batches {
		labels := batch.Labels.Raw().AsInt32()
		images := batch.Images.Raw().AsFloat32()
		for i, label := range labels {
			require.Equal(t, next, label)
			assert.Equal(t, float32(label), images[i*4], "image/label pairing for sample %d", label)
			next++
		}
	}
}

// epochLabels drains one epoch and returns the label sequence.
func epochLabels(t *testing.T, loader *mnist.Loader[*cpu.CPUBackend]) []int32 {
	t.Helper()
	var labels []int32
	for batch := range loader.Batches() {
		labels = append(labels, batch.Labels.Raw().AsInt32()...)
	}
	return labels
}

// TestLoader_Shuffle tests per-epoch reshuffling with full coverage.
func TestLoader_Shuffle(t *testing.T) {
	backend := cpu.New()
	ds := testDataset(t, 64)

	loader, err := mnist.NewLoader(ds, backend, mnist.LoaderConfig{
		BatchSize: 8,
		Shuffle:   true,
		Seed:      42,
	})
	require.NoError(t, err)

	first := epochLabels(t, loader)
	second := epochLabels(t, loader)

	identity, sameOrder := true, true
	seen := make(map[int32]bool)
	for i := range first {
		if first[i] != int32(i) {
			identity = false
		}
		if first[i] != second[i] {
			sameOrder = false
		}
		seen[first[i]] = true
	}
	assert.Len(t, seen, 64, "epoch must cover every sample")
	assert.False(t, identity, "shuffled epoch returned identity order")
	assert.False(t, sameOrder, "consecutive epochs used the same order")
}

// TestLoader_Workers tests that the prefetching pool preserves order and
// coverage.
func TestLoader_Workers(t *testing.T) {
	backend := cpu.New()
	ds := testDataset(t, 30)

	inline, err := mnist.NewLoader(ds, backend, mnist.LoaderConfig{BatchSize: 7})
	require.NoError(t, err)
	pooled, err := mnist.NewLoader(ds, backend, mnist.LoaderConfig{
		BatchSize:  7,
		NumWorkers: 4,
		PinMemory:  true,
	})
	require.NoError(t, err)

	want := epochLabels(t, inline)
	got := epochLabels(t, pooled)
	require.Len(t, got, len(want))
	for i := range want {
		require.Equal(t, want[i], got[i], "pooled order diverges at %d", i)
	}
}
