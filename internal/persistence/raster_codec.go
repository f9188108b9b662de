package persistence

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/golang/snappy"
	lru "github.com/hashicorp/golang-lru/v2"

	"spatialcore/internal/storage/core"
	"spatialcore/pkg/raster"
)

// chunkEdge caps the extent of a raster chunk along every dimension.
// Small enough that partial reads stay cheap, large enough that chunk
// counts stay low for typical microscopy tiles.
const chunkEdge = 64

// chunkCacheSize bounds the number of decoded chunks a lazy array keeps.
const chunkCacheSize = 32

// chunkShapeFor clamps the array shape to the chunk edge per dimension.
func chunkShapeFor(shape []int) []int {
	chunks := make([]int, len(shape))
	for i, n := range shape {
		if n > chunkEdge {
			chunks[i] = chunkEdge
		} else {
			chunks[i] = n
		}
	}
	return chunks
}

// chunkGrid returns the number of chunks along every dimension.
func chunkGrid(shape, chunks []int) []int {
	grid := make([]int, len(shape))
	for i := range shape {
		grid[i] = (shape[i] + chunks[i] - 1) / chunks[i]
	}
	return grid
}

// chunkName renders a grid coordinate as the dot-separated chunk key
// segment, e.g. "0.2.1".
func chunkName(cell []int) string {
	parts := make([]string, len(cell))
	for i, c := range cell {
		parts[i] = strconv.Itoa(c)
	}
	return strings.Join(parts, ".")
}

// chunkKeys enumerates every chunk key segment for a shape, in grid
// iteration order.
func chunkKeys(shape, chunks []int) []string {
	grid := chunkGrid(shape, chunks)
	cell := make([]int, len(grid))
	var out []string
	for {
		out = append(out, chunkName(cell))
		if !raster.Increment(cell, grid) {
			return out
		}
	}
}

// chunkWindow returns the [lo, hi) index window of one grid cell.
func chunkWindow(cell, shape, chunks []int) (lo, hi []int) {
	lo = make([]int, len(cell))
	hi = make([]int, len(cell))
	for i := range cell {
		lo[i] = cell[i] * chunks[i]
		hi[i] = lo[i] + chunks[i]
		if hi[i] > shape[i] {
			hi[i] = shape[i]
		}
	}
	return lo, hi
}

// writeRasterChunks splits a materialized array into snappy-compressed
// chunks under <base>/chunks/.
func writeRasterChunks(ctx context.Context, store core.Store, base string, arr *raster.Dense, chunks []int) error {
	shape := arr.Shape()
	grid := chunkGrid(shape, chunks)
	cell := make([]int, len(grid))
	for {
		lo, hi := chunkWindow(cell, shape, chunks)
		part, err := arr.Crop(lo, hi)
		if err != nil {
			return err
		}
		key := joinKey(base, chunksGroup, chunkName(cell))
		if _, err := store.Put(ctx, key, snappy.Encode(nil, part.Bytes())); err != nil {
			return fmt.Errorf("write chunk %s: %w", key, err)
		}
		if !raster.Increment(cell, grid) {
			return nil
		}
	}
}

// lazyArray is a store-backed raster payload. Structural metadata comes
// from the element document; chunk bytes are fetched and decoded only
// on Materialize, through a bounded LRU of decoded chunks.
type lazyArray struct {
	store  core.Store
	base   string
	dtype  raster.DType
	shape  []int
	chunks []int
	cache  *lru.Cache[string, *raster.Dense]
}

var _ raster.Array = (*lazyArray)(nil)

func newLazyArray(store core.Store, base string, dtype raster.DType, shape, chunks []int) (*lazyArray, error) {
	cache, err := lru.New[string, *raster.Dense](chunkCacheSize)
	if err != nil {
		return nil, err
	}
	return &lazyArray{
		store:  store,
		base:   base,
		dtype:  dtype,
		shape:  append([]int(nil), shape...),
		chunks: append([]int(nil), chunks...),
		cache:  cache,
	}, nil
}

func (a *lazyArray) DType() raster.DType { return a.dtype }

func (a *lazyArray) Shape() []int { return append([]int(nil), a.shape...) }

func (a *lazyArray) SizeBytes() uint64 {
	n := uint64(a.dtype.Size())
	for _, d := range a.shape {
		n *= uint64(d)
	}
	return n
}

// loadChunk fetches and decodes one chunk, consulting the cache first.
func (a *lazyArray) loadChunk(ctx context.Context, cell []int) (*raster.Dense, error) {
	name := chunkName(cell)
	if part, ok := a.cache.Get(name); ok {
		return part, nil
	}
	key := joinKey(a.base, chunksGroup, name)
	compressed, err := a.store.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("chunk %s: %w", name, err)
	}
	data, err := snappy.Decode(nil, compressed)
	if err != nil {
		return nil, fmt.Errorf("chunk %s: %w", name, err)
	}
	lo, hi := chunkWindow(cell, a.shape, a.chunks)
	partShape := make([]int, len(lo))
	for i := range lo {
		partShape[i] = hi[i] - lo[i]
	}
	part, err := raster.FromBytes(a.dtype, partShape, data)
	if err != nil {
		return nil, fmt.Errorf("chunk %s: %w", name, err)
	}
	a.cache.Add(name, part)
	return part, nil
}

// Materialize assembles the full array from its chunks.
func (a *lazyArray) Materialize(ctx context.Context) (*raster.Dense, error) {
	dst, err := raster.NewDense(a.dtype, a.shape)
	if err != nil {
		return nil, err
	}
	grid := chunkGrid(a.shape, a.chunks)
	cell := make([]int, len(grid))
	for {
		part, err := a.loadChunk(ctx, cell)
		if err != nil {
			return nil, err
		}
		lo, _ := chunkWindow(cell, a.shape, a.chunks)
		partShape := part.Shape()
		idx := make([]int, len(partShape))
		at := make([]int, len(partShape))
		for {
			v, err := part.At(idx...)
			if err != nil {
				return nil, err
			}
			for i := range idx {
				at[i] = lo[i] + idx[i]
			}
			if err := dst.Set(v, at...); err != nil {
				return nil, err
			}
			if !raster.Increment(idx, partShape) {
				break
			}
		}
		if !raster.Increment(cell, grid) {
			return dst, nil
		}
	}
}
