package scanner

import "fmt"

// BlockRange is an inclusive range of block numbers, or of sample indices
// when the scanner batches sampled blocks.
type BlockRange struct {
	From uint64
	To   uint64
}

// SplitRange cuts [from, to] into consecutive inclusive ranges holding at
// most batchSize values each.
func SplitRange(from, to, batchSize uint64) ([]BlockRange, error) {
	if batchSize == 0 {
		return nil, fmt.Errorf("batch size must be greater than zero")
	}
	if to < from {
		return nil, fmt.Errorf("to block must be >= from block")
	}

	ranges := make([]BlockRange, 0)
	start := from
	for start <= to {
		remaining := to - start + 1
		var end uint64
		if remaining <= batchSize {
			end = to
		} else {
			end = start + batchSize - 1
		}
		ranges = append(ranges, BlockRange{From: start, To: end})
		if end == to {
			break
		}
		start = end + 1
	}

	return ranges, nil
}

// SampleBlocks returns from, from+step, ... up to and including to. The last
// block is always included so a scan ends on the requested height.
func SampleBlocks(r BlockRange, step uint64) ([]uint64, error) {
	if step == 0 {
		return nil, fmt.Errorf("step must be greater than zero")
	}
	if r.To < r.From {
		return nil, fmt.Errorf("to block must be >= from block")
	}

	blocks := make([]uint64, 0, (r.To-r.From)/step+1)
	for b := r.From; b <= r.To; b += step {
		blocks = append(blocks, b)
		if r.To-b < step {
			break
		}
	}
	if blocks[len(blocks)-1] != r.To {
		blocks = append(blocks, r.To)
	}
	return blocks, nil
}
