package ctph

import (
	"io"
	"strconv"
)

// blockHashState is a single FNV-style piecewise block hash (C2), seeded
// with hashInit and updated per byte as h = ((h*hashPrime) & 0xFFFFFFFF) ^ b.
// uint32 arithmetic gives the mask for free.
type blockHashState uint32

func (h blockHashState) update(b byte) blockHashState {
	return blockHashState(uint32(h)*hashPrime) ^ blockHashState(b)
}

// digestState holds everything the block-size retry loop resets on every
// attempt: the rolling window, the two block hashes, and the two output
// strings.
type digestState struct {
	roll      rollState
	bh1, bh2  blockHashState
	s1, s2    []byte
	blockSize uint32
	lastTrig  uint32 // last rolling trigger value seen; 0 when no bytes were fed (see finish)
}

func newDigestState(blockSize uint32) *digestState {
	return &digestState{
		blockSize: blockSize,
		bh1:       hashInit,
		bh2:       hashInit,
		s1:        make([]byte, 0, spamSumLength),
		s2:        make([]byte, 0, spamSumLength/2),
	}
}

func (d *digestState) feedByte(b byte) {
	d.bh1 = d.bh1.update(b)
	d.bh2 = d.bh2.update(b)

	r := d.roll.feed(b)
	d.lastTrig = r

	bs1 := d.blockSize
	bs2 := bs1 * 2

	if r%bs1 == bs1-1 {
		if len(d.s1) < spamSumLength-1 {
			d.s1 = append(d.s1, base64Chars[uint32(d.bh1)%64])
			d.bh1 = hashInit
		}
		if r%bs2 == bs2-1 {
			if len(d.s2) < spamSumLength/2-1 {
				d.s2 = append(d.s2, base64Chars[uint32(d.bh2)%64])
				d.bh2 = hashInit
			}
		}
	}
}

// finish appends the trailing characters (if any bytes were ever fed) and
// renders the "<blocksize>:<s1>:<s2>" digest. If the very last rolling
// trigger value happens to be zero, the tail characters are dropped even
// though the input was non-empty: lastTrig is zero both for empty input
// and, rarely, for non-empty input whose last byte drives the rolling sum
// back to zero, and this is canonical ssdeep behavior, not a bug introduced
// here.
func (d *digestState) finish() string {
	if d.lastTrig != 0 {
		d.s1 = append(d.s1, base64Chars[uint32(d.bh1)%64])
		d.s2 = append(d.s2, base64Chars[uint32(d.bh2)%64])
	}

	out := make([]byte, 0, len(d.s1)+len(d.s2)+16)
	out = strconv.AppendUint(out, uint64(d.blockSize), 10)
	out = append(out, ':')
	out = append(out, d.s1...)
	out = append(out, ':')
	out = append(out, d.s2...)
	return string(out)
}

// ErrInvalidBlockSize surfaces only if the retry loop's halving ever drives
// the block size below blockSizeMin, which should be unreachable for any
// valid input; it is a defensive guard, not a recoverable condition.

// computeDigest runs the adaptive block-size retry loop over a seekable
// input of known length, rewinding to offset zero on every retry.
func computeDigest(r io.ReadSeeker, size int64, noRetry bool) (string, error) {
	blockSize := estimateBlockSize(size)
	buf := make([]byte, 8192)

	for {
		if blockSize < blockSizeMin {
			return "", ErrInvalidBlockSize
		}

		if _, err := r.Seek(0, io.SeekStart); err != nil {
			return "", err
		}

		state := newDigestState(blockSize)
		for {
			n, err := r.Read(buf)
			if n > 0 {
				for _, b := range buf[:n] {
					state.feedByte(b)
				}
			}
			if err != nil {
				if err == io.EOF {
					break
				}
				return "", err
			}
		}

		if !noRetry && blockSize > blockSizeMin && len(state.s1) < spamSumLength/2 {
			blockSize /= 2
			continue
		}

		return state.finish(), nil
	}
}
