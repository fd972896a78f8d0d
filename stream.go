package ctph

import (
	"bytes"
	"errors"
	"io"
	"os"
	"syscall"

	"golang.org/x/sys/unix"
)

const (
	defaultCachedSize = 4 << 20
	minCachedSize     = 128 << 10
)

// hashOptions holds the functional-options state for HashStream.
type hashOptions struct {
	size       int64
	cachedSize int64
	cleanup    bool
	noRetry    bool
}

// Option configures HashStream.
type Option interface {
	apply(*hashOptions)
}

type sizeOption int64

func (o sizeOption) apply(h *hashOptions) {
	if o > 0 {
		h.size = int64(o)
	}
}

// WithFixedSize tells HashStream the exact input size up front, so a seekable
// reader is hashed without the Stat or Seek size lookup. Non-seekable readers
// are still cached in full and hashed with the cached length.
func WithFixedSize(size int64) Option {
	return sizeOption(size)
}

type cachedSizeOption int64

func (o cachedSizeOption) apply(h *hashOptions) {
	if o > blockSizeMin {
		h.cachedSize = int64(o)
	}
}

// WithCachedSize caps how much of a non-seekable stream is buffered in
// memory before HashStream spills the rest to a temporary file.
func WithCachedSize(size int64) Option {
	return cachedSizeOption(size)
}

type cleanupOption bool

func (o cleanupOption) apply(h *hashOptions) { h.cleanup = bool(o) }

// WithCleanup asks HashStream to evict the spill file's pages from the
// kernel's cache once hashing is done, via unix.Fadvise.
func WithCleanup() Option {
	return cleanupOption(true)
}

type noRetryOption bool

func (o noRetryOption) apply(h *hashOptions) { h.noRetry = bool(o) }

// WithNoRetry disables the adaptive block-size retry loop, accepting
// whatever digest the initial block-size estimate produces. Useful for bulk
// corpus scans where the caller has already validated that sizes in their
// corpus don't trigger the halving path.
func WithNoRetry() Option {
	return noRetryOption(true)
}

// Hash computes a ctph digest for data, which must be []byte or string.
// Anything else is ErrTypeMismatch.
func Hash(data any) (string, error) {
	switch v := data.(type) {
	case []byte:
		return HashBytes(v)
	case string:
		return HashString(v)
	default:
		return "", ErrTypeMismatch
	}
}

// HashBytes computes a ctph digest for an in-memory byte slice.
func HashBytes(data []byte) (string, error) {
	return computeDigest(bytes.NewReader(data), int64(len(data)), false)
}

// HashString computes a ctph digest for UTF-8 text, encoding it to bytes
// first. HashString(s) always equals HashBytes([]byte(s)).
func HashString(s string) (string, error) {
	return HashBytes([]byte(s))
}

// HashFromFile computes a ctph digest for the file at path.
func HashFromFile(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", ErrNotFound
		}
		return "", err
	}
	if !info.Mode().IsRegular() {
		return "", ErrNotFound
	}

	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrPermission) {
			return "", ErrAccessDenied
		}
		return "", err
	}
	defer f.Close()

	return computeDigest(f, info.Size(), false)
}

// statReader is satisfied by *os.File and lets HashStream learn a seekable
// reader's size without a seek round-trip.
type statReader interface {
	io.Reader
	Stat() (os.FileInfo, error)
}

// HashStream computes a ctph digest from an io.Reader. Seekable readers
// (files, bytes.Reader) are hashed directly; non-seekable readers are first
// cached to memory (or, past cachedSize, a temporary file) so the
// block-size retry loop can rewind.
func HashStream(r io.Reader, options ...Option) (string, error) {
	opts := hashOptions{size: -1, cachedSize: defaultCachedSize}
	for _, o := range options {
		o.apply(&opts)
	}

	rs, seekable := r.(io.ReadSeeker)

	if opts.size <= 0 {
		if sr, ok := r.(statReader); ok {
			info, err := sr.Stat()
			if err != nil {
				return "", err
			}
			opts.size = info.Size()
		} else if seekable {
			end, err := rs.Seek(0, io.SeekEnd)
			if err != nil {
				return "", err
			}
			if _, err := rs.Seek(0, io.SeekStart); err != nil {
				return "", err
			}
			opts.size = end
		}
	}

	if seekable && opts.size >= 0 {
		return computeDigest(rs, opts.size, opts.noRetry)
	}

	cache := newStreamCache(r, opts.cachedSize, opts.cleanup)
	defer cache.Close()

	if err := cache.readAll(); err != nil {
		return "", err
	}

	return computeDigest(cache, cache.size, opts.noRetry)
}

// streamCache buffers a non-seekable io.Reader in memory, spilling to a
// temporary file once it grows past cachedSize, so computeDigest's retry
// loop can seek back to offset zero. It satisfies io.ReadSeeker directly.
type streamCache struct {
	r          io.Reader
	cached     []byte
	file       *os.File
	cachedSize int64
	size       int64
	offset     int64
	cleanup    bool
}

func newStreamCache(r io.Reader, cachedSize int64, cleanup bool) *streamCache {
	if cachedSize < minCachedSize {
		cachedSize = minCachedSize
	}
	return &streamCache{r: r, cachedSize: cachedSize, cleanup: cleanup}
}

func (c *streamCache) readAll() error {
	c.cached = make([]byte, 0, minCachedSize)
	buf := make([]byte, 32*1024)

	for {
		n, err := c.r.Read(buf)
		if n > 0 {
			c.size += int64(n)
			if c.file == nil && c.size > c.cachedSize {
				if swErr := c.switchToFile(); swErr != nil {
					return swErr
				}
			}
			if c.file != nil {
				if _, werr := c.file.Write(buf[:n]); werr != nil {
					return werr
				}
			} else {
				c.cached = append(c.cached, buf[:n]...)
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
	}
}

func (c *streamCache) switchToFile() error {
	file, err := os.CreateTemp("", "ctph-*")
	if err != nil {
		return err
	}
	c.file = file
	if len(c.cached) > 0 {
		if _, err := c.file.Write(c.cached); err != nil {
			c.file.Close()
			os.Remove(c.file.Name())
			return err
		}
		c.cached = nil
	}
	return nil
}

// Seek only needs to support rewinding to offset zero - the only seek
// computeDigest ever performs - but implements the full io.Seeker contract
// for interface compatibility.
func (c *streamCache) Seek(offset int64, whence int) (int64, error) {
	var target int64
	switch whence {
	case io.SeekStart:
		target = offset
	case io.SeekCurrent:
		target = c.offset + offset
	case io.SeekEnd:
		target = c.size + offset
	}

	if c.file != nil {
		n, err := c.file.Seek(target, io.SeekStart)
		c.offset = n
		return n, err
	}
	c.offset = target
	return target, nil
}

func (c *streamCache) Read(p []byte) (int, error) {
	if c.file != nil {
		n, err := c.file.Read(p)
		c.offset += int64(n)
		return n, err
	}
	if c.offset >= int64(len(c.cached)) {
		return 0, io.EOF
	}
	n := copy(p, c.cached[c.offset:])
	c.offset += int64(n)
	return n, nil
}

func (c *streamCache) Close() error {
	if c.file != nil {
		if c.cleanup {
			fd := int(c.file.Fd())
			syscall.Fdatasync(fd)
			unix.Fadvise(fd, 0, 0, unix.FADV_DONTNEED)
		}
		name := c.file.Name()
		c.file.Close()
		os.Remove(name)
	}
	c.cached = nil
	return nil
}
