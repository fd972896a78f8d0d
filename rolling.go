package ctph

// rollState is the C1 rolling-window trigger hash: a 7-byte circular window
// feeding a triple-sum content-defined hash. Inserting or deleting bytes far
// from a position does not shift trigger points in unaffected regions, which
// is what gives the whole scheme its similarity property.
type rollState struct {
	h1, h2, h3 uint32
	window     [rollWindow]byte
	n          uint32
}

// feed rolls one byte through the window and returns the trigger value.
// Update order matches the reference exactly: h2 before h1, h1 before the
// window write, h3 last. The returned sum is left unmasked; callers only
// ever use it modulo a block size, so 32-bit wraparound is immaterial as
// long as it is consistent with the reference's unsigned arithmetic.
func (r *rollState) feed(b byte) uint32 {
	u := uint32(b)

	r.h2 = r.h2 - r.h1 + rollWindow*u
	r.h1 = r.h1 + u - uint32(r.window[r.n%rollWindow])
	r.window[r.n%rollWindow] = b
	r.n++

	r.h3 = (r.h3 << 5) ^ u

	return r.h1 + r.h2 + r.h3
}

func (r *rollState) reset() {
	*r = rollState{}
}
