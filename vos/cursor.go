package vos

import "github.com/vosd/vos/internal/verrs"

// ioCursor walks an SGL's buffers as one contiguous byte stream,
// tracking (iovIndex, byteOffset) across buffer boundaries: the output
// sgl advances across iov boundaries as bytes are consumed, and running
// past the last iov is a sink-underflow error. The same shape serves
// Fetch's write-side sink and Update's read-side source.
type ioCursor struct {
	sgl    *SGL
	iovIdx int
	off    int
}

func newIOCursor(sgl *SGL) *ioCursor { return &ioCursor{sgl: sgl} }

// advance skips n bytes without touching them, used to back-fill a hole:
// leading/trailing holes are skipped in the sink, left whatever the
// caller's buffer already held.
func (c *ioCursor) advance(n int) error {
	for n > 0 {
		if c.iovIdx >= len(c.sgl.Iovs) {
			return verrs.New("vos", verrs.IOInval, "sink underflow")
		}
		remain := len(c.sgl.Iovs[c.iovIdx].Buf) - c.off
		if remain <= 0 {
			c.iovIdx++
			c.off = 0
			continue
		}
		step := remain
		if step > n {
			step = n
		}
		c.off += step
		n -= step
	}
	return nil
}

// write copies data into the sink at the current position, advancing.
func (c *ioCursor) write(data []byte) error {
	for len(data) > 0 {
		if c.iovIdx >= len(c.sgl.Iovs) {
			return verrs.New("vos", verrs.IOInval, "sink underflow")
		}
		buf := c.sgl.Iovs[c.iovIdx].Buf
		remain := len(buf) - c.off
		if remain <= 0 {
			c.iovIdx++
			c.off = 0
			continue
		}
		step := remain
		if step > len(data) {
			step = len(data)
		}
		copy(buf[c.off:c.off+step], data[:step])
		c.off += step
		data = data[step:]
	}
	return nil
}

// read extracts n fresh bytes from the source, advancing.
func (c *ioCursor) read(n int) ([]byte, error) {
	out := make([]byte, 0, n)
	for len(out) < n {
		if c.iovIdx >= len(c.sgl.Iovs) {
			return nil, verrs.New("vos", verrs.IOInval, "source underflow")
		}
		buf := c.sgl.Iovs[c.iovIdx].Buf
		remain := len(buf) - c.off
		if remain <= 0 {
			c.iovIdx++
			c.off = 0
			continue
		}
		need := n - len(out)
		step := remain
		if step > need {
			step = need
		}
		out = append(out, buf[c.off:c.off+step]...)
		c.off += step
	}
	return out, nil
}
