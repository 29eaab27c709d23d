package transport

import (
	"bufio"
	"bytes"
	"errors"
	"net"
	"sync"
	"time"
)

const (
	// DefaultMaxMessageBytes caps one framed message.
	DefaultMaxMessageBytes = 512 << 10
	// DefaultReadTimeout bounds how long a started message may take to
	// finish. An idle connection with no partial message waits forever.
	DefaultReadTimeout = 15 * time.Second

	readBufSize = 64 << 10
)

var (
	// ErrTooLarge reports a message over the size limit. The connection
	// stays usable; the offending line is discarded.
	ErrTooLarge = errors.New("message exceeds size limit")
	// ErrReadTimeout reports a partially received message that stalled.
	// The unfinished line is discarded and the connection stays usable.
	ErrReadTimeout = errors.New("timed out reading message")
)

// Conn frames a raw stream into newline-delimited messages. Reads are
// single-goroutine; writes are serialized internally so response and
// notification writers may interleave.
type Conn struct {
	raw      net.Conn
	br       *bufio.Reader
	wmu      sync.Mutex
	maxBytes int
	timeout  time.Duration

	// discarding is set when the current line must be thrown away up to
	// the next newline, keeping the stream aligned after an oversized or
	// stalled message.
	discarding bool
}

// NewConn wraps raw. Zero maxBytes and timeout select the defaults.
func NewConn(raw net.Conn, maxBytes int, timeout time.Duration) *Conn {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxMessageBytes
	}
	if timeout <= 0 {
		timeout = DefaultReadTimeout
	}
	return &Conn{
		raw:      raw,
		br:       bufio.NewReaderSize(raw, readBufSize),
		maxBytes: maxBytes,
		timeout:  timeout,
	}
}

// ReadLine returns the next complete message, without its trailing
// newline. Empty lines are skipped. On ErrTooLarge or ErrReadTimeout the
// caller may keep reading; any other error is fatal for the connection.
func (c *Conn) ReadLine() ([]byte, error) {
	var buf []byte
	for {
		_ = c.raw.SetReadDeadline(time.Now().Add(c.timeout))
		chunk, err := c.br.ReadSlice('\n')

		if c.discarding {
			switch {
			case err == nil:
				// Reached the end of the bad line; the next one is clean.
				c.discarding = false
				continue
			case errors.Is(err, bufio.ErrBufferFull):
				continue
			}
			// The abandoned line was already reported, so a further stall
			// here is treated as idle.
			if mapped := c.readError(err, false); mapped != errIdleContinue {
				return nil, mapped
			}
			continue
		}

		buf = append(buf, chunk...)
		switch {
		case err == nil:
			line := bytes.TrimSuffix(buf, []byte("\n"))
			line = bytes.TrimSuffix(line, []byte("\r"))
			if len(line) > c.maxBytes {
				// Complete line, so the stream is still aligned.
				return nil, ErrTooLarge
			}
			if len(line) == 0 {
				buf = buf[:0]
				continue
			}
			return line, nil
		case errors.Is(err, bufio.ErrBufferFull):
			if len(buf) > c.maxBytes {
				c.discarding = true
				return nil, ErrTooLarge
			}
			continue
		}
		if mapped := c.readError(err, len(buf) > 0); mapped != errIdleContinue {
			return nil, mapped
		}
		continue
	}
}

// readError maps raw read failures. A timeout with nothing pending means
// the peer is just idle; a timeout mid-message abandons that message.
func (c *Conn) readError(err error, pending bool) error {
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		if !pending {
			return errIdleContinue
		}
		c.discarding = true
		return ErrReadTimeout
	}
	return err
}

var errIdleContinue = errors.New("idle")

// WriteLine sends one framed message.
func (c *Conn) WriteLine(p []byte) error {
	c.wmu.Lock()
	defer c.wmu.Unlock()
	framed := make([]byte, 0, len(p)+1)
	framed = append(framed, p...)
	framed = append(framed, '\n')
	_, err := c.raw.Write(framed)
	return err
}

// Close closes the underlying connection.
func (c *Conn) Close() error { return c.raw.Close() }

// RemoteAddr names the peer for logging.
func (c *Conn) RemoteAddr() net.Addr { return c.raw.RemoteAddr() }
