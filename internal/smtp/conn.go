package smtp

import (
	"bufio"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"strconv"
	"time"
)

// maxReplyLineLen is a generous limit for reply lines to prevent memory
// exhaustion from a misbehaving server.
const maxReplyLineLen = 2048

// Reply is a parsed SMTP reply: the 3-digit code of the final line and the
// text of every line (continuation lines included) without the code prefix.
type Reply struct {
	Code  int
	Lines []string
}

// conn wraps a net.Conn with buffered SMTP line I/O. Every read and write
// is bounded by the configured step timeout.
type conn struct {
	nc          net.Conn
	r           *bufio.Reader
	w           *bufio.Writer
	stepTimeout time.Duration
}

func newConn(nc net.Conn, stepTimeout time.Duration) *conn {
	return &conn{
		nc:          nc,
		r:           bufio.NewReaderSize(nc, 4096),
		w:           bufio.NewWriterSize(nc, 4096),
		stepTimeout: stepTimeout,
	}
}

// upgradeTLS performs the client-side TLS handshake in place and resets
// the buffered reader and writer onto the encrypted connection.
func (c *conn) upgradeTLS(ctx context.Context, cfg *tls.Config) error {
	tc := tls.Client(c.nc, cfg)
	hctx := ctx
	if c.stepTimeout > 0 {
		var cancel context.CancelFunc
		hctx, cancel = context.WithTimeout(ctx, c.stepTimeout)
		defer cancel()
	}
	if err := tc.HandshakeContext(hctx); err != nil {
		return err
	}
	c.nc = tc
	c.r = bufio.NewReaderSize(tc, 4096)
	c.w = bufio.NewWriterSize(tc, 4096)
	return nil
}

func (c *conn) close() error {
	return c.nc.Close()
}

// setStepDeadline arms the connection deadline for one protocol exchange,
// honoring an earlier context deadline when present.
func (c *conn) setStepDeadline(ctx context.Context) {
	var deadline time.Time
	if c.stepTimeout > 0 {
		deadline = time.Now().Add(c.stepTimeout)
	}
	if d, ok := ctx.Deadline(); ok && (deadline.IsZero() || d.Before(deadline)) {
		deadline = d
	}
	c.nc.SetDeadline(deadline)
}

// readLine reads one CRLF-terminated line, without the terminator.
func (c *conn) readLine() (string, error) {
	var line []byte
	for {
		chunk, isPrefix, err := c.r.ReadLine()
		line = append(line, chunk...)
		if err != nil {
			return "", err
		}
		if !isPrefix {
			break
		}
		if len(line) > maxReplyLineLen {
			return "", fmt.Errorf("reply line too long (%d bytes)", len(line))
		}
	}
	return string(line), nil
}

// readReply reads a complete SMTP reply. Continuation lines carry a '-' in
// the fourth character position; a space there marks the final line. A line
// shorter than four characters terminates reading defensively and is treated
// as final. The returned code is parsed from the terminating line.
func (c *conn) readReply(ctx context.Context) (Reply, error) {
	c.setStepDeadline(ctx)

	var lines []string
	for {
		line, err := c.readLine()
		if err != nil {
			return Reply{}, err
		}

		if len(line) < 4 {
			code, convErr := strconv.Atoi(line)
			if convErr != nil {
				return Reply{}, fmt.Errorf("malformed reply line %q", line)
			}
			lines = append(lines, "")
			return Reply{Code: code, Lines: lines}, nil
		}

		lines = append(lines, line[4:])

		if line[3] == ' ' {
			code, convErr := strconv.Atoi(line[:3])
			if convErr != nil {
				return Reply{}, fmt.Errorf("malformed reply line %q", line)
			}
			return Reply{Code: code, Lines: lines}, nil
		}
		// '-' (or anything else) in position four: continuation line.
	}
}

// writeLine writes a single CRLF-terminated command line and flushes.
func (c *conn) writeLine(ctx context.Context, format string, args ...any) error {
	c.setStepDeadline(ctx)

	if _, err := fmt.Fprintf(c.w, format, args...); err != nil {
		return err
	}
	if _, err := c.w.WriteString("\r\n"); err != nil {
		return err
	}
	return c.w.Flush()
}

// cmd writes a command line and reads the server's reply.
func (c *conn) cmd(ctx context.Context, format string, args ...any) (Reply, error) {
	if err := c.writeLine(ctx, format, args...); err != nil {
		return Reply{}, err
	}
	return c.readReply(ctx)
}

// dotWriter writes a dot-stuffed DATA body. Lines beginning with '.' are
// escaped by doubling the leading dot; Close writes the "\r\n.\r\n"
// terminator and flushes (RFC 5321 §4.5.2).
type dotWriter struct {
	w         *bufio.Writer
	beginLine bool
	closed    bool
}

func (c *conn) dotWriter() *dotWriter {
	return &dotWriter{w: c.w, beginLine: true}
}

func (d *dotWriter) Write(p []byte) (int, error) {
	if d.closed {
		return 0, io.ErrClosedPipe
	}

	written := 0
	for _, b := range p {
		if d.beginLine && b == '.' {
			if err := d.w.WriteByte('.'); err != nil {
				return written, err
			}
		}
		if err := d.w.WriteByte(b); err != nil {
			return written, err
		}
		written++
		d.beginLine = b == '\n'
	}
	return written, nil
}

// Close terminates the DATA body. If the last write did not end with a
// line break, one is added before the terminator.
func (d *dotWriter) Close() error {
	if d.closed {
		return nil
	}
	d.closed = true

	if !d.beginLine {
		if _, err := d.w.WriteString("\r\n"); err != nil {
			return err
		}
	}
	if _, err := d.w.WriteString(".\r\n"); err != nil {
		return err
	}
	return d.w.Flush()
}
