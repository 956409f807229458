package redisserver

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	"strconv"

	"github.com/yndnr/pulsekv/internal/core/domain"
)

// Protocol limits. Exceeding any of them closes the connection.
const (
	// MaxArrayLen limits the number of elements in a RESP array.
	MaxArrayLen = 1024

	// MaxBulkLen limits the size of a single bulk string (512KB).
	MaxBulkLen = 512 * 1024

	// MaxInlineLen limits inline command line length (64KB).
	MaxInlineLen = 64 * 1024

	// maxHeaderLen bounds "*<n>\r\n" and "$<n>\r\n" lines.
	maxHeaderLen = 64
)

// ErrLimitExceeded is the cause of protocol errors raised by a hard limit.
var ErrLimitExceeded = errors.New("resp: limit exceeded")

var crlf = []byte("\r\n")

// ReadCommand decodes the next command from r, blocking until a full frame
// is buffered. Both multibulk ("*N\r\n$len\r\n...") and inline
// whitespace-separated frames are accepted. The command name is lower-cased.
//
// A nil command with a nil error means the frame was empty (a blank inline
// line or a zero-length array) and should be skipped. Malformed frames yield
// a domain.ErrProtocol error; those raised by a hard limit also match
// ErrLimitExceeded. I/O errors are returned unchanged.
func ReadCommand(r *bufio.Reader) (*domain.Command, error) {
	b, err := r.Peek(1)
	if err != nil {
		return nil, err
	}

	var args [][]byte
	if b[0] == '*' {
		args, err = readArrayCommand(r)
	} else {
		args, err = readInlineCommand(r)
	}
	if err != nil || len(args) == 0 {
		return nil, err
	}

	if args[0] == nil {
		return nil, protocolError("null command name")
	}
	return &domain.Command{
		Name: string(bytes.ToLower(args[0])),
		Args: args[1:],
	}, nil
}

func readInlineCommand(r *bufio.Reader) ([][]byte, error) {
	line, err := readLine(r, MaxInlineLen, false)
	if err != nil {
		return nil, err
	}
	return bytes.Fields(line), nil
}

func readArrayCommand(r *bufio.Reader) ([][]byte, error) {
	line, err := readLine(r, maxHeaderLen, true)
	if err != nil {
		return nil, err
	}
	n, err := strconv.Atoi(string(line[1:]))
	if err != nil {
		return nil, protocolError("invalid multibulk length")
	}
	if n <= 0 {
		return nil, nil
	}
	if n > MaxArrayLen {
		return nil, limitError("multibulk length " + strconv.Itoa(n) + " exceeds limit " + strconv.Itoa(MaxArrayLen))
	}

	out := make([][]byte, 0, n)
	for i := 0; i < n; i++ {
		arg, err := readBulkString(r)
		if err != nil {
			return nil, err
		}
		out = append(out, arg)
	}
	return out, nil
}

func readBulkString(r *bufio.Reader) ([]byte, error) {
	line, err := readLine(r, maxHeaderLen, true)
	if err != nil {
		return nil, err
	}
	if len(line) < 2 || line[0] != '$' {
		return nil, protocolError("expected '$', got '" + printable(line) + "'")
	}
	n, err := strconv.Atoi(string(line[1:]))
	if err != nil {
		return nil, protocolError("invalid bulk length")
	}
	if n == -1 {
		return nil, nil
	}
	if n < 0 {
		return nil, protocolError("invalid bulk length")
	}
	if n > MaxBulkLen {
		return nil, limitError("bulk length " + strconv.Itoa(n) + " exceeds limit " + strconv.Itoa(MaxBulkLen))
	}

	buf := make([]byte, n+2)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}
	if !bytes.HasSuffix(buf, crlf) {
		return nil, protocolError("invalid bulk terminator")
	}
	return buf[:n], nil
}

// readLine reads up to and including '\n' and returns the line without its
// terminator. strict requires "\r\n"; otherwise a bare "\n" is accepted, as
// sent by telnet-style clients.
func readLine(r *bufio.Reader, maxLen int, strict bool) ([]byte, error) {
	var buf []byte
	for {
		frag, err := r.ReadSlice('\n')
		if err == nil {
			buf = append(buf, frag...)
			break
		}
		if errors.Is(err, bufio.ErrBufferFull) {
			buf = append(buf, frag...)
			if len(buf) > maxLen {
				return nil, limitError("line length exceeds limit " + strconv.Itoa(maxLen))
			}
			continue
		}
		return nil, err
	}

	if len(buf) > maxLen {
		return nil, limitError("line length exceeds limit " + strconv.Itoa(maxLen))
	}
	if bytes.HasSuffix(buf, crlf) {
		return buf[:len(buf)-2], nil
	}
	if strict {
		return nil, protocolError("missing CRLF")
	}
	return buf[:len(buf)-1], nil
}

func protocolError(msg string) error {
	return domain.ErrProtocol.WithDetails(msg)
}

func limitError(msg string) error {
	return domain.ErrProtocol.WithDetails(msg).WithCause(ErrLimitExceeded)
}

// printable returns a short, single-line rendering of b for error messages.
func printable(b []byte) string {
	if len(b) > 16 {
		b = b[:16]
	}
	out := make([]byte, 0, len(b))
	for _, c := range b {
		if c < 0x20 || c > 0x7e {
			c = '?'
		}
		out = append(out, c)
	}
	return string(out)
}

// ProtocolErrorText renders err as the reply text for a malformed frame.
func ProtocolErrorText(err error) string {
	var de *domain.DomainError
	if errors.As(err, &de) && de.Details != "" {
		return "ERR Protocol error: " + de.Details
	}
	return "ERR Protocol error"
}

// WriteSimpleString writes "+s\r\n". s must not contain CR or LF.
func WriteSimpleString(w *bufio.Writer, s string) error {
	_, err := w.WriteString("+" + s + "\r\n")
	return err
}

// WriteError writes "-s\r\n". s carries its own prefix such as "ERR".
func WriteError(w *bufio.Writer, s string) error {
	_, err := w.WriteString("-" + s + "\r\n")
	return err
}

// WriteInteger writes ":n\r\n".
func WriteInteger(w *bufio.Writer, n int64) error {
	_, err := w.WriteString(":" + strconv.FormatInt(n, 10) + "\r\n")
	return err
}

// WriteNullBulk writes "$-1\r\n", the reply for a missing value.
func WriteNullBulk(w *bufio.Writer) error {
	_, err := w.WriteString("$-1\r\n")
	return err
}

// WriteBulk writes b as a bulk string. A nil slice is the null bulk; an
// empty non-nil slice is "$0\r\n\r\n".
func WriteBulk(w *bufio.Writer, b []byte) error {
	if b == nil {
		return WriteNullBulk(w)
	}
	if _, err := w.WriteString("$" + strconv.Itoa(len(b)) + "\r\n"); err != nil {
		return err
	}
	if _, err := w.Write(b); err != nil {
		return err
	}
	_, err := w.Write(crlf)
	return err
}
