package resp

import (
	"strconv"

	"github.com/redikeep/redikeep/internal/mctx"
	"github.com/redikeep/redikeep/internal/merr"
)

// Parser incrementally frames RESP request arrays ("*N\r\n" followed by N
// bulk strings) out of a buffer fed via Feed. It never blocks and never
// treats truncation as an error: a partial frame simply means Next returns
// ok == false until more bytes arrive.
//
// The zero value is an empty Parser ready for use, the same as the one
// NewParser returns.
type Parser struct {
	buf []byte // unconsumed bytes, oldest first
}

// NewParser returns an empty Parser ready to have bytes Fed into it.
func NewParser() *Parser {
	return &Parser{}
}

// Feed appends newly read bytes to the Parser's internal buffer.
func (p *Parser) Feed(b []byte) {
	p.buf = append(p.buf, b...)
}

// Next attempts to frame one complete request out of the fed bytes.
//
// On success, ok is true, args holds the command's argument bytes (the
// verb and each subsequent argument, in order), and raw holds the exact
// byte range the frame occupied — the slice propagation and offset
// accounting must use, per the raw-byte-preservation requirement.
//
// On partial input, ok is false and err is nil: Next rolls its attempt back
// entirely, leaving the buffer untouched for the next Feed. On a
// structural violation within an otherwise complete frame (e.g. an array
// header that isn't followed by bulk strings), err is non-nil.
func (p *Parser) Next() (args [][]byte, raw []byte, ok bool, err error) {
	n, consumed, args, err := parseRequest(p.buf)
	if err != nil {
		return nil, nil, false, err
	}
	if !n {
		return nil, nil, false, nil
	}

	raw = p.buf[:consumed]
	p.buf = p.buf[consumed:]
	return args, raw, true, nil
}

// parseRequest attempts to parse one request array starting at the front
// of buf. ok is false with a nil error when buf doesn't yet hold a
// complete frame.
func parseRequest(buf []byte) (ok bool, consumed int, args [][]byte, err error) {
	cur := 0

	if len(buf) == 0 {
		return false, 0, nil, nil
	}
	if buf[0] != '*' {
		return false, 0, nil, merr.New("expected array header for request frame",
			mctx.Annotated("got", string(buf[0])))
	}

	n, next, ok := readLine(buf, cur)
	if !ok {
		return false, 0, nil, nil
	}
	cur = next

	count, perr := strconv.Atoi(string(n[1:]))
	if perr != nil {
		return false, 0, nil, merr.Wrap(perr, mctx.Annotated("header", string(n)))
	}
	if count < 0 {
		return false, 0, nil, merr.New("array header must not be negative in a request frame",
			mctx.Annotated("count", count))
	}

	out := make([][]byte, 0, count)
	for i := 0; i < count; i++ {
		arg, next, ok, aerr := readBulkString(buf, cur)
		if aerr != nil {
			return false, 0, nil, aerr
		}
		if !ok {
			return false, 0, nil, nil
		}
		out = append(out, arg)
		cur = next
	}

	return true, cur, out, nil
}

// readLine scans buf starting at start for a CRLF-terminated line,
// returning the line (without the CRLF) and the offset just past the
// CRLF. ok is false if no CRLF has arrived yet.
func readLine(buf []byte, start int) (line []byte, next int, ok bool) {
	for i := start; i+1 < len(buf); i++ {
		if buf[i] == '\r' && buf[i+1] == '\n' {
			return buf[start:i], i + 2, true
		}
	}
	return nil, 0, false
}

// readBulkString parses a "$<len>\r\n<bytes>\r\n" frame starting at start.
func readBulkString(buf []byte, start int) (val []byte, next int, ok bool, err error) {
	if start >= len(buf) {
		return nil, 0, false, nil
	}
	if buf[start] != '$' {
		return nil, 0, false, merr.New("expected bulk string in request frame",
			mctx.Annotated("got", string(buf[start])))
	}

	header, afterHeader, ok := readLine(buf, start)
	if !ok {
		return nil, 0, false, nil
	}

	length, perr := strconv.Atoi(string(header[1:]))
	if perr != nil {
		return nil, 0, false, merr.Wrap(perr, mctx.Annotated("header", string(header)))
	}
	if length < 0 {
		return nil, 0, false, merr.New("bulk string length must not be negative in a request frame",
			mctx.Annotated("length", length))
	}

	end := afterHeader + length
	if end+2 > len(buf) {
		return nil, 0, false, nil
	}
	if buf[end] != '\r' || buf[end+1] != '\n' {
		return nil, 0, false, merr.New("bulk string missing trailing CRLF", nil)
	}

	return buf[afterHeader:end], end + 2, true, nil
}
