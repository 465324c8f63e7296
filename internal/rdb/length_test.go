package rdb

import (
	"bufio"
	"bytes"
)

func newTestReader(b []byte) *bufio.Reader {
	return bufio.NewReader(bytes.NewReader(b))
}
