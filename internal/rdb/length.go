package rdb

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"strconv"
)

// readLength parses the RDB length encoding: the top two bits of
// the first byte select one of three plain-length forms, or mark the
// remaining six bits as a "special format" code (used by readString for
// integer-encoded strings). special is true only in that last case.
func readLength(br *bufio.Reader) (length uint64, special bool, err error) {
	first, err := br.ReadByte()
	if err != nil {
		return 0, false, err
	}

	switch first >> 6 {
	case 0b00:
		return uint64(first & 0x3F), false, nil

	case 0b01:
		next, err := br.ReadByte()
		if err != nil {
			return 0, false, err
		}
		return (uint64(first&0x3F) << 8) | uint64(next), false, nil

	case 0b10:
		var buf [4]byte
		if _, err := io.ReadFull(br, buf[:]); err != nil {
			return 0, false, err
		}
		return uint64(binary.BigEndian.Uint32(buf[:])), false, nil

	default: // 0b11
		return uint64(first & 0x3F), true, nil
	}
}

// readString reads a length-encoded string. A plain length reads
// that many raw bytes; a special format reads an integer of the indicated
// width and emits its decimal text.
func readString(br *bufio.Reader) ([]byte, error) {
	length, special, err := readLength(br)
	if err != nil {
		return nil, err
	}
	if !special {
		buf := make([]byte, length)
		if _, err := io.ReadFull(br, buf); err != nil {
			return nil, err
		}
		return buf, nil
	}

	switch length {
	case 0: // 1-byte signed int
		b, err := br.ReadByte()
		if err != nil {
			return nil, err
		}
		return []byte(strconv.FormatInt(int64(int8(b)), 10)), nil

	case 1: // 2-byte LE signed int
		var buf [2]byte
		if _, err := io.ReadFull(br, buf[:]); err != nil {
			return nil, err
		}
		return []byte(strconv.FormatInt(int64(int16(binary.LittleEndian.Uint16(buf[:]))), 10)), nil

	case 2: // 4-byte LE signed int
		var buf [4]byte
		if _, err := io.ReadFull(br, buf[:]); err != nil {
			return nil, err
		}
		return []byte(strconv.FormatInt(int64(int32(binary.LittleEndian.Uint32(buf[:]))), 10)), nil

	default:
		return nil, fmt.Errorf("rdb: unsupported special string format code %d", length)
	}
}
