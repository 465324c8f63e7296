// Package rdb loads the on-disk RDB snapshot format far enough to bootstrap
// a Keyspace at startup: magic header, opcode-prefixed records, and the
// length/string encodings those records are built from.
package rdb

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/redikeep/redikeep/internal/keyspace"
	"github.com/redikeep/redikeep/internal/mtime"
)

// Opcodes recognized in the record stream.
const (
	opAux          = 0xFA
	opResizeDB     = 0xFB
	opExpireTimeMS = 0xFC
	opExpireTime   = 0xFD
	opSelectDB     = 0xFE
	opEOF          = 0xFF
)

// valueTypeString is the only value type this loader is required to
// understand; any other value-type byte is an unsupported dump.
const valueTypeString = 0x00

// Load reads a complete RDB snapshot from r and inserts every key/value
// pair it describes into ks. It returns an error for a malformed header,
// an unsupported value type, or a truncated record stream; a startup
// failure here is expected to be fatal.
func Load(r io.Reader, ks *keyspace.Keyspace) error {
	br := bufio.NewReader(r)

	if err := readMagicAndVersion(br); err != nil {
		return err
	}

	for {
		op, err := br.ReadByte()
		if err != nil {
			return fmt.Errorf("rdb: reading opcode: %w", err)
		}

		switch op {
		case opEOF:
			return nil

		case opAux:
			if _, err := readString(br); err != nil {
				return fmt.Errorf("rdb: reading aux key: %w", err)
			}
			if _, err := readString(br); err != nil {
				return fmt.Errorf("rdb: reading aux value: %w", err)
			}

		case opResizeDB:
			if _, _, err := readLength(br); err != nil {
				return fmt.Errorf("rdb: reading resizedb hash size: %w", err)
			}
			if _, _, err := readLength(br); err != nil {
				return fmt.Errorf("rdb: reading resizedb expire size: %w", err)
			}

		case opSelectDB:
			if _, _, err := readLength(br); err != nil {
				return fmt.Errorf("rdb: reading selectdb index: %w", err)
			}

		case opExpireTimeMS:
			var buf [8]byte
			if _, err := io.ReadFull(br, buf[:]); err != nil {
				return fmt.Errorf("rdb: reading expiretimems: %w", err)
			}
			ms := binary.LittleEndian.Uint64(buf[:])
			if err := readValueRecord(br, ks, mtime.TSFromUnixMilli(int64(ms))); err != nil {
				return err
			}

		case opExpireTime:
			var buf [4]byte
			if _, err := io.ReadFull(br, buf[:]); err != nil {
				return fmt.Errorf("rdb: reading expiretime: %w", err)
			}
			secs := binary.LittleEndian.Uint32(buf[:])
			if err := readValueRecord(br, ks, mtime.TSFromUnixMilli(int64(secs)*1000)); err != nil {
				return err
			}

		default:
			if err := readValueRecordWithType(br, ks, op, mtime.TS{}); err != nil {
				return err
			}
		}
	}
}

func readMagicAndVersion(br *bufio.Reader) error {
	magic := make([]byte, 5)
	if _, err := io.ReadFull(br, magic); err != nil {
		return fmt.Errorf("rdb: reading magic: %w", err)
	}
	if string(magic) != "REDIS" {
		return fmt.Errorf("rdb: bad magic %q, expected \"REDIS\"", magic)
	}

	version := make([]byte, 4)
	if _, err := io.ReadFull(br, version); err != nil {
		return fmt.Errorf("rdb: reading version: %w", err)
	}
	return nil
}

// readValueRecord reads "<value-type> <key-string> <value>" and inserts it
// into ks with the given expiry.
func readValueRecord(br *bufio.Reader, ks *keyspace.Keyspace, expiry mtime.TS) error {
	valueType, err := br.ReadByte()
	if err != nil {
		return fmt.Errorf("rdb: reading value type: %w", err)
	}
	return readValueRecordWithType(br, ks, valueType, expiry)
}

func readValueRecordWithType(br *bufio.Reader, ks *keyspace.Keyspace, valueType byte, expiry mtime.TS) error {
	if valueType != valueTypeString {
		return fmt.Errorf("rdb: unsupported value type 0x%02x", valueType)
	}

	key, err := readString(br)
	if err != nil {
		return fmt.Errorf("rdb: reading key: %w", err)
	}
	val, err := readString(br)
	if err != nil {
		return fmt.Errorf("rdb: reading value: %w", err)
	}

	ks.Set(string(key), val, expiry)
	return nil
}
