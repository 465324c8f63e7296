// Package mtime provides small time.Time wrapper types used for
// serializing timestamps (e.g. a String key's expiry instant) to and from
// plain numeric forms.
package mtime

import (
	"encoding/json"
	"time"
)

// TS wraps a time.Time so it marshals as a Unix millisecond timestamp
// rather than RFC3339, matching the millisecond-resolution PX/PEXPIREAT
// arguments the wire protocol deals in.
type TS time.Time

// TSFromUnixMilli builds a TS from a Unix millisecond timestamp.
func TSFromUnixMilli(ms int64) TS {
	return TS(time.UnixMilli(ms))
}

// Time returns the wrapped time.Time.
func (ts TS) Time() time.Time { return time.Time(ts) }

// UnixMilli returns the timestamp as milliseconds since the Unix epoch.
func (ts TS) UnixMilli() int64 { return time.Time(ts).UnixNano() / int64(time.Millisecond) }

// IsZero reports whether ts wraps the zero time.Time, used to mean "no
// expiry set".
func (ts TS) IsZero() bool { return time.Time(ts).IsZero() }

// Before reports whether ts is strictly before o.
func (ts TS) Before(o TS) bool { return time.Time(ts).Before(time.Time(o)) }

// MarshalJSON implements json.Marshaler.
func (ts TS) MarshalJSON() ([]byte, error) {
	return json.Marshal(ts.UnixMilli())
}

// UnmarshalJSON implements json.Unmarshaler.
func (ts *TS) UnmarshalJSON(b []byte) error {
	var ms int64
	if err := json.Unmarshal(b, &ms); err != nil {
		return err
	}
	*ts = TSFromUnixMilli(ms)
	return nil
}
