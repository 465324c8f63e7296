package replication

import (
	"bufio"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"

	"github.com/redikeep/redikeep/internal/keyspace"
	"github.com/redikeep/redikeep/internal/mctx"
	"github.com/redikeep/redikeep/internal/merr"
	"github.com/redikeep/redikeep/internal/mlog"
	"github.com/redikeep/redikeep/internal/rdb"
	"github.com/redikeep/redikeep/internal/resp"
)

// Apply is called by Follower for every write frame streamed from the
// master once the handshake completes. It must apply args to the local
// keyspace and must not produce a client-visible reply; the sole
// exception, REPLCONF GETACK, is handled by Follower itself rather than
// routed through Apply.
type Apply func(args [][]byte) error

// Follower drives the replica side of the handshake (PING → REPLCONF1 →
// REPLCONF2 → PSYNC → STREAMING) against a leader connection, then streams
// and applies writes, tracking master_offset.
type Follower struct {
	conn net.Conn
	br   *bufio.Reader

	masterReplID string
	masterOffset int64

	log *mlog.Logger
}

// Dial connects to a leader at addr and runs the handshake through PSYNC,
// ingesting the returned RDB payload into ks. The returned Follower is
// ready for Stream to be called.
func Dial(addr string, listeningPort string, ks *keyspace.Keyspace, log *mlog.Logger) (*Follower, error) {
	if log == nil {
		log = mlog.Null
	}

	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return nil, merr.Wrap(err, mctx.Annotated("addr", addr))
	}

	f := &Follower{conn: conn, br: bufio.NewReader(conn), log: log}
	if err := f.handshake(listeningPort, ks); err != nil {
		conn.Close()
		return nil, err
	}
	return f, nil
}

func (f *Follower) send(args ...[]byte) error {
	_, err := f.conn.Write(resp.EncodeRequest(args...))
	return err
}

// readSimpleLine reads one CRLF-terminated line, used only during the
// handshake's simple-string exchanges.
func (f *Follower) readSimpleLine() (string, error) {
	line, err := f.br.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func (f *Follower) handshake(listeningPort string, ks *keyspace.Keyspace) error {
	if err := f.send([]byte("PING")); err != nil {
		return merr.Wrap(err, mctx.Annotated("step", "PING"))
	}
	if _, err := f.readSimpleLine(); err != nil {
		return merr.Wrap(err, mctx.Annotated("step", "PING reply"))
	}

	if err := f.send([]byte("REPLCONF"), []byte("listening-port"), []byte(listeningPort)); err != nil {
		return merr.Wrap(err, mctx.Annotated("step", "REPLCONF listening-port"))
	}
	if _, err := f.readSimpleLine(); err != nil {
		return merr.Wrap(err, mctx.Annotated("step", "REPLCONF listening-port reply"))
	}

	if err := f.send([]byte("REPLCONF"), []byte("capa"), []byte("psync2")); err != nil {
		return merr.Wrap(err, mctx.Annotated("step", "REPLCONF capa"))
	}
	if _, err := f.readSimpleLine(); err != nil {
		return merr.Wrap(err, mctx.Annotated("step", "REPLCONF capa reply"))
	}

	if err := f.send([]byte("PSYNC"), []byte("?"), []byte("-1")); err != nil {
		return merr.Wrap(err, mctx.Annotated("step", "PSYNC"))
	}
	line, err := f.readSimpleLine()
	if err != nil {
		return merr.Wrap(err, mctx.Annotated("step", "PSYNC reply"))
	}

	fields := strings.Fields(line)
	if len(fields) < 3 || fields[0] != "+FULLRESYNC" {
		return merr.New("unexpected PSYNC reply", mctx.Annotated("line", line))
	}
	f.masterReplID = fields[1]
	f.masterOffset, _ = strconv.ParseInt(fields[2], 10, 64)

	rdbHeader, err := f.readSimpleLine()
	if err != nil {
		return merr.Wrap(err, mctx.Annotated("step", "RDB length header"))
	}
	if !strings.HasPrefix(rdbHeader, "$") {
		return merr.New("expected RDB bulk length header", mctx.Annotated("line", rdbHeader))
	}
	rdbLen, err := strconv.Atoi(rdbHeader[1:])
	if err != nil {
		return merr.Wrap(err, mctx.Annotated("line", rdbHeader))
	}

	rdbBytes := make([]byte, rdbLen)
	if _, err := io.ReadFull(f.br, rdbBytes); err != nil {
		return merr.Wrap(err, mctx.Annotated("step", "RDB payload"))
	}
	if rdbLen > 0 {
		if err := rdb.Load(newByteReader(rdbBytes), ks); err != nil {
			f.log.WarnErr("failed to load bootstrap RDB from master", err)
		}
	}

	f.log.Info("handshake complete", mctx.Annotated("replid", f.masterReplID), mctx.Annotated("offset", f.masterOffset))
	return nil
}

// MasterOffset returns the follower's current master_offset.
func (f *Follower) MasterOffset() int64 { return f.masterOffset }

// Stream reads frames from the master connection until it closes or apply
// returns an error, dispatching each through apply (suppressing any
// client-visible reply) and replying to REPLCONF GETACK on the master
// socket itself. master_offset is advanced by each frame's raw byte length
// before it is dispatched, inclusive of the GETACK frame itself.
func (f *Follower) Stream(apply Apply) error {
	p := resp.NewParser()
	buf := make([]byte, 4096)

	for {
		for {
			args, raw, ok, err := p.Next()
			if err != nil {
				return merr.Wrap(err, mctx.Annotated("component", "replication follower"))
			}
			if !ok {
				break
			}

			f.masterOffset += int64(len(raw))

			if len(args) >= 2 && strings.EqualFold(string(args[0]), "REPLCONF") && strings.EqualFold(string(args[1]), "GETACK") {
				if err := f.ackMaster(); err != nil {
					return err
				}
				continue
			}

			if err := apply(args); err != nil {
				return merr.Wrap(err, mctx.Annotated("component", "replication follower"))
			}
		}

		n, err := f.br.Read(buf)
		if err != nil {
			return merr.Wrap(err, mctx.Annotated("component", "replication follower"))
		}
		p.Feed(buf[:n])
	}
}

func (f *Follower) ackMaster() error {
	n := strconv.FormatInt(f.masterOffset, 10)
	frame := fmt.Sprintf("*3\r\n$8\r\nREPLCONF\r\n$3\r\nACK\r\n$%d\r\n%s\r\n", len(n), n)
	_, err := f.conn.Write([]byte(frame))
	return err
}

// Close closes the follower's connection to its master.
func (f *Follower) Close() error { return f.conn.Close() }

type byteReader struct {
	b   []byte
	pos int
}

func newByteReader(b []byte) *byteReader { return &byteReader{b: b} }

func (r *byteReader) Read(p []byte) (int, error) {
	if r.pos >= len(r.b) {
		return 0, io.EOF
	}
	n := copy(p, r.b[r.pos:])
	r.pos += n
	return n, nil
}
