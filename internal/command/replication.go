package command

import (
	"strconv"
	"strings"
	"time"

	"github.com/redikeep/redikeep/internal/resp"
)

// emptyRDB is a canonical, minimal RDB payload acceptable for bootstrapping
// a new replica: the magic header and version immediately followed by
// EOF, with no keys.
var emptyRDB = []byte("REDIS0011\xff")

func handleReplConf(d *Dispatcher, ctx *ConnCtx, args [][]byte, raw []byte) error {
	if len(args) < 2 {
		return d.reply(ctx, resp.AppendError(nil, "ERR wrong number of arguments for 'replconf' command"))
	}

	sub := strings.ToUpper(string(args[1]))
	switch sub {
	case "LISTENING-PORT":
		if len(args) >= 3 {
			ctx.ListeningPort = string(args[2])
		}
		return d.reply(ctx, resp.AppendSimpleString(nil, "OK"))

	case "CAPA":
		for _, c := range args[2:] {
			ctx.Capa = append(ctx.Capa, string(c))
		}
		return d.reply(ctx, resp.AppendSimpleString(nil, "OK"))

	case "GETACK":
		// Only ever arrives at a leader from a malbehaving peer; a
		// follower intercepts and answers GETACK before it reaches the
		// dispatcher (see internal/replication's Follower.Stream).
		return nil

	case "ACK":
		if len(args) < 3 || d.Leader == nil || ctx.ReplicaHandle == 0 {
			return nil
		}
		n, err := strconv.ParseInt(string(args[2]), 10, 64)
		if err != nil {
			return nil
		}
		d.Leader.RecordAck(ctx.ReplicaHandle, n)
		return nil
	}

	return d.reply(ctx, resp.AppendError(nil, "ERR unknown REPLCONF subcommand"))
}

func handlePSync(d *Dispatcher, ctx *ConnCtx, args [][]byte, raw []byte) error {
	if d.Leader == nil {
		return d.reply(ctx, resp.AppendError(nil, "ERR PSYNC is only supported on a leader"))
	}

	if ctx.Suppress {
		return nil
	}

	reply := d.Leader.FullResyncReply()
	if _, err := ctx.Writer.Write([]byte(reply)); err != nil {
		return err
	}

	rdbFrame := resp.AppendBulkString(nil, emptyRDB)
	// Strip the trailing CRLF: the RDB payload after FULLRESYNC is framed
	// as "$<len>\r\n<bytes>" with no terminating CRLF.
	rdbFrame = rdbFrame[:len(rdbFrame)-2]
	if _, err := ctx.Writer.Write(rdbFrame); err != nil {
		return err
	}

	r := d.Leader.AddReplica(ctx.Writer)
	ctx.ReplicaHandle = r.Handle
	d.Leader.SetReplicaMeta(r.Handle, ctx.ListeningPort, ctx.Capa)

	return nil
}

func handleWait(d *Dispatcher, ctx *ConnCtx, args [][]byte, raw []byte) error {
	if d.Leader == nil {
		return d.reply(ctx, resp.AppendError(nil, "ERR WAIT is only supported on a leader"))
	}
	if len(args) != 3 {
		return d.reply(ctx, resp.AppendError(nil, "ERR wrong number of arguments for 'wait' command"))
	}

	required, err := strconv.Atoi(string(args[1]))
	if err != nil {
		return d.reply(ctx, resp.AppendError(nil, "ERR value is not an integer or out of range"))
	}
	timeoutMS, err := strconv.Atoi(string(args[2]))
	if err != nil {
		return d.reply(ctx, resp.AppendError(nil, "ERR value is not an integer or out of range"))
	}

	acks := d.Leader.Wait(required, time.Duration(timeoutMS)*time.Millisecond, len(raw))
	return d.reply(ctx, resp.AppendInteger(nil, int64(acks)))
}
