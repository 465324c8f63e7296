package command

import (
	"strconv"
	"strings"

	"github.com/redikeep/redikeep/internal/keyspace"
	"github.com/redikeep/redikeep/internal/mtime"
	"github.com/redikeep/redikeep/internal/resp"
)

func handleSet(d *Dispatcher, ctx *ConnCtx, args [][]byte, raw []byte) error {
	if len(args) < 3 {
		return d.reply(ctx, resp.AppendError(nil, "ERR wrong number of arguments for 'set' command"))
	}

	key, val := string(args[1]), args[2]
	var expiry mtime.TS

	for i := 3; i < len(args); i++ {
		if strings.EqualFold(string(args[i]), "PX") && i+1 < len(args) {
			ms, err := strconv.ParseInt(string(args[i+1]), 10, 64)
			if err != nil {
				return d.reply(ctx, resp.AppendError(nil, "ERR value is not an integer or out of range"))
			}
			expiry = mtime.TSFromUnixMilli(d.nowMS() + ms)
			i++
		}
	}

	d.KS.Set(key, append([]byte(nil), val...), expiry)
	d.propagateIfLeader(ctx, raw)

	return d.reply(ctx, resp.AppendSimpleString(nil, "OK"))
}

func handleGet(d *Dispatcher, ctx *ConnCtx, args [][]byte, raw []byte) error {
	if len(args) != 2 {
		return d.reply(ctx, resp.AppendError(nil, "ERR wrong number of arguments for 'get' command"))
	}

	if d.KS.TypeOf(string(args[1])) == keyspace.KindStream {
		return d.reply(ctx, resp.AppendError(nil, "WRONGTYPE Operation against a key holding the wrong kind of value"))
	}

	val, ok := d.KS.Get(string(args[1]))
	if !ok {
		return d.reply(ctx, resp.NullBulkString())
	}
	return d.reply(ctx, resp.AppendBulkString(nil, val))
}

func handleType(d *Dispatcher, ctx *ConnCtx, args [][]byte, raw []byte) error {
	if len(args) != 2 {
		return d.reply(ctx, resp.AppendError(nil, "ERR wrong number of arguments for 'type' command"))
	}
	return d.reply(ctx, resp.AppendSimpleString(nil, string(d.KS.TypeOf(string(args[1])))))
}

func handleKeys(d *Dispatcher, ctx *ConnCtx, args [][]byte, raw []byte) error {
	keys := d.KS.KeysAll()
	elems := make([][]byte, len(keys))
	for i, k := range keys {
		elems[i] = []byte(k)
	}
	return d.reply(ctx, resp.AppendArrayOfBulkStrings(nil, elems))
}
