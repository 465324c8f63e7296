package command

import (
	"strconv"
	"strings"

	"github.com/redikeep/redikeep/internal/keyspace"
	"github.com/redikeep/redikeep/internal/resp"
)

func handleXAdd(d *Dispatcher, ctx *ConnCtx, args [][]byte, raw []byte) error {
	if len(args) < 5 || len(args)%2 != 1 {
		return d.reply(ctx, resp.AppendError(nil, "ERR wrong number of arguments for 'xadd' command"))
	}

	key := string(args[1])
	if d.KS.TypeOf(key) == keyspace.KindString {
		return d.reply(ctx, resp.AppendError(nil, "WRONGTYPE Operation against a key holding the wrong kind of value"))
	}

	req, err := keyspace.ParseRequestedID(string(args[2]))
	if err != nil {
		return d.reply(ctx, resp.AppendError(nil, "ERR Invalid stream ID specified as stream command argument"))
	}

	fields := make([]keyspace.Field, 0, (len(args)-3)/2)
	for i := 3; i+1 < len(args); i += 2 {
		fields = append(fields, keyspace.Field{Field: string(args[i]), Value: string(args[i+1])})
	}

	id, reject := d.KS.XAdd(key, req, fields, uint64(d.nowMS()))
	switch reject {
	case keyspace.RejectNotGreaterThanZero:
		return d.reply(ctx, resp.AppendError(nil, "ERR The ID specified in XADD must be greater than 0-0"))
	case keyspace.RejectNotGreaterThanTop:
		return d.reply(ctx, resp.AppendError(nil, "ERR The ID specified in XADD is equal or smaller than the target stream top item"))
	}

	d.propagateIfLeader(ctx, raw)
	d.Blocking.Notify()

	return d.reply(ctx, resp.AppendBulkString(nil, []byte(id.String())))
}

func handleXRange(d *Dispatcher, ctx *ConnCtx, args [][]byte, raw []byte) error {
	if len(args) != 4 {
		return d.reply(ctx, resp.AppendError(nil, "ERR wrong number of arguments for 'xrange' command"))
	}

	start, err := parseRangeID(string(args[2]), keyspace.MinID)
	if err != nil {
		return d.reply(ctx, resp.AppendError(nil, "ERR Invalid stream ID specified as stream command argument"))
	}
	end, err := parseRangeID(string(args[3]), keyspace.MaxID)
	if err != nil {
		return d.reply(ctx, resp.AppendError(nil, "ERR Invalid stream ID specified as stream command argument"))
	}

	entries := d.KS.XRange(string(args[1]), start, end)
	return d.reply(ctx, encodeEntries(entries))
}

func parseRangeID(s string, boundary keyspace.ID) (keyspace.ID, error) {
	switch s {
	case "-":
		return keyspace.MinID, nil
	case "+":
		return keyspace.MaxID, nil
	}
	if !strings.Contains(s, "-") {
		n, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			return keyspace.ID{}, err
		}
		return keyspace.ID{MS: n, Seq: boundary.Seq}, nil
	}
	return keyspace.ParseID(s)
}

func encodeEntries(entries []keyspace.Entry) []byte {
	elems := make([][]byte, len(entries))
	for i, e := range entries {
		fields := make([][]byte, 0, len(e.Fields)*2)
		for _, f := range e.Fields {
			fields = append(fields, []byte(f.Field), []byte(f.Value))
		}
		var entryBuf []byte
		entryBuf = resp.AppendArrayHeader(entryBuf, 2)
		entryBuf = resp.AppendBulkString(entryBuf, []byte(e.ID.String()))
		entryBuf = resp.AppendArrayOfBulkStrings(entryBuf, fields)
		elems[i] = entryBuf
	}

	var buf []byte
	buf = resp.AppendArrayHeader(buf, len(elems))
	for _, e := range elems {
		buf = append(buf, e...)
	}
	return buf
}

func handleXRead(d *Dispatcher, ctx *ConnCtx, args [][]byte, raw []byte) error {
	i := 1
	blockMS := -1
	if i < len(args) && strings.EqualFold(string(args[i]), "BLOCK") {
		ms, err := strconv.Atoi(string(args[i+1]))
		if err != nil {
			return d.reply(ctx, resp.AppendError(nil, "ERR timeout is not an integer or out of range"))
		}
		blockMS = ms
		i += 2
	}

	if i >= len(args) || !strings.EqualFold(string(args[i]), "STREAMS") {
		return d.reply(ctx, resp.AppendError(nil, "ERR syntax error"))
	}
	i++

	rest := args[i:]
	if len(rest)%2 != 0 {
		return d.reply(ctx, resp.AppendError(nil, "ERR Unbalanced XREAD list of streams: for each stream key an ID or '$' must be specified."))
	}

	n := len(rest) / 2
	keys := make([]string, n)
	for j := 0; j < n; j++ {
		keys[j] = string(rest[j])
	}

	startIDs := make([]keyspace.ID, n)
	for j := 0; j < n; j++ {
		idStr := string(rest[n+j])
		if idStr == "$" {
			startIDs[j] = d.KS.LastID(keys[j])
			continue
		}
		id, err := keyspace.ParseID(idStr)
		if err != nil {
			return d.reply(ctx, resp.AppendError(nil, "ERR Invalid stream ID specified as stream command argument"))
		}
		startIDs[j] = id
	}

	if blockMS < 0 {
		result := d.KS.XReadAfter(keys, startIDs)
		return d.reply(ctx, encodeXReadResult(result))
	}

	ch := d.Blocking.Register(ctx.ID, keys, startIDs, blockMS)
	result := <-ch
	return d.reply(ctx, encodeXReadResult(result))
}

func encodeXReadResult(result []keyspace.KeyEntries) []byte {
	if len(result) == 0 {
		return resp.NullBulkString()
	}

	var buf []byte
	buf = resp.AppendArrayHeader(buf, len(result))
	for _, ke := range result {
		buf = resp.AppendArrayHeader(buf, 2)
		buf = resp.AppendBulkString(buf, []byte(ke.Key))
		buf = append(buf, encodeEntries(ke.Entries)...)
	}
	return buf
}
