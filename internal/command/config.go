package command

import (
	"fmt"
	"strings"

	"github.com/redikeep/redikeep/internal/resp"
)

func handleConfig(d *Dispatcher, ctx *ConnCtx, args [][]byte, raw []byte) error {
	if len(args) < 3 || !strings.EqualFold(string(args[1]), "GET") {
		return d.reply(ctx, resp.AppendError(nil, "ERR syntax error"))
	}

	name := string(args[2])
	var value string
	switch strings.ToLower(name) {
	case "dir":
		value = d.Config.Dir
	case "dbfilename":
		value = d.Config.DBFilename
	default:
		return d.reply(ctx, resp.NullArray())
	}

	return d.reply(ctx, resp.AppendArrayOfBulkStrings(nil, [][]byte{[]byte(name), []byte(value)}))
}

func handleInfo(d *Dispatcher, ctx *ConnCtx, args [][]byte, raw []byte) error {
	var lines []string
	if d.Leader != nil {
		lines = []string{
			"role:master",
			"master_replid:" + d.ReplID,
			fmt.Sprintf("master_repl_offset:%d", d.Leader.Offset()),
		}
	} else {
		offset := int64(0)
		if d.FollowerOffset != nil {
			offset = d.FollowerOffset()
		}
		lines = []string{
			"role:slave",
			"master_replid:" + d.ReplID,
			fmt.Sprintf("master_repl_offset:%d", offset),
		}
	}

	return d.reply(ctx, resp.AppendBulkString(nil, []byte(strings.Join(lines, "\r\n"))))
}
