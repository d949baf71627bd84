package report

import (
	"encoding/json"
	"io"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"quantum-ledger/internal/monitor"
)

const maxPayloadWidth = 80

// RenderEvents 以表格输出监控事件，payload 压缩为单行 JSON。
func RenderEvents(w io.Writer, events []monitor.Event) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"ID", "Type", "Time", "Payload"})
	for _, ev := range events {
		t.AppendRow(table.Row{
			ev.ID,
			string(ev.Type),
			ev.Timestamp.Local().Format(time.DateTime),
			text.Trim(compactPayload(ev.Payload), maxPayloadWidth),
		})
	}
	t.AppendFooter(table.Row{"", "", "Total", len(events)})
	t.Render()
}

func compactPayload(payload interface{}) string {
	raw, err := json.Marshal(payload)
	if err != nil {
		return "<invalid payload>"
	}
	return string(raw)
}
