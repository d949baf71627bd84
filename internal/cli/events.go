package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"quantum-ledger/internal/client"
	"quantum-ledger/internal/monitor"
	"quantum-ledger/internal/report"
)

func newEventsCmd(opts *globalOptions) *cobra.Command {
	var (
		remote    string
		eventType string
		limit     int
	)

	cmd := &cobra.Command{
		Use:   "events",
		Short: "List recent calculation events recorded by a running server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("limit") {
				limit = opts.cfg.Monitor.EventLimit
			}

			events, err := client.New(remote, remoteTimeout).Events(
				commandContext(cmd),
				monitor.EventType(strings.ToLower(strings.TrimSpace(eventType))),
				limit,
			)
			if err != nil {
				report.RenderError(cmd.ErrOrStderr(), err.Error())
				return err
			}

			report.RenderEvents(cmd.OutOrStdout(), events)
			return nil
		},
	}

	cmd.Flags().StringVar(&remote, "remote", "http://localhost:8000", "服务地址")
	cmd.Flags().StringVar(&eventType, "type", "", "事件类型 calculation|suggested_stop|rejected")
	cmd.Flags().IntVar(&limit, "limit", 0, "最多返回条数，默认取 monitor.event_limit")
	return cmd
}
