// Package ops holds operator commands served over the unix socket
package ops

import (
	"context"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/go-json-experiment/json"
	"github.com/go-json-experiment/json/jsontext"
	"github.com/zeptools/certgw/constraints"
	"github.com/zeptools/certgw/issuer"
	"github.com/zeptools/certgw/uds"
)

var errEventIDRequired = errors.New("event id required")

func eventArg(args []string) (int64, error) {
	if len(args) < 1 {
		return 0, errEventIDRequired
	}
	return constraints.ParseID[int64](args[0])
}

// Commands builds the command map of the unix socket service
func Commands(iss *issuer.Issuer) map[string]uds.CmdHnd {
	return map[string]uds.CmdHnd{
		"stats": {
			Desc:  "certificate statistics of an event",
			Usage: "stats <eventID>",
			Fn: func(ctx context.Context, args []string, w io.Writer) error {
				id, err := eventArg(args)
				if err != nil {
					return err
				}
				st, err := iss.Stats(ctx, id)
				if err != nil {
					return err
				}
				tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
				_, _ = fmt.Fprintf(tw, "participants\t%d\n", st.TotalParticipants)
				_, _ = fmt.Fprintf(tw, "with certificates\t%d\n", st.WithCertificates)
				_, _ = fmt.Fprintf(tw, "without certificates\t%d\n", st.WithoutCertificates)
				_, _ = fmt.Fprintf(tw, "templates\t%d\n", st.TemplateCount)
				_, _ = fmt.Fprintf(tw, "progress\t%d%%\n", st.ProgressPercentage)
				_, _ = fmt.Fprintf(tw, "can generate\t%t\n", st.CanGenerate)
				return tw.Flush()
			},
		},
		"bulk": {
			Desc:  "issue certificates to every pending participant of an event",
			Usage: "bulk <eventID>",
			Fn: func(ctx context.Context, args []string, w io.Writer) error {
				id, err := eventArg(args)
				if err != nil {
					return err
				}
				report, err := iss.BulkGenerate(ctx, id)
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintf(w, "job %s: %d total, %d issued, %d failed\n",
					report.JobID, report.Total, report.SuccessCount, report.FailureCount)
				for _, item := range report.Failures() {
					_, _ = fmt.Fprintf(w, "  #%d %s (template %d): %s\n", item.ParticipantID, item.Name, item.TemplateIndex, item.Reason)
				}
				return nil
			},
		},
		"progress": {
			Desc:  "progress of the latest bulk run of an event",
			Usage: "progress <eventID>",
			Fn: func(ctx context.Context, args []string, w io.Writer) error {
				id, err := eventArg(args)
				if err != nil {
					return err
				}
				p, err := iss.Progress(ctx, id)
				if err != nil {
					return err
				}
				if err = json.MarshalWrite(w, p, jsontext.Multiline(true)); err != nil {
					return err
				}
				_, err = fmt.Fprintln(w)
				return err
			},
		},
		"history": {
			Desc:  "recent bulk runs of an event, newest last",
			Usage: "history <eventID>",
			Fn: func(ctx context.Context, args []string, w io.Writer) error {
				id, err := eventArg(args)
				if err != nil {
					return err
				}
				entries, err := iss.History(ctx, id)
				if err != nil {
					return err
				}
				if len(entries) == 0 {
					_, _ = fmt.Fprintln(w, "no bulk runs")
				}
				for _, e := range entries {
					_, _ = fmt.Fprintln(w, e)
				}
				return nil
			},
		},
	}
}
