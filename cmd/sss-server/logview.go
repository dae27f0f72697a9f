package main

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/labnation/sss-go/pkg/log"
	"github.com/labnation/sss-go/pkg/wire"
)

func newLogCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "log",
		Short: "Inspect protocol log files",
	}
	cmd.AddCommand(newLogViewCommand())
	return cmd
}

// viewOptions are the raw filter flags of log view.
type viewOptions struct {
	connID    string
	direction string
	layer     string
	category  string
	channel   string
	command   string
	since     string
	until     string
}

func newLogViewCommand() *cobra.Command {
	var opts viewOptions
	cmd := &cobra.Command{
		Use:   "view <file>",
		Short: "Print a CBOR protocol log in human-readable form",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			filter, err := opts.filter()
			if err != nil {
				return err
			}
			reader, err := log.NewFilteredReader(args[0], filter)
			if err != nil {
				return err
			}
			defer reader.Close()

			n, err := viewEvents(cmd.OutOrStdout(), reader)
			if errors.Is(err, log.ErrTruncatedCapture) {
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: %v\n", err)
			} else if err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "%d events\n", n)
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.connID, "conn-id", "", "Only this connection (full UUID)")
	f.StringVar(&opts.direction, "direction", "", "in or out")
	f.StringVar(&opts.layer, "layer", "", "transport, wire or server")
	f.StringVar(&opts.category, "category", "", "message, state or error")
	f.StringVar(&opts.channel, "channel", "", "control or data")
	f.StringVar(&opts.command, "command", "", "Command name or tag, e.g. GET or 0x18")
	f.StringVar(&opts.since, "since", "", "Only events at or after this RFC 3339 time")
	f.StringVar(&opts.until, "until", "", "Only events before this RFC 3339 time")
	return cmd
}

func (o viewOptions) filter() (log.Filter, error) {
	f := log.Filter{ConnectionID: o.connID}

	var err error
	if f.Direction, err = optional(o.direction, log.ParseDirection); err != nil {
		return f, err
	}
	if f.Layer, err = optional(o.layer, log.ParseLayer); err != nil {
		return f, err
	}
	if f.Category, err = optional(o.category, log.ParseCategory); err != nil {
		return f, err
	}
	if f.Channel, err = optional(o.channel, log.ParseChannel); err != nil {
		return f, err
	}

	if o.command != "" {
		cmd, err := wire.ParseCommand(o.command)
		if err != nil {
			return f, err
		}
		f.Command = &cmd
	}

	for _, tf := range []struct {
		raw string
		dst **time.Time
	}{{o.since, &f.TimeStart}, {o.until, &f.TimeEnd}} {
		if tf.raw == "" {
			continue
		}
		t, err := time.Parse(time.RFC3339, tf.raw)
		if err != nil {
			return f, fmt.Errorf("invalid time %q: %w", tf.raw, err)
		}
		*tf.dst = &t
	}
	return f, nil
}

// optional parses raw unless it is empty, in which case the filter field
// stays nil.
func optional[T any](raw string, parse func(string) (T, error)) (*T, error) {
	if raw == "" {
		return nil, nil
	}
	v, err := parse(raw)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// eventSource yields events until io.EOF.
type eventSource interface {
	Next() (log.Event, error)
}

func viewEvents(w io.Writer, src eventSource) (int, error) {
	n := 0
	for {
		event, err := src.Next()
		if errors.Is(err, io.EOF) {
			return n, nil
		}
		if err != nil {
			return n, err
		}
		formatEvent(w, event)
		n++
	}
}

// formatEvent writes a human-readable representation of the event to w.
func formatEvent(w io.Writer, event log.Event) {
	ts := event.Timestamp.UTC().Format("2006-01-02T15:04:05.000000Z")

	var label string
	switch {
	case event.Frame != nil:
		label = "Frame " + event.Frame.Command.String()
	case event.Command != nil:
		label = "Command " + event.Command.Command.String()
	case event.StateChange != nil:
		label = "State " + event.StateChange.Entity.String()
	case event.Error != nil:
		label = "Error"
	default:
		label = "Unknown"
	}

	fmt.Fprintf(w, "%s [conn:%s] %-7s %-3s %s %s\n", ts, shortenConnID(event.ConnectionID),
		event.Channel, event.Direction, event.Layer, label)

	switch {
	case event.Frame != nil:
		fmt.Fprintf(w, "  Size: %d bytes\n", event.Frame.Size)
		if len(event.Frame.Data) > 0 {
			fmt.Fprintf(w, "  Data: %s", hex.EncodeToString(event.Frame.Data))
			if event.Frame.Truncated {
				fmt.Fprint(w, " (truncated)")
			}
			fmt.Fprintln(w)
		}
	case event.Command != nil:
		c := event.Command
		if c.Controller != nil && c.Address != nil && c.Length != nil {
			fmt.Fprintf(w, "  Target: ctrl %d addr %#04x len %d\n", *c.Controller, *c.Address, *c.Length)
		}
		fmt.Fprintf(w, "  Replied: %t\n", c.Replied)
		if c.ProcessingTime != nil {
			fmt.Fprintf(w, "  Duration: %s\n", c.ProcessingTime.Round(time.Microsecond))
		}
		if c.Error != "" {
			fmt.Fprintf(w, "  Error: %s\n", c.Error)
		}
	case event.StateChange != nil:
		sc := event.StateChange
		if sc.OldState != "" {
			fmt.Fprintf(w, "  %s -> %s\n", sc.OldState, sc.NewState)
		} else {
			fmt.Fprintf(w, "  -> %s\n", sc.NewState)
		}
		if sc.Reason != "" {
			fmt.Fprintf(w, "  Reason: %s\n", sc.Reason)
		}
	case event.Error != nil:
		if event.Error.Class != "" {
			fmt.Fprintf(w, "  Class: %s\n", event.Error.Class)
		}
		if event.Error.Context != "" {
			fmt.Fprintf(w, "  Context: %s\n", event.Error.Context)
		}
		fmt.Fprintf(w, "  Message: %s\n", event.Error.Message)
	}
	fmt.Fprintln(w)
}

// shortenConnID returns the first 8 characters of the connection ID.
func shortenConnID(id string) string {
	if id == "" {
		return "-"
	}
	if len(id) >= 8 {
		return id[:8]
	}
	return id
}
