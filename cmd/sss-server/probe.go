package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/labnation/sss-go/pkg/client"
	"github.com/labnation/sss-go/pkg/version"
)

func newProbeCommand() *cobra.Command {
	var (
		timeout    time.Duration
		minVersion string
	)
	cmd := &cobra.Command{
		Use:   "probe <host:port>",
		Short: "Query a server's version, build and data port",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var need *version.ProtocolVersion
			if minVersion != "" {
				v, err := version.Parse(minVersion)
				if err != nil {
					return err
				}
				need = &v
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()
			return probe(ctx, cmd, args[0], timeout, need)
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", client.DefaultTimeout, "Overall timeout")
	cmd.Flags().StringVar(&minVersion, "require", "", "Fail unless the server speaks at least this major.minor protocol")
	return cmd
}

// ErrIncompatible is returned by probe when the server's protocol does not
// satisfy --require.
var ErrIncompatible = errors.New("incompatible protocol version")

func probe(ctx context.Context, cmd *cobra.Command, addr string, timeout time.Duration, need *version.ProtocolVersion) error {
	c, err := client.Dial(ctx, addr, client.Config{Timeout: timeout})
	if err != nil {
		return err
	}
	defer c.Close()

	info, err := c.ServerInfo(ctx)
	if err != nil {
		return fmt.Errorf("SERVER_INFO: %w", err)
	}
	dataPort, err := c.DataPort(ctx)
	if err != nil {
		return fmt.Errorf("DATA_PORT: %w", err)
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "Server:    %s\n", addr)
	remote := version.ProtocolVersion{Major: info.Major, Minor: info.Minor}
	compat := "no"
	if remote.Compatible(version.Current()) {
		compat = "yes"
	}
	fmt.Fprintf(w, "Protocol:  %s (compatible: %s)\n", remote, compat)
	fmt.Fprintf(w, "Flavor:    %s\n", info.Flavor)
	fmt.Fprintf(w, "Build:     %s\n", info.Build)
	fmt.Fprintf(w, "Data port: %d\n", dataPort)

	if serial, err := c.Serial(ctx); err == nil {
		fmt.Fprintf(w, "Serial:    %s\n", serial)
	} else {
		fmt.Fprintf(w, "Serial:    unavailable (%v)\n", err)
	}

	if need != nil && (!remote.Compatible(*need) || remote.Packed() < need.Packed()) {
		return fmt.Errorf("%w: server speaks %s, need %s", ErrIncompatible, remote, need)
	}
	return nil
}
