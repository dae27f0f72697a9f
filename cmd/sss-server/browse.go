package main

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/labnation/sss-go/pkg/discovery"
)

func newBrowseCommand() *cobra.Command {
	var (
		timeout time.Duration
		iface   string
	)
	cmd := &cobra.Command{
		Use:   "browse",
		Short: "List SmartScope servers advertised on the local network",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			browser := discovery.NewBrowser(discovery.BrowserConfig{Interface: iface})
			services, err := browser.Browse(ctx)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "INSTANCE\tHOST\tCONTROL\tDATA\tADDRESSES")
			found := 0
			for svc := range services {
				found++
				fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%s\n",
					svc.InstanceName, svc.Host, svc.Port, svc.DataPort, strings.Join(svc.Addresses, ","))
			}
			if err := w.Flush(); err != nil {
				return err
			}
			if found == 0 {
				fmt.Fprintf(cmd.ErrOrStderr(), "no %s services found within %s\n", discovery.ServiceType, timeout)
			}
			return nil
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", discovery.BrowseTimeout, "How long to listen for announcements")
	cmd.Flags().StringVar(&iface, "interface", "", "Network interface to browse on")
	return cmd
}
