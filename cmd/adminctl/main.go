// adminctl is a companion CLI for dnsauthd's admin JSON API - a typed
// substitute for the original daemon's bare curl-based admin workflow.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/cybertemp/dnsauthd/internal/adminclient"
	"github.com/cybertemp/dnsauthd/internal/models"
)

const defaultAPIURL = "http://localhost:5353"

var (
	apiURL   string
	insecure bool
)

func newClient() *adminclient.Client {
	return adminclient.NewClient(apiURL, 10*time.Second, insecure)
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "adminctl",
		Short: "Command-line client for the dnsauthd admin API",
		Long:  `adminctl talks to a running dnsauthd instance's admin JSON API to inspect and manage the domain registry.`,
	}

	root.PersistentFlags().StringVarP(&apiURL, "api-url", "u", defaultAPIURL, "Base URL of the admin API")
	root.PersistentFlags().BoolVarP(&insecure, "insecure", "i", false, "Skip TLS certificate verification")

	root.AddCommand(newHealthCmd())
	root.AddCommand(newStatsCmd())
	root.AddCommand(newDomainsCmd())

	return root
}

func newHealthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check admin API health",
		RunE: func(cmd *cobra.Command, _ []string) error {
			resp, err := newClient().Health(cmd.Context())
			if err != nil {
				return err
			}
			if resp.Warning != "" {
				fmt.Printf("status: %s (warning: %s)\n", resp.Status, resp.Warning)
				return nil
			}
			fmt.Printf("status: %s\n", resp.Status)
			return nil
		},
	}
}

func newStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show aggregate domain registry statistics",
		RunE: func(cmd *cobra.Command, _ []string) error {
			stats, err := newClient().Stats(cmd.Context())
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintf(w, "total\tverified\tpending\tgrace\tdiscord\tremote\n")
			fmt.Fprintf(w, "%d\t%d\t%d\t%d\t%d\t%t\n",
				stats.TotalDomains, stats.VerifiedDomains, stats.PendingVerification,
				stats.GracePeriod, stats.DiscordDomains, stats.RemoteConnected)
			return w.Flush()
		},
	}
}

func newDomainsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "domains",
		Short: "Manage registered domains",
	}
	cmd.AddCommand(newDomainsListCmd())
	cmd.AddCommand(newDomainsAddCmd())
	cmd.AddCommand(newDomainsRemoveCmd())
	cmd.AddCommand(newDomainsVerifyCmd())
	return cmd
}

func newDomainsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List every registered domain",
		RunE: func(cmd *cobra.Command, _ []string) error {
			views, err := newClient().ListDomains(cmd.Context())
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintf(w, "domain\tip\tstatus\tdiscord\tenabled\n")
			for _, v := range views {
				fmt.Fprintf(w, "%s\t%s\t%s\t%t\t%t\n", v.Domain, v.IP, v.VerificationStatus, v.Discord, v.Enabled)
			}
			return w.Flush()
		},
	}
}

func newDomainsAddCmd() *cobra.Command {
	var ip string
	var discord bool

	cmd := &cobra.Command{
		Use:   "add <domain>",
		Short: "Register a new domain",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			view, err := newClient().AddDomain(cmd.Context(), models.AddDomainRequest{
				Domain:  args[0],
				IP:      ip,
				Discord: discord,
			})
			if err != nil {
				return err
			}
			return printJSON(view)
		},
	}

	cmd.Flags().StringVar(&ip, "ip", "", "IP to answer A queries with (replaced by the configured Discord mail IP when --discord is set)")
	cmd.Flags().BoolVar(&discord, "discord", false, "Route this domain's mail/IP to the Discord target")
	return cmd
}

func newDomainsRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "remove <domain>",
		Aliases: []string{"rm"},
		Short:   "Remove a domain",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := newClient().RemoveDomain(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Printf("removed %s\n", args[0])
			return nil
		},
	}
}

func newDomainsVerifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify <domain>",
		Short: "Force an immediate, synchronous verification pass",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := newClient().ForceVerify(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(result)
		},
	}
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func main() {
	root := newRootCmd()
	root.SetContext(context.Background())
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
