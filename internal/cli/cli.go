// Package cli provides the command-line interface for dnsauthd.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// PackageVersion is the current version of the CLI.
const PackageVersion = "1.0.0"

// NewRootCmd creates the root CLI command. Unlike the original daemon's
// multi-binary split (server, worker, query), dnsauthd runs one process
// that owns the DNS responder, sync engine, verifier, and admin API
// together, so the root command itself starts the daemon rather than
// dispatching to a subcommand.
func NewRootCmd() *cobra.Command {
	var configPath string
	var redisURL string
	var daemon bool

	cmd := &cobra.Command{
		Use:     "dnsauthd",
		Short:   "Authoritative DNS responder for cybertemp.xyz",
		Long:    `dnsauthd answers authoritative DNS queries for verified cybertemp.xyz subdomains, reconciling its registry against an external record-of-truth and exposing an admin JSON API.`,
		Version: PackageVersion,
		Example: `  # Start with default config
  dnsauthd

  # Start with a custom config file
  dnsauthd --config /etc/dnsauthd/dns.yaml

  # Start with Redis-backed periodic scheduling
  dnsauthd --redis redis://localhost:6379/0`,
		RunE: func(_ *cobra.Command, _ []string) error {
			return runServe(configPath, redisURL, daemon)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", os.Getenv("CONFIG_PATH"), "Path to config file")
	cmd.Flags().StringVarP(&redisURL, "redis", "r", os.Getenv("REDIS_URL"), "Redis URL (optional, enables distributed periodic scheduling)")
	cmd.Flags().BoolVarP(&daemon, "daemon", "d", false, "Run as a background daemon (informational; logged, no behavior change)")

	return cmd
}

// Execute runs the CLI.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
