// dnsauthd entrypoint - delegates to cli.NewRootCmd.
package main

import "github.com/cybertemp/dnsauthd/internal/cli"

func main() {
	cli.Execute()
}
