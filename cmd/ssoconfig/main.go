// Command ssoconfig manages SSO application configuration properties.
package main

import "github.com/mesh-intelligence/ssoconfig/internal/cli"

func main() {
	cli.Execute()
}
