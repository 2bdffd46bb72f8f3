// Command harness scores how well a repository supports AI coding agents.
package main

import (
	"os"

	"github.com/Dicklesworthstone/harness/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
