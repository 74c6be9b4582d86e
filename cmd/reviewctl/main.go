// Command reviewctl queries and maintains the review store from a terminal.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd(openBootstrap).Execute(); err != nil {
		os.Exit(1)
	}
}
