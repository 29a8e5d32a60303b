// Command esfeed reads and writes event store streams from the command line.
//
//	esfeed --url http://127.0.0.1:2113 write orders-1 OrderCreated '{"id":1}'
//	esfeed read orders-1 --embed body
//	esfeed walk orders-1 --relation next --output yaml
//	esfeed delete orders-1 orders-2 --hard
//
// The store URL defaults to $EVENTSTORE_URL.
package main

import (
	"os"
)

var (
	version = "dev"
	commit  = "none"
)

func main() {
	if err := newRootCommand(version, commit).Execute(); err != nil {
		os.Exit(1)
	}
}
