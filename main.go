package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/samuelfneumann/gopg/examples"
)

func main() {
	algorithm := flag.String("agent", "reinforce", "agent to run: "+
		"reinforce or actorcritic")
	flag.Parse()

	switch *algorithm {
	case "reinforce":
		examples.Reinforce()
	case "actorcritic":
		examples.ActorCritic()
	default:
		fmt.Fprintf(os.Stderr, "unknown agent %v\n", *algorithm)
		os.Exit(1)
	}
}
