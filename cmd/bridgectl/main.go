package main

import (
	"fmt"
	"os"

	"github.com/rail-service/hub_bridge/internal/infrastructure/config"
)

func main() {
	root := newRootCmd(&app{loadConfig: config.Load, out: os.Stdout})
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
