package main

import (
	"os"
)

func main() {
	if err := NewRootCmd(defaultApp()).Execute(); err != nil {
		os.Exit(1)
	}
}
