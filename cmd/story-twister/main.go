// Package main is the story-twister entry point (HTTP + WebSocket).
package main

import (
	"log"

	"github.com/s2010/story-twister/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
