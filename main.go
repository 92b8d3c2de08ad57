package main

import (
	"log"

	"github.com/iamkucuk/photo-annotation-tool/cmd"
	"github.com/iamkucuk/photo-annotation-tool/config"
)

func main() {
	log.Printf("photo annotation tool %s (%s)", config.Version, config.CommitHash)
	cmd.Execute()
}
