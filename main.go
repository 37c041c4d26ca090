package main

import (
	"log"

	"github.com/cyberxz2077/Startup-Hub/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
