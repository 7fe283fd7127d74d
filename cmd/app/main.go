package main

import (
	"os"

	"github.com/mythic3011/AED-Api/cmd"
)

func main() {
	if err := cmd.Run(); err != nil {
		os.Exit(1)
	}
}
