package main

import (
	"os"

	lenacmder "github.com/sheeehy/lena/cmd/lena"
)

func main() {
	cmd := lenacmder.NewLenaCmd()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
