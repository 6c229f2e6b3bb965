package main

import (
	"os"

	servecmder "github.com/sheeehy/lena/cmd/lena/serve"
)

func main() {
	cmd := servecmder.NewServeCmd()
	cmd.Use = "lenaapi"
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("config-dir", "", "Override path to .lena/ config directory")

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
