package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

func main() {
	// Local overrides (.env) are optional
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
