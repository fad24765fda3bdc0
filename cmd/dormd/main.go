package main

import (
	"errors"
	"io/fs"
	"log"
	"os"

	"github.com/joho/godotenv"
)

func main() {
	// Setup logger
	logger := log.New(os.Stdout, "dormd ", log.LstdFlags)

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		logger.Printf("Warning: could not load .env: %v", err)
	}

	if err := newRootCmd(logger).Execute(); err != nil {
		os.Exit(1)
	}
}
