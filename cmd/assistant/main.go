package main

import (
	"os"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"

	"autoasesor/internal/cli"
)

func main() {
	if err := godotenv.Load(".env"); err != nil {
		log.Debug("archivo .env no encontrado", "error", err)
	}

	if err := cli.RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
