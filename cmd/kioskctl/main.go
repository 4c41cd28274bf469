package main

import (
	"github.com/joho/godotenv"

	"omnis/kiosk/internal/cli"
)

func main() {
	_ = godotenv.Load()
	cli.Execute()
}
