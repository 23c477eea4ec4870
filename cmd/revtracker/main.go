package main

import (
	"startup-revenue-alerts/internal/cli"
)

func main() {
	cli.Execute()
}
