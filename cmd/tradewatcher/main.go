package main

import (
	"trade-anomaly-alerts/internal/cli"
)

func main() {
	cli.Execute()
}
