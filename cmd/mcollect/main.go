package main

import (
	_ "go.uber.org/automaxprocs"

	"github.com/emiliopalmerini/mcollect/internal/cli"
)

func main() {
	cli.Execute()
}
