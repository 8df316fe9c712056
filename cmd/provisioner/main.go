package main

import "github.com/minhvu-dev/provisioner/internal/cli"

func main() {
	cli.Execute()
}
