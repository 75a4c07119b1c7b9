package main

import "github.com/fermata-io/fermata/internal/cli"

func main() {
	cli.Execute()
}
