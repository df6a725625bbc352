package main

import "github.com/covehq/wavegate/internal/cli"

func main() {
	cli.Execute()
}
