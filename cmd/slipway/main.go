package main

import "github.com/bitriver/slipway/internal/cmd"

func main() {
	cmd.Execute()
}
