package main

import "commodity-price-intel/internal/cli"

func main() {
	cli.Execute()
}
