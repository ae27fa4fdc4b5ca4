package main

import "product-meta-viewer/internal/cli"

func main() {
	cli.Execute()
}
