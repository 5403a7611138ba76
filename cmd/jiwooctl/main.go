package main

import "github.com/jiwoo-ai/jiwoo/cmd/jiwooctl/cli"

func main() {
	cli.Execute()
}
