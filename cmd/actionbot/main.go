package main

import "actionbot/internal/cli"

func main() {
	cli.Execute()
}
