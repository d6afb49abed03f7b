package main

import "pos-backoffice/cli"

func main() {
	cli.Execute()
}
