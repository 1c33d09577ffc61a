package main

import "docdex/cmd"

func main() {
	cmd.Execute()
}
