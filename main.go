package main

import "dedoppel/cmd"

func main() {
	cmd.Execute()
}
