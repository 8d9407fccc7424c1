package main

import "github.com/iksnae/synapse-chat/cmd"

func main() {
	cmd.Execute()
}
