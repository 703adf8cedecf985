package main

import "github.com/hackfest/realtime/cmd/realtime/cmd"

func main() {
	cmd.Execute()
}
