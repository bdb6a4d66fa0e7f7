package main

import "github.com/mcastellin/scuttlebutt/cmd"

func main() {
	cmd.Execute()
}
