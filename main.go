package main

import "github.com/kozaktomas/face-whitelist/cmd"

func main() {
	cmd.Execute()
}
