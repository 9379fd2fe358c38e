package main

import "reelwatch/cmd"

func main() {
	cmd.Execute()
}
