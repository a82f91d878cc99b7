package main

import (
	"VTube/cmd"
)

func main() {
	cmd.Execute()
}
