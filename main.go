package main

import "github.com/stealthybif/dcan-bold-processing/cmd"

func main() {
	cmd.Execute()
}
