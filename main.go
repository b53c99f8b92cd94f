package main

import "github.com/khanhnv2901/walletscan/cmd"

var execCmd = cmd.Execute

func main() {
	execCmd()
}
