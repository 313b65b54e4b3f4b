package main

import "github.com/jackalstv/eon-security-audit/cmd"

var execCmd = cmd.Execute

func main() {
	execCmd()
}
