package main

import "pathwise-backend/cmd/pathwise-cli/cmd"

func main() {
	cmd.Execute()
}
