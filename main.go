package main

import "storeseo-cli/cmd"

func main() {
	cmd.Execute()
}
