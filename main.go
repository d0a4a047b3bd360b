package main

import "glass-tracker/cmd"

func main() {
	cmd.Execute()
}
