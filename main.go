package main

import "notegrid.app/notegrid/cmd"

func main() {
	cmd.Execute()
}
