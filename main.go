package main

import "vccadmin/cmd"

func main() {
	cmd.Execute()
}
