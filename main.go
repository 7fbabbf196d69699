package main

import "github.com/phux/apiverify/cmd"

func main() {
	cmd.Execute()
}
