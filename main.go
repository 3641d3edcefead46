package main

import "github.com/lepinkainen/pricenest/cmd"

var execute = cmd.Execute

func main() {
	execute()
}
