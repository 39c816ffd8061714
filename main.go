package main

import "github.com/jmehdipour/paywall/cmd"

func main() {
	cmd.Execute()
}
