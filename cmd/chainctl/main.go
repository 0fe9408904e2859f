package main

import "github.com/coreblock/node/cmd/chainctl/cmd"

func main() {
	cmd.Execute()
}
