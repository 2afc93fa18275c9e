package main

import "github.com/tanda-protocol/tanda-collector/cmd"

func main() {
	cmd.Execute()
}
