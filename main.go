package main

import "github.com/Norgate-AV/assetc/cmd"

func main() {
	cmd.Execute()
}
