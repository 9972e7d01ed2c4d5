package main

import "github.com/viktsys/tradepnl/cmd"

func main() {
	cmd.Execute()
}
