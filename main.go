package main

import "github.com/josephgoksu/ngbuild/cmd"

func main() {
	cmd.Execute()
}
