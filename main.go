package main

import "github.com/renubu/renubu/cmd"

func main() {
	cmd.Execute()
}
