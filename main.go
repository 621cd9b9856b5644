package main

import "github.com/andresmejia3/edgebench/cmd"

func main() {
	cmd.Execute()
}
