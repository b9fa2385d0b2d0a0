// main.go - Entry point
package main

import "github.com/valpere/mapforge/cmd"

func main() {
	cmd.Execute()
}
