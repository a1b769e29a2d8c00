package main

import "github.com/Digital-Shane/catalog-tidy/internal/cmd"

func main() {
	cmd.Execute()
}
