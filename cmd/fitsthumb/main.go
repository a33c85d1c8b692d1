/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package main

import "github.com/ssargent/fitsthumb/cmd/fitsthumb/cmd"

func main() {
	cmd.Execute()
}
