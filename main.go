/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package main

import "github.com/pbms/apiserver/cmd"

func main() {
	cmd.Execute()
}
