package main

import "github.com/PowerBiDevCamp/DOTNET5-UserOwnsData-Tutorial/cmd/pbi-cli/cmd"

func main() {
	cmd.Execute()
}
