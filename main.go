package main

import "entrepreneur-connect-backend/cmd"

func main() {
	cmd.Execute()
}
