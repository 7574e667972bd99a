package main

import "github.com/dbsmedya/fdscan/cmd/fdscan/cmd"

func main() {
	cmd.Execute()
}
