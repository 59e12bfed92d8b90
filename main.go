package main

import "github.com/JIVTESH28/facewatch/cmd"

func main() {
	cmd.Execute()
}
