package main

import "github.com/KaramelBytes/segmenta/cmd"

func main() {
	cmd.Execute()
}
