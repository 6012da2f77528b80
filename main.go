package main

import "github.com/Bristol-Cyber-Security-Group/testbed-os-sub000/cmd"

func main() {
	cmd.Execute()
}
