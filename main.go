package main

import (
	"log"
	"os"
	"os/exec"
)

func main() {
	// Run the server from cmd/server, passing flags through
	cmd := exec.Command("go", append([]string{"run", "./cmd/server"}, os.Args[1:]...)...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Run(); err != nil {
		log.Fatalf("Failed to run server: %v", err)
	}
}
