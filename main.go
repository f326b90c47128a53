package main

import (
	"github.com/BioHazard786/Warpdraw/cmd"
	"github.com/BioHazard786/Warpdraw/internal/logging"
)

func main() {
	// Initialize logging
	logging.Init()
	cmd.Execute()
}
