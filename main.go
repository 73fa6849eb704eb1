package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/tunecrate/tunecrate/backend"
	"github.com/tunecrate/tunecrate/res"
)

func main() {
	myApp, err := backend.StartupApp(res.AppName, res.AppVersionTag)
	if err != nil {
		log.Fatalf("fatal startup error: %v", err.Error())
	}

	// populate the catalog and lookup stores
	myApp.Orchestrator.FetchSongs()
	myApp.Orchestrator.FetchLookups()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig

	log.Println("Running shutdown tasks...")
	myApp.Shutdown()
}
