// Command syncd runs the cloud sync service.
package main

import (
	"fmt"
	"os"

	"github.com/evchen/snapfolio/internal/logging"
	"github.com/evchen/snapfolio/internal/server"
)

func main() {
	logging.Init(os.Stderr, logging.LevelInfo)

	cfg, err := server.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "syncd: %v\n", err)
		os.Exit(1)
	}

	store, err := server.OpenStore(cfg.DatabasePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "syncd: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	h := server.NewHandler(cfg, store)
	r := server.NewRouter(cfg, h)

	addr := ":" + cfg.Port
	logging.Info("syncd listening", map[string]interface{}{"addr": addr})
	if err := r.Run(addr); err != nil {
		logging.Error("server stopped", err)
		os.Exit(1)
	}
}
