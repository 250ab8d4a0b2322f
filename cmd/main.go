package main

import (
	"fmt"
	"os"

	"github.com/tener/recruit-core/internal/app"
	"github.com/tener/recruit-core/internal/platform/envutil"
)

func main() {
	a, err := app.New()
	if err != nil {
		fmt.Printf("failed to initialize app: %v\n", err)
		os.Exit(1)
	}
	defer a.Close()

	runServer := envutil.Bool("RUN_SERVER", true)
	runWorker := envutil.Bool("RUN_WORKER", true)

	a.Start(runWorker)

	if runServer {
		fmt.Printf("server listening on :%s\n", a.Cfg.Port)
		if err := a.Run(":" + a.Cfg.Port); err != nil {
			a.Log.Warn("server failed", "error", err)
		}
		return
	}

	// Worker-only container: keep process alive.
	select {}
}
