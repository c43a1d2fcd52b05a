package main

import (
	"context"
	"log"
	"os"

	"github.com/dmitrijs2005/quicklyway/internal/server"
	"github.com/dmitrijs2005/quicklyway/internal/server/config"
)

func main() {

	ctx := context.Background()
	cfg := config.LoadConfig()

	os.Exit(run(ctx, cfg))

}

// run returns the process exit code.
func run(ctx context.Context, cfg *config.Config) int {
	app, err := server.NewApp(ctx, cfg)

	if err != nil {
		log.Printf("%v", err)
		return 1
	}

	app.Run(ctx)
	return 0
}
