// Command dbping runs the same connectivity probe as GET /api/test from a
// shell, using the service configuration (.env and environment).
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/conforma/remitos-api/internal/config"
	"github.com/conforma/remitos-api/internal/db"
	apperr "github.com/conforma/remitos-api/internal/errors"
	"github.com/conforma/remitos-api/internal/logging"
	"github.com/conforma/remitos-api/internal/repos"
)

func main() {
	timeout := flag.Duration("timeout", 0, "probe deadline (default REQUEST_TIMEOUT)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	if *timeout <= 0 {
		*timeout = cfg.RequestTimeout
	}
	logger := logging.New(cfg.LogLevel, cfg.Env)

	opener, err := db.Open(cfg.DB)
	if err != nil {
		log.Fatal(err)
	}
	mgr := db.NewManager(opener, logger, nil)
	defer mgr.Close()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	store := &repos.Remitos{Pool: mgr, Dialect: cfg.DB.Driver}
	info, err := store.Probe(ctx)
	if err != nil {
		app := apperr.FromDB(err)
		fmt.Fprintf(os.Stderr, "probe failed [%s]: %v\n", app.Code, err)
		mgr.Close()
		os.Exit(1)
	}

	out, _ := json.MarshalIndent(map[string]any{
		"driver":   cfg.DB.Driver,
		"server":   cfg.DB.Host,
		"database": cfg.DB.Name,
		"version":  info.Version,
		"fecha":    info.Fecha.Format(time.RFC3339),
	}, "", "  ")
	fmt.Println(string(out))
}
