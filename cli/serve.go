// ABOUTME: Bus daemon command: exposes the background context over a websocket
// ABOUTME: Keeps the stored token fresh while serving
package cli

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"

	"github.com/harperreed/skiff/auth"
	"github.com/harperreed/skiff/config"
	"github.com/harperreed/skiff/session"
)

// Serve runs the background context as a long-lived daemon. Foreground
// processes attach over the websocket bus at cfg.BusAddr.
func Serve(database *sql.DB, cfg *config.Config) error {
	cache, err := session.OpenCache(config.CachePath())
	if err != nil {
		cache = nil
	} else {
		defer cache.Close()
	}

	daemon := NewDaemon(database, cfg, cache)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	// Refresh the stored token so attached foregrounds never see an
	// expired credential.
	go auth.KeepFresh(ctx)

	mux := http.NewServeMux()
	mux.Handle("/bus", daemon.Dispatcher().ServeWS())

	fmt.Printf("skiff daemon listening on %s\n", cfg.BusAddr)
	if err := http.ListenAndServe(cfg.BusAddr, mux); err != nil {
		return fmt.Errorf("bus server failed: %w", err)
	}
	return nil
}
