// Command snapfolio runs the local content daemon: SQLite-backed library,
// REST API on localhost, and background cloud sync.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/evchen/snapfolio/internal/db"
	"github.com/evchen/snapfolio/internal/logging"
	"github.com/evchen/snapfolio/internal/remote"
	"github.com/evchen/snapfolio/internal/sync"
	"github.com/evchen/snapfolio/internal/sync/scheduler"
)

func main() {
	logging.Init(os.Stderr, logging.LevelInfo)

	dataDir := envOrDefault("SNAPFOLIO_DATA_DIR", "./data")
	port := envOrDefault("SNAPFOLIO_PORT", "8089")
	syncURL := strings.TrimSpace(os.Getenv("SNAPFOLIO_SYNC_URL"))
	accessKey := strings.TrimSpace(os.Getenv("SNAPFOLIO_ACCESS_KEY"))

	syncInterval := scheduler.DefaultInterval
	if raw := strings.TrimSpace(os.Getenv("SNAPFOLIO_SYNC_INTERVAL")); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			fmt.Fprintf(os.Stderr, "snapfolio: invalid SNAPFOLIO_SYNC_INTERVAL: %v\n", err)
			os.Exit(1)
		}
		syncInterval = d
	}

	database, err := db.Open(dataDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "snapfolio: %v\n", err)
		os.Exit(1)
	}
	defer database.Close()

	migrator := db.NewMigrator(database.DB)
	if err := migrator.Up(); err != nil {
		fmt.Fprintf(os.Stderr, "snapfolio: migration failed: %v\n", err)
		os.Exit(1)
	}

	repo := db.NewRepository(database)
	client := remote.NewClient(&remote.Config{BaseURL: syncURL, AccessKey: accessKey})

	hub := NewWSHub()
	engine := sync.NewEngine(sync.Local{
		Metadata:  repo,
		Conflicts: repo,
		Folders:   repo.Folders(),
		Tags:      repo.Tags(),
		Items:     repo.Items(),
	}, client, sync.WithEventHandler(hub.BroadcastSyncEvent))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if syncURL != "" {
		go scheduler.New(engine, syncInterval).Run(ctx)
	} else {
		logging.Warn("SNAPFOLIO_SYNC_URL not set, background sync disabled", nil)
	}

	app := &App{repo: repo, engine: engine, client: client}

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	api := r.Group("/api")
	{
		api.GET("/health", app.health)

		api.POST("/items", app.createItem)
		api.GET("/items", app.listItems)
		api.GET("/items/:id", app.getItem)
		api.PUT("/items/:id", app.updateItem)
		api.DELETE("/items/:id", app.deleteItem)
		api.POST("/items/:id/tags/:tagID", app.tagItem)
		api.DELETE("/items/:id/tags/:tagID", app.untagItem)
		api.GET("/items/:id/tags", app.listItemTags)

		api.POST("/folders", app.createFolder)
		api.GET("/folders", app.listFolders)
		api.GET("/folders/:id", app.getFolder)
		api.PUT("/folders/:id", app.updateFolder)
		api.DELETE("/folders/:id", app.deleteFolder)
		api.POST("/folders/:id/items/:itemID", app.addItemToFolder)
		api.DELETE("/folders/:id/items/:itemID", app.removeItemFromFolder)
		api.GET("/folders/:id/items", app.listFolderItems)

		api.POST("/tags", app.createTag)
		api.GET("/tags", app.listTags)
		api.PUT("/tags/:id", app.updateTag)
		api.DELETE("/tags/:id", app.deleteTag)

		api.GET("/search", app.search)
		api.GET("/memories", app.memories)

		api.POST("/auth/login", app.login)
		api.POST("/auth/logout", app.logout)
		api.POST("/sync", app.triggerSync)
		api.GET("/sync/status", app.syncStatus)
		api.GET("/sync/conflicts", app.syncConflicts)
	}
	r.GET("/ws", gin.WrapF(HandleWebSocket(hub)))

	logging.Info("snapfolio listening", map[string]interface{}{"addr": ":" + port})
	if err := r.Run(":" + port); err != nil {
		logging.Error("server stopped", err)
		os.Exit(1)
	}
}

func envOrDefault(key, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	return v
}
