package main

import (
	"context"
	"flag"
	"log"
	"net/http"

	"github.com/erntsn/todo-app/config"
	"github.com/erntsn/todo-app/handlers"
	"github.com/erntsn/todo-app/store"
	"github.com/erntsn/todo-app/utils"
)

func main() {
	configPath := flag.String("config", "", "optional config file (yaml, json or toml)")
	flag.Parse()

	cfg, err := config.LoadServer(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx := context.Background()
	client, err := config.ConnectDB(ctx, cfg.MongoURI)
	if err != nil {
		log.Fatalf("connect to MongoDB: %v", err)
	}
	defer client.Disconnect(ctx)

	db := client.Database(cfg.MongoDB)
	tasks := store.NewTaskStore(db, cfg.RequestTimeout)
	users := store.NewUserStore(db, cfg.RequestTimeout)
	if err := tasks.EnsureIndexes(ctx); err != nil {
		log.Fatalf("create task indexes: %v", err)
	}
	if err := users.EnsureIndexes(ctx); err != nil {
		log.Fatalf("create user indexes: %v", err)
	}

	tokens := utils.NewTokenIssuer(cfg.JWTSecret, cfg.TokenTTL)
	router := handlers.NewRouter(handlers.NewHandler(tasks), handlers.NewAuthHandler(users, tokens))

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	log.Printf("server starting on port %s", cfg.Port)
	log.Fatal(server.ListenAndServe())
}
