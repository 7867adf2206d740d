package main

import (
	"context"
	"log"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/iradmi/vidstream-backend/internal/auth"
	"github.com/iradmi/vidstream-backend/internal/config"
	"github.com/iradmi/vidstream-backend/internal/database"
	"github.com/iradmi/vidstream-backend/internal/handler"
	"github.com/iradmi/vidstream-backend/internal/media"
	"github.com/iradmi/vidstream-backend/internal/queue"
	"github.com/iradmi/vidstream-backend/internal/repository"
	"github.com/iradmi/vidstream-backend/internal/router"
	queue_publisher "github.com/iradmi/vidstream-backend/internal/service"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	storage, err := media.NewStorage(context.Background(), media.Options{
		Endpoint:  cfg.S3Endpoint,
		Region:    cfg.S3Region,
		Bucket:    cfg.S3Bucket,
		AccessKey: cfg.S3AccessKey,
		SecretKey: cfg.S3SecretKey,
		PublicURL: cfg.S3PublicURL,
	})
	if err != nil {
		log.Fatalf("media storage: %v", err)
	}

	codec := auth.NewCodec(cfg.AccessTokenSecret, cfg.RefreshTokenSecret,
		cfg.AccessTokenTTL, cfg.RefreshTokenTTL)
	svc := auth.NewService(
		repository.NewUserRepo(db),
		repository.NewSessionRepo(db),
		auth.NewHasher(cfg.BcryptCost),
		codec,
	)

	events := queue_publisher.New(cfg.AMQPURL)
	if cfg.AMQPURL != "" {
		go func() {
			if err := queue.StartActivityConsumer(cfg.AMQPURL); err != nil {
				log.Printf("activity consumer stopped: %v", err)
			}
		}()
	}

	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Printf("redis unavailable, rate limiting disabled")
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(echomw.Logger())

	a := handler.NewAuthHandler(svc, storage, events)
	router.Register(e, a, config.LoadRateLimitConfig(), rdb)

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
