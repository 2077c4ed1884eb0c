package main // Entry point package

import (
	"log"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/fundoo/notes-api/internal/auth"
	"github.com/fundoo/notes-api/internal/cache"
	"github.com/fundoo/notes-api/internal/config"
	"github.com/fundoo/notes-api/internal/database"
	"github.com/fundoo/notes-api/internal/handler"
	"github.com/fundoo/notes-api/internal/mail"
	"github.com/fundoo/notes-api/internal/queue"
	"github.com/fundoo/notes-api/internal/repository"
	"github.com/fundoo/notes-api/internal/router"
	"github.com/fundoo/notes-api/internal/utils"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()
	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Println("redis unavailable; note cache and rate limiting degrade to no-ops")
	}

	userRepo := repository.NewUserRepo(db)
	noteRepo := repository.NewNoteRepo(db)
	labelRepo := repository.NewLabelRepo(db)

	tokens := auth.NewService(cfg.JWTSecret, cfg.TokenTTL)
	noteCache := cache.NewNoteCache(rdb)
	validate := utils.NewValidator()

	var mailer mail.Sender = mail.LogSender{}
	if cfg.MailAPIKey != "" {
		mailer = mail.NewSendGridSender(cfg.MailAPIKey, cfg.MailFrom)
	}

	// Background worker for queued (non-critical) mail.
	if cfg.AMQPURL != "" {
		go queue.StartMailConsumer(cfg.AMQPURL, mailer)
	}

	e := echo.New()
	e.HideBanner = true

	router.Register(e,
		handler.NewUserHandler(cfg, userRepo, tokens, mailer, validate),
		handler.NewNoteHandler(noteRepo, noteCache, validate),
		handler.NewLabelHandler(labelRepo, validate),
		tokens,
		userRepo,
		config.LoadRateLimitConfig(),
		rdb,
	)

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)

	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
