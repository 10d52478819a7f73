package main

import (
	"os"
	"strconv"
	"time"

	"github.com/gorilla/sessions"
	"github.com/joho/godotenv"
	"github.com/labstack/echo-contrib/session"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"todo-api/api"
	"todo-api/chat"
	"todo-api/storage"
)

func main() {
	_ = godotenv.Load()

	if dbg, err := strconv.ParseBool(os.Getenv("DEBUG")); err == nil && dbg {
		log.SetLevel(log.DebugLevel)
	}
	logger := log.New()

	otel.SetTracerProvider(sdktrace.NewTracerProvider())

	secret := os.Getenv("SECRET_KEY")
	if secret == "" {
		log.Fatal("missing SECRET_KEY")
	}

	snapshotPath := os.Getenv("SNAPSHOT_PATH")
	if snapshotPath == "" {
		snapshotPath = "tasks.json"
	}
	store := storage.New(snapshotPath, logger)

	var deduper chat.Deduper = chat.NopDeduper{}
	if redisConn := os.Getenv("REDIS_CONNECTION_STRING"); redisConn != "" {
		redisOpts, err := redis.ParseURL(redisConn)
		if err != nil {
			log.Fatalf("invalid REDIS_CONNECTION_STRING: %v", err)
		}
		ttl := 24 * time.Hour
		if v := os.Getenv("DEDUPER_TTL"); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil || d <= 0 {
				log.Fatalf("invalid DEDUPER_TTL: %v", err)
			}
			ttl = d
		}
		deduper = chat.NewRedisDeduper(redis.NewClient(redisOpts), ttl)
	}

	// A missing API key is not fatal: chat turns fail, the task API works.
	client := chat.NewClient(os.Getenv("GEMINI_API_KEY"), os.Getenv("GEMINI_MODEL"))
	bridge := chat.NewBridge(store, client, deduper, logger)

	e := echo.New()
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, "X-Requested-With"},
	}))
	e.Use(session.Middleware(sessions.NewCookieStore([]byte(secret))))

	renderer, err := api.NewRenderer()
	if err != nil {
		log.Fatalf("templates: %v", err)
	}
	e.Renderer = renderer

	api.Register(e, store, bridge, logger)

	listenAddr := ":8080"
	if v := os.Getenv("PORT"); v != "" {
		listenAddr = ":" + v
	}
	e.Logger.Fatal(e.Start(listenAddr))
}
