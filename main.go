package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/MicahParks/keyfunc"
	"github.com/joho/godotenv"
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"taskflow-api/api"
	"taskflow-api/storage"
)

const firebaseJWKSURL = "https://www.googleapis.com/service_accounts/v1/jwk/securetoken@system.gserviceaccount.com"

func main() {
	_ = godotenv.Load()

	if dbg, err := strconv.ParseBool(os.Getenv("DEBUG")); err == nil && dbg {
		log.SetLevel(log.DebugLevel)
	}

	mongoURI := os.Getenv("MONGO_URI")
	if mongoURI == "" {
		log.Fatal("missing MONGO_URI")
	}
	dbName := os.Getenv("DB_NAME")
	if dbName == "" {
		dbName = "TaskFlow"
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	store, err := storage.New(ctx, mongoURI, dbName)
	cancel()
	if err != nil {
		log.Fatalf("storage: %v", err)
	}
	defer store.Close(context.Background())

	var backend api.Storage = store
	if redisConn := os.Getenv("REDIS_CONNECTION_STRING"); redisConn != "" {
		redisOpts, err := redis.ParseURL(redisConn)
		if err != nil {
			log.Fatalf("invalid REDIS_CONNECTION_STRING: %v", err)
		}
		ttl := 5 * time.Minute
		if v := os.Getenv("TASKS_CACHE_TTL"); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil || d <= 0 {
				log.Fatalf("invalid TASKS_CACHE_TTL: %v", err)
			}
			ttl = d
		}
		backend = storage.NewCache(store, redis.NewClient(redisOpts), ttl)
	}

	var auth api.Authenticator
	if os.Getenv("AUTH_TEST_MODE") == "1" {
		secret := os.Getenv("AUTH_TEST_SECRET")
		if secret == "" {
			log.Fatal("AUTH_TEST_MODE requires AUTH_TEST_SECRET")
		}
		auth = api.NewTestAuth([]byte(secret))
	} else if projectID := os.Getenv("FIREBASE_PROJECT_ID"); projectID != "" {
		jwks, err := keyfunc.Get(firebaseJWKSURL, keyfunc.Options{
			RefreshInterval: time.Hour,
			RefreshErrorHandler: func(err error) {
				log.Warnf("jwks refresh: %v", err)
			},
		})
		if err != nil {
			log.Fatalf("jwks: %v", err)
		}
		auth = api.NewAuth(jwks, projectID)
	}

	e := echo.New()
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))
	e.Use(echoprometheus.NewMiddleware("taskflow"))
	e.GET("/metrics", echoprometheus.NewHandler())

	logger := log.New()
	api.Register(e, backend, auth, logger)

	port := os.Getenv("PORT")
	if port == "" {
		port = "5000"
	}
	e.Logger.Fatal(e.Start(fmt.Sprintf(":%s", port)))
}
