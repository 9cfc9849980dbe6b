package main

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/onboardhq/sharefile-connect/credential"
	"github.com/onboardhq/sharefile-connect/credential/mongorepo"
	"github.com/onboardhq/sharefile-connect/credential/repofake"
	"github.com/onboardhq/sharefile-connect/internal/config"
	"github.com/onboardhq/sharefile-connect/server"
	"github.com/onboardhq/sharefile-connect/server/authstaterepo"
	"github.com/onboardhq/sharefile-connect/sharefile"
	"github.com/onboardhq/sharefile-connect/sharefile/refresher"
)

func main() {
	for {
		if err := run(); err != nil {
			log.Fatalf("Error running server: %s\n", err)
			time.Sleep(1 * time.Second)
		} else {
			break
		}
	}
	log.Printf("Server stopped\n")
}

func run() (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Recovered from panic: %v\n", r)
			debug.PrintStack()
			returnError = errors.New("panic recovered")
		}
	}()

	c := config.New()
	displayAppname(c.GetAppName())

	creds, cleanup, err := newCredentialRepo(c)
	if err != nil {
		return err
	}
	defer cleanup()

	client := sharefile.NewClient(c)
	ref := refresher.New(creds, client, c)
	scheduler := refresher.NewScheduler(ref, creds, c)
	gateway := sharefile.NewGateway(creds, ref, c)

	srv, err := server.New(c, creds, client, gateway, scheduler, newAuthStateRepo(c), adminGate())
	if err != nil {
		return fmt.Errorf("server.New: %w", err)
	}

	scheduler.Start()
	defer scheduler.Stop()

	httpServer := &http.Server{Addr: c.GetPort(), Handler: srv}
	go listenAndServe(httpServer)
	waitForStopSignal()
	return shutdown(httpServer)
}

func newCredentialRepo(c config.Config) (credential.Repo, func(), error) {
	uri := c.GetMongoURI()
	if uri == "" {
		log.Printf("MONGO_URI not set, using in-memory credential store\n")
		return repofake.NewFakeCredentialRepo(), func() {}, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	mongoClient, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, nil, fmt.Errorf("mongo.Connect: %w", err)
	}
	cleanup := func() {
		_ = mongoClient.Disconnect(context.Background())
	}
	return mongorepo.NewMongoCredentialRepo(mongoClient.Database(c.GetMongoDatabase())), cleanup, nil
}

func newAuthStateRepo(c config.Config) authstaterepo.Repo {
	addr := c.GetRedisAddr()
	if addr == "" {
		return authstaterepo.NewInMemoryRepo()
	}
	return authstaterepo.NewRedisRepo(redis.NewClient(&redis.Options{Addr: addr}))
}

// adminGate builds the administrator check from a shared API token.
// The full application replaces this with its session-based check; the
// standalone service only needs a process-level secret.
func adminGate() server.AdminGate {
	token := config.GetEnv("ADMIN_API_TOKEN", "")
	return func(r *http.Request) (string, bool) {
		if token == "" {
			return "", false
		}
		presented := r.Header.Get("X-Admin-Token")
		if subtle.ConstantTimeCompare([]byte(presented), []byte(token)) != 1 {
			return "", false
		}
		return "admin", true
	}
}

func listenAndServe(server *http.Server) error {
	log.Printf("Server listening on %s\n", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server.ListenAndServe %w", err)
	}
	return nil
}

func waitForStopSignal() {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
}

func shutdown(server *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
