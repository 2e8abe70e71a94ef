// cmd/notify-tail/main.go
//
// notify-tail follows one recipient's live notification feed and prints each
// presented notification to the terminal. Useful for checking the pub/sub
// path end to end without a browser client.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"go.uber.org/zap"

	"autoparts-relay/internal/common/config"
	"autoparts-relay/internal/common/database"
	"autoparts-relay/internal/common/logger"
	"autoparts-relay/internal/feed"
	"autoparts-relay/internal/models"
	"autoparts-relay/internal/notify"
)

// consoleToaster prints notifications instead of rendering them.
type consoleToaster struct{}

func (consoleToaster) Show(title, body string) {
	fmt.Printf("[%s] %s\n", title, body)
}

// consoleHaptics renders the vibration pattern as a buzz line.
type consoleHaptics struct{}

func (consoleHaptics) Vibrate(pattern []int) {
	fmt.Printf("~bzz~ %s\n", strings.Trim(fmt.Sprint(pattern), "[]"))
}

func main() {
	recipient := flag.String("recipient", "", "recipient id to follow (required)")
	stream := flag.String("stream", "notifications", "record stream to follow")
	flag.Parse()

	if *recipient == "" {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	ctx := context.Background()

	redisClient, err := database.NewRedis(cfg.Database.Redis)
	if err != nil {
		zapLog.Fatal("redis connection failed", zap.Error(err))
	}
	defer redisClient.Close()
	if err := redisClient.Ping(ctx); err != nil {
		zapLog.Fatal("redis ping failed", zap.Error(err))
	}

	adapter := feed.NewAdapter(redisClient.GetClient(), cfg.Feed.ChannelPrefix, log)
	presenter := notify.NewPresenter(consoleToaster{}, consoleHaptics{}, log)

	sub, err := adapter.Subscribe(ctx, *stream, *recipient, func(event models.ChangeEvent) {
		presenter.Present(event)
	})
	if err != nil {
		zapLog.Fatal("subscribe failed", zap.Error(err))
	}
	defer sub.Close()

	fmt.Printf("following %s feed for %s, ctrl-c to stop\n", *stream, *recipient)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	fmt.Println("bye")
}
