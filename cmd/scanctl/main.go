// Command scanctl uploads a PDF to a running pdfscan server, triggers
// extraction and polls until the document is completed or failed.
//
//	scanctl -file report.pdf
//	scanctl -id 65f0c0ffee... (poll an existing document only)
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/pdfscan/pdfscan/internal/poller"
	"github.com/pdfscan/pdfscan/internal/tokens"
	"github.com/pdfscan/pdfscan/pkg/logger"
)

func main() {
	server := flag.String("server", envOr("PDFSCAN_SERVER", "http://localhost:5001"), "server base URL")
	file := flag.String("file", "", "PDF to upload")
	id := flag.String("id", "", "poll an already uploaded document instead of uploading")
	interval := flag.Duration("interval", poller.DefaultInterval, "status poll interval")
	maxAttempts := flag.Int("max-attempts", poller.DefaultMaxAttempts, "give up after this many polls")
	token := flag.String("token", os.Getenv("PDFSCAN_TOKEN"), "bearer token; minted from JWT_SECRET when empty")
	logLevel := flag.String("log-level", envOr("LOG_LEVEL", "warn"), "debug|info|warn|error")
	flag.Parse()

	logger.Init(*logLevel)

	if (*file == "") == (*id == "") {
		fmt.Fprintln(os.Stderr, "exactly one of -file or -id is required")
		flag.Usage()
		os.Exit(2)
	}

	bearer := *token
	if bearer == "" {
		if secret := os.Getenv("JWT_SECRET"); secret != "" {
			t, err := tokens.Sign(secret, "scanctl", 15*time.Minute)
			if err != nil {
				logger.Fatalf("mint token: %v", err)
			}
			bearer = t
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	p := poller.New(poller.NewClient(*server, nil, bearer), poller.Options{
		Interval:    *interval,
		MaxAttempts: *maxAttempts,
		OnChange: func(s poller.State, doc *poller.Status) {
			if doc != nil && doc.ID != "" {
				logger.Infof("%s (document %s, status %s)", s, doc.ID, doc.ExtractionStatus)
				return
			}
			logger.Infof("%s", s)
		},
	})

	var (
		st  *poller.Status
		err error
	)
	if *id != "" {
		st, err = p.Await(ctx, *id)
	} else {
		f, openErr := os.Open(*file)
		if openErr != nil {
			logger.Fatalf("open %s: %v", *file, openErr)
		}
		st, err = p.Run(ctx, filepath.Base(*file), f)
		_ = f.Close()
	}

	if st != nil {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(st)
	}
	if err != nil {
		if errors.Is(err, context.Canceled) {
			os.Exit(130)
		}
		logger.Errorf("%v", err)
		os.Exit(1)
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
