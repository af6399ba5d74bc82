// Command flowtester drives the intake, handling and summary phases against
// a local customer file without starting the HTTP server. Useful for
// checking classification and action dispatch on a transcript.
package main

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/cardline/backend/internal/config"
	"github.com/cardline/backend/internal/model/customer"
	"github.com/cardline/backend/internal/service/accounts"
	"github.com/cardline/backend/internal/service/resolution"
	"github.com/cardline/backend/internal/service/speech"
	logx "github.com/cardline/backend/pkg/logger"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Warn().Err(err).Msg("no .env file loaded, using system environment only")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}
	logx.Init(logx.Config{Debug: cfg.Log.Debug, PrettyFormat: true})

	customerID := flag.String("customer", "", "customer id from the store file")
	cardLast4 := flag.String("card", "", "card last4 (defaults to the customer's first card)")
	transcript := flag.String("transcript", "", "complaint transcript text")
	audioPath := flag.String("audio", "", "audio file to transcribe instead of a transcript")
	mimeType := flag.String("mime", "audio/wav", "mime type of the audio file")
	storePath := flag.String("store", "", "customer file path (overrides CUSTOMER_STORE_PATH)")
	timeout := flag.Duration("timeout", 45*time.Second, "overall timeout")

	flag.Parse()

	if *customerID == "" {
		flag.Usage()
		log.Fatal().Msg("-customer is required")
	}
	if *transcript == "" && *audioPath == "" {
		flag.Usage()
		log.Fatal().Msg("provide -transcript or -audio")
	}

	path := cfg.Store.CustomerFile
	if *storePath != "" {
		path = *storePath
	}

	store := customer.NewFileStore(path)
	accountsSvc := accounts.NewService(store)
	speechSvc := speech.NewService(cfg.Speech.ServiceConfig())

	sessionStore := resolution.NewSessionStore(0, 0)
	defer sessionStore.Close()

	svc := resolution.NewService(sessionStore, store, speechSvc, accountsSvc)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	req := resolution.IntakeRequest{
		CustomerID: *customerID,
		CardLast4:  *cardLast4,
		Transcript: *transcript,
	}
	if *audioPath != "" {
		audio, err := os.ReadFile(*audioPath)
		if err != nil {
			log.Fatal().Err(err).Str("path", *audioPath).Msg("failed to read audio file")
		}
		req.AudioBase64 = base64.StdEncoding.EncodeToString(audio)
		req.MimeType = *mimeType
	}

	intake, err := svc.Begin(ctx, req)
	if err != nil {
		log.Fatal().Err(err).Msg("intake failed")
	}
	printPhase("intake", intake)

	handled, err := svc.Handle(ctx, intake.SessionID)
	if err != nil {
		log.Fatal().Err(err).Msg("handling failed")
	}
	printPhase("handling", handled)

	summary, err := svc.Summarize(ctx, intake.SessionID)
	if err != nil {
		log.Fatal().Err(err).Msg("summary failed")
	}
	printPhase("summary", summary)
}

func printPhase(name string, payload interface{}) {
	out, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		log.Fatal().Err(err).Str("phase", name).Msg("failed to encode result")
	}
	fmt.Printf("--- %s ---\n%s\n", name, out)
}
