package main

import (
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/fakhriyor21/Quizbot-final/internal/cli"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	if err := cli.Execute(); err != nil {
		log.Error().Err(err).Msg("quizbot exited with error")
		os.Exit(1)
	}
}
