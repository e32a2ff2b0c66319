package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/wayBiggger/way-bigger-sub000/api"
	"github.com/wayBiggger/way-bigger-sub000/config"
)

func main() {
	fmt.Println("Initializing app...")

	// Load environment variables from .env file
	if err := godotenv.Load(); err != nil {
		fmt.Printf("Warning: Error loading .env file: %v\n", err)
	}

	c := config.New()
	setupLogger(c, os.Stderr)

	ctx := context.Background()
	overlaySSM(ctx, c)

	a, err := buildApp(ctx, c)
	if err != nil {
		log.Fatal().Err(err).Msg("Error initializing app")
	}
	defer a.Close()

	// One-shot maintenance run, normally triggered by an external scheduler
	if config.GetBool(c, "RUN_EXPIRY_SWEEP", false) {
		log.Info().Msg("Running expiry sweep...")
		if err := runExpirySweep(ctx, a); err != nil {
			log.Error().Err(err).Msg("Expiry sweep failed")
			a.Close()
			os.Exit(1)
		}
		return
	}

	// One-shot level-scoped wipe of stored and cached projects
	if rawLevel := config.GetString(c, "WIPE_LEVEL", ""); rawLevel != "" {
		log.Info().Str("level", rawLevel).Msg("Wiping level...")
		if err := runWipe(ctx, a, rawLevel); err != nil {
			log.Error().Err(err).Msg("Wipe failed")
			a.Close()
			os.Exit(1)
		}
		return
	}

	// Start and listenToInterrupt each send at most once
	errChannel := make(chan error, 2)

	server, err := api.NewServer(c, a.dependencies())
	if err != nil {
		log.Fatal().Err(err).Msg("Error initializing server")
	}

	go server.Start(errChannel)

	// Listen for interrupt signals to gracefully shutdown the server
	go listenToInterrupt(errChannel)

	fatalErr := <-errChannel
	log.Info().Msgf("Closing server: %v", fatalErr)

	server.ShutdownGracefully(30 * time.Second)
}

// listenToInterrupt waits for SIGINT or SIGTERM and then sends an error to the error channel.
func listenToInterrupt(errChannel chan<- error) {
	c := make(chan os.Signal, 1)
	signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
	errChannel <- fmt.Errorf("%s", <-c)
}
