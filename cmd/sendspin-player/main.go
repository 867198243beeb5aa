// ABOUTME: Entry point for the Sendspin player
// ABOUTME: Parses CLI flags and runs the player until a shutdown signal arrives
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/sendspin/sendspin-player-go/pkg/sendspin"
)

var (
	serverAddr     = flag.String("server", "", "Manual server address (skip mDNS discovery)")
	port           = flag.Int("port", 8927, "Port this player advertises itself on via mDNS")
	name           = flag.String("name", "", "Player friendly name (default: hostname-sendspin-player)")
	bufferMs       = flag.Int("buffer-ms", 11000, "Jitter buffer target in milliseconds")
	volume         = flag.Int("volume", 100, "Initial volume (0-100)")
	httpStream     = flag.Bool("http-stream", false, "Serve decoded audio over HTTP instead of the local device")
	httpStreamAddr = flag.String("http-stream-addr", ":8928", "Listen address when -http-stream is set")
	logFile        = flag.String("log-file", "sendspin-player.log", "Log file path")
)

func main() {
	flag.Parse()

	f, err := os.OpenFile(*logFile, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0o666)
	if err != nil {
		log.Fatalf("error opening log file: %v", err)
	}
	defer f.Close()

	log.SetOutput(io.MultiWriter(os.Stdout, f))

	playerName := *name
	if playerName == "" {
		hostname, err := os.Hostname()
		if err != nil {
			hostname = "unknown"
		}
		playerName = fmt.Sprintf("%s-sendspin-player", hostname)
	}

	log.Printf("Starting Sendspin player: %s", playerName)

	cfg := sendspin.PlayerConfig{
		ServerAddr:    *serverAddr,
		PlayerName:    playerName,
		Volume:        *volume,
		BufferMs:      *bufferMs,
		AdvertisePort: *port,
		OnMetadata: func(m sendspin.Metadata) {
			log.Printf("now playing: %s - %s", m.Artist, m.Title)
		},
		OnStateChange: func(s sendspin.PlayerState) {
			log.Printf("state: %s connected=%v codec=%s", s.State, s.Connected, s.Codec)
		},
		OnError: func(err error) {
			log.Printf("player error: %v", err)
		},
	}

	if *httpStream {
		cfg.Sink = sendspin.SinkHTTPStream
		cfg.HTTPStreamAddr = *httpStreamAddr
	}

	player, err := sendspin.NewPlayer(cfg)
	if err != nil {
		log.Fatalf("failed to create player: %v", err)
	}

	if *httpStream {
		go func() {
			log.Printf("serving audio stream on %s", *httpStreamAddr)
			if err := http.ListenAndServe(*httpStreamAddr, player.HTTPHandler()); err != nil {
				log.Printf("http stream server stopped: %v", err)
			}
		}()
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	if err := player.Connect(); err != nil {
		log.Fatalf("failed to connect: %v", err)
	}

	<-sigChan
	log.Printf("shutdown signal received")
	player.Close()
	log.Printf("player stopped")
}
