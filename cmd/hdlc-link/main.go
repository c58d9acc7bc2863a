package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/librescoot/hdlc-link/pkg/linkstate"
	"github.com/librescoot/hdlc-link/pkg/serialport"
	"github.com/librescoot/hdlc-link/pkg/service"
)

// Configuration flags
var (
	role          = flag.String("role", "primary", "Session role: primary or secondary")
	serialDevice  = flag.String("serial", "/dev/ttyUSB0", "Serial device path")
	baudRate      = flag.Int("baud", 115200, "Serial baud rate")
	primaryAddr   = flag.Int("primary-addr", 0x01, "Link address (shared by both stations, see DESIGN.md)")
	secondaryAddr = flag.Int("secondary-addr", 0x01, "Link address (shared by both stations, see DESIGN.md)")
	testInterval  = flag.Duration("test-interval", 5*time.Second, "Primary role: interval between link tests while connected (0 disables)")
	redisAddr     = flag.String("redis-addr", "localhost:6379", "Redis server address")
	redisPass     = flag.String("redis-pass", "", "Redis password")
	redisDB       = flag.Int("redis-db", 0, "Redis database number")
	noRedis       = flag.Bool("no-redis", false, "Disable link-state mirroring to Redis")
)

func main() {
	flag.Parse()

	log.SetFlags(log.Ldate | log.Ltime | log.Lmicroseconds)
	log.Printf("Starting hdlc-link (%s)", *role)
	log.Printf("Serial device: %s", *serialDevice)
	log.Printf("Baud rate: %d", *baudRate)

	var link *linkstate.Client
	if !*noRedis {
		var err error
		link, err = linkstate.New(*redisAddr, *redisPass, *redisDB)
		if err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		defer link.Close()
		log.Printf("Connected to Redis at %s", *redisAddr)
	}

	port, err := serialport.Open(*serialDevice, *baudRate)
	if err != nil {
		log.Fatalf("Failed to open serial port: %v", err)
	}
	defer port.Close()
	log.Printf("Opened serial port %s", *serialDevice)

	cfg := service.DefaultConfig(parseRole(*role))
	cfg.PrimaryAddr = byte(*primaryAddr)
	cfg.SecondaryAddr = byte(*secondaryAddr)
	cfg.TestInterval = *testInterval

	svc := service.New(cfg, port, link)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runDone := make(chan error, 1)
	go func() { runDone <- svc.Run(ctx) }()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigCh:
		log.Printf("Shutting down...")
		svc.Stop()
		cancel()
		<-runDone
	case err := <-runDone:
		if err != nil {
			log.Printf("Session loop exited: %v", err)
		}
	}
}

func parseRole(s string) service.Role {
	if s == "secondary" {
		return service.RoleSecondary
	}
	return service.RolePrimary
}
