// Command roomctl talks to a rooms directory server from the terminal.
//
//	roomctl [--url ws://localhost:8080/api/ws/signal] ping
//	roomctl rooms [joincode]
//	roomctl join (--uuid ID | --name NAME [--publish] | --code CODE) [--prop k=v ...]
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"

	"github.com/dkeye/Rooms/internal/client"
	"github.com/dkeye/Rooms/internal/domain"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.WarnLevel)

	fs := pflag.NewFlagSet("roomctl", pflag.ExitOnError)
	url := fs.String("url", envOr("ROOMS_URL", "ws://localhost:8080/api/ws/signal"), "directory websocket url")
	timeout := fs.Duration("timeout", 5*time.Second, "per-request timeout")
	roomUUID := fs.String("uuid", "", "join: room uuid (created when unused)")
	name := fs.String("name", "", "join: create a room with this name")
	publish := fs.Bool("publish", false, "join: list the created room in discovery")
	code := fs.String("code", "", "join: join code")
	props := fs.StringArray("prop", nil, "join: peer property key=value, repeatable")
	verbose := fs.BoolP("verbose", "v", false, "debug logging")
	_ = fs.Parse(os.Args[1:])

	if *verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	if fs.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "usage: roomctl [flags] ping|rooms|join")
		fs.PrintDefaults()
		os.Exit(2)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	c, err := client.Dial(ctx, *url)
	if err != nil {
		log.Fatal().Err(err).Msg("connect")
	}
	runErr := make(chan error, 1)
	go func() { runErr <- c.Run(ctx) }()
	defer func() {
		_ = c.Close()
		<-runErr
	}()

	reqCtx := func() (context.Context, context.CancelFunc) { return context.WithTimeout(ctx, *timeout) }

	switch cmd := fs.Arg(0); cmd {
	case "ping":
		rc, done := reqCtx()
		defer done()
		res, err := c.Ping(rc)
		if err != nil {
			log.Fatal().Err(err).Msg("ping")
		}
		fmt.Printf("session %s rtt %s\n", res.SessionID, res.RTT)

	case "rooms":
		rc, done := reqCtx()
		defer done()
		rooms, err := c.DiscoverRooms(rc, fs.Arg(1))
		if err != nil {
			log.Fatal().Err(err).Msg("rooms")
		}
		for _, r := range rooms {
			printRoom(r)
		}

	case "join":
		for _, kv := range *props {
			k, v, _ := strings.Cut(kv, "=")
			_ = c.Me().SetProperty(k, v)
		}
		watch(c)

		rc, done := reqCtx()
		defer done()
		var info domain.RoomInfo
		switch {
		case *roomUUID != "":
			info, err = c.JoinByUUID(rc, *roomUUID)
		case *name != "":
			info, err = c.JoinByName(rc, *name, *publish)
		case *code != "":
			info, err = c.JoinByCode(rc, *code)
		default:
			err = errors.New("one of --uuid, --name or --code is required")
		}
		if err != nil {
			log.Fatal().Err(err).Msg("join")
		}
		printRoom(info)
		fmt.Println("watching, ctrl-c to leave")
		select {
		case <-ctx.Done():
		case err := <-runErr:
			runErr <- err
		}

	default:
		log.Fatal().Str("command", cmd).Msg("unknown command")
	}
}

func watch(c *client.Client) {
	c.OnPeerAdded.Subscribe(func(p domain.PeerInfo) { fmt.Printf("+ %s %v\n", p.UUID, p.Properties) })
	c.OnPeerUpdated.Subscribe(func(p domain.PeerInfo) { fmt.Printf("~ %s %v\n", p.UUID, p.Properties) })
	c.OnPeerRemoved.Subscribe(func(p domain.PeerInfo) { fmt.Printf("- %s\n", p.UUID) })
	c.OnRoomUpdated.Subscribe(func(r domain.RoomInfo) { fmt.Printf("room %v\n", r.Properties) })
}

func printRoom(r domain.RoomInfo) {
	fmt.Printf("%s\t%s\t%s\tpublished=%t\n", r.UUID, r.JoinCode, r.Name, r.Publish)
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
