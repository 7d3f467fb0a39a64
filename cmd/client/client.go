package main

import (
	"bufio"
	"context"
	"os"
	"os/signal"

	log "github.com/sirupsen/logrus"
	"github.com/zucenko/losttreasure/client"
)

func main() {
	cfg, err := client.LoadConfig()
	if err != nil {
		log.Fatalln(err)
	}
	if err := cfg.Logging.Apply(); err != nil {
		log.Fatalln(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	c, err := client.Dial(ctx, cfg, client.LogListener{})
	if err != nil {
		log.Fatalln(err)
	}
	defer c.Close()
	log.Infof("game %s, you are player %d; share GAME_TOKEN=%s", c.Token, c.Self, c.Token)

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-c.Done():
			log.Info("connection closed")
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			cmd, err := parse(line)
			if err != nil {
				log.Warn(err)
				continue
			}
			if cmd == nil {
				continue
			}
			if err := cmd(ctx, c); err != nil {
				log.Warn(err)
			}
		}
	}
}
