package main

import (
	"net/http"

	"github.com/matryer/way"
	log "github.com/sirupsen/logrus"
	"github.com/zucenko/losttreasure/journal"
	"github.com/zucenko/losttreasure/server"
)

type Server struct {
	router     *way.Router
	GameServer *server.GameServer
	Journal    *journal.Journal
}

func main() {
	cfg, err := server.LoadConfig()
	if err != nil {
		log.Fatalln(err)
	}
	if err := cfg.Logging.Apply(); err != nil {
		log.Fatalln(err)
	}

	s := Server{}
	var recorder server.Recorder
	if cfg.JournalPath != "" {
		if s.Journal, err = journal.Open(cfg.JournalPath); err != nil {
			log.Fatalln(err)
		}
		defer s.Journal.Close()
		recorder = s.Journal
		log.Infof("journaling to %s", cfg.JournalPath)
	}
	s.GameServer = server.NewGameServer(cfg, recorder)
	go s.GameServer.Loop()
	s.routes()
	log.Printf("listening on port %s", cfg.Port)
	log.Fatalln(http.ListenAndServe(":"+cfg.Port, s.router))
}
