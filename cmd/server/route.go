package main

import (
	"github.com/matryer/way"
	"github.com/zucenko/losttreasure/server"
)

const (
	URI_WS      = "/play"
	URI_UPDATES = "/games/:game/updates"
)

func (s *Server) routes() {
	s.router = way.NewRouter()
	s.router.HandleFunc("GET", URI_WS, s.GameServer.HandleHttpCall())
	var replayer server.Replayer
	if s.Journal != nil {
		replayer = s.Journal
	}
	s.router.HandleFunc("GET", URI_UPDATES, server.HandleUpdates(replayer))
}
