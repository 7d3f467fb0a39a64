package server

import (
	"encoding/gob"
	"net/http"
	"strconv"

	"github.com/matryer/way"
	log "github.com/sirupsen/logrus"
)

// HandleUpdates streams the journaled broadcasts of a game after the ?after
// sequence number as consecutive gob values.
func HandleUpdates(journal Replayer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if journal == nil {
			w.WriteHeader(HTTP_NOT_FOUND)
			return
		}
		game := way.Param(r.Context(), "game")
		var after uint64
		if v := r.URL.Query().Get("after"); v != "" {
			var err error
			if after, err = strconv.ParseUint(v, 10, 64); err != nil {
				w.WriteHeader(HTTP_BAD_REQUEST)
				return
			}
		}
		msgs, err := journal.Since(r.Context(), game, after)
		if err != nil {
			log.Errorf("HandleUpdates %s: %v", game, err)
			w.WriteHeader(HTTP_SERVER_ERR)
			return
		}
		w.Header().Set("Content-Type", "application/octet-stream")
		enc := gob.NewEncoder(w)
		for _, m := range msgs {
			if err := enc.Encode(m); err != nil {
				log.Warnf("HandleUpdates %s: %v", game, err)
				return
			}
		}
	}
}
