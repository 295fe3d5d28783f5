package model

import (
	"time"

	"github.com/a-bouts/regatta-server/game"
	"github.com/a-bouts/regatta-server/race"
	"github.com/a-bouts/regatta-server/server"
	"github.com/a-bouts/regatta-server/wind"
)

// Race is the admin snapshot of the running race.
type Race struct {
	Time      time.Time            `json:"time"`
	Stage     game.Stage           `json:"stage"`
	Phase     int                  `json:"phase"`
	StartTime time.Time            `json:"startTime"`
	Wind      wind.Wind            `json:"wind"`
	Course    string               `json:"course"`
	Host      int                  `json:"host,omitempty"`
	Boats     []game.Boat          `json:"boats"`
	Tokens    []race.Token         `json:"tokens"`
	Sessions  []server.SessionInfo `json:"sessions"`
}

type Error struct {
	Error string `json:"error"`
}
