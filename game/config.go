package game

import (
	"time"

	"github.com/a-bouts/regatta-server/wind"
)

const (
	RaceID                 = 1
	RoundingDistance       = 50.0
	RoundingLineLength     = 100.0
	BoatCollisionDistance  = 25.0
	MarkCollisionDistance  = 15.0
	BounceDistance         = 30.0
	CollisionPenalty       = 0.7
	CollisionCheckInterval = 100 * time.Millisecond
	AccelDivisor           = 120.0
	DecelDivisor           = 600.0
	IdleDecay              = 0.01
	MinSpeed               = 0.01
	TurnStep               = 5.0
	TokenPickupDistance    = 20.0
	LineUpSpacing          = 50.0
	Countdown              = 20 * time.Second
	WarningTime            = 10 * time.Second
	PreparatoryTime        = 5 * time.Second
)

// Config holds the tunables of the simulation. Distances are in metres,
// speeds in metres per second, divisors per tick.
type Config struct {
	RaceID                 int           `json:"raceId"`
	RoundingDistance       float64       `json:"roundingDistance"`
	RoundingLineLength     float64       `json:"roundingLineLength"`
	BoatCollisionDistance  float64       `json:"boatCollisionDistance"`
	MarkCollisionDistance  float64       `json:"markCollisionDistance"`
	BounceDistance         float64       `json:"bounceDistance"`
	CollisionPenalty       float64       `json:"collisionPenalty"`
	CollisionCheckInterval time.Duration `json:"collisionCheckInterval"`
	AccelDivisor           float64       `json:"accelDivisor"`
	DecelDivisor           float64       `json:"decelDivisor"`
	IdleDecay              float64       `json:"idleDecay"`
	MinSpeed               float64       `json:"minSpeed"`
	TurnStep               float64       `json:"turnStep"`
	TokenPickupDistance    float64       `json:"tokenPickupDistance"`
	LineUpSpacing          float64       `json:"lineUpSpacing"`
	Countdown              time.Duration `json:"countdown"`
	WarningTime            time.Duration `json:"warningTime"`
	PreparatoryTime        time.Duration `json:"preparatoryTime"`
	MaxPlayers             int           `json:"maxPlayers"`
	WindBand               wind.Band     `json:"windBand"`
	InitialWind            wind.Wind     `json:"initialWind"`

	// RecheckAfterCollision runs the progression check on the tick a boat
	// was bounced. Otherwise the bounce only moves the boat.
	RecheckAfterCollision bool `json:"recheckAfterCollision"`
}

func DefaultConfig() Config {
	return Config{
		RaceID:                 RaceID,
		RoundingDistance:       RoundingDistance,
		RoundingLineLength:     RoundingLineLength,
		BoatCollisionDistance:  BoatCollisionDistance,
		MarkCollisionDistance:  MarkCollisionDistance,
		BounceDistance:         BounceDistance,
		CollisionPenalty:       CollisionPenalty,
		CollisionCheckInterval: CollisionCheckInterval,
		AccelDivisor:           AccelDivisor,
		DecelDivisor:           DecelDivisor,
		IdleDecay:              IdleDecay,
		MinSpeed:               MinSpeed,
		TurnStep:               TurnStep,
		TokenPickupDistance:    TokenPickupDistance,
		LineUpSpacing:          LineUpSpacing,
		Countdown:              Countdown,
		WarningTime:            WarningTime,
		PreparatoryTime:        PreparatoryTime,
		MaxPlayers:             6,
		WindBand:               wind.DefaultBand(),
		InitialWind:            wind.Wind{Direction: 0, Speed: 10000},
	}
}
