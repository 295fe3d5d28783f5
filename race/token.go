package race

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/a-bouts/regatta-server/latlon"
)

var ErrUnknownToken = errors.New("unknown token type")

type TokenType int

const (
	Boost TokenType = iota
	Handling
	Bumper
	Random
	WindWalker
)

var tokenNames = []string{"BOOST", "HANDLING", "BUMPER", "RANDOM", "WIND_WALKER"}

func (t TokenType) String() string {
	if t < 0 || int(t) >= len(tokenNames) {
		return fmt.Sprintf("TOKEN(%d)", int(t))
	}
	return tokenNames[t]
}

// ParseTokenType is the inverse of String.
func ParseTokenType(s string) (TokenType, error) {
	for i, n := range tokenNames {
		if n == s {
			return TokenType(i), nil
		}
	}
	return 0, errors.Wrapf(ErrUnknownToken, "'%s'", s)
}

func (t TokenType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *TokenType) UnmarshalText(text []byte) error {
	v, err := ParseTokenType(string(text))
	if err != nil {
		return err
	}
	*t = v
	return nil
}

type Token struct {
	Type     TokenType     `json:"type"`
	Position latlon.LatLon `json:"position"`
}

// TokenSuperset returns every spot a token may respawn on.
func TokenSuperset() []Token {
	return []Token{
		{Type: Boost, Position: latlon.LatLon{Lat: 57.66946, Lon: 11.83154}},
		{Type: Handling, Position: latlon.LatLon{Lat: 57.66877, Lon: 11.83382}},
		{Type: Bumper, Position: latlon.LatLon{Lat: 57.66914, Lon: 11.83965}},
		{Type: Random, Position: latlon.LatLon{Lat: 57.66684, Lon: 11.83214}},
		{Type: WindWalker, Position: latlon.LatLon{Lat: 57.66980, Lon: 11.82840}},
	}
}
