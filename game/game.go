package game

import (
	"math/rand"
	"sort"
	"time"

	"github.com/pkg/errors"
	"github.com/sasha-s/go-deadlock"
	log "github.com/sirupsen/logrus"

	"github.com/a-bouts/regatta-server/latlon"
	"github.com/a-bouts/regatta-server/polar"
	"github.com/a-bouts/regatta-server/race"
	"github.com/a-bouts/regatta-server/wind"
)

var (
	ErrRaceFull      = errors.New("race is full")
	ErrRaceStarted   = errors.New("race already started")
	ErrUnknownPlayer = errors.New("unknown player")
	ErrDuplicateBoat = errors.New("boat already registered")
	ErrNoPlayers     = errors.New("no players")
)

type Player struct {
	SourceID int       `json:"sourceId"`
	Host     bool      `json:"host"`
	Joined   time.Time `json:"joined"`
}

// Game is the authoritative race state. Every method is safe for concurrent
// use.
type Game struct {
	mu deadlock.Mutex

	config Config
	course *race.Course
	polars *polar.Table
	rng    wind.Rand

	players    []*Player
	boats      map[int]*Boat
	wind       wind.Wind
	windSet    bool
	stage      Stage
	startTime  time.Time
	tokens     []race.Token
	customized bool
	events     []Event
}

// Cfg configures a Game.
type Cfg func(*Game) error

func WithConfig(c Config) Cfg {
	return func(g *Game) error {
		if c.MaxPlayers <= 0 || c.MaxPlayers > len(race.Teams()) {
			return errors.Errorf("max players must be within [1,%d], got %d", len(race.Teams()), c.MaxPlayers)
		}
		if c.WindBand.Min > c.WindBand.Max {
			return errors.Errorf("wind band [%d,%d] is empty", c.WindBand.Min, c.WindBand.Max)
		}
		g.config = c
		return nil
	}
}

func WithCourse(c *race.Course) Cfg {
	return func(g *Game) error {
		if c == nil {
			return errors.New("nil course")
		}
		g.course = c
		return nil
	}
}

func WithPolars(p *polar.Table) Cfg {
	return func(g *Game) error {
		g.polars = p
		return nil
	}
}

// WithRand sets the random source of the wind drift and token respawn.
func WithRand(r wind.Rand) Cfg {
	return func(g *Game) error {
		g.rng = r
		return nil
	}
}

// WithWind overrides the initial wind of the config.
func WithWind(w wind.Wind) Cfg {
	return func(g *Game) error {
		g.wind = w
		g.windSet = true
		return nil
	}
}

// New creates a game in the lobby.
func New(cfgs ...Cfg) (*Game, error) {
	g := &Game{
		config: DefaultConfig(),
		boats:  make(map[int]*Boat),
		stage:  Lobbying,
	}
	for _, cfg := range cfgs {
		if err := cfg(g); err != nil {
			return nil, errors.Wrap(err, "apply Game cfg failed")
		}
	}
	if g.course == nil {
		g.course = race.DefaultCourse()
	}
	if g.polars == nil {
		g.polars = polar.Default()
	}
	if g.rng == nil {
		g.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if !g.windSet {
		g.wind = g.config.InitialWind
	}
	g.wind = g.wind.Clamp(g.config.WindBand)
	return g, nil
}

func (g *Game) Config() Config {
	return g.config
}

func (g *Game) Course() *race.Course {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.course.WithTokens(g.tokens)
}

func (g *Game) MarkOrder() []race.CompoundMark {
	return g.course.MarkOrder()
}

func (g *Game) Polars() *polar.Table {
	return g.polars
}

func (g *Game) emit(e Event) {
	g.events = append(g.events, e)
}

// DrainEvents returns the events raised since the last call.
func (g *Game) DrainEvents() []Event {
	g.mu.Lock()
	defer g.mu.Unlock()
	events := g.events
	g.events = nil
	return events
}

func (g *Game) sortedBoats() []*Boat {
	boats := make([]*Boat, 0, len(g.boats))
	for _, b := range g.boats {
		boats = append(boats, b)
	}
	sort.Slice(boats, func(i, j int) bool { return boats[i].SourceID < boats[j].SourceID })
	return boats
}

// AddPlayer registers a new player and its boat. The first player becomes
// the host.
func (g *Game) AddPlayer(now time.Time) (Player, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.stage != Lobbying {
		return Player{}, errors.Wrapf(ErrRaceStarted, "stage %s", g.stage)
	}
	if len(g.players) >= g.config.MaxPlayers {
		return Player{}, ErrRaceFull
	}

	var team *race.Team
	for _, t := range race.Teams() {
		if _, taken := g.boats[t.SourceID]; !taken {
			t := t
			team = &t
			break
		}
	}
	if team == nil {
		return Player{}, ErrRaceFull
	}

	p := &Player{SourceID: team.SourceID, Joined: now, Host: g.host() == nil}
	g.players = append(g.players, p)
	g.boats[p.SourceID] = newBoat(*team)
	g.lineUp()

	log.WithFields(log.Fields{"source_id": p.SourceID, "host": p.Host}).Info("Player joined")
	return *p, nil
}

func (g *Game) host() *Player {
	for _, p := range g.players {
		if p.Host {
			return p
		}
	}
	return nil
}

// Host returns the source id of the host player.
func (g *Game) Host() (int, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if h := g.host(); h != nil {
		return h.SourceID, true
	}
	return 0, false
}

// RemovePlayer drops a player and its boat. The oldest remaining player is
// promoted when the host leaves.
func (g *Game) RemovePlayer(sourceID int) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	for i, p := range g.players {
		if p.SourceID != sourceID {
			continue
		}
		g.players = append(g.players[:i], g.players[i+1:]...)
		delete(g.boats, sourceID)
		if p.Host && len(g.players) > 0 {
			g.players[0].Host = true
			log.WithField("source_id", g.players[0].SourceID).Info("Host promoted")
		}
		log.WithField("source_id", sourceID).Info("Player left")
		return nil
	}
	return errors.Wrapf(ErrUnknownPlayer, "source id %d", sourceID)
}

func (g *Game) Players() []Player {
	g.mu.Lock()
	defer g.mu.Unlock()
	players := make([]Player, len(g.players))
	for i, p := range g.players {
		players[i] = *p
	}
	return players
}

// AddBoat registers a boat without a player.
func (g *Game) AddBoat(b *Boat) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.boats[b.SourceID]; ok {
		return errors.Wrapf(ErrDuplicateBoat, "source id %d", b.SourceID)
	}
	g.boats[b.SourceID] = b
	return nil
}

func (g *Game) RemoveBoat(sourceID int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.boats, sourceID)
}

// Boats returns a copy of every boat ordered by source id.
func (g *Game) Boats() []Boat {
	g.mu.Lock()
	defer g.mu.Unlock()
	boats := make([]Boat, 0, len(g.boats))
	for _, b := range g.sortedBoats() {
		boats = append(boats, *b)
	}
	return boats
}

func (g *Game) Boat(sourceID int) (Boat, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	b, ok := g.boats[sourceID]
	if !ok {
		return Boat{}, false
	}
	return *b, true
}

func (g *Game) Wind() wind.Wind {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.wind
}

// SetWind replaces the wind, clamped into the band.
func (g *Game) SetWind(w wind.Wind) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.wind = w.Clamp(g.config.WindBand)
}

// DriftWind applies one random walk step to the wind.
func (g *Game) DriftWind() wind.Wind {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.wind = g.wind.Drift(g.rng, g.config.WindBand)
	return g.wind
}

func (g *Game) Stage() Stage {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.stage
}

// SetStage moves the race forward. Moving backward or out of a terminal
// stage fails with ErrStageTransition.
func (g *Game) SetStage(s Stage, now time.Time) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.setStage(s, now)
}

func (g *Game) setStage(s Stage, now time.Time) error {
	if s == g.stage {
		return nil
	}
	if !canMove(g.stage, s) {
		return errors.Wrapf(ErrStageTransition, "%s to %s", g.stage, s)
	}
	log.WithFields(log.Fields{"from": g.stage, "to": s}).Info("Stage changed")
	g.stage = s
	g.emit(Event{Type: StageChanged, Time: now, Stage: s})
	return nil
}

// Terminate cancels the race.
func (g *Game) Terminate(now time.Time) error {
	return g.SetStage(Cancelled, now)
}

func (g *Game) StartTime() time.Time {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.startTime
}

func (g *Game) SetStartTime(t time.Time) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.startTime = t
}

func (g *Game) AddToken(t race.Token) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.tokens = append(g.tokens, t)
}

func (g *Game) ClearTokens() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.tokens = nil
}

func (g *Game) Tokens() []race.Token {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]race.Token(nil), g.tokens...)
}

// RespawnTokens replaces the tokens with a random subset of the superset,
// leaving at least one spot empty.
func (g *Game) RespawnTokens() []race.Token {
	g.mu.Lock()
	defer g.mu.Unlock()

	superset := race.TokenSuperset()
	for i := len(superset) - 1; i > 0; i-- {
		j := g.rng.Intn(i + 1)
		superset[i], superset[j] = superset[j], superset[i]
	}
	g.tokens = append([]race.Token(nil), superset[:g.rng.Intn(len(superset))]...)
	return append([]race.Token(nil), g.tokens...)
}

// MarkCustomized flags a change of the roster setup.
func (g *Game) MarkCustomized() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.customized = true
}

// ConsumeCustomized returns the customization flag and resets it.
func (g *Game) ConsumeCustomized() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	c := g.customized
	g.customized = false
	return c
}

// Rename changes the display name of a boat.
func (g *Game) Rename(sourceID int, name string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	b, ok := g.boats[sourceID]
	if !ok {
		return errors.Wrapf(ErrUnknownPlayer, "source id %d", sourceID)
	}
	b.BoatName = name
	g.customized = true
	return nil
}

// StartRace lines the boats up behind the start line and starts the
// countdown.
func (g *Game) StartRace(now time.Time) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.stage != Lobbying {
		return errors.Wrapf(ErrStageTransition, "start from %s", g.stage)
	}
	if len(g.boats) == 0 {
		return ErrNoPlayers
	}

	g.lineUp()
	for _, b := range g.boats {
		b.Velocity = 0
		b.SailIn = false
		b.Leg = 0
		b.Status = StatusPrestart
		b.rounding = rounding{}
	}
	g.startTime = now.Add(g.config.Countdown)
	return g.setStage(PreRace, now)
}

// lineUp places the boats side by side, one spacing behind the start line,
// heading to the first mark.
func (g *Game) lineUp() {
	order := g.course.MarkOrder()
	start := order[0]
	next := order[1].Midpoint()
	a, b := start.Marks[0].Position, start.Marks[1].Position

	along := latlon.BearingTo(a, b)
	mid := start.Midpoint()
	back := latlon.Wrap360(along + 90)
	if latlon.Side(a, b, latlon.Destination(mid, back, 1)) == latlon.Side(a, b, next) {
		back = latlon.Wrap360(along + 270)
	}

	spacing := g.config.LineUpSpacing
	for i, boat := range g.sortedBoats() {
		offset := float64((i+1)/2) * spacing
		bearing := along
		if i%2 == 1 {
			bearing = latlon.Wrap360(along + 180)
		}
		spot := latlon.Destination(latlon.Destination(mid, bearing, offset), back, spacing)
		boat.Position = spot
		boat.LastPosition = spot
		boat.Heading = latlon.BearingTo(spot, next)
	}
}

// Step advances the simulation to now, dt after the previous step.
func (g *Game) Step(now time.Time, dt time.Duration) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.stage == PreRace && !now.Before(g.startTime) {
		if err := g.setStage(Racing, now); err == nil {
			for _, b := range g.boats {
				b.Status = StatusRacing
			}
		}
	}
	if !g.stage.Running() {
		return
	}
	if len(g.players) == 0 && len(g.boats) == 0 {
		log.Info("Everybody left, cancelling the race")
		_ = g.setStage(Cancelled, now)
		return
	}

	for _, b := range g.sortedBoats() {
		g.stepBoat(b, now, dt)
	}
	g.pickTokens(now)

	if g.stage == Racing && len(g.boats) > 0 && g.allFinished() {
		_ = g.setStage(Finished, now)
	}
}

func (g *Game) allFinished() bool {
	for _, b := range g.boats {
		if !b.Finished {
			return false
		}
	}
	return true
}

func (g *Game) stepBoat(b *Boat, now time.Time, dt time.Duration) {
	b.stepTurn(g.config.TurnStep)
	b.updateVelocity(targetSpeed(g.polars, g.wind, b.Heading), g.config)

	last := b.Position
	candidate := latlon.Destination(b.Position, b.Heading, b.Velocity*dt.Seconds())

	bounced := false
	if now.Sub(b.lastCollisionCheck) >= g.config.CollisionCheckInterval {
		b.lastCollisionCheck = now
		bounced = g.collide(b, candidate, now)
	}
	if !bounced {
		b.Position = candidate
	}
	b.LastPosition = last

	if bounced && !g.config.RecheckAfterCollision {
		return
	}
	if g.stage == Racing {
		g.progress(b, now)
	}
}

func (g *Game) pickTokens(now time.Time) {
	kept := g.tokens[:0]
	for _, t := range g.tokens {
		taken := false
		for _, b := range g.sortedBoats() {
			if latlon.DistanceTo(b.Position, t.Position) <= g.config.TokenPickupDistance {
				g.emit(Event{Type: TokenPickup, Time: now, SourceID: b.SourceID, Token: t})
				log.WithFields(log.Fields{"source_id": b.SourceID, "token": t.Type}).Info("Token picked up")
				taken = true
				break
			}
		}
		if !taken {
			kept = append(kept, t)
		}
	}
	g.tokens = kept
}

// Results returns the boats in finishing order, unfinished ones last by leg.
func (g *Game) Results() []Boat {
	boats := g.Boats()
	sort.SliceStable(boats, func(i, j int) bool {
		a, b := boats[i], boats[j]
		if a.Finished != b.Finished {
			return a.Finished
		}
		if a.Finished {
			return a.FinishTime.Before(b.FinishTime)
		}
		return a.Leg > b.Leg
	})
	return boats
}
