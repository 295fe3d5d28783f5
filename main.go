package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/handlers"
	"github.com/joho/godotenv"
	"github.com/peterbourgon/ff"
	"github.com/pkg/errors"
	"github.com/pkg/profile"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/a-bouts/regatta-server/api"
	"github.com/a-bouts/regatta-server/game"
	"github.com/a-bouts/regatta-server/race"
	"github.com/a-bouts/regatta-server/server"
	"github.com/a-bouts/regatta-server/wind"
	"github.com/a-bouts/regatta-server/xmpp"
)

func main() {
	_ = godotenv.Load()

	fs := flag.NewFlagSet("regatta-server", flag.ExitOnError)
	var (
		port         = fs.Int("port", server.DefaultPort, "game server TCP port")
		httpAddr     = fs.String("http", ":8942", "admin api address")
		logLevel     = fs.String("log-level", "info", "debug, info, warn or error")
		logFile      = fs.String("log-file", "", "also log to this rotated file")
		cpuprofile   = fs.Bool("cpuprofile", false, "write a cpu profile of the whole run")
		maxPlayers   = fs.Int("max-players", len(race.Teams()), "players allowed in the race")
		raceName     = fs.String("race-name", server.DefaultConfig().RegattaName, "regatta name sent to the clients")
		windGrib     = fs.String("wind-grib", "", "GRIB2 file giving the initial wind at the course")
		courseFile   = fs.String("course", "", "yaml course, the Gothenburg course when empty")
		countdown    = fs.Duration("countdown", game.Countdown, "time between the start request and the gun")
		recheck      = fs.Bool("recheck-after-collision", false, "check mark roundings on the tick a boat bounced")
		xmppHost     = fs.String("xmpp-host", "", "")
		xmppJid      = fs.String("xmpp-jid", "", "")
		xmppPassword = fs.String("xmpp-password", "", "")
		xmppTo       = fs.String("xmpp-to", "", "")
	)
	if err := ff.Parse(fs, os.Args[1:], ff.WithEnvVarNoPrefix()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	if err := initLogger(*logLevel, *logFile); err != nil {
		log.WithError(err).Fatal("Init logger failed")
	}

	opts := options{
		port:       *port,
		httpAddr:   *httpAddr,
		cpuprofile: *cpuprofile,
		maxPlayers: *maxPlayers,
		raceName:   *raceName,
		windGrib:   *windGrib,
		courseFile: *courseFile,
		countdown:  *countdown,
		recheck:    *recheck,
		xmpp:       xmpp.Config{Host: *xmppHost, Jid: *xmppJid, Password: *xmppPassword, To: *xmppTo},
	}
	if err := run(opts); err != nil {
		log.WithError(err).Error("Server failed")
		os.Exit(1)
	}
	log.Info("Bye")
}

type options struct {
	port       int
	httpAddr   string
	cpuprofile bool
	maxPlayers int
	raceName   string
	windGrib   string
	courseFile string
	countdown  time.Duration
	recheck    bool
	xmpp       xmpp.Config
}

// run serves until a signal or the end of the race. Deferred work, the cpu
// profile included, completes before main exits.
func run(opts options) error {
	if opts.cpuprofile {
		defer profile.Start(profile.CPUProfile, profile.ProfilePath("."), profile.NoShutdownHook).Stop()
	}

	course := race.DefaultCourse()
	if opts.courseFile != "" {
		c, err := race.LoadCourse(opts.courseFile)
		if err != nil {
			return errors.Wrap(err, "load course failed")
		}
		course = c
	}

	cfg := game.DefaultConfig()
	cfg.MaxPlayers = opts.maxPlayers
	cfg.Countdown = opts.countdown
	cfg.RecheckAfterCollision = opts.recheck

	cfgs := []game.Cfg{game.WithConfig(cfg), game.WithCourse(course)}
	if opts.windGrib != "" {
		start, _ := course.Mark(0)
		w, err := wind.FromGrib(opts.windGrib, start.Midpoint(), cfg.WindBand)
		if err != nil {
			log.WithError(err).Warn("Read initial wind failed, using the default")
		} else {
			log.WithField("wind", w).Info("Initial wind from grib")
			cfgs = append(cfgs, game.WithWind(w))
		}
	}

	g, err := game.New(cfgs...)
	if err != nil {
		return errors.Wrap(err, "create game failed")
	}

	srvCfg := server.DefaultConfig()
	srvCfg.Addr = fmt.Sprintf(":%d", opts.port)
	srvCfg.RegattaName = opts.raceName
	srvCfgs := []server.Cfg{server.WithConfig(srvCfg)}

	x := xmpp.Xmpp{Config: opts.xmpp}
	if x.Configured() {
		srvCfgs = append(srvCfgs, server.WithNotifier(x))
	}

	srv, err := server.New(g, srvCfgs...)
	if err != nil {
		return errors.Wrap(err, "create server failed")
	}

	router := api.InitServer(srv, 500*time.Millisecond)
	httpServer := &http.Server{
		Addr:    opts.httpAddr,
		Handler: handlers.LoggingHandler(log.StandardLogger().Writer(), router),
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		return srv.ListenAndServe(ctx)
	})
	eg.Go(func() error {
		log.WithField("addr", opts.httpAddr).Info("Admin api listening")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	eg.Go(func() error {
		select {
		case <-ctx.Done():
		case <-srv.Done():
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	return eg.Wait()
}
