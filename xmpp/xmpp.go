package xmpp

import (
	"crypto/tls"
	"strings"

	"github.com/mattn/go-xmpp"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

var ErrMissingConfig = errors.New("missing xmpp config")

type (
	// Config of the account the race outcome is sent from.
	Config struct {
		Host     string
		Jid      string
		Password string
		To       string
	}

	Xmpp struct {
		Config Config
	}
)

func serverName(jid string) string {
	parts := strings.SplitN(jid, "@", 2)
	if len(parts) < 2 {
		return jid
	}
	return parts[1]
}

// Configured reports whether Send can dial at all.
func (x Xmpp) Configured() bool {
	return len(x.Config.Jid) > 0 && len(x.Config.Password) > 0 && len(x.Config.To) > 0
}

func (x Xmpp) options() xmpp.Options {
	host := x.Config.Host
	if len(host) == 0 {
		host = serverName(x.Config.Jid)
	}
	return xmpp.Options{
		Host:          host,
		User:          x.Config.Jid,
		Password:      x.Config.Password,
		NoTLS:         true,
		StartTLS:      true,
		Debug:         false,
		Session:       false,
		Status:        "xa",
		StatusMessage: "Race committee",
	}
}

// Send delivers one chat message to the configured recipient.
func (x Xmpp) Send(message string) error {

	if !x.Configured() {
		log.Warn("Missing xmpp config, not sending")
		return ErrMissingConfig
	}

	xmpp.DefaultConfig = tls.Config{
		InsecureSkipVerify: true,
	}

	options := x.options()
	log.WithFields(log.Fields{"host": options.Host, "user": options.User}).Debug("Create xmpp client")
	talk, err := options.NewClient()
	if err != nil {
		return errors.Wrapf(err, "connect to %s failed", options.Host)
	}
	defer talk.Close()

	log.WithField("to", x.Config.To).Info("Send xmpp message")
	if _, err := talk.Send(xmpp.Chat{Remote: x.Config.To, Type: "chat", Text: message}); err != nil {
		return errors.Wrap(err, "send xmpp message failed")
	}
	return nil
}
