package runner

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/sweeney/callwatch/internal/ami"
	"github.com/sweeney/callwatch/internal/callstate"
)

// AMIOptions configures a live manager-interface session.
type AMIOptions struct {
	Addr     string
	Username string
	Secret   string

	// ReconnectDelay is the pause between failed sessions. Zero means
	// the 5 second default.
	ReconnectDelay time.Duration

	Log zerolog.Logger
}

// AMIRunner connects to the switch's manager interface and streams
// events into the engine, reconnecting until its context is cancelled.
// Each session gets a fresh engine; the event stream restarts from
// scratch on reconnect so stale state from the broken session must not
// carry over.
type AMIRunner struct {
	reporter   callstate.Reporter
	engineOpts []callstate.Option
	opts       AMIOptions
	log        zerolog.Logger
}

// NewAMIRunner creates a live runner reporting to r.
func NewAMIRunner(r callstate.Reporter, opts AMIOptions, engineOpts ...callstate.Option) *AMIRunner {
	if opts.ReconnectDelay == 0 {
		opts.ReconnectDelay = 5 * time.Second
	}
	return &AMIRunner{
		reporter:   r,
		engineOpts: engineOpts,
		opts:       opts,
		log:        opts.Log,
	}
}

// Run connects and processes events until ctx is cancelled, retrying
// broken sessions after the reconnect delay.
func (ar *AMIRunner) Run(ctx context.Context) error {
	for {
		err := ar.runSession(ctx)
		if ctx.Err() != nil {
			return nil
		}
		if err != nil {
			ar.log.Warn().Err(err).
				Dur("retry_in", ar.opts.ReconnectDelay).
				Msg("manager session failed, reconnecting")
		}
		select {
		case <-time.After(ar.opts.ReconnectDelay):
		case <-ctx.Done():
			return nil
		}
	}
}

func (ar *AMIRunner) runSession(ctx context.Context) error {
	ar.log.Info().Str("addr", ar.opts.Addr).Msg("connecting to manager interface")

	conn, err := net.DialTimeout("tcp", ar.opts.Addr, 10*time.Second)
	if err != nil {
		return fmt.Errorf("dialing manager interface: %w", err)
	}
	defer conn.Close()

	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	reader := bufio.NewReader(conn)

	banner, err := reader.ReadString('\n')
	if err != nil {
		return fmt.Errorf("reading banner: %w", err)
	}
	ar.log.Debug().Str("banner", strings.TrimSpace(banner)).Msg("connected")

	login := fmt.Sprintf("Action: Login\r\nUsername: %s\r\nSecret: %s\r\n\r\n",
		ar.opts.Username, ar.opts.Secret)
	if _, err := conn.Write([]byte(login)); err != nil {
		return fmt.Errorf("sending login: %w", err)
	}

	ar.log.Info().Msg("authenticated, processing events")

	parser := ami.NewParser(reader)
	engine := callstate.NewEngine(ar.reporter, ar.engineOpts...)

	for {
		evt, ok := parser.Next()
		if !ok {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("manager connection closed")
		}
		if evt.IsResponse() {
			if evt.Get("Response") == "Error" {
				return fmt.Errorf("manager error: %s", evt.Get("Message"))
			}
			continue
		}
		engine.HandleEvent(evt)
	}
}
