// Command console is the host-side shell: it opens the device link,
// watches incoming traffic and accepts interactive send commands on
// stdin.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"sealink/internal/app"
	"sealink/internal/bus"
	"sealink/internal/config"
	"sealink/internal/envelope"
	"sealink/internal/events"
	"sealink/internal/link"
	"sealink/internal/logging"
	"sealink/internal/persistence"
	"sealink/internal/transport"
)

const defaultHistoryListing = 20

func main() {
	if err := run(); err != nil {
		slog.Error("run console", "error", err)
		os.Exit(1)
	}
}

func run() error {
	connector := flag.String("connector", "", "connector type (serial|tcp), overrides config")
	serialPort := flag.String("port", "", "serial port name, overrides config")
	host := flag.String("host", "", "tcp host for the loopback agent, overrides config")
	listPorts := flag.Bool("list-ports", false, "list serial ports and exit")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(app.BuildVersionWithDate())
		return nil
	}
	if *listPorts {
		return printPorts()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	paths, err := app.ResolvePaths()
	if err != nil {
		return fmt.Errorf("resolve paths: %w", err)
	}
	cfg, err := config.Load(paths.ConfigFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	applyOverrides(&cfg, *connector, *serialPort, *host)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logMgr := logging.NewManager()
	if err := logMgr.Configure(cfg.Logging, paths.LogFile); err != nil {
		return fmt.Errorf("configure logging: %w", err)
	}
	defer func() {
		if closeErr := logMgr.Close(); closeErr != nil {
			slog.Warn("close log manager", "error", closeErr)
		}
	}()
	logger := logMgr.Logger("console")
	logger.Info("starting sealink console", "version", app.BuildVersion(), "build_date", app.BuildDateYMD())

	db, err := persistence.Open(ctx, paths.DBFile)
	if err != nil {
		return fmt.Errorf("open sqlite: %w", err)
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			logger.Warn("close sqlite", "error", closeErr)
		}
	}()
	transcript := persistence.NewTranscriptRepo(db)

	b := bus.New(logMgr.Logger("bus"))
	defer b.Close()

	if cfg.History.Enabled {
		writer := persistence.NewWriterQueue(logMgr.Logger("persistence"), 256)
		writer.Start(ctx)
		projection := app.NewTranscriptProjection(logMgr.Logger("transcript"), transcript, writer, cfg.History.KeepLast)
		projection.Start(ctx, b)
	}

	crypto := envelope.NewSystem(keySeed(cfg))

	tr, err := buildTransport(cfg)
	if err != nil {
		return err
	}

	svc := link.NewService(logMgr.Logger("link"), b, tr, crypto)
	sender := link.NewSender(logMgr.Logger("sender"), b, tr)
	sender.EnableCrypto(crypto)

	watch(ctx, b, logMgr.Logger("watch"))
	svc.Start(ctx)

	logger.Info("interactive mode", "commands", "send esend last ports history quit")
	repl(ctx, stop, logger, svc, sender, transcript)

	return nil
}

func applyOverrides(cfg *config.AppConfig, connector, serialPort, host string) {
	if c := strings.TrimSpace(connector); c != "" {
		cfg.Connection.Connector = config.ConnectorType(c)
	}
	if p := strings.TrimSpace(serialPort); p != "" {
		cfg.Connection.SerialPort = p
		if cfg.Connection.Connector == "" {
			cfg.Connection.Connector = config.ConnectorSerial
		}
	}
	if h := strings.TrimSpace(host); h != "" {
		cfg.Connection.Host = h
		cfg.Connection.Connector = config.ConnectorTCP
	}
}

func keySeed(cfg config.AppConfig) string {
	if seed := strings.TrimSpace(cfg.Crypto.KeySeed); seed != "" {
		return seed
	}
	return envelope.DefaultKeySeed
}

func buildTransport(cfg config.AppConfig) (transport.Transport, error) {
	switch cfg.Connection.Connector {
	case config.ConnectorSerial:
		return transport.NewSerialTransport(cfg.Connection.SerialPort, cfg.Connection.SerialBaud), nil
	case config.ConnectorTCP:
		return transport.NewTCPTransport(cfg.Connection.Host, cfg.Connection.TCPPort), nil
	default:
		return nil, fmt.Errorf("unknown connector: %s", cfg.Connection.Connector)
	}
}

func printPorts() error {
	ports, err := transport.ListPorts()
	if err != nil {
		return err
	}
	if len(ports) == 0 {
		fmt.Println("no serial ports found")
		return nil
	}
	for _, port := range ports {
		fmt.Println(port)
	}
	return nil
}

// watch logs every bus event so link traffic is visible between REPL
// prompts.
func watch(ctx context.Context, b bus.MessageBus, logger *slog.Logger) {
	connSub := b.Subscribe(events.TopicLinkStatus)
	respSub := b.Subscribe(events.TopicResponse)
	envSub := b.Subscribe(events.TopicEnvelope)
	rawSub := b.Subscribe(events.TopicRaw)
	sentSub := b.Subscribe(events.TopicCommandSent)

	go func() {
		for {
			select {
			case <-ctx.Done():
				b.Unsubscribe(connSub, events.TopicLinkStatus)
				b.Unsubscribe(respSub, events.TopicResponse)
				b.Unsubscribe(envSub, events.TopicEnvelope)
				b.Unsubscribe(rawSub, events.TopicRaw)
				b.Unsubscribe(sentSub, events.TopicCommandSent)
				return
			case raw := <-connSub:
				if status, ok := raw.(events.ConnectionStatus); ok {
					logger.Info("conn", "state", status.State, "transport", status.TransportName, "target", status.Target, "error", status.Err)
				}
			case raw := <-respSub:
				if resp, ok := raw.(events.ResponseReceived); ok {
					logger.Info("response", "origin", resp.Origin, "status", resp.Response.Status, "message", resp.Response.Message)
				}
			case raw := <-envSub:
				if env, ok := raw.(events.EnvelopeReceived); ok {
					logger.Info("envelope", "ciphertext_len", len(env.Envelope.Ciphertext))
				}
			case raw := <-rawSub:
				if line, ok := raw.(events.RawMessage); ok {
					logger.Info("raw", "line", line.Line)
				}
			case raw := <-sentSub:
				if sent, ok := raw.(events.CommandSent); ok {
					logger.Info("sent", "action", sent.Action, "encrypted", sent.Encrypted)
				}
			}
		}
	}()
}

func repl(ctx context.Context, stop context.CancelFunc, logger *slog.Logger, svc *link.Service, sender *link.Sender, transcript *persistence.TranscriptRepo) {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-lines:
			if !ok {
				stop()
				return
			}
			if quit := execute(ctx, logger, svc, sender, transcript, line); quit {
				stop()
				return
			}
		}
	}
}

func execute(ctx context.Context, logger *slog.Logger, svc *link.Service, sender *link.Sender, transcript *persistence.TranscriptRepo, line string) bool {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false
	}

	switch fields[0] {
	case "quit", "exit":
		return true
	case "send", "esend":
		if len(fields) < 2 {
			fmt.Printf("usage: %s <action> [data]\n", fields[0])
			return false
		}
		action := fields[1]
		var data *string
		if len(fields) > 2 {
			joined := strings.Join(fields[2:], " ")
			data = &joined
		}
		var err error
		if fields[0] == "esend" {
			err = sender.SendEncrypted(ctx, action, data)
		} else {
			err = sender.Send(ctx, action, data)
		}
		if err != nil {
			fmt.Printf("send failed: %v\n", err)
		}
	case "last":
		if last, ok := svc.LastMessage(); ok {
			fmt.Println(last)
		} else {
			fmt.Println("no message received yet")
		}
	case "ports":
		if err := printPorts(); err != nil {
			fmt.Printf("list ports failed: %v\n", err)
		}
	case "history":
		limit := defaultHistoryListing
		if len(fields) > 1 {
			parsed, err := strconv.Atoi(fields[1])
			if err != nil || parsed <= 0 {
				fmt.Printf("usage: history [n]\n")
				return false
			}
			limit = parsed
		}
		entries, err := transcript.ListRecent(ctx, limit)
		if err != nil {
			logger.Error("list history", "error", err)
			return false
		}
		if len(entries) == 0 {
			fmt.Println("transcript is empty")
			return false
		}
		for i := len(entries) - 1; i >= 0; i-- {
			e := entries[i]
			fmt.Printf("%s %-8s %-8s %s\n", e.CreatedAt.Format("15:04:05"), e.Direction, e.Kind, e.Body)
		}
	default:
		fmt.Printf("unknown command %q (send esend last ports history quit)\n", fields[0])
	}

	return false
}
