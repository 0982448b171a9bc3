// Command dio-controller samples pulse inputs, drives PWM outputs and serves
// the request protocol of the high-level application.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/multierr"

	"github.com/sweeney/dio-controller/internal/dispatch"
	"github.com/sweeney/dio-controller/internal/gpio"
	"github.com/sweeney/dio-controller/internal/logic"
	"github.com/sweeney/dio-controller/internal/mqtt"
	"github.com/sweeney/dio-controller/internal/pwm"
	"github.com/sweeney/dio-controller/internal/scheduler"
	"github.com/sweeney/dio-controller/internal/status"
	"github.com/sweeney/dio-controller/internal/transport"
	"github.com/sweeney/dio-controller/internal/web"
)

// version is reported by request code 255. Set with -ldflags "-X main.version=...".
var version = "dev"

// statusInterval is how often channel state is copied into the status tracker.
const statusInterval = time.Second

// edgeBuffer is the capacity of the edge event channel between the
// scheduler and the telemetry loop.
const edgeBuffer = 64

type config struct {
	period       time.Duration
	inPins       [logic.NumInputs]int
	outPins      [logic.NumOutputs]int
	activeLow    bool
	serialDev    string
	baud         int
	socket       string
	broker       string
	heartbeat    time.Duration
	httpAddr     string
	startupDelay time.Duration
	printState   bool
}

func main() {
	var cfg config
	flag.DurationVar(&cfg.period, "period", scheduler.DefaultPeriod, "Scheduler tick period")
	flag.IntVar(&cfg.inPins[0], "pin-di0", gpio.DefaultPinDI0, "BCM pin number for input DI0")
	flag.IntVar(&cfg.inPins[1], "pin-di1", gpio.DefaultPinDI1, "BCM pin number for input DI1")
	flag.IntVar(&cfg.outPins[0], "pin-do0", pwm.DefaultPinDO0, "BCM PWM pin number for output DO0")
	flag.IntVar(&cfg.outPins[1], "pin-do1", pwm.DefaultPinDO1, "BCM PWM pin number for output DO1")
	flag.BoolVar(&cfg.activeLow, "active-low", false, "Treat inputs as active low")
	flag.StringVar(&cfg.serialDev, "serial", "/dev/ttyAMA0", "Serial device of the high-level application link")
	flag.IntVar(&cfg.baud, "baud", transport.DefaultBaud, "Serial baud rate")
	flag.StringVar(&cfg.socket, "socket", "", "Serve the link on this unix socket instead of the serial device")
	flag.StringVar(&cfg.broker, "broker", "", "MQTT broker address (empty to disable telemetry)")
	flag.DurationVar(&cfg.heartbeat, "heartbeat", 15*time.Minute, "Heartbeat interval (0 to disable)")
	flag.StringVar(&cfg.httpAddr, "http", ":8080", "HTTP status address (empty to disable)")
	flag.DurationVar(&cfg.startupDelay, "startup-delay", 0, "Wait before starting, e.g. to attach a debugger")
	flag.BoolVar(&cfg.printState, "print-state", false, "Print current input levels and exit")

	flag.Parse()

	if err := run(cfg); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

func run(cfg config) (err error) {
	// Initialize GPIO
	reader, err := gpio.NewRealReader(cfg.activeLow, cfg.inPins[:]...)
	if err != nil {
		return fmt.Errorf("init gpio: %w", err)
	}
	defer func() { err = multierr.Append(err, reader.Close()) }()

	// Print state mode
	if cfg.printState {
		return printState(reader, cfg.inPins)
	}

	if cfg.startupDelay > 0 {
		log.Printf("waiting %v before start", cfg.startupDelay)
		time.Sleep(cfg.startupDelay)
	}

	// Initialize PWM outputs
	sink, err := pwm.NewRealSink(cfg.outPins[:]...)
	if err != nil {
		return fmt.Errorf("init pwm: %w", err)
	}
	defer func() { err = multierr.Append(err, sink.Close()) }()

	// Initialize the link to the high-level application
	link, linkDesc, err := openTransport(cfg)
	if err != nil {
		return fmt.Errorf("init transport: %w", err)
	}
	defer func() { err = multierr.Append(err, link.Close()) }()

	// Initialize MQTT
	var publisher mqtt.Publisher = mqtt.DiscardPublisher{}
	var mqttStatus mqtt.ConnectionStatus = mqtt.DiscardPublisher{}
	if cfg.broker != "" {
		rp, err := mqtt.NewRealPublisher(cfg.broker)
		if err != nil {
			return fmt.Errorf("init mqtt: %w", err)
		}
		publisher, mqttStatus = rp, rp
	}
	defer publisher.Close()

	bank := logic.NewBank(cfg.inPins, cfg.outPins, reader, sink)
	sched := scheduler.New(bank, cfg.period)
	events := make(chan scheduler.Event, edgeBuffer)
	sched.NotifyEdges(events)

	disp := dispatch.New(sched, link, sink, version)

	// Initialize status tracker (before STARTUP so snapshot is available)
	tracker := status.NewTracker(time.Now(), status.Config{
		Version:     version,
		PeriodUs:    cfg.period.Microseconds(),
		HeartbeatMs: cfg.heartbeat.Milliseconds(),
		Broker:      cfg.broker,
		HTTPAddr:    cfg.httpAddr,
		Transport:   linkDesc,
	})
	refresh(tracker, sched, disp, mqttStatus)

	// Publish startup event with full status snapshot
	snap := tracker.Snapshot()
	startupEvent := mqtt.SystemEvent{
		Timestamp:  snap.Now,
		Event:      "STARTUP",
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, "STARTUP", ""),
	}
	if err := publisher.PublishSystem(startupEvent); err != nil {
		log.Printf("failed to publish startup event: %v", err)
	}

	// Start HTTP status server
	if cfg.httpAddr != "" {
		srv := web.New(cfg.httpAddr, tracker)
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Printf("http server error: %v", err)
			}
		}()
		defer srv.Shutdown(context.Background())
		log.Printf("http status server listening on %s", cfg.httpAddr)
	}

	sched.Start()
	defer sched.Stop()

	// Runs before the scheduler, sink and link defers.
	serveErr, stopServe := startServe(disp)
	defer stopServe()

	log.Printf("started: version=%s period=%v inputs=%v outputs=%v link=%s broker=%q heartbeat=%v",
		version, cfg.period, cfg.inPins, cfg.outPins, linkDesc, cfg.broker, cfg.heartbeat)

	statusTicker := time.NewTicker(statusInterval)
	defer statusTicker.Stop()

	var heartbeat <-chan time.Time
	if cfg.heartbeat > 0 {
		hb := time.NewTicker(cfg.heartbeat)
		defer hb.Stop()
		heartbeat = hb.C
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	return runLoop(loop{
		sched:      sched,
		disp:       disp,
		publisher:  publisher,
		mqttStatus: mqttStatus,
		tracker:    tracker,
		now:        time.Now,
		events:     events,
		statusTick: statusTicker.C,
		heartbeat:  heartbeat,
		serveErr:   serveErr,
		sig:        sigCh,
	})
}

type server interface {
	Serve(ctx context.Context) error
}

// startServe runs s.Serve in a goroutine. The returned stop func cancels
// it and waits until Serve has returned, so no request is still being
// handled afterwards.
func startServe(s server) (<-chan error, func()) {
	ctx, cancel := context.WithCancel(context.Background())
	errs := make(chan error, 1)
	done := make(chan struct{})
	go func() {
		defer close(done)
		errs <- s.Serve(ctx)
	}()
	return errs, func() {
		cancel()
		<-done
	}
}

func openTransport(cfg config) (transport.Transport, string, error) {
	if cfg.socket != "" {
		l, err := transport.Listen(cfg.socket)
		if err != nil {
			return nil, "", err
		}
		return l, "unix:" + cfg.socket, nil
	}
	s, err := transport.OpenSerial(transport.SerialConfig{Device: cfg.serialDev, Baud: cfg.baud})
	if err != nil {
		return nil, "", err
	}
	return s, "serial:" + cfg.serialDev, nil
}

func printState(reader gpio.Reader, pins [logic.NumInputs]int) error {
	for i, pin := range pins {
		level, err := reader.Read(pin)
		if err != nil {
			return fmt.Errorf("read gpio %d: %w", pin, err)
		}
		fmt.Printf("DI%d (pin %d): %s\n", i, pin, levelString(level))
	}
	return nil
}

// loop carries the runLoop dependencies.
type loop struct {
	sched      *scheduler.Scheduler
	disp       *dispatch.Dispatcher
	publisher  mqtt.Publisher
	mqttStatus mqtt.ConnectionStatus
	tracker    *status.Tracker
	now        func() time.Time
	events     <-chan scheduler.Event
	statusTick <-chan time.Time
	heartbeat  <-chan time.Time
	serveErr   <-chan error
	sig        <-chan os.Signal
}

func runLoop(l loop) error {
	for {
		select {
		case s := <-l.sig:
			log.Printf("received %v, shutting down", s)
			signalName := "UNKNOWN"
			if s == syscall.SIGINT {
				signalName = "SIGINT"
			} else if s == syscall.SIGTERM {
				signalName = "SIGTERM"
			}
			refresh(l.tracker, l.sched, l.disp, l.mqttStatus)
			snap := l.tracker.Snapshot()
			event := mqtt.SystemEvent{
				Timestamp:  l.now(),
				Event:      "SHUTDOWN",
				Reason:     signalName,
				Retained:   true,
				RawPayload: status.FormatStatusEvent(snap, "SHUTDOWN", signalName),
			}
			if err := l.publisher.PublishSystem(event); err != nil {
				log.Printf("failed to publish shutdown event: %v", err)
			} else {
				log.Printf("published shutdown event")
			}
			return nil

		case err := <-l.serveErr:
			return fmt.Errorf("dispatcher: %w", err)

		case e := <-l.events:
			log.Printf("edge: pin=%d %s level=%s count=%d", e.Pin, e.Edge, levelString(e.Level), e.Count)
			if err := l.publisher.Publish(mqtt.EdgeEvent{Timestamp: l.now(), Event: e}); err != nil {
				log.Printf("publish error: %v", err)
				// Don't crash on publish failure
			}

		case <-l.statusTick:
			refresh(l.tracker, l.sched, l.disp, l.mqttStatus)

		case <-l.heartbeat:
			refresh(l.tracker, l.sched, l.disp, l.mqttStatus)
			snap := l.tracker.Snapshot()
			log.Printf("heartbeat: uptime=%v ticks=%d requests=%d failures=%d dropped=%d",
				snap.Uptime().Truncate(time.Second), snap.Counters.Ticks, snap.Counters.Requests,
				snap.Counters.Failures, snap.Counters.Dropped)

			hbEvent := mqtt.SystemEvent{
				Timestamp:  snap.Now,
				Event:      "HEARTBEAT",
				RawPayload: status.FormatStatusEvent(snap, "HEARTBEAT", ""),
			}
			if err := l.publisher.PublishSystem(hbEvent); err != nil {
				log.Printf("heartbeat publish error: %v", err)
			}
		}
	}
}

// refresh copies channel state and counters into the tracker.
func refresh(tracker *status.Tracker, sched *scheduler.Scheduler, disp *dispatch.Dispatcher, mqttStatus mqtt.ConnectionStatus) {
	var inputs []logic.InputSnapshot
	var outputs []logic.OutputSnapshot
	sched.Do(func(b *logic.Bank) {
		inputs = b.InputSnapshots()
		outputs = b.OutputSnapshots()
	})
	ticks, dropped := sched.Stats()
	requests, failures := disp.Stats()

	tracker.Update(inputs, outputs, status.Counters{
		Ticks:    ticks,
		Dropped:  dropped,
		Requests: requests,
		Failures: failures,
	})
	tracker.SetMQTTConnected(mqttStatus.IsConnected())
}

func levelString(high bool) string {
	if high {
		return "HIGH"
	}
	return "LOW"
}
