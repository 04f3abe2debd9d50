// Command door-controller runs the keypad and card access controller and
// publishes door activity to MQTT.
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/sweeney/door-controller/internal/board"
	"github.com/sweeney/door-controller/internal/config"
	"github.com/sweeney/door-controller/internal/eeprom"
	"github.com/sweeney/door-controller/internal/gpio"
	"github.com/sweeney/door-controller/internal/journal"
	"github.com/sweeney/door-controller/internal/lcd"
	"github.com/sweeney/door-controller/internal/light"
	"github.com/sweeney/door-controller/internal/logic"
	"github.com/sweeney/door-controller/internal/mqtt"
	"github.com/sweeney/door-controller/internal/queue"
	"github.com/sweeney/door-controller/internal/rfid"
	"github.com/sweeney/door-controller/internal/rtc"
	"github.com/sweeney/door-controller/internal/status"
	"github.com/sweeney/door-controller/internal/tick"
	"github.com/sweeney/door-controller/internal/web"
)

// options are the command-line settings layered over the config file.
type options struct {
	configPath string
	memory     string
	eepromFile string
	light      string
	heartbeat  time.Duration
	httpAddr   string
	printLog   bool
	setClock   bool
	useRFID    bool
	useLCD     bool
	useRTC     bool
}

func main() {
	var o options
	pflag.StringVar(&o.configPath, "config", "", "YAML config file (empty for defaults)")
	pflag.StringVar(&o.memory, "memory", "eeprom", "Credential store: eeprom, file or none")
	pflag.StringVar(&o.eepromFile, "eeprom-file", "/var/lib/door-controller/eeprom.bin", "Image path for --memory=file")
	pflag.StringVar(&o.light, "light", "adc", "Light sensor: adc, gpio, mqtt or none")
	pflag.DurationVar(&o.heartbeat, "heartbeat", 15*time.Minute, "Heartbeat interval (0 to disable)")
	pflag.StringVar(&o.httpAddr, "http", ":80", "HTTP status address (empty to disable)")
	pflag.BoolVar(&o.printLog, "print-log", false, "Print the stored access log and exit")
	pflag.BoolVar(&o.setClock, "set-clock", false, "Set the RTC from the system clock and exit")
	pflag.BoolVar(&o.useRFID, "rfid", true, "Use the MFRC522 card reader")
	pflag.BoolVar(&o.useLCD, "lcd", true, "Use the HD44780 display")
	pflag.BoolVar(&o.useRTC, "rtc", true, "Use the DS3231 clock (false uses the system clock)")
	broker := pflag.String("broker", "", "MQTT broker address (overrides config)")
	payload := pflag.String("payload", "", "Activity payload encoding: json or cbor (overrides config)")
	tickPeriod := pflag.Duration("tick", 0, "Controller cycle period (overrides config)")
	journalPath := pflag.String("journal", "", "SQLite journal path (overrides config, empty keeps it in memory)")
	remoteControl := pflag.Bool("remote-control", false, "Let MQTT button, keys and card commands open the door (overrides config)")

	pflag.Parse()

	cfg, err := config.Load(o.configPath)
	if err != nil {
		log.Fatalf("fatal: %v", err)
	}
	if pflag.CommandLine.Changed("broker") {
		cfg.MQTT.Broker = *broker
	}
	if pflag.CommandLine.Changed("payload") {
		cfg.MQTT.Payload = *payload
	}
	if pflag.CommandLine.Changed("tick") {
		cfg.Timing.Tick = *tickPeriod
	}
	if pflag.CommandLine.Changed("journal") {
		cfg.Journal.Path = *journalPath
	}
	if pflag.CommandLine.Changed("remote-control") {
		cfg.MQTT.RemoteControl = *remoteControl
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("fatal: %v", err)
	}

	if err := run(cfg, o); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

func run(cfg config.Config, o options) error {
	// Open the buses only when a bus device is in use.
	needI2C := o.memory == "eeprom" || o.light == "adc" || o.useLCD || o.useRTC || o.setClock
	var b *board.Board
	if needI2C || o.useRFID {
		var err error
		b, err = board.Open(cfg.I2CBus, cfg.RFID.SPIPort, o.useRFID)
		if err != nil {
			return fmt.Errorf("init board: %w", err)
		}
		defer b.Close()
	}

	// Set clock mode
	if o.setClock {
		now := time.Now()
		if err := rtc.NewDS3231(b.I2C).SetTime(now); err != nil {
			return fmt.Errorf("set clock: %w", err)
		}
		fmt.Printf("RTC set to %s\n", now.Format("2006-01-02 15:04:05"))
		return nil
	}

	raw, closeStore, err := openStore(o, cfg, b)
	if err != nil {
		return err
	}
	defer closeStore()
	// The status server reads the access log while the loop writes.
	store := eeprom.NewShared(raw)

	// Print log mode
	if o.printLog {
		records, err := store.AccessLog()
		if err != nil {
			return fmt.Errorf("read log: %w", err)
		}
		for _, r := range records {
			fmt.Printf("%3d  %s  %s\n", r.Index, r.Time.Format("2006-01-02 15:04:05"), r.UID)
		}
		return nil
	}

	actuators, err := gpio.NewRealActuators(cfg.Pins)
	if err != nil {
		return fmt.Errorf("init actuators: %w", err)
	}
	defer actuators.Close()

	matrix, err := gpio.NewRealMatrix(cfg.Pins.Rows, cfg.Pins.Cols)
	if err != nil {
		return fmt.Errorf("init keypad: %w", err)
	}
	keypad := gpio.NewKeypad(matrix, cfg.Timing.KeyDebounce, 16)
	defer keypad.Close()

	events := queue.New(queue.DefaultCapacity)
	button, err := gpio.NewRealButton(cfg.Pins.DoorButton, func(ev logic.Event) {
		if err := events.Push(ev); err != nil {
			log.Printf("button: %v", err)
		}
	})
	if err != nil {
		return fmt.Errorf("init door button: %w", err)
	}
	defer button.Close()

	// Remote light readings go through the MQTT subscription.
	var remoteLight *mqtt.LightSensor
	var lightSensor logic.LightSensor
	switch o.light {
	case "adc":
		l, err := light.NewADS1115(b.I2C, cfg.ADC.LightOptions())
		if err != nil {
			return fmt.Errorf("init light sensor: %w", err)
		}
		defer l.Close()
		lightSensor = l
	case "gpio":
		l, err := gpio.NewRealLight(cfg.Pins.Light)
		if err != nil {
			return fmt.Errorf("init light sensor: %w", err)
		}
		defer l.Close()
		lightSensor = l
	case "mqtt":
		remoteLight = mqtt.NewLightSensor(3 * cfg.Timing.LightSample)
		lightSensor = remoteLight
	case "none":
	default:
		return fmt.Errorf("unknown light sensor %q", o.light)
	}

	remoteCards := &rfid.Fake{}
	var reader logic.CardReader
	if o.useRFID {
		r, err := openReader(cfg, b)
		if err != nil {
			return err
		}
		defer r.Close()
		reader = r
	}
	cards := rfid.NewChain(reader, remoteCards)

	grid := lcd.NewGrid(logic.DisplayRows, logic.DisplayCols)
	display := lcd.Mirror{grid}
	if o.useLCD {
		hd, err := lcd.NewHD44780(b.I2C, cfg.LCD)
		if err != nil {
			return fmt.Errorf("init lcd: %w", err)
		}
		display = append(display, hd)
	}

	var clock logic.Clock = rtc.System{}
	if o.useRTC {
		clock = rtc.NewDS3231(b.I2C)
	}

	sys, err := logic.LoadConfig(store)
	if err != nil {
		log.Printf("credential store: %v (using defaults)", err)
	}
	ctrl := logic.NewController(logic.Peripherals{
		Display:   display,
		Keypad:    keypad,
		Cards:     cards,
		Clock:     clock,
		Store:     store,
		Actuators: actuators,
		Light:     lightSensor,
		Events:    events,
	}, sys, cfg.Options())

	enc, err := mqtt.ParseEncoding(cfg.MQTT.Payload)
	if err != nil {
		return err
	}
	remote := &remoteInputs{
		events:  events,
		keypad:  keypad,
		cards:   remoteCards,
		control: cfg.MQTT.RemoteControl,
	}
	if remote.control {
		log.Printf("mqtt: remote door control enabled")
	}
	publisher := mqtt.NewRealPublisher(mqtt.Options{
		Broker:     cfg.MQTT.Broker,
		ClientID:   cfg.MQTT.ClientID,
		Encoding:   enc,
		BufferSize: cfg.MQTT.BufferSize,
		OnCommand:  remote.dispatch,
		Light:      remoteLight,
	})
	defer publisher.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	jnl, jnlName, err := openJournal(ctx, cfg.Journal)
	if err != nil {
		return err
	}
	defer jnl.Close()

	// Initialize status tracker (before STARTUP so snapshot is available)
	tracker := status.NewTracker(time.Now(), status.Config{
		TickMs:      cfg.Timing.Tick.Milliseconds(),
		HeartbeatMs: o.heartbeat.Milliseconds(),
		Broker:      cfg.MQTT.Broker,
		HTTPPort:    o.httpAddr,
		Memory:      o.memory,
		Payload:     string(enc),
		Journal:     jnlName,
		Cards:       len(cfg.AllowedCards),
	})
	tracker.Update(ctrl.Snapshot(), grid.Lines())
	if net := readNetworkInfo(); net != nil {
		tracker.SetNetwork(net)
	}

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
	} else {
		log.Printf("published startup event")
	}

	// Start HTTP status server
	if o.httpAddr != "" {
		srv := web.New(o.httpAddr, tracker, web.Sources{
			Journal:   jnl,
			AccessLog: store.AccessLog,
		})
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Printf("http server error: %v", err)
			}
		}()
		defer srv.Shutdown(context.Background())
		log.Printf("http status server listening on %s", o.httpAddr)
	}

	ticks := tick.NewCounter(tick.DefaultLimit)
	go ticks.Run(ctx, cfg.Timing.Tick)
	go keypad.Run(ctx, cfg.Timing.KeyScan)

	log.Printf("started: tick=%v memory=%s broker=%s heartbeat=%v journal=%q cards=%d",
		cfg.Timing.Tick, o.memory, cfg.MQTT.Broker, o.heartbeat, jnlName, len(cfg.AllowedCards))

	var heartbeat <-chan time.Time
	if o.heartbeat > 0 {
		hb := time.NewTicker(o.heartbeat)
		defer hb.Stop()
		heartbeat = hb.C
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	l := &loop{
		ctrl:       ctrl,
		ticks:      ticks,
		events:     events,
		publisher:  publisher,
		mqttStatus: publisher,
		journal:    jnl,
		tracker:    tracker,
		grid:       grid,
		now:        time.Now,
	}
	return runLoop(l, ticks.Wake(), heartbeat, sigCh)
}

// openStore selects the credential store named by --memory. The returned
// close function is always safe to call.
func openStore(o options, cfg config.Config, b *board.Board) (logic.Store, func(), error) {
	switch o.memory {
	case "eeprom":
		return eeprom.NewI2C(b.I2C, cfg.EEPROM), func() {}, nil
	case "file":
		f, err := eeprom.OpenFile(o.eepromFile)
		if err != nil {
			return nil, nil, err
		}
		return f, func() {
			if err := f.Close(); err != nil {
				log.Printf("eeprom: %v", err)
			}
		}, nil
	case "none":
		log.Printf("eeprom: no credential store, every start is a first run")
		return eeprom.Nop{}, func() {}, nil
	}
	return nil, nil, fmt.Errorf("unknown memory %q (want eeprom, file or none)", o.memory)
}

func openReader(cfg config.Config, b *board.Board) (*rfid.MFRC522, error) {
	reset, err := board.Pin(cfg.RFID.Reset)
	if err != nil {
		return nil, fmt.Errorf("rfid reset: %w", err)
	}
	irq, err := board.Pin(cfg.RFID.IRQ)
	if err != nil {
		return nil, fmt.Errorf("rfid irq: %w", err)
	}
	r, err := rfid.NewMFRC522(b.SPI, reset, irq, rfid.DefaultTimeout)
	if err != nil {
		return nil, fmt.Errorf("init rfid: %w", err)
	}
	return r, nil
}

// openJournal opens the SQLite journal, or an in-memory one when no path is
// configured. It also returns the path for the status page.
func openJournal(ctx context.Context, c config.Journal) (journal.Journal, string, error) {
	h := journal.NewHasher([]byte(c.Secret))
	if c.Path == "" {
		return journal.NewMemory(h), "", nil
	}
	j, err := journal.Open(ctx, c.Path, h)
	if err != nil {
		return nil, "", fmt.Errorf("open journal: %w", err)
	}
	return j, c.Path, nil
}

// remoteInputs routes MQTT commands to the inputs they stand in for.
type remoteInputs struct {
	events *queue.Queue
	keypad *gpio.Keypad
	cards  *rfid.Fake

	// control accepts commands that can open the door
	control bool
}

func (r *remoteInputs) dispatch(cmd mqtt.Command) {
	if cmd.OpensDoor() && !r.control {
		log.Printf("command: %s ignored, remote control is off", cmd.Action)
		return
	}
	if ev, ok := cmd.Event(); ok {
		if err := r.events.Push(ev); err != nil {
			log.Printf("command: %s: %v", cmd.Action, err)
		}
		return
	}
	switch cmd.Action {
	case mqtt.ActionKeys:
		for _, k := range cmd.Keys {
			if !r.keypad.Inject(k) {
				log.Printf("command: keypad buffer full, dropped %q", k)
			}
		}
	case mqtt.ActionCard:
		uid, err := logic.ParseUID(cmd.UID)
		if err != nil {
			log.Printf("command: %v", err)
			return
		}
		r.cards.Present(uid[:])
	}
}

// loop is the state the control loop drives.
type loop struct {
	ctrl       *logic.Controller
	ticks      *tick.Counter
	events     *queue.Queue
	publisher  mqtt.Publisher
	mqttStatus mqtt.ConnectionStatus
	journal    journal.Journal
	tracker    *status.Tracker
	grid       *lcd.Grid
	now        func() time.Time
}

func runLoop(l *loop, wake <-chan struct{}, heartbeat <-chan time.Time, sig <-chan os.Signal) error {
	for {
		select {
		case s := <-sig:
			log.Printf("received %v, shutting down", s)
			signalName := "UNKNOWN"
			if s == syscall.SIGINT {
				signalName = "SIGINT"
			} else if s == syscall.SIGTERM {
				signalName = "SIGTERM"
			}
			event := mqtt.SystemEvent{
				Timestamp: l.now(),
				Event:     "SHUTDOWN",
				Reason:    signalName,
				Retained:  true,
			}
			l.refresh()
			event.RawPayload = status.FormatStatusEvent(l.tracker.Snapshot(), "SHUTDOWN", signalName)
			if err := l.publisher.PublishSystem(event); err != nil {
				log.Printf("failed to publish shutdown event: %v", err)
			} else {
				log.Printf("published shutdown event")
			}
			return nil

		case <-wake:
			n := l.ticks.Drain(func() {
				for _, a := range l.ctrl.Step() {
					l.handle(a)
				}
			})
			if n > 0 {
				l.refresh()
			}

		case t := <-heartbeat:
			if net := readNetworkInfo(); net != nil {
				l.tracker.SetNetwork(net)
			}
			l.refresh()
			snap := l.tracker.Snapshot()
			log.Printf("heartbeat: uptime=%v state=%s opened=%d denied=%d alerts=%d",
				snap.Uptime().Truncate(time.Second), snap.Controller.State,
				snap.Counts.Opened, snap.Counts.Denied, snap.Counts.Alerts)
			hbEvent := mqtt.SystemEvent{
				Timestamp:  t,
				Event:      "HEARTBEAT",
				RawPayload: status.FormatStatusEvent(snap, "HEARTBEAT", ""),
			}
			if err := l.publisher.PublishSystem(hbEvent); err != nil {
				log.Printf("heartbeat publish error: %v", err)
			}
		}
	}
}

// handle fans one activity out to the log, MQTT, the journal and the tracker.
func (l *loop) handle(a logic.Activity) {
	if a.UID != "" {
		log.Printf("activity: %s (state=%s method=%s uid=%s)", a.Type, a.State, a.Method, a.UID)
	} else {
		log.Printf("activity: %s (state=%s method=%s)", a.Type, a.State, a.Method)
	}
	if err := l.publisher.Publish(a); err != nil {
		log.Printf("publish error: %v", err)
		// Don't stop the controller on publish failure
	}
	if l.journal != nil {
		// Record only queues the write; the loop never waits on the disk.
		if err := l.journal.Record(context.Background(), a); err != nil {
			log.Printf("journal: %v", err)
		}
	}
	l.tracker.Record(a)
}

// refresh copies controller and connection state into the tracker.
func (l *loop) refresh() {
	l.tracker.Update(l.ctrl.Snapshot(), l.grid.Lines())
	var writes uint64
	if l.journal != nil {
		writes = l.journal.Dropped()
	}
	l.tracker.SetDropped(l.ticks.Dropped(), l.events.Dropped(), writes)
	if l.mqttStatus != nil {
		l.tracker.SetMQTTConnected(l.mqttStatus.IsConnected())
	}
}

// pi-helper env var names (written to /run/pi-helper.env).
const (
	envNetworkType       = "NETWORK_TYPE"
	envNetworkIP         = "NETWORK_IP"
	envNetworkStatus     = "NETWORK_STATUS"
	envNetworkGateway    = "NETWORK_GATEWAY"
	envNetworkWifiStatus = "NETWORK_WIFI_STATUS"
	envNetworkWifiSSID   = "NETWORK_WIFI_SSID"
)

func readNetworkInfo() *status.NetworkInfo {
	s := os.Getenv(envNetworkStatus)
	if s == "" {
		return nil
	}
	return &status.NetworkInfo{
		Type:       os.Getenv(envNetworkType),
		IP:         os.Getenv(envNetworkIP),
		Status:     s,
		Gateway:    os.Getenv(envNetworkGateway),
		WifiStatus: os.Getenv(envNetworkWifiStatus),
		SSID:       os.Getenv(envNetworkWifiSSID),
	}
}
