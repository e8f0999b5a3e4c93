package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	_ "modernc.org/sqlite"

	"github.com/banshee-data/parcel.station/internal/api"
	"github.com/banshee-data/parcel.station/internal/camera"
	"github.com/banshee-data/parcel.station/internal/config"
	"github.com/banshee-data/parcel.station/internal/db"
	"github.com/banshee-data/parcel.station/internal/fusion"
	"github.com/banshee-data/parcel.station/internal/scale"
	"github.com/banshee-data/parcel.station/internal/scanner"
	"github.com/banshee-data/parcel.station/internal/serialmux"
	"github.com/banshee-data/parcel.station/internal/timeutil"
	"github.com/banshee-data/parcel.station/internal/units"
	"github.com/banshee-data/parcel.station/internal/upload"
)

var (
	devMode     = flag.Bool("dev", false, "Run in dev mode with mock serial devices")
	listen      = flag.String("listen", ":8080", "Listen address")
	scalePort   = flag.String("scale-port", "/dev/ttyUSB0", "Weight scale serial port (ignored in dev mode)")
	scannerPort = flag.String("scanner-port", "/dev/ttyUSB1", "Barcode scanner serial port (ignored in dev mode)")
	dbFile      = flag.String("db", "station.db", "Path to the sqlite database")
	configPath  = flag.String("config", "", "Path to a station config JSON file (defaults apply when empty)")
	framesDir   = flag.String("frames-dir", "frames", "Directory for captured package photos")
	migrations  = flag.String("migrations", "", "Apply migrations from this directory before starting")
)

// Replay fixtures for dev mode: a scale settling onto a plateau and a scanner
// reading a label every few seconds.
var devScaleLines = []string{
	"ST,+0000.000,kg",
	"US,+0001.913,kg",
	"US,+0002.384,kg",
	"ST,+0002.502,kg",
	"ST,+0002.503,kg",
	"ST,+0002.502,kg",
	"ST,+0002.503,kg",
	"ST,+0002.502,kg",
	"ST,+0002.503,kg",
}

var devScannerLines = []string{
	"\x02PKG00017352\x03",
	"\x02PKG00017353\x03",
	"\x02PKG00017354\x03",
}

// devFrames is the photo fixture replayed in dev mode: a minimal JPEG so the
// frame store writes a decodable file.
var devFrames = []camera.Frame{
	{CameraID: "cam0", Data: []byte{0xff, 0xd8, 0xff, 0xd9}},
}

// newFrameSource returns the frame source for the orchestrator. Dev mode
// replays devFrames the same way the serial fixtures replay; without a real
// camera adapter wired in there is no source, and the orchestrator records
// packages without a photo.
func newFrameSource(ctx context.Context, dev bool) camera.FrameSource {
	if !dev {
		return nil
	}
	bus := camera.NewBus()
	camera.StartReplay(ctx, bus, 200*time.Millisecond, devFrames)
	return bus
}

// newVolumeDevice returns the volume head for the orchestrator. Dev mode gets
// a fixed successful measurement; without the real head attached every
// measurement reports failure so records degrade to failed instead of
// carrying made-up dimensions.
func newVolumeDevice(dev bool) camera.VolumeDevice {
	if dev {
		return &camera.StaticVolumeDevice{Result: camera.VolumeResult{Success: true, LengthMm: 300, WidthMm: 200, HeightMm: 150}}
	}
	// TODO(vendor): swap in the SDK-backed volume head once its Go bindings land.
	return &camera.StaticVolumeDevice{Result: camera.VolumeResult{Success: false, ErrorMessage: "volume head not attached"}}
}

func loadStationConfig() (*config.StationConfig, error) {
	if *configPath != "" {
		return config.LoadStationConfig(*configPath)
	}
	if _, err := os.Stat(config.DefaultConfigPath); err == nil {
		return config.LoadStationConfig(config.DefaultConfigPath)
	}
	return config.EmptyStationConfig(), nil
}

func main() {
	flag.Parse()

	if *listen == "" {
		log.Fatal("Listen address is required")
	}

	// Broker credentials and the station identity come from the environment;
	// a local .env is a convenience for bench setups.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("failed to load .env: %v", err)
	}

	cfg, err := loadStationConfig()
	if err != nil {
		log.Fatalf("failed to load station config: %v", err)
	}

	var scaleMux, scannerMux serialmux.SerialMuxInterface
	if *devMode {
		scaleMux = serialmux.NewMockSerialMux("scale", devScaleLines, 100*time.Millisecond)
		scannerMux = serialmux.NewMockSerialMux("scanner", devScannerLines, 5*time.Second)
	} else {
		scaleMux, err = serialmux.NewRealSerialMux("scale", *scalePort, serialmux.ScaleDefaults())
		if err != nil {
			log.Fatalf("failed to open scale port %s: %v", *scalePort, err)
		}
		scannerMux, err = serialmux.NewRealSerialMux("scanner", *scannerPort, serialmux.ScannerDefaults())
		if err != nil {
			log.Fatalf("failed to open scanner port %s: %v", *scannerPort, err)
		}
	}
	defer scaleMux.Close()
	defer scannerMux.Close()

	database, err := db.NewDB(*dbFile)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer database.Close()

	if *migrations != "" {
		if err := database.MigrateUp(*migrations); err != nil {
			log.Fatalf("failed to apply migrations: %v", err)
		}
	}

	frameStore, err := camera.NewFrameStore(*framesDir)
	if err != nil {
		log.Fatalf("failed to create frame store: %v", err)
	}

	var uploader fusion.Uploader
	if broker := os.Getenv("STATION_MQTT_BROKER"); broker != "" {
		stationID := os.Getenv("STATION_ID")
		if stationID == "" {
			stationID, _ = os.Hostname()
		}
		client, err := upload.NewClient(upload.ClientConfig{
			Broker:    broker,
			ClientID:  stationID,
			Username:  os.Getenv("STATION_MQTT_USERNAME"),
			Password:  os.Getenv("STATION_MQTT_PASSWORD"),
			StationID: stationID,
		})
		if err != nil {
			// The local database is the source of truth; start without the
			// reporting link rather than refusing to process packages.
			log.Printf("starting without uploads: %v", err)
		} else {
			defer client.Close()
			uploader = client
		}
	}

	var wg sync.WaitGroup
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	clock := timeutil.RealClock{}
	history := scale.NewHistory(scale.DefaultHistoryCapacity)
	detector := scale.NewDetector(
		cfg.GetStabilityCheckSamples(),
		units.GramsToKilograms(cfg.GetStabilityThresholdGrams()),
		history,
	)

	pallets := fusion.NewPalletRegistry(
		fusion.PalletProfile{Name: "euro", TareWeightKg: 22.0, LengthCm: 120, WidthCm: 80, HeightCm: 14.4},
		fusion.PalletProfile{Name: "half", TareWeightKg: 10.5, LengthCm: 80, WidthCm: 60, HeightCm: 14.4},
	)

	frames := newFrameSource(ctx, *devMode)
	if frames == nil {
		log.Print("photo capture disabled: no camera adapter attached")
	}

	orch := &fusion.Orchestrator{
		Clock:        clock,
		FusionDelay:  cfg.GetFusionDelay(),
		PhotoTimeout: cfg.GetPhotoTimeout(),
		GateTimeout:  cfg.GetGateTimeout(),
		Filter:       fusion.NewDuplicateFilter(cfg.GetDuplicateInterval()),
		Admission:    fusion.NewAdmission(),
		Gate:         fusion.NewGate(clock),
		Lookup: &fusion.WeightLookup{
			History:      history,
			Clock:        clock,
			QueryWindow:  cfg.GetStableWeightQueryWindow(),
			MaxWait:      cfg.GetMaxWaitTimeForWeight(),
			PollInterval: cfg.GetWeightPollInterval(),
		},
		Pallets:    pallets,
		Frames:     frames,
		FrameSaver: frameStore,
		Volume:     newVolumeDevice(*devMode),
		Persister:  database,
		Uploader:   uploader,
	}

	// Scale monitor: owns IO on the scale port. When it exits the device is
	// gone, so the detector state is cleared: readings from before a
	// disconnect must not describe a package scanned after it.
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := scaleMux.Monitor(ctx); err != nil && err != context.Canceled {
			log.Printf("scale monitor failed: %v", err)
		}
		detector.Reset()
		log.Print("scale monitor terminated")
	}()

	// Scanner monitor.
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := scannerMux.Monitor(ctx); err != nil && err != context.Canceled {
			log.Printf("scanner monitor failed: %v", err)
		}
		log.Print("scanner monitor terminated")
	}()

	// Scale ingest: raw lines into the stability detector.
	wg.Add(1)
	go func() {
		defer wg.Done()
		scale.Feed(ctx, scaleMux, detector, clock)
		log.Print("scale feed terminated")
	}()

	// Scanner ingest: each trigger gets its own goroutine so a slow pipeline
	// never blocks the scanner stream; the admission gate drops overlap.
	wg.Add(1)
	go func() {
		defer wg.Done()
		scanner.Feed(ctx, scannerMux, clock, func(trig scanner.Trigger) {
			go func() {
				if rec := orch.ProcessTrigger(ctx, trig.Barcode, trig.Timestamp); rec != nil {
					log.Printf("package %s: status=%s weight=%.3fkg volume=%.0fcm3",
						rec.Barcode, rec.Status, rec.WeightKg, rec.VolumeCm3)
				}
			}()
		})
		log.Print("scanner feed terminated")
	}()

	// HTTP server goroutine.
	wg.Add(1)
	go func() {
		defer wg.Done()

		mux := api.NewServer(database, pallets, orch.Admission, scaleMux, scannerMux).ServeMux()

		scaleMux.AttachAdminRoutes(mux)
		scannerMux.AttachAdminRoutes(mux)
		if err := database.AttachAdminRoutes(mux); err != nil {
			log.Printf("failed to attach db admin routes: %v", err)
		}

		server := &http.Server{
			Addr:    *listen,
			Handler: api.LoggingMiddleware(mux),
		}

		go func() {
			log.Printf("listening on %s", *listen)
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatalf("failed to start server: %v", err)
			}
		}()

		<-ctx.Done()
		log.Print("shutting down HTTP server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("HTTP server shutdown error: %v", err)
			if err := server.Close(); err != nil {
				log.Printf("HTTP server force close error: %v", err)
			}
		}

		log.Print("HTTP server routine stopped")
	}()

	wg.Wait()
	log.Print("graceful shutdown complete")
}
