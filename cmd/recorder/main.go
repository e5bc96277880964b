// Command recorder tracks a ride from a serial NMEA GPS receiver.
//
// SIGUSR1 toggles pause and resume. SIGINT or SIGTERM stops the ride,
// prints its summary and, with -save, stores it in the ride history database.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"biketrail/internal/app"
	"biketrail/internal/config"
	"biketrail/internal/location"
	"biketrail/internal/service"
)

func main() {
	cfg := config.Load()

	portPath := flag.String("port", cfg.GPS.PortPath, "Serial port of the GPS receiver")
	baudRate := flag.Int("baud", cfg.GPS.BaudRate, "Serial baud rate")
	riderID := flag.String("rider", "", "Rider id used when saving the ride")
	save := flag.Bool("save", false, "Save the finished ride to PostgreSQL")
	flag.Parse()

	log.SetFlags(log.Ldate | log.Ltime)
	if *save && *riderID == "" {
		log.Fatal("[recorder] -save needs -rider")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stopCh := make(chan os.Signal, 1)
	signal.Notify(stopCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-stopCh
		log.Printf("[recorder] received %v, stopping ride", sig)
		cancel()
	}()

	toggles := make(chan struct{}, 1)
	toggleCh := make(chan os.Signal, 1)
	signal.Notify(toggleCh, syscall.SIGUSR1)
	go func() {
		for range toggleCh {
			select {
			case toggles <- struct{}{}:
			default:
			}
		}
	}()

	source := location.NewSerialSource(location.SerialConfig{
		PortPath: *portPath,
		BaudRate: *baudRate,
	})
	defer source.Stop()

	rec := newRecorder(*riderID, time.Now)
	ride, err := rec.Run(ctx, source, toggles)
	if err != nil {
		log.Fatalf("[recorder] %v", err)
	}

	log.Printf("[recorder] ride finished\n%s", service.NewShareService().FormatRideSummary(ride))

	if !*save {
		return
	}

	saveCtx, saveCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer saveCancel()

	db, err := app.NewDatabase(saveCtx, cfg.Database, nil)
	if err != nil {
		log.Fatalf("[recorder] failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := saveRide(saveCtx, db, ride); err != nil {
		log.Fatalf("[recorder] %v", err)
	}
	log.Printf("[recorder] saved ride %s for rider %s", ride.ID, ride.RiderID)
}
