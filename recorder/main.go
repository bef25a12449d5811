// Command recorder enables telemetry on a pseudobend controller and writes
// the session to a CSV file, optionally forwarding readings to MQTT.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/itohio/pseudobend/pkg/config"
	"github.com/itohio/pseudobend/pkg/force"
	"github.com/itohio/pseudobend/pkg/link"
	"github.com/itohio/pseudobend/pkg/record"
	"github.com/itohio/pseudobend/pkg/telemetry"
)

func main() {
	var (
		portFlag    = flag.String("p", "", "Serial port override (e.g., /dev/ttyACM0)")
		configFlag  = flag.String("config", "config.yaml", "Configuration file path")
		envFlag     = flag.String("env", ".env", "Environment file with PSEUDOBEND_* overrides")
		outFlag     = flag.String("o", "", "CSV output file (default session-<time>.csv)")
		mockFlag    = flag.Bool("mock", false, "Use mocked device instead of serial port")
		averageFlag = flag.Int("average-samples", 1, "Moving average window applied before writing")
		listFlag    = flag.Bool("list", false, "List serial ports and exit")
	)
	flag.Parse()

	if *listFlag {
		ports, err := link.Ports()
		if err != nil {
			log.Fatalf("%v", err)
		}
		for _, p := range ports {
			fmt.Println(p.Name)
		}
		return
	}

	cfg, err := config.Load(*configFlag)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if err := cfg.LoadEnv(*envFlag); err != nil {
		log.Fatalf("Failed to load environment: %v", err)
	}
	if *portFlag != "" {
		cfg.Serial.Port = *portFlag
	}

	var dev link.Device
	if *mockFlag {
		dev = link.NewMock(&cfg.Mock, cfg.Engine())
	} else {
		dev = link.New(cfg.Serial.Port, cfg.Serial.BaudRate, 0)
	}
	if err := dev.Connect(); err != nil {
		log.Fatalf("Failed to connect: %v", err)
	}

	name := *outFlag
	if name == "" {
		name = fmt.Sprintf("session-%s.csv", time.Now().Format("20060102-150405"))
	}
	f, err := os.Create(name)
	if err != nil {
		dev.Close()
		log.Fatalf("Failed to create %s: %v", name, err)
	}
	defer f.Close()

	w, err := record.NewWriter(f)
	if err != nil {
		dev.Close()
		log.Fatalf("%v", err)
	}

	sinks := telemetry.Multi{w}
	if m := cfg.MQTT(); m.Broker != "" {
		pub, err := telemetry.DialMQTT(m)
		if err != nil {
			log.Printf("MQTT disabled: %v", err)
		} else {
			defer pub.Close()
			sinks = append(sinks, pub)
		}
	}

	// The controller boots with recording off; "r" toggles it.
	if err := dev.Send("r"); err != nil {
		dev.Close()
		log.Fatalf("Failed to enable recording: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		if err := dev.Send("r"); err != nil {
			log.Printf("Failed to disable recording: %v", err)
		}
		dev.Close()
	}()

	log.Printf("Recording to %s, Ctrl+C to stop", name)

	var summary record.Summary
	flush := time.NewTicker(time.Second)
	defer flush.Stop()

	readings := record.NewAveraging(*averageFlag, 0)(dev.Readings())
	for done := false; !done; {
		select {
		case r, ok := <-readings:
			if !ok {
				done = true
				break
			}
			summary.Add(r)
			if err := sinks.Send(r); err != nil {
				log.Printf("Failed to record reading: %v", err)
			}
		case <-flush.C:
			if err := w.Flush(); err != nil {
				log.Printf("Failed to flush: %v", err)
			}
		}
	}

	if err := w.Flush(); err != nil {
		log.Printf("Failed to flush: %v", err)
	}
	log.Printf("Wrote %d readings; peak left %d right %d; mean left %.1f right %.1f",
		w.Rows(), summary.Peak[force.Left], summary.Peak[force.Right],
		summary.Mean(force.Left), summary.Mean(force.Right))
}
