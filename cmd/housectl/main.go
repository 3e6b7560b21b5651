package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/common-nighthawk/go-figure"
	"github.com/google/uuid"
	"github.com/sannel/house/internal/app"
	"github.com/sannel/house/internal/config"
	"github.com/sannel/house/pkg/sensorlogging"
)

const usage = `usage: housectl <command> [flags]

commands:
  login        sign in and print the issued token
  devices      list devices
  log-reading  record a sensor reading
  version      print the version

Settings are read from $HOUSE_CONFIG (default housectl.yaml) and HOUSE_* variables.
Credentials come from -username/-password or HOUSE_USERNAME/HOUSE_PASSWORD.
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	cmd, args := os.Args[1], os.Args[2:]
	if cmd == "version" {
		figure.NewFigure("housectl", "cybermedium", true).Print()
		fmt.Println()
		fmt.Println(app.BuildVersion)
		return
	}

	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	username := fs.String("username", os.Getenv("HOUSE_USERNAME"), "resource owner user name")
	password := fs.String("password", os.Getenv("HOUSE_PASSWORD"), "resource owner password")

	var run func(context.Context, *app.Application, app.Credentials) error
	switch cmd {
	case "login":
		run = func(ctx context.Context, a *app.Application, creds app.Credentials) error {
			return a.Login(ctx, creds)
		}
	case "devices":
		page := fs.Int("page", 0, "zero based page index")
		size := fs.Int("size", 25, "page size")
		run = func(ctx context.Context, a *app.Application, creds app.Credentials) error {
			return a.ListDevices(ctx, creds, *page, *size)
		}
	case "log-reading":
		deviceID := fs.String("device", "", "device id or uuid")
		sensorType := fs.String("type", "", "sensor type, e.g. Temperature")
		values := valueFlag{}
		fs.Var(values, "value", "name=number, repeatable")
		run = func(ctx context.Context, a *app.Application, creds app.Credentials) error {
			reading := sensorlogging.Reading{SensorType: *sensorType, Values: values}
			if err := setDevice(&reading, *deviceID); err != nil {
				return err
			}
			_, err := a.LogReading(ctx, creds, reading)
			return err
		}
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", cmd, usage)
		os.Exit(2)
	}

	_ = fs.Parse(args)

	path := os.Getenv("HOUSE_CONFIG")
	if path == "" {
		path = config.DefaultPath
	}
	cfg, err := config.Load(path)
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	application, err := app.New(cfg)
	if err != nil {
		log.Fatalf("failed to initialize application: %v", err)
	}
	defer application.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	creds := app.Credentials{Username: *username, Password: *password}
	if err := run(ctx, application, creds); err != nil {
		application.Close()
		log.Fatalf("%s failed: %v", cmd, err)
	}
}

func setDevice(r *sensorlogging.Reading, device string) error {
	if device == "" {
		return sensorlogging.ErrMissingDevice
	}
	if id, err := strconv.Atoi(device); err == nil {
		r.DeviceID = &id
		return nil
	}
	id, err := uuid.Parse(device)
	if err != nil {
		return fmt.Errorf("device %q is neither an id nor a uuid", device)
	}
	r.DeviceUUID = id
	return nil
}

// valueFlag collects repeated name=number pairs.
type valueFlag map[string]float64

func (v valueFlag) String() string {
	parts := make([]string, 0, len(v))
	for k, n := range v {
		parts = append(parts, k+"="+strconv.FormatFloat(n, 'g', -1, 64))
	}
	return strings.Join(parts, ",")
}

func (v valueFlag) Set(s string) error {
	name, num, ok := strings.Cut(s, "=")
	if !ok || name == "" {
		return fmt.Errorf("want name=number, got %q", s)
	}
	f, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return fmt.Errorf("value %q: %w", name, err)
	}
	v[name] = f
	return nil
}
