package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"unitbook/internal/database"
	"unitbook/internal/models"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v2"
)

type UnitsConfig struct {
	Units []seedUnit `yaml:"units"`
}

type seedUnit struct {
	Rooms       int     `yaml:"rooms"`
	Type        string  `yaml:"type"`
	Floor       int     `yaml:"floor"`
	BaseCost    float64 `yaml:"base_cost"`
	Description string  `yaml:"description"`
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	var (
		unitsPath = flag.String("units", "configs/units.yaml", "path to units.yaml")
		dbPath    = flag.String("db", "./data/unitbook.db", "path to sqlite db")
	)
	flag.Parse()

	data, err := os.ReadFile(*unitsPath)
	if err != nil {
		return fmt.Errorf("read units: %w", err)
	}
	var cfg UnitsConfig
	if err = yaml.Unmarshal(data, &cfg); err != nil {
		return fmt.Errorf("parse units: %w", err)
	}
	if len(cfg.Units) == 0 {
		return fmt.Errorf("no units in yaml")
	}

	db, err := database.NewDB(*dbPath, &logger)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	created := 0
	for _, su := range cfg.Units {
		unit := &models.Unit{
			Rooms:       su.Rooms,
			Type:        su.Type,
			Floor:       su.Floor,
			BaseCost:    su.BaseCost,
			Description: su.Description,
			Status:      models.UnitStatusAvailable,
		}
		if err = db.CreateUnit(ctx, unit); err != nil {
			return fmt.Errorf("create unit (rooms=%d floor=%d): %w", su.Rooms, su.Floor, err)
		}
		created++
	}

	fmt.Printf("done: created=%d\n", created)
	return nil
}
