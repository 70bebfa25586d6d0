package main

import (
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/RektefeMaster/parts-backend/internal/config"
	"github.com/RektefeMaster/parts-backend/internal/db"
	"github.com/RektefeMaster/parts-backend/internal/model"
	"github.com/joho/godotenv"
	"gorm.io/gorm"
)

type seedPart struct {
	Name        string
	Description string
	UnitPrice   int64
	Stock       int
}

func main() {
	if err := run(); err != nil {
		log.Fatalf("seed failed: %v", err)
	}
}

func run() error {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	gdb, err := db.Connect(cfg)
	if err != nil {
		return fmt.Errorf("connect db: %w", err)
	}
	if err := gdb.AutoMigrate(&model.Part{}, &model.Reservation{}); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	canSeed, err := shouldSeed(gdb)
	if err != nil {
		return err
	}
	if !canSeed {
		log.Printf("parts already exist; skipping seed (set FORCE_SEED=true to override)")
		return nil
	}

	sellerUID := os.Getenv("SEED_SELLER_UID")
	if sellerUID == "" {
		sellerUID = "seed-seller"
	}

	parts := buildSeedParts(sellerUID)
	err = gdb.Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(`DELETE FROM reservations`).Error; err != nil {
			return fmt.Errorf("clear reservations: %w", err)
		}
		if err := tx.Exec(`DELETE FROM parts`).Error; err != nil {
			return fmt.Errorf("clear parts: %w", err)
		}
		for i := range parts {
			if err := tx.Create(&parts[i]).Error; err != nil {
				return fmt.Errorf("insert part %q: %w", parts[i].Name, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	log.Printf("seeded %d parts", len(parts))
	return nil
}

func buildSeedParts(sellerUID string) []model.Part {
	catalog := []seedPart{
		{Name: "Front brake pad set", Description: "Ceramic compound, fits most compact sedans.", UnitPrice: 1800, Stock: 12},
		{Name: "Oil filter", Description: "Spin-on filter, standard thread.", UnitPrice: 250, Stock: 40},
		{Name: "Air filter", Description: "Panel air filter, washable.", UnitPrice: 320, Stock: 25},
		{Name: "Alternator 120A", Description: "Remanufactured, 1 year warranty.", UnitPrice: 5400, Stock: 4},
		{Name: "Radiator", Description: "Aluminum core, includes drain plug.", UnitPrice: 4200, Stock: 6},
		{Name: "Timing belt kit", Description: "Belt, tensioner and idler pulley.", UnitPrice: 2900, Stock: 8},
		{Name: "Spark plug set (4)", Description: "Iridium, pre-gapped.", UnitPrice: 960, Stock: 30},
		{Name: "Shock absorber, rear", Description: "Gas-charged, sold individually.", UnitPrice: 2100, Stock: 10},
		{Name: "Wiper blade pair", Description: "All-season, 24/18 inch.", UnitPrice: 380, Stock: 50},
		{Name: "Battery 60Ah", Description: "Maintenance free, 540 CCA.", UnitPrice: 3600, Stock: 7},
		{Name: "Clutch kit", Description: "Disc, pressure plate and release bearing.", UnitPrice: 6800, Stock: 3},
		{Name: "Fuel pump", Description: "In-tank electric pump with strainer.", UnitPrice: 3100, Stock: 5},
	}
	parts := make([]model.Part, 0, len(catalog))
	for _, s := range catalog {
		parts = append(parts, model.Part{
			SellerUID:      sellerUID,
			Name:           s.Name,
			Description:    s.Description,
			UnitPrice:      s.UnitPrice,
			AvailableStock: s.Stock,
		})
	}
	return parts
}

func shouldSeed(gdb *gorm.DB) (bool, error) {
	var cnt int64
	if err := gdb.Model(&model.Part{}).Count(&cnt).Error; err != nil {
		return false, fmt.Errorf("count parts: %w", err)
	}
	if cnt == 0 {
		return true, nil
	}
	return strings.EqualFold(os.Getenv("FORCE_SEED"), "true"), nil
}
