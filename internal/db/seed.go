package db

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"carbonseed/internal/auth"
	"carbonseed/internal/models"
)

// Seed inserts a bootstrap admin account and a demo factory with one device
// so a fresh installation is immediately usable. Existing rows are left
// untouched.
func Seed(ctx context.Context, database *gorm.DB) error {
	var count int64
	if err := database.WithContext(ctx).Model(&models.User{}).Where("role = ?", models.RoleAdmin).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	password := os.Getenv("SEED_ADMIN_PASSWORD")
	if password == "" {
		return errors.New("SEED_ADMIN_PASSWORD is required to seed the admin account")
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}

	factory := models.Factory{
		ID:       uuid.New(),
		Name:     "Demo Steel Works",
		Location: "Pune, Maharashtra",
		Industry: "steel",
	}
	if err := database.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&factory).Error; err != nil {
		return fmt.Errorf("seed factory: %w", err)
	}

	admin := models.User{
		ID:           uuid.New(),
		Email:        "admin@carbonseed.local",
		PasswordHash: hash,
		FullName:     "Platform Admin",
		Role:         models.RoleAdmin,
		IsActive:     true,
	}
	if err := database.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&admin).Error; err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}

	device := models.Device{
		ID:          uuid.New(),
		DeviceID:    "ESP32-DEMO-001",
		DeviceName:  "Furnace 1 Monitor",
		DeviceType:  "ESP32",
		FactoryID:   factory.ID,
		MachineName: "Induction Furnace 1",
		Location:    "Melt Shop",
		IsActive:    true,
		APIKey:      uuid.NewString(),
	}
	if err := database.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&device).Error; err != nil {
		return fmt.Errorf("seed device: %w", err)
	}

	return nil
}
