package configs

import (
	"strings"

	"github.com/duckieducksrgood/winchpoint/entity"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// SeedAdmin creates the first admin from ADMIN_* env vars.
func SeedAdmin(log *zap.Logger) error {
	email := strings.ToLower(strings.TrimSpace(getEnv("ADMIN_EMAIL", "")))
	pass := getEnv("ADMIN_PASSWORD", "")
	if email == "" || pass == "" {
		log.Info("seed_admin_skipped", zap.String("reason", "missing ADMIN_EMAIL/ADMIN_PASSWORD"))
		return nil
	}

	var count int64
	if err := db.Model(&entity.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		log.Info("seed_admin_exists", zap.String("email", email))
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(pass), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	admin := entity.User{
		Username:  getEnv("ADMIN_USERNAME", "admin"),
		Email:     email,
		Password:  string(hash),
		FirstName: "Admin",
		LastName:  "Seed",
		Role:      entity.RoleAdmin,
	}
	return db.Create(&admin).Error
}

// SeedLookups makes sure the storefront has its base categories.
func SeedLookups(log *zap.Logger) error {
	defaults := []entity.Category{
		{Name: "Winches", Description: "Electric and hydraulic winches"},
		{Name: "Recovery Gear", Description: "Straps, shackles, snatch blocks and boards"},
		{Name: "Lighting", Description: "Light bars, spot and flood lamps"},
		{Name: "Suspension", Description: "Lift kits, shocks and coils"},
	}
	for _, c := range defaults {
		var row entity.Category
		if err := db.Where(entity.Category{Name: c.Name}).Attrs(entity.Category{Description: c.Description}).
			FirstOrCreate(&row).Error; err != nil {
			return err
		}
	}
	log.Info("lookups_seeded", zap.Int("categories", len(defaults)))
	return nil
}
