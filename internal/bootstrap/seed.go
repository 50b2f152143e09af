package bootstrap

import (
	"log"

	"builders.to/backend/internal/model"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&model.User{},
		&model.AccountBalance{},
		&model.LedgerEntry{},
		&model.KarmaLog{},
		&model.KarmaStats{},
		&model.HelpfulMark{},
		&model.ChannelCategory{},
		&model.Channel{},
		&model.ChannelMember{},
		&model.ChannelInvite{},
		&model.Message{},
		&model.Reaction{},
		&model.Bookmark{},
		&model.ChatModAction{},
		&model.Notification{},
	)
}

func SeedChannels(db *gorm.DB) error {
	defaults := []model.Channel{
		{Name: "general", Slug: "general", Type: model.ChannelPublic, Description: stringPtr("General chat for everyone")},
		{Name: "introductions", Slug: "introductions", Type: model.ChannelPublic, Description: stringPtr("Say hi and tell us what you're building")},
		{Name: "daily-updates", Slug: "daily-updates", Type: model.ChannelPublic, Description: stringPtr("Ship logs and daily progress updates")},
	}

	for _, ch := range defaults {
		var count int64
		if err := db.Model(&model.Channel{}).
			Where("slug = ?", ch.Slug).
			Count(&count).Error; err != nil {
			return err
		}

		if count == 0 {
			if err := db.Create(&ch).Error; err != nil {
				return err
			}
		}
	}

	return nil
}

func SeedAdminUser(db *gorm.DB) error {
	var count int64
	if err := db.Model(&model.User{}).
		Where("email = ?", "admin@builders.to").
		Count(&count).Error; err != nil {
		return err
	}

	if count > 0 {
		log.Println("Admin user already exists, skipping seed")
		return nil
	}

	password := "admin123"
	hashedPasswordBytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	adminUser := model.User{
		Username:     "admin",
		Email:        "admin@builders.to",
		PasswordHash: string(hashedPasswordBytes),
		IsAdmin:      true,
	}

	if err := db.Create(&adminUser).Error; err != nil {
		return err
	}

	log.Println("✅ Admin user seeded successfully")
	log.Println("   Email: admin@builders.to")
	log.Println("   Password: admin123")

	return nil
}

func stringPtr(s string) *string {
	return &s
}
