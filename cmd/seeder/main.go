package main

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/wellnest/wellnest-api/internal/config"
	"github.com/wellnest/wellnest-api/internal/model"
	"github.com/wellnest/wellnest-api/pkg/logger"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const demoPassword = "password123"

type demoExpert struct {
	name           string
	specialization string
	bio            string
	years          int
	price          int64
	rating         float64
}

var demoExperts = []demoExpert{
	{"Dr. Maya Chen", "Psychologist", "Anxiety, burnout and sleep problems.", 12, 6000, 4.9},
	{"Liam Walker", "Nutritionist", "Meal plans for busy people.", 6, 3500, 4.6},
	{"Sofia Rossi", "Yoga Instructor", "Gentle flows and breathwork.", 8, 2500, 4.8},
	{"Dr. Arjun Mehta", "Physiotherapist", "Back pain and sports recovery.", 15, 5500, 4.7},
}

func main() {
	cfg := config.Load()
	log := logger.New(logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})

	db, err := gorm.Open(postgres.Open(cfg.DB.DSN()), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		log.WithError(err).Fatal("failed to connect to database")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(demoPassword), bcrypt.DefaultCost)
	if err != nil {
		log.WithError(err).Fatal("failed to hash password")
	}

	for i := 1; i <= 5; i++ {
		seedUser(db, log, fmt.Sprintf("Client %d", i), fmt.Sprintf("user%d@wellnest.local", i), model.RoleUser, string(hashed))
	}

	for i, e := range demoExperts {
		user := seedUser(db, log, e.name, fmt.Sprintf("expert%d@wellnest.local", i+1), model.RoleExpert, string(hashed))
		if user != nil {
			seedExpert(db, log, user, e)
		}
	}

	log.WithField("password", demoPassword).Info("seeding completed")
}

// seedUser returns the verified account for email, creating it if needed
func seedUser(db *gorm.DB, log logrus.FieldLogger, name, email string, role model.Role, hashed string) *model.User {
	var existing model.User
	if err := db.Where("email = ?", email).First(&existing).Error; err == nil {
		return &existing
	}

	now := time.Now()
	user := model.User{
		ID:              uuid.New(),
		Name:            name,
		Email:           email,
		Password:        hashed,
		Role:            role,
		AuthProvider:    model.AuthProviderEmail,
		EmailVerifiedAt: &now,
		Avatar:          "https://api.dicebear.com/7.x/avataaars/svg?seed=" + uuid.NewString(),
	}
	if err := db.Create(&user).Error; err != nil {
		log.WithError(err).WithField("email", email).Error("failed to create user")
		return nil
	}
	log.WithFields(logrus.Fields{"email": email, "role": role}).Info("created user")
	return &user
}

func seedExpert(db *gorm.DB, log logrus.FieldLogger, user *model.User, e demoExpert) {
	var count int64
	db.Model(&model.Expert{}).Where("user_id = ?", user.ID).Count(&count)
	if count > 0 {
		return
	}

	expert := model.Expert{
		UserID:          user.ID,
		Name:            e.name,
		Specialization:  e.specialization,
		Bio:             e.bio,
		ExperienceYears: e.years,
		SessionPrice:    e.price,
		Currency:        "USD",
		SessionMinutes:  60,
		Languages:       "en",
		Rating:          e.rating,
		ReviewCount:     int(e.rating * 10),
		Avatar:          user.Avatar,
		IsAvailable:     true,
	}
	if err := db.Create(&expert).Error; err != nil {
		log.WithError(err).WithField("expert", e.name).Error("failed to create expert")
		return
	}
	log.WithField("expert", e.name).Info("created expert profile")
}
