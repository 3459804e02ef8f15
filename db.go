package main

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"taller-ocr/models"
)

// openDB connects the optional scan history. It returns nil when DB_DSN is not set.
func openDB(cfg Config, log logrus.FieldLogger) (*gorm.DB, error) {
	if cfg.DBDSN == "" {
		log.Info("DB_DSN not set; scan history disabled")
		return nil, nil
	}
	db, err := gorm.Open(postgres.Open(cfg.DBDSN), &gorm.Config{Logger: logger.Default.LogMode(logger.Warn)})
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if cfg.AutoMigrate {
		// Permission errors are logged and ignored so a read-only role can still serve.
		if err := db.AutoMigrate(&models.Escaneo{}); err != nil {
			log.WithError(err).Warn("migration warning (escaneos)")
		}
	}
	return db, nil
}

// recordScan stores a scan row. Failures never affect the response.
func recordScan(db *gorm.DB, log logrus.FieldLogger, scan *models.Escaneo) {
	if db == nil {
		return
	}
	scan.Clamp()
	if err := db.Create(scan).Error; err != nil {
		log.WithError(err).WithField("file", scan.FileName).Warn("failed to store scan")
	}
}

// recentScans returns the latest scans, newest first.
func recentScans(db *gorm.DB, limit int) ([]models.Escaneo, error) {
	var items []models.Escaneo
	if err := db.Order("id desc").Limit(limit).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}
