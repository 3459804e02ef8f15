package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"taller-ocr/models"
)

func deref(s *string) string {
	if s == nil {
		return "-"
	}
	return *s
}

func main() {
	status := flag.String("status", "", "filter by status (ok, no_text, error)")
	file := flag.String("file", "", "filter by file name")
	limit := flag.Int("limit", 20, "rows to print")
	flag.Parse()

	dsn := os.Getenv("DB_DSN")
	if strings.TrimSpace(dsn) == "" {
		log.Fatal("DB_DSN not set in env")
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	q := db.Model(&models.Escaneo{}).Order("id desc").Limit(*limit)
	if *status != "" {
		q = q.Where("status = ?", *status)
	}
	if *file != "" {
		q = q.Where("file_name = ?", *file)
	}
	var rows []models.Escaneo
	if err := q.Find(&rows).Error; err != nil {
		log.Fatalf("query: %v", err)
	}
	for _, r := range rows {
		fmt.Printf("id=%d at=%s file=%q status=%s engine=%s rot=%d score=%d ms=%d chasis=%s matricula=%s reason=%q\n",
			r.ID, r.CreatedAt.Format("2006-01-02 15:04:05"), r.FileName, r.Status, r.Engine, r.Orientation, r.Score,
			r.DurationMS, deref(r.Chasis), deref(r.Matricula), r.FailedReason)
	}
}
