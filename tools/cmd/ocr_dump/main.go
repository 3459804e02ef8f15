package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"taller-ocr/pkg/engine"
	"taller-ocr/pkg/ocr"
)

// Prints every orientation attempt and the parsed record for one image.
func main() {
	path := flag.String("file", "", "image path")
	timeout := flag.Duration("timeout", 60*time.Second, "deadline")
	flag.Parse()
	if *path == "" {
		log.Fatal("--file is required")
	}
	_ = godotenv.Load()

	data, err := os.ReadFile(*path)
	if err != nil {
		log.Fatalf("read: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	rec, closer, err := engine.New(ctx, os.Getenv("OCR_ENGINE"), os.LookupEnv)
	if err != nil {
		log.Fatalf("engine: %v", err)
	}
	defer closer.Close()

	quiet := logrus.New()
	quiet.SetLevel(logrus.WarnLevel)
	svc := ocr.NewService(rec, quiet)

	mt := mimetype.Detect(data).String()
	out, err := svc.Process(ctx, ocr.RawImage{Data: data, MediaType: mt})
	fmt.Printf("engine=%s media_type=%s elapsed=%s\n", rec.Name(), mt, out.Elapsed)
	for _, a := range out.Attempts {
		if a.Err != nil {
			fmt.Printf("  %3d°  error: %v\n", a.Orientation, a.Err)
			continue
		}
		fmt.Printf("  %3d°  score=%d chars=%d\n", a.Orientation, a.Score, len(a.Text))
	}
	if err != nil {
		log.Fatalf("process: %v", err)
	}
	fmt.Printf("best=%d°\n---- text ----\n%s\n---- record ----\n", out.Best.Orientation, out.Best.Text)
	b, _ := json.MarshalIndent(out.Record, "", "  ")
	fmt.Println(string(b))
}
