package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"maskwatch/internal/detector"
)

// maskcheck probes the inference backend and optionally runs one image
// through the detection client, printing what the server would see.
func main() {
	imagePath := flag.String("image", "", "image file to run through detection")
	flag.Parse()

	detectURL := os.Getenv("DETECT_URL")

	fmt.Println("Mask Watch backend check")
	fmt.Println("========================")

	if detectURL == "" {
		fmt.Println("⚠️  DETECT_URL not set: the server would run synthetic-only")
	} else {
		fmt.Printf("Backend: %s\n", detectURL)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	var remote detector.Detector
	if detectURL != "" {
		rd := detector.NewRemoteDetector(detectURL, 0)
		remote = rd

		if status, err := rd.Health(ctx); err != nil {
			fmt.Printf("❌ Health probe failed: %v\n", err)
		} else {
			fmt.Printf("✅ Backend status: %s (model loaded: %v)\n", status.Status, status.ModelLoaded)
		}
	}

	if *imagePath == "" {
		return
	}

	imageData, err := os.ReadFile(*imagePath)
	if err != nil {
		fmt.Printf("❌ Failed to read %s: %v\n", *imagePath, err)
		os.Exit(1)
	}

	client := detector.NewClient(remote, detector.NewSyntheticDetector(time.Now().UnixNano()), nil)
	result := client.Detect(ctx, "maskcheck", imageData)

	fmt.Printf("\nProvenance: %s\n", result.Provenance)
	if result.Synthetic() {
		fmt.Println("⚠️  Backend unavailable; these detections are fabricated")
	}
	fmt.Printf("Detections: %d\n", len(result.Detections))
	for i, d := range result.Detections {
		fmt.Printf("  %2d. %s\n", i+1, d)
	}
}
