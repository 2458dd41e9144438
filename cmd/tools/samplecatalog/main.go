package main

import (
	"encoding/csv"
	"flag"
	"log"
	"os"
)

func main() {
	out := flag.String("o", "products.csv", "output path for the sample catalog")
	force := flag.Bool("force", false, "overwrite an existing file")
	flag.Parse()

	if !*force {
		if _, err := os.Stat(*out); err == nil {
			log.Fatalf("%s already exists, re-run with -force to overwrite", *out)
		}
	}

	products := [][]string{
		{"code", "name", "price"},
		{"P001", "Rice 5kg", "425.00"},
		{"P002", "Toor Dal 1kg", "160.00"},
		{"P003", "Sunflower Oil 1L", "148.50"},
		{"P004", "Sugar 1kg", "44.00"},
		{"P005", "Tea Powder 250g", "120.00"},
		{"P006", "Wheat Flour 5kg", "230.00"},
		{"P007", "Bath Soap", "36.00"},
		{"P008", "Detergent 1kg", "99.00"},
		{"P009", "Match Box", "10.00"},
		{"P010", "Salt 1kg", "24.00"},
	}

	f, err := os.Create(*out)
	if err != nil {
		log.Fatalf("Failed to create %s: %v", *out, err)
	}
	w := csv.NewWriter(f)
	if err := w.WriteAll(products); err != nil {
		log.Fatalf("Failed to write catalog: %v", err)
	}
	if err := f.Close(); err != nil {
		log.Fatalf("Failed to close %s: %v", *out, err)
	}

	log.Printf("Wrote %d products to %s", len(products)-1, *out)
}
