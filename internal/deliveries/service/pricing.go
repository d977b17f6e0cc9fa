package service

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"
	"strings"

	"fleetlink/internal/geo"
	"fleetlink/pkg/config"
	"fleetlink/pkg/model"
)

// Price turns a trip and a package weight into an estimation. Each amount
// is rounded to whole rupees.
func Price(tariff config.Tariff, trip geo.Trip, weightKg float64) model.Estimation {
	shipping := math.Round(tariff.BaseFare + tariff.PerKmRate*float64(trip.DistanceKm) + tariff.PerKgRate*weightKg)
	gst := math.Round(shipping * tariff.GSTRate)

	return model.Estimation{
		DistanceKm:      trip.DistanceKm,
		DurationMinutes: trip.DurationMinutes,
		EstimatedTime:   trip.EstimatedTime,
		ShippingCharges: shipping,
		GST:             gst,
		TotalAmount:     shipping + gst,
		Source:          trip.Source,
	}
}

// QuoteDigest fingerprints the inputs Price depends on: both stops and the
// package weight in kilograms.
func QuoteDigest(pickup, drop *model.Stop, pkg *model.Package) string {
	var b strings.Builder
	for _, stop := range []*model.Stop{pickup, drop} {
		b.WriteString(strings.ToLower(stop.Address()))
		if loc := stop.MapLocation; loc != nil {
			fmt.Fprintf(&b, "@%.6f,%.6f", loc.Lat, loc.Lng)
		}
		b.WriteByte('|')
	}
	fmt.Fprintf(&b, "%.3f", pkg.WeightKg())

	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}
