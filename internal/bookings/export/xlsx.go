// Package export renders booking lists as spreadsheets.
package export

import (
	"fmt"
	"io"
	"time"

	"fleetlink/pkg/model"

	"github.com/xuri/excelize/v2"
)

const (
	SheetName   = "Bookings"
	ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

var headers = []string{
	"Booking ID", "Status", "Booking Type", "Customer", "Email", "Phone",
	"Vehicle Number", "Vehicle Type", "City", "Pickup", "Dropoff",
	"Start", "End", "Total Price", "Payment Status", "Booked At",
}

// WriteXLSX writes one header row and one row per booking to w.
func WriteXLSX(w io.Writer, bookings []*model.Booking) error {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(SheetName)
	if err != nil {
		return fmt.Errorf("failed to create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("failed to drop default sheet: %w", err)
	}

	if err := f.SetSheetRow(SheetName, "A1", &headers); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	style, err := f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
		Font: &excelize.Font{Bold: true},
	})
	if err == nil {
		last, _ := excelize.CoordinatesToCellName(len(headers), 1)
		_ = f.SetCellStyle(SheetName, "A1", last, style)
	}

	for i, b := range bookings {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := Row(b)
		if err := f.SetSheetRow(SheetName, cell, &row); err != nil {
			return fmt.Errorf("failed to write booking %s: %w", b.Reference, err)
		}
	}

	if err := f.SetPanes(SheetName, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"}); err != nil {
		return fmt.Errorf("failed to freeze header: %w", err)
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

// Row returns the cell values of one booking, in header order.
func Row(b *model.Booking) []any {
	var vehicleNumber, vehicleType, city string
	if b.Vehicle != nil {
		vehicleNumber, vehicleType, city = b.Vehicle.VehicleNumber, b.Vehicle.VehicleType, b.Vehicle.City
	}
	end := ""
	if b.EndDate != nil {
		end = formatTime(*b.EndDate)
	}
	return []any{
		b.Reference, b.Status, b.BookingType, b.CustomerName, b.CustomerEmail, b.CustomerPhone,
		vehicleNumber, vehicleType, city, b.PickupLocation, b.DropoffLocation,
		formatTime(b.StartDate), end, b.TotalPrice, b.PaymentStatus, formatTime(b.BookingDate),
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
