package util

import (
	"fmt"
	"io"

	"github.com/360EntSecGroup-Skylar/excelize"
	"github.com/ariebrainware/telemed-api/model"
)

const appointmentSheet = "Appointments"

var appointmentHeaders = []string{
	"Appointment ID", "Patient", "Patient Email", "Date", "Time", "Type",
	"Reason", "Status", "Payment Status", "Amount", "Meeting Link",
}

// WriteAppointmentsExcel renders appointments as an xlsx workbook into w.
func WriteAppointmentsExcel(w io.Writer, appointments []model.Appointment) error {
	file := excelize.NewFile()
	file.NewSheet(appointmentSheet)
	file.DeleteSheet("Sheet1")

	for i, h := range appointmentHeaders {
		file.SetCellValue(appointmentSheet, cellName(i, 1), h)
	}
	for i, a := range appointments {
		row := i + 2
		values := []interface{}{
			a.AppointmentID, a.PatientName, a.PatientEmail, a.AppointmentDate, a.AppointmentTime,
			a.ConsultationType, a.Reason, a.Status, a.PaymentStatus, a.PaymentAmount, a.MeetingLink,
		}
		for col, v := range values {
			file.SetCellValue(appointmentSheet, cellName(col, row), v)
		}
	}

	if err := file.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

// cellName converts a zero-based column and one-based row to "A1" notation.
// Only single-letter columns are needed here.
func cellName(col, row int) string {
	return fmt.Sprintf("%c%d", 'A'+rune(col), row)
}
