package services

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"passagens/internal/domain"
	"passagens/internal/domain/models"
	"passagens/internal/utils"

	"github.com/phpdave11/gofpdf"
	"github.com/skip2/go-qrcode"
)

// DocsService renders boarding tickets for paid bookings.
type DocsService struct {
	Bookings  BookingStore
	RequestID string
	Loader    func(ctx context.Context, id string) (models.Booking, error)
}

// BoardingCode is the value encoded in a ticket's QR code.
func BoardingCode(b models.Booking) string {
	seats := make([]string, 0, len(b.Seats))
	for _, n := range b.Seats {
		seats = append(seats, fmt.Sprintf("%d", n))
	}
	return fmt.Sprintf("PSG-%s-%s-%s", b.ID, b.Schedule.ID, strings.Join(seats, "."))
}

// GenerateTicket returns the ticket PDF and its file name. Only the payer of
// a paid booking may fetch it.
func (s DocsService) GenerateTicket(ctx context.Context, bookingID string, identity *models.Identity) ([]byte, string, error) {
	if identity == nil || identity.Email == "" {
		return nil, "", domain.DomainError{Code: "not_authenticated", Err: domain.ErrNotAuthenticated}
	}
	b, err := s.load(ctx, bookingID)
	if err != nil {
		return nil, "", err
	}
	if b.PayerEmail != identity.Email {
		return nil, "", domain.NotFoundError{Resource: "reserva"}
	}
	if !b.Paid {
		return nil, "", domain.ConflictError{Resource: "reserva", Msg: "pagamento ainda não confirmado"}
	}

	utils.LogEvent(s.RequestID, "docs", "generate_ticket", "booking_id="+b.ID)
	return buildTicketPDF(b)
}

func (s DocsService) load(ctx context.Context, id string) (models.Booking, error) {
	if s.Loader != nil {
		return s.Loader(ctx, id)
	}
	return s.Bookings.GetByID(ctx, id)
}

func buildTicketPDF(b models.Booking) ([]byte, string, error) {
	qrBytes, err := qrcode.Encode(BoardingCode(b), qrcode.Medium, 256)
	if err != nil {
		return nil, "", fmt.Errorf("qrcode: %w", err)
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle("Passagem", false)
	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 18)
	pdf.Cell(0, 10, tr("BILHETE DE PASSAGEM"))
	pdf.Ln(12)

	trip := b.Schedule
	yStart := pdf.GetY()
	pdf.SetFont("Helvetica", "", 12)
	lines := []string{
		fmt.Sprintf("Trecho     : %s", legLabel(b.Leg)),
		fmt.Sprintf("Linha      : %s", safe(trip.LineName, "-")),
		fmt.Sprintf("Origem     : %s", safe(trip.OriginName, "-")),
		fmt.Sprintf("Destino    : %s", safe(trip.DestinationName, "-")),
		fmt.Sprintf("Data       : %s", safe(utils.FormatBRDate(trip.Date), "-")),
		fmt.Sprintf("Partida    : %s", safe(utils.TimeHM(trip.DepartureTime), "-")),
		fmt.Sprintf("Chegada    : %s", safe(utils.TimeHM(trip.ArrivalTime), "-")),
		fmt.Sprintf("Poltronas  : %s", safe(utils.JoinSeats(b.Seats), "-")),
		fmt.Sprintf("Valor      : %s", utils.FormatBRL(b.Price)),
		fmt.Sprintf("Reserva    : %s", b.ID),
	}
	for _, line := range lines {
		pdf.Cell(0, 7, tr(line))
		pdf.Ln(7)
	}

	pdf.RegisterImageOptionsReader("qr", gofpdf.ImageOptions{ImageType: "png"}, bytes.NewReader(qrBytes))
	pdf.ImageOptions("qr", 145, yStart, 45, 0, false, gofpdf.ImageOptions{ImageType: "png"}, 0, "")

	pdf.Ln(6)
	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 7, "Passageiros")
	pdf.Ln(8)
	pdf.SetFont("Helvetica", "", 11)
	for _, n := range b.Seats {
		p := b.Passengers[n]
		line := fmt.Sprintf("Poltrona %02d  %s  doc. %s  tel. %s", n, safe(p.Name, "-"), safe(p.Document, "-"), safe(p.Phone, "-"))
		pdf.Cell(0, 6, tr(line))
		pdf.Ln(6)
	}

	pdf.Ln(6)
	pdf.SetFont("Helvetica", "I", 10)
	pdf.MultiCell(0, 6, tr("Apresente este bilhete e um documento com foto no embarque. Código: "+BoardingCode(b)), "", "", false)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, "", err
	}

	filename := fmt.Sprintf("PASSAGEM_%s_%s.pdf", utils.SafeFilenamePart(b.ID), utils.SafeFilenamePart(trip.OriginName+"_"+trip.DestinationName))
	return buf.Bytes(), filename, nil
}

func legLabel(leg models.Leg) string {
	if leg == models.LegReturn {
		return "Volta"
	}
	return "Ida"
}

func safe(v, fallback string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return fallback
	}
	return v
}
