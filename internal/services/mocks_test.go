package services

import "passagens/internal/mocks"

var (
	_ TripLookup     = (*mocks.TripLookup)(nil)
	_ BookingStore   = (*mocks.BookingStore)(nil)
	_ PaymentStore   = (*mocks.PaymentStore)(nil)
	_ PaymentGateway = (*mocks.Gateway)(nil)
	_ FileUploader   = (*mocks.Uploader)(nil)
)
