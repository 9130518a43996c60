package service

// QRCodeService generates scannable placards for shelter sites.
type QRCodeService interface {
	// GenerateShelterQR renders a PNG QR code encoding the shelter ID and
	// its coordinates, for posting at the physical site.
	GenerateShelterQR(shelterID string, latitude, longitude float64) ([]byte, error)

	// ParseShelterQR decodes QR payload data and returns the shelter ID.
	ParseShelterQR(qrData string) (string, error)
}
