// Package qrcode renders scannable shelter placards.
package qrcode

import (
	"encoding/json"
	"fmt"

	"beacon/internal/domain/service"

	"github.com/skip2/go-qrcode"
)

type qrcodeService struct {
	size                 int
	errorCorrectionLevel qrcode.RecoveryLevel
}

// QRCodeData represents the QR code data structure
type QRCodeData struct {
	ShelterID string  `json:"shelter_id"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Type      string  `json:"type"`
}

// NewQRCodeService creates a new QR code service instance
func NewQRCodeService(size int, errorCorrectionLevel string) service.QRCodeService {
	// Set error correction level
	var level qrcode.RecoveryLevel
	switch errorCorrectionLevel {
	case "L":
		level = qrcode.Low
	case "M":
		level = qrcode.Medium
	case "Q":
		level = qrcode.High
	case "H":
		level = qrcode.Highest
	default:
		level = qrcode.Medium
	}

	return &qrcodeService{
		size:                 size,
		errorCorrectionLevel: level,
	}
}

// GenerateShelterQR generates a QR code placard for a shelter site
func (s *qrcodeService) GenerateShelterQR(shelterID string, latitude, longitude float64) ([]byte, error) {
	// Create QR code data
	data := QRCodeData{
		ShelterID: shelterID,
		Latitude:  latitude,
		Longitude: longitude,
		Type:      "shelter",
	}

	// Convert to JSON
	jsonData, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal QR code data: %w", err)
	}

	// Generate QR code
	qrCode, err := qrcode.New(string(jsonData), s.errorCorrectionLevel)
	if err != nil {
		return nil, fmt.Errorf("failed to create QR code: %w", err)
	}

	// Generate PNG image
	pngBytes, err := qrCode.PNG(s.size)
	if err != nil {
		return nil, fmt.Errorf("failed to generate PNG: %w", err)
	}

	return pngBytes, nil
}

// ParseShelterQR parses QR code data and returns the shelter ID
func (s *qrcodeService) ParseShelterQR(qrData string) (string, error) {
	var data QRCodeData
	if err := json.Unmarshal([]byte(qrData), &data); err != nil {
		return "", fmt.Errorf("failed to unmarshal QR code data: %w", err)
	}

	// Validate type
	if data.Type != "shelter" {
		return "", fmt.Errorf("invalid QR code type: %s", data.Type)
	}

	if data.ShelterID == "" {
		return "", fmt.Errorf("missing shelter ID in QR code data")
	}

	return data.ShelterID, nil
}
